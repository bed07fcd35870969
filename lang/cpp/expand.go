package cpp

import (
	"strings"

	"github.com/mna/cfront/lang/diag"
	"github.com/mna/cfront/lang/scanner"
	"github.com/mna/cfront/lang/source"
	tok "github.com/mna/cfront/lang/token"
)

// handle is the per-token step of spec.md §4.4's macro-expansion
// algorithm: a plain token is emitted; an unhidden macro name is replaced
// and pushed back onto the input for rescanning.
func (p *Preprocessor) handle(t *tok.Token) {
	if t.Kind != tok.IDENT {
		p.emit(t)
		return
	}
	m := p.macros.Lookup(t.Lit)
	if m == nil || t.Hide.Has(t.Lit) {
		p.emit(t)
		return
	}

	if m.Builtin {
		rep := m.Handler(p, t)
		rep.Hide = t.Hide.With(m.Name)
		rep.Next = nil
		p.pushFront(rep)
		return
	}

	if m.ObjectLike {
		rep := cloneChain(m.Body, t.Hide.With(m.Name))
		p.pushFront(rep)
		return
	}

	// function-like: only a macro call if immediately followed (modulo
	// whitespace) by '(', per spec.md §4.4.
	nxt := p.advanceRaw()
	if nxt == nil || nxt.Kind != tok.LPAREN {
		if nxt != nil {
			p.unread(nxt)
		}
		p.emit(t)
		return
	}

	args, rparen, ok := p.collectArgs(t, m)
	if !ok {
		p.emit(t)
		return
	}
	hide := t.Hide.Intersect(rparen.Hide).With(m.Name)
	rep := p.substitute(m, args, hide)
	p.pushFront(rep)
}

// cloneChain deep-copies toks (a macro body), unioning hide into every
// copy's hide-set, per spec.md §4.4 step 1 "union each token's hide-set
// with {name}".
func cloneChain(toks *tok.Token, hide tok.HideSet) *tok.Token {
	var head, tail *tok.Token
	for t := toks; t != nil; t = t.Next {
		cp := *t
		cp.Hide = cp.Hide.Union(hide)
		cp.Next = nil
		if head == nil {
			head, tail = &cp, &cp
		} else {
			tail.Next = &cp
			tail = &cp
		}
	}
	return head
}

// collectArgs consumes a function-like macro call's argument list,
// assuming the opening '(' has already been consumed. Top-level commas
// (paren depth 0 relative to the call) separate arguments; nested parens
// are collected as part of the enclosing argument, per spec.md §4.4 "top-
// level commas separate arguments".
func (p *Preprocessor) collectArgs(callTok *tok.Token, m *Macro) (args [][]*tok.Token, rparen *tok.Token, ok bool) {
	depth := 0
	var cur []*tok.Token
	for {
		t := p.advanceRaw()
		if t == nil || t.Kind == tok.EOF {
			p.errorAt(callTok.Pos, "unterminated argument list invoking macro %q", m.Name)
			if t != nil {
				p.unread(t)
			}
			return nil, nil, false
		}
		if t.Kind == tok.LPAREN {
			depth++
			cur = append(cur, t)
			continue
		}
		if t.Kind == tok.RPAREN {
			if depth == 0 {
				args = append(args, cur)
				return args, t, true
			}
			depth--
			cur = append(cur, t)
			continue
		}
		if t.Kind == tok.COMMA && depth == 0 {
			args = append(args, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
}

// substitute implements spec.md §4.4 step 1's body walk: parameter
// substitution (raw when adjacent to # or ##, expanded otherwise),
// stringize, token-paste, and __VA_OPT__.
func (p *Preprocessor) substitute(m *Macro, rawArgs [][]*tok.Token, hide tok.HideSet) *tok.Token {
	params := paramIndex(m)
	vaArgs := variadicArgs(m, rawArgs)

	body := chainToSlice(m.Body)
	var out []*tok.Token

	for i := 0; i < len(body); i++ {
		b := body[i]

		if b.Kind == tok.IDENT && b.Lit == "__VA_OPT__" && i+1 < len(body) && body[i+1].Kind == tok.LPAREN {
			inner, next := sliceBalancedParen(body, i+1)
			i = next
			if len(vaArgs) > 0 {
				out = append(out, p.substituteInner(inner, params, rawArgs, vaArgs, false)...)
			}
			continue
		}

		if b.Kind == tok.HASH && i+1 < len(body) {
			pname, argToks, isParam := paramAt(body[i+1], params, rawArgs, m, vaArgs)
			if isParam {
				out = append(out, stringize(pname, argToks))
				i++
				continue
			}
		}

		if b.Kind == tok.HASHHASH && len(out) > 0 && i+1 < len(body) {
			_, rhsToks, rhsIsParam := paramAt(body[i+1], params, rawArgs, m, vaArgs)
			var rhsFirst *tok.Token
			var rhsRest []*tok.Token
			if rhsIsParam {
				if len(rhsToks) > 0 {
					rhsFirst, rhsRest = rhsToks[0], rhsToks[1:]
				}
			} else {
				rhsFirst, rhsRest = body[i+1], nil
			}
			lhs := out[len(out)-1]
			if rhsFirst == nil {
				// ## with an empty right operand: left operand stands alone.
				i++
				continue
			}
			pasted := p.paste(lhs, rhsFirst)
			out[len(out)-1] = pasted
			out = append(out, rhsRest...)
			i++
			continue
		}

		if _, argToks, isParam := paramAt(b, params, rawArgs, m, vaArgs); isParam {
			// Adjacent to ## on the right (## P) is handled above by detecting
			// HASHHASH before the parameter; adjacent on the left (P ##) must
			// substitute raw, deferring expansion since the paste branch above
			// consumes argToks directly without expanding.
			if i+1 < len(body) && body[i+1].Kind == tok.HASHHASH {
				out = append(out, argToks...)
			} else {
				out = append(out, chainToSlice(p.expandArgTokens(sliceToChain(argToks)))...)
			}
			continue
		}

		cp := *b
		cp.Hide = cp.Hide.Union(hide)
		cp.Next = nil
		out = append(out, &cp)
	}

	for _, t := range out {
		t.Hide = t.Hide.Union(hide)
	}
	return sliceToChain(out)
}

func (p *Preprocessor) substituteInner(inner []*tok.Token, params map[string]int, rawArgs [][]*tok.Token, vaArgs []*tok.Token, _ bool) []*tok.Token {
	var out []*tok.Token
	for i := 0; i < len(inner); i++ {
		b := inner[i]
		if _, argToks, isParam := paramAt(b, params, rawArgs, nil, vaArgs); isParam {
			out = append(out, chainToSlice(p.expandArgTokens(sliceToChain(argToks)))...)
			continue
		}
		cp := *b
		cp.Next = nil
		out = append(out, &cp)
	}
	return out
}

func paramIndex(m *Macro) map[string]int {
	idx := make(map[string]int, len(m.Params))
	for i, n := range m.Params {
		idx[n] = i
	}
	return idx
}

func variadicArgs(m *Macro, rawArgs [][]*tok.Token) []*tok.Token {
	if !m.Variadic || len(rawArgs) <= len(m.Params) {
		return nil
	}
	var out []*tok.Token
	for i := len(m.Params); i < len(rawArgs); i++ {
		if i > len(m.Params) {
			out = append(out, &tok.Token{Kind: tok.COMMA, Lit: ","})
		}
		out = append(out, rawArgs[i]...)
	}
	return out
}

// paramAt reports whether b is a formal-parameter reference (including
// __VA_ARGS__) and, if so, its raw (un-expanded) argument tokens.
func paramAt(b *tok.Token, params map[string]int, rawArgs [][]*tok.Token, m *Macro, vaArgs []*tok.Token) (name string, toks []*tok.Token, ok bool) {
	if b.Kind != tok.IDENT {
		return "", nil, false
	}
	if b.Lit == "__VA_ARGS__" {
		return b.Lit, vaArgs, true
	}
	if i, found := params[b.Lit]; found && i < len(rawArgs) {
		return b.Lit, rawArgs[i], true
	}
	return "", nil, false
}

func stringize(name string, toks []*tok.Token) *tok.Token {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && (t.HasLeadingWS || needsSpaceBetween(toks[i-1], t)) {
			sb.WriteByte(' ')
		}
		if t.Kind == tok.STRING || t.Kind == tok.CHARCONST {
			sb.WriteString(escapeForStringize(t.Lit))
		} else {
			sb.WriteString(t.Lit)
		}
	}
	spelling := sb.String()
	// spelling's STRING/CHARCONST tokens are already backslash-escaped above
	// (the only pp-tokens a \ or " can appear in); escaping the assembled
	// spelling again here would double every backslash it already has.
	quoted := "\"" + spelling + "\""
	return &tok.Token{Kind: tok.STRING, Lit: quoted, StrVal: []byte(spelling), StrElemSize: 1}
}

// needsSpaceBetween reports whether gluing a and b's spellings directly
// together (no space) would re-lex as something other than those same two
// tokens -- e.g. "a"+"-" stays two tokens, but "+"+"+" would re-lex as a
// single "++". Stringizing must insert a space whenever that happens, per
// spec.md §4.4's "# preserves the spelling" (an omitted HasLeadingWS bit
// is not enough on its own: a macro argument can juxtapose tokens that
// were never adjacent in any source line). Reuses the same
// concatenate-and-rescan check paste (the ## operator) already relies on.
func needsSpaceBetween(a, b *tok.Token) bool {
	if a == nil || b == nil || a.Lit == "" || b.Lit == "" {
		return false
	}
	set := source.NewSet()
	f := source.AddFile(set, "<stringize>", []byte(a.Lit+b.Lit))
	var scratch diag.List
	scratch.Collect = true
	toks := scanner.Tokenize(set, f, &scratch)

	var first, second *tok.Token
	for t := toks; t != nil && t.Kind != tok.EOF; t = t.Next {
		switch {
		case first == nil:
			first = t
		case second == nil:
			second = t
		default:
			return true // re-lexed into more than two tokens
		}
	}
	return second == nil || first.Lit != a.Lit || second.Lit != b.Lit
}

func escapeForStringize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r == '\\' || r == '"' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// paste implements the `##` operator: concatenate the spellings of a and
// b and re-tokenize the result as a single pp-token, per spec.md §4.4.
func (p *Preprocessor) paste(a, b *tok.Token) *tok.Token {
	combined := a.Lit + b.Lit
	set := source.NewSet()
	f := source.AddFile(set, "<paste>", []byte(combined))
	var scratch diag.List
	scratch.Collect = true
	toks := scanner.Tokenize(set, f, &scratch)
	var first *tok.Token
	var count int
	for t := toks; t != nil && t.Kind != tok.EOF; t = t.Next {
		if first == nil {
			first = t
		}
		count++
	}
	if first == nil {
		p.warnAt(a.Pos, "pasting %q and %q produces no token", a.Lit, b.Lit)
		return &tok.Token{Kind: tok.ILLEGAL, Lit: combined}
	}
	if count > 1 || scratch.HasErrors() {
		p.errorAt(a.Pos, "pasting %q and %q does not give a valid preprocessing token", a.Lit, b.Lit)
	}
	cp := *first
	cp.Next = nil
	cp.Pos = a.Pos
	return &cp
}

// expandArgTokens macro-expands an argument's raw token list in
// isolation, by temporarily redirecting the Preprocessor's cursor/output
// to a scratch buffer and running the same handle() loop used for the
// top-level stream -- this reuses spec.md §4.4's rescanning algorithm
// rather than duplicating it.
func (p *Preprocessor) expandArgTokens(toks *tok.Token) *tok.Token {
	if toks == nil {
		return nil
	}
	savedCur, savedFrames := p.cur, p.frames
	savedHead, savedTail := p.outHead, p.outTail
	savedPending := p.pending

	p.cur, p.frames, p.pending = toks, nil, nil
	p.outHead, p.outTail = nil, nil

	for {
		t := p.advanceRaw()
		if t == nil {
			break
		}
		p.handle(t)
	}
	result := p.outHead

	p.cur, p.frames, p.pending = savedCur, savedFrames, savedPending
	p.outHead, p.outTail = savedHead, savedTail
	return result
}

func chainToSlice(h *tok.Token) []*tok.Token {
	var out []*tok.Token
	for t := h; t != nil; t = t.Next {
		out = append(out, t)
	}
	return out
}

func sliceToChain(ts []*tok.Token) *tok.Token {
	for i := range ts {
		if i+1 < len(ts) {
			ts[i].Next = ts[i+1]
		} else {
			ts[i].Next = nil
		}
	}
	if len(ts) == 0 {
		return nil
	}
	return ts[0]
}

// sliceBalancedParen returns the tokens strictly inside the parenthesized
// group starting at body[openIdx] (a '(' token), and the index of its
// matching ')'.
func sliceBalancedParen(body []*tok.Token, openIdx int) (inner []*tok.Token, closeIdx int) {
	depth := 0
	for i := openIdx; i < len(body); i++ {
		switch body[i].Kind {
		case tok.LPAREN:
			depth++
			if depth == 1 {
				continue
			}
		case tok.RPAREN:
			depth--
			if depth == 0 {
				return inner, i
			}
		}
		if i != openIdx {
			inner = append(inner, body[i])
		}
	}
	return inner, len(body) - 1
}
