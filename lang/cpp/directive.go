package cpp

import (
	"go/token"
	"strconv"
	"strings"

	"github.com/mna/cfront/lang/consteval"
	tok "github.com/mna/cfront/lang/token"
)

// directive dispatches one `#`-introduced line, per spec.md §4.4's
// directive table. hashTok is the '#' token itself, already known to be
// at the beginning of its line.
func (p *Preprocessor) directive(hashTok *tok.Token) {
	next := p.advanceRaw()
	if next == nil || next.Kind == tok.EOF {
		if next != nil {
			p.unread(next)
		}
		return
	}
	if next.AtBOL {
		// "#" alone on its line: the null directive.
		p.unread(next)
		return
	}

	skipping := p.conds.skipping()

	// GNU-style line markers ("# 1 \"file.c\"") behave like #line.
	if next.Kind == tok.PPNUMBER {
		if !skipping {
			p.doLine(hashTok, next)
		} else {
			p.collectLine()
		}
		return
	}

	if next.Kind != tok.IDENT {
		if !skipping {
			p.errorAt(hashTok.Pos, "invalid preprocessing directive")
		}
		p.collectLine()
		return
	}

	name := next.Lit
	switch name {
	case "if", "ifdef", "ifndef":
		p.doIf(hashTok, name, skipping)
	case "elif":
		p.doElif(hashTok, skipping)
	case "else":
		p.doElse(hashTok)
	case "endif":
		p.doEndif(hashTok)
	default:
		if skipping {
			p.collectLine()
			return
		}
		switch name {
		case "include", "include_next":
			p.doInclude(hashTok, name == "include_next")
		case "define":
			p.doDefine(hashTok)
		case "undef":
			p.doUndef(hashTok)
		case "line":
			p.doLine(hashTok, nil)
		case "pragma":
			p.doPragma(hashTok)
		case "error":
			items := p.collectLine()
			p.errorAt(hashTok.Pos, "#error %s", spellLine(items))
		case "warning":
			items := p.collectLine()
			p.warnAt(hashTok.Pos, "#warning %s", spellLine(items))
		case "embed":
			p.doEmbed(hashTok)
		default:
			p.errorAt(hashTok.Pos, "invalid preprocessing directive #%s", name)
			p.collectLine()
		}
	}
}

// collectLine gathers the remaining tokens of the current directive line
// (stopping before the next line's first token, which is pushed back).
func (p *Preprocessor) collectLine() []*tok.Token {
	var items []*tok.Token
	for {
		t := p.advanceRaw()
		if t == nil {
			return items
		}
		if t.Kind == tok.EOF || t.AtBOL {
			p.unread(t)
			return items
		}
		items = append(items, t)
	}
}

func spellLine(items []*tok.Token) string {
	var sb strings.Builder
	for i, t := range items {
		if i > 0 && t.HasLeadingWS {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Lit)
	}
	return sb.String()
}

// --- #define / #undef ---------------------------------------------------

func (p *Preprocessor) doDefine(hashTok *tok.Token) {
	name := p.advanceRaw()
	if name == nil || name.Kind != tok.IDENT {
		p.errorAt(hashTok.Pos, "macro name must be an identifier")
		p.collectLine()
		return
	}

	m := &Macro{Name: name.Lit}

	lp := p.advanceRaw()
	if lp != nil && lp.Kind == tok.LPAREN && !lp.HasLeadingWS {
		// function-like: "(" immediately after the name, per spec.md §4.4.
		m.ObjectLike = false
		if !p.parseMacroParams(hashTok, m) {
			p.collectLine()
			return
		}
	} else {
		m.ObjectLike = true
		if lp != nil {
			p.unread(lp)
		}
	}

	body := p.collectLine()
	m.Body = sliceToChain(cloneTokens(body))

	if existing := p.macros.Lookup(m.Name); existing != nil && !existing.Builtin {
		if !macroBodiesEqual(existing, m) {
			p.errorAt(hashTok.Pos, "%q redefined with a different body", m.Name)
		}
	}
	p.macros.Define(m)
}

func cloneTokens(ts []*tok.Token) []*tok.Token {
	out := make([]*tok.Token, len(ts))
	for i, t := range ts {
		cp := *t
		cp.Next = nil
		out[i] = &cp
	}
	return out
}

func macroBodiesEqual(a, b *Macro) bool {
	if a.ObjectLike != b.ObjectLike || a.Variadic != b.Variadic || len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	at, bt := a.Body, b.Body
	for at != nil && bt != nil {
		if at.Kind != bt.Kind || at.Lit != bt.Lit {
			return false
		}
		at, bt = at.Next, bt.Next
	}
	return at == nil && bt == nil
}

func (p *Preprocessor) parseMacroParams(hashTok *tok.Token, m *Macro) bool {
	for {
		t := p.advanceRaw()
		if t == nil || t.Kind == tok.EOF {
			p.errorAt(hashTok.Pos, "unterminated macro parameter list")
			return false
		}
		switch t.Kind {
		case tok.RPAREN:
			return true
		case tok.ELLIPSIS:
			m.Variadic = true
			nxt := p.advanceRaw()
			if nxt == nil || nxt.Kind != tok.RPAREN {
				p.errorAt(hashTok.Pos, "expected ')' after '...' in macro parameter list")
				if nxt != nil {
					p.unread(nxt)
				}
				return false
			}
			return true
		case tok.IDENT:
			m.Params = append(m.Params, t.Lit)
			nxt := p.advanceRaw()
			if nxt == nil {
				p.errorAt(hashTok.Pos, "unterminated macro parameter list")
				return false
			}
			if nxt.Kind == tok.RPAREN {
				return true
			}
			if nxt.Kind != tok.COMMA {
				p.errorAt(hashTok.Pos, "expected ',' or ')' in macro parameter list")
				p.unread(nxt)
				return false
			}
		default:
			p.errorAt(hashTok.Pos, "unexpected token in macro parameter list")
			return false
		}
	}
}

func (p *Preprocessor) doUndef(hashTok *tok.Token) {
	name := p.advanceRaw()
	if name == nil || name.Kind != tok.IDENT {
		p.errorAt(hashTok.Pos, "macro name must be an identifier")
		p.collectLine()
		return
	}
	p.macros.Undef(name.Lit)
	p.collectLine()
}

// --- conditional inclusion ----------------------------------------------

func (p *Preprocessor) doIf(hashTok *tok.Token, kind string, parentSkip bool) {
	var cond bool
	switch kind {
	case "ifdef", "ifndef":
		name := p.advanceRaw()
		p.collectLine()
		if name == nil || name.Kind != tok.IDENT {
			p.errorAt(hashTok.Pos, "macro name must be an identifier")
		} else if !parentSkip {
			defined := p.macros.Lookup(name.Lit) != nil
			cond = defined
			if kind == "ifndef" {
				cond = !defined
			}
		}
	default: // "if"
		items := p.collectLine()
		if !parentSkip {
			cond = p.evalConstExpr(hashTok, items) != 0
		}
	}
	p.conds.push(&CondIncl{Pos: hashTok.Pos, Active: cond && !parentSkip, AnyTaken: cond && !parentSkip, ParentSkip: parentSkip})
}

func (p *Preprocessor) doElif(hashTok *tok.Token, _ bool) {
	items := p.collectLine()
	ci := p.conds.top()
	if ci == nil {
		p.errorAt(hashTok.Pos, "#elif without matching #if")
		return
	}
	if ci.WasElse {
		p.errorAt(hashTok.Pos, "#elif after #else")
	}
	switch {
	case ci.ParentSkip || ci.AnyTaken:
		ci.Active = false
	default:
		cond := p.evalConstExpr(hashTok, items) != 0
		ci.Active = cond
		ci.AnyTaken = cond
	}
}

func (p *Preprocessor) doElse(hashTok *tok.Token) {
	p.collectLine()
	ci := p.conds.top()
	if ci == nil {
		p.errorAt(hashTok.Pos, "#else without matching #if")
		return
	}
	if ci.WasElse {
		p.errorAt(hashTok.Pos, "#else after #else")
	}
	ci.WasElse = true
	switch {
	case ci.ParentSkip || ci.AnyTaken:
		ci.Active = false
	default:
		ci.Active = true
		ci.AnyTaken = true
	}
}

func (p *Preprocessor) doEndif(hashTok *tok.Token) {
	p.collectLine()
	if p.conds.pop() == nil {
		p.errorAt(hashTok.Pos, "#endif without matching #if")
	}
}

// evalConstExpr evaluates a #if/#elif expression, per spec.md §4.4:
// macro-expand the rest of the line, then run the shared consteval
// evaluator with unknown identifiers treated as 0.
func (p *Preprocessor) evalConstExpr(hashTok *tok.Token, raw []*tok.Token) int64 {
	// The operand of `defined` names a macro and must not itself be
	// expanded: adding it to its own hide-set keeps handle() from replacing it.
	cloned := cloneTokens(raw)
	for i, t := range cloned {
		if t.Kind == tok.IDENT && t.Lit == "defined" {
			j := i + 1
			if j < len(cloned) && cloned[j].Kind == tok.LPAREN {
				j++
			}
			if j < len(cloned) && cloned[j].Kind == tok.IDENT {
				cloned[j].Hide = cloned[j].Hide.With(cloned[j].Lit)
			}
		}
	}
	expanded := chainToSlice(p.expandArgTokens(sliceToChain(cloned)))

	items := make([]consteval.Item, 0, len(expanded))
	for i := 0; i < len(expanded); i++ {
		t := expanded[i]
		if t.Kind == tok.IDENT && t.Lit == "defined" {
			items = append(items, consteval.Item{Pos: t.Pos, Ident: "defined"})
			continue
		}
		switch {
		case t.Kind == tok.IDENT:
			items = append(items, consteval.Item{Pos: t.Pos, Ident: t.Lit})
		case t.Kind == tok.PPNUMBER:
			v, err := strconv.ParseInt(strings.TrimRight(t.Lit, "uUlL"), 0, 64)
			if err != nil {
				v = t.IntVal
			}
			items = append(items, consteval.Item{Pos: t.Pos, IsInt: true, Int: v})
		case t.Kind == tok.CHARCONST:
			items = append(items, consteval.Item{Pos: t.Pos, IsInt: true, Int: t.IntVal})
		case t.Kind.IsPunct():
			items = append(items, consteval.Item{Pos: t.Pos, Op: t.Lit})
		}
	}

	if len(items) == 0 {
		p.errorAt(hashTok.Pos, "#if with no expression")
		return 0
	}
	return consteval.Eval(items, condResolver{p}, true, func(pos token.Pos, msg string) {
		p.errorAt(pos, "%s", msg)
	})
}

// condResolver adapts the macro table to consteval.Resolver: an
// identifier that isn't a macro (and isn't `defined`, handled specially
// by consteval) simply isn't resolvable, letting consteval's
// unknownIsZero=true path substitute 0, per spec.md §4.4.
type condResolver struct{ p *Preprocessor }

func (r condResolver) Resolve(name string) (int64, bool) { return 0, false }
func (r condResolver) Defined(name string) bool          { return r.p.macros.Lookup(name) != nil }

// --- #line ----------------------------------------------------------------

// doLine implements spec.md §4.4's #line directive: override the current
// file's display_name/line_delta for following tokens. If numTok is
// already consumed (the GNU line-marker form "# N \"file\" flags..."),
// it's passed in directly; otherwise it's read (after macro-expanding
// the rest of the line, per the standard).
func (p *Preprocessor) doLine(hashTok *tok.Token, numTok *tok.Token) {
	raw := p.collectLine()
	var items []*tok.Token
	if numTok != nil {
		items = append(items, numTok)
	}
	items = append(items, raw...)
	expanded := chainToSlice(p.expandArgTokens(sliceToChain(cloneTokens(items))))
	if len(expanded) == 0 || expanded[0].Kind != tok.PPNUMBER {
		p.errorAt(hashTok.Pos, "#line directive requires a positive integer argument")
		return
	}
	line, err := strconv.Atoi(expanded[0].Lit)
	if err != nil || line <= 0 {
		p.errorAt(hashTok.Pos, "#line directive requires a positive integer argument")
		return
	}
	file := p.set.File(hashTok.Pos)
	if file == nil {
		return
	}
	displayName := file.Name
	if len(expanded) > 1 && expanded[1].Kind == tok.STRING {
		displayName = string(expanded[1].StrVal)
	}
	pos := p.set.Position(hashTok.Pos)
	p.set.SetLineOverride(file.Name, pos.Line+1, displayName, line)
}

// --- #pragma ----------------------------------------------------------------

func (p *Preprocessor) doPragma(hashTok *tok.Token) {
	items := p.collectLine()
	if len(items) == 0 {
		return
	}
	if items[0].Kind == tok.IDENT && items[0].Lit == "once" {
		if file := p.set.File(hashTok.Pos); file != nil {
			p.pragmaOnce.Put(file.Name, true)
		}
		return
	}
	if items[0].Kind == tok.IDENT && items[0].Lit == "pack" {
		p.doPragmaPack(hashTok, items[1:])
		return
	}
	// Unrecognized pragmas pass through silently, as most compilers do for
	// vendor pragmas outside spec.md §4.4's named set.
}

func (p *Preprocessor) doPragmaPack(hashTok *tok.Token, rest []*tok.Token) {
	if len(rest) == 0 || rest[0].Kind != tok.LPAREN {
		p.errorAt(hashTok.Pos, "malformed #pragma pack")
		return
	}
	inner := rest[1:]
	switch {
	case len(inner) >= 1 && inner[0].Kind == tok.RPAREN:
		p.popPack()
	case len(inner) >= 1 && inner[0].Kind == tok.IDENT && inner[0].Lit == "push":
		n := currentPack(p.packStack)
		if len(inner) >= 3 && inner[1].Kind == tok.COMMA && inner[2].Kind == tok.PPNUMBER {
			if v, err := strconv.Atoi(inner[2].Lit); err == nil {
				n = v
			}
		}
		p.packStack = append(p.packStack, n)
	case len(inner) >= 1 && inner[0].Kind == tok.IDENT && inner[0].Lit == "pop":
		p.popPack()
	case len(inner) >= 1 && inner[0].Kind == tok.PPNUMBER:
		if v, err := strconv.Atoi(inner[0].Lit); err == nil {
			if len(p.packStack) == 0 {
				p.packStack = append(p.packStack, v)
			} else {
				p.packStack[len(p.packStack)-1] = v
			}
		}
	}
	p.recordPackBreak(hashTok.Pos)
}

func (p *Preprocessor) popPack() {
	if len(p.packStack) > 0 {
		p.packStack = p.packStack[:len(p.packStack)-1]
	}
}

func currentPack(stack []int) int {
	if len(stack) == 0 {
		return 0
	}
	return stack[len(stack)-1]
}

// packBreak records a #pragma pack state change at the position it took
// effect, so the parser (which runs over the fully preprocessed stream,
// after every #pragma has already been stripped out) can ask "what pack
// value was in effect when this token was scanned" instead of only ever
// seeing the final state at end of input.
type packBreak struct {
	pos token.Pos
	val int
}

func (p *Preprocessor) recordPackBreak(pos token.Pos) {
	p.packBreaks = append(p.packBreaks, packBreak{pos: pos, val: currentPack(p.packStack)})
}

// CurrentPack returns the #pragma pack(N) value in effect at the point
// reached so far; kept for callers that only care about the state once
// preprocessing has fully completed.
func (p *Preprocessor) CurrentPack() int { return currentPack(p.packStack) }

// PackAt returns the #pragma pack(N) value in effect at pos, per spec.md
// §4.4's "push/pop struct packing state consumed by the parser" -- this
// is the position-aware form Session wires into the parser, since a
// struct's layout must use the pack value live at its own source
// position, not whatever is left over once the whole file has been
// preprocessed.
func (p *Preprocessor) PackAt(pos token.Pos) int {
	val := 0
	for _, b := range p.packBreaks {
		if b.pos > pos {
			break
		}
		val = b.val
	}
	return val
}
