package cpp

import (
	"fmt"
	"os"
	"path/filepath"

	tok "github.com/mna/cfront/lang/token"
)

// doEmbed implements spec.md §4.4's #embed directive: read a binary
// file, expand to a comma-separated list of integer literals, honoring
// `limit`, `prefix`, `suffix` and `if_empty` parameters, and the CLI's
// --embed-limit/--embed-hard-limit soft/hard cap (spec.md §6, scenario f
// in §8).
func (p *Preprocessor) doEmbed(hashTok *tok.Token) {
	raw := p.collectLine()
	name, quoted, ok, rest := splitEmbedHeader(raw)
	if !ok {
		p.errorAt(hashTok.Pos, "#embed expects \"FILENAME\" or <FILENAME>")
		return
	}

	params, perr := parseEmbedParams(rest)
	if perr != "" {
		p.errorAt(hashTok.Pos, "%s", perr)
		return
	}

	data, found := p.readEmbed(name, quoted)
	if !found {
		p.errorAt(hashTok.Pos, "%q file not found", name)
		return
	}

	if params.limit >= 0 && len(data) > params.limit {
		data = data[:params.limit]
	}
	if p.opts.EmbedLimit > 0 && int64(len(data)) > p.opts.EmbedLimit {
		if p.opts.EmbedHardLimit {
			p.errorAt(hashTok.Pos, "#embed of %q exceeds embed-limit of %d bytes", name, p.opts.EmbedLimit)
			return
		}
		p.warnAt(hashTok.Pos, "#embed of %q exceeds embed-limit of %d bytes", name, p.opts.EmbedLimit)
	}

	if len(data) == 0 {
		for _, t := range params.ifEmpty {
			p.emit(t)
		}
		return
	}

	for _, t := range params.prefix {
		p.emit(t)
	}
	for i, b := range data {
		if i > 0 {
			p.emit(&tok.Token{Kind: tok.COMMA, Lit: ","})
		}
		p.emit(&tok.Token{Kind: tok.PPNUMBER, Lit: fmt.Sprintf("%d", b), IntVal: int64(b)})
	}
	for _, t := range params.suffix {
		p.emit(t)
	}
}

// splitEmbedHeader separates the leading header-name token(s) of a
// #embed line from its trailing parameter clauses.
func splitEmbedHeader(items []*tok.Token) (name string, quoted bool, ok bool, rest []*tok.Token) {
	if len(items) == 0 {
		return "", false, false, nil
	}
	if items[0].Kind == tok.STRING {
		return string(items[0].StrVal), true, true, items[1:]
	}
	if items[0].Kind != tok.LT {
		return "", false, false, nil
	}
	for i, t := range items[1:] {
		if t.Kind == tok.GT {
			var sb []byte
			for _, seg := range items[1 : i+1] {
				sb = append(sb, seg.Lit...)
			}
			return string(sb), false, true, items[i+2:]
		}
	}
	return "", false, false, nil
}

type embedParams struct {
	limit   int
	prefix  []*tok.Token
	suffix  []*tok.Token
	ifEmpty []*tok.Token
}

// parseEmbedParams parses the `limit(N)` / `prefix(...)` / `suffix(...)`
// / `if_empty(...)` clauses following a #embed header-name.
func parseEmbedParams(items []*tok.Token) (embedParams, string) {
	p := embedParams{limit: -1}
	i := 0
	for i < len(items) {
		t := items[i]
		if t.Kind != tok.IDENT {
			return p, fmt.Sprintf("unexpected token %q in #embed parameters", t.Lit)
		}
		if i+1 >= len(items) || items[i+1].Kind != tok.LPAREN {
			return p, fmt.Sprintf("expected '(' after #embed parameter %q", t.Lit)
		}
		inner, close := sliceBalancedParen(items, i+1)
		switch t.Lit {
		case "limit":
			if len(inner) != 1 || inner[0].Kind != tok.PPNUMBER {
				return p, "limit() expects a single integer argument"
			}
			var n int
			fmt.Sscanf(inner[0].Lit, "%d", &n)
			p.limit = n
		case "prefix":
			p.prefix = inner
		case "suffix":
			p.suffix = inner
		case "if_empty":
			p.ifEmpty = inner
		default:
			// unrecognized vendor parameter: ignored, per common #embed
			// implementations' tolerance of extension parameters.
		}
		i = close + 1
	}
	return p, ""
}

func (p *Preprocessor) readEmbed(name string, quoted bool) ([]byte, bool) {
	roots := p.searchList(quoted)
	for _, r := range roots {
		full := filepath.Join(r.dir, name)
		if data, err := os.ReadFile(full); err == nil {
			return data, true
		}
	}
	if !quoted {
		if data, err := os.ReadFile(name); err == nil {
			return data, true
		}
	}
	return nil, false
}
