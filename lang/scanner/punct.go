package scanner

import (
	"go/token"

	tok "github.com/mna/cfront/lang/token"
)

// scanPunct performs longest-match punctuator scanning per spec.md §4.3,
// trying token.MaxPunctLen bytes down to 1.
func (s *Scanner) scanPunct(start int, pos token.Pos, atBOL, hasWS bool) *tok.Token {
	// gather up to MaxPunctLen runes of lookahead without consuming twice
	save := *s
	var buf []rune
	for i := 0; i < tok.MaxPunctLen && s.cur != -1; i++ {
		buf = append(buf, s.cur)
		s.advance()
	}

	for n := len(buf); n > 0; n-- {
		cand := string(buf[:n])
		if k, ok := tok.LookupPunct(cand); ok {
			*s = save
			for i := 0; i < n; i++ {
				s.advance()
			}
			return &tok.Token{
				Kind: k, Pos: pos, Len: s.off - start, Lit: string(s.src[start:s.off]),
				AtBOL: atBOL, HasLeadingWS: hasWS,
			}
		}
	}

	// no punctuator matched: illegal character, consume one rune and recover.
	*s = save
	bad := s.cur
	s.advance()
	s.error(start, "stray character %q in program", bad)
	return &tok.Token{
		Kind: tok.ILLEGAL, Pos: pos, Len: s.off - start, Lit: string(s.src[start:s.off]),
		AtBOL: atBOL, HasLeadingWS: hasWS,
	}
}
