package scanner

import (
	"go/token"
	"strconv"

	tok "github.com/mna/cfront/lang/token"
)

// elemSize returns the element width, in bytes, for prefix per spec.md
// §4.3 ("supports prefixes L, u, U, u8"). u8 and the unprefixed form share
// the narrowest (char) width; u is char16_t-sized; U and L (wchar_t, on
// this implementation's 64-bit host data model) are the widest.
func elemSize(prefix string) int {
	switch prefix {
	case "u":
		return 2
	case "U", "L":
		return 4
	default:
		return 1
	}
}

// scanStringOrChar scans a (possibly prefixed) string or character literal
// starting at the opening quote (s.cur). It decodes escapes per spec.md
// §4.3: \x, \u, \U, octal \0-\7, and the standard single-letter escapes.
func (s *Scanner) scanStringOrChar(start int, pos token.Pos, atBOL, hasWS bool, prefix string) *tok.Token {
	quote := s.cur
	kind := tok.STRING
	if quote == '\'' {
		kind = tok.CHARCONST
	}
	s.advance() // consume opening quote

	var decoded []byte
	for {
		if s.cur == -1 || s.cur == '\n' {
			s.error(start, "unterminated %s literal", kindName(kind))
			break
		}
		if s.cur == quote {
			s.advance()
			break
		}
		if s.cur == '\\' {
			s.advance()
			r, ok := s.decodeEscape()
			if !ok {
				s.error(s.off, "invalid escape sequence")
			}
			decoded = appendRune(decoded, r, elemSize(prefix))
			continue
		}
		decoded = appendRune(decoded, s.cur, elemSize(prefix))
		s.advance()
	}

	t := &tok.Token{
		Kind: kind, Pos: pos, Len: s.off - start, Lit: string(s.src[start:s.off]),
		AtBOL: atBOL, HasLeadingWS: hasWS,
		StrVal: decoded, StrElemSize: elemSize(prefix),
	}
	if kind == tok.CHARCONST {
		var v int64
		for i := 0; i < len(decoded); i += t.StrElemSize {
			v = v<<8 | int64(decoded[i])
		}
		t.IntVal = v
	}
	return t
}

func kindName(k tok.Kind) string {
	if k == tok.CHARCONST {
		return "character"
	}
	return "string"
}

// decodeEscape decodes the escape sequence following a consumed backslash
// (s.cur is the character right after '\').
func (s *Scanner) decodeEscape() (rune, bool) {
	c := s.cur
	switch c {
	case 'n':
		s.advance()
		return '\n', true
	case 't':
		s.advance()
		return '\t', true
	case 'r':
		s.advance()
		return '\r', true
	case 'a':
		s.advance()
		return 7, true
	case 'b':
		s.advance()
		return 8, true
	case 'f':
		s.advance()
		return 12, true
	case 'v':
		s.advance()
		return 11, true
	case '\\', '\'', '"', '?':
		s.advance()
		return c, true
	case 'x':
		s.advance()
		start := s.off
		for isHex(s.cur) {
			s.advance()
		}
		if s.off == start {
			return 0, false
		}
		v, _ := strconv.ParseInt(string(s.src[start:s.off]), 16, 64)
		return rune(v), true
	case 'u', 'U':
		n := 4
		if c == 'U' {
			n = 8
		}
		s.advance()
		start := s.off
		for i := 0; i < n && isHex(s.cur); i++ {
			s.advance()
		}
		v, _ := strconv.ParseInt(string(s.src[start:s.off]), 16, 64)
		return rune(v), true
	case '0', '1', '2', '3', '4', '5', '6', '7':
		start := s.off
		for i := 0; i < 3 && s.cur >= '0' && s.cur <= '7'; i++ {
			s.advance()
		}
		v, _ := strconv.ParseInt(string(s.src[start:s.off]), 8, 32)
		return rune(v), true
	default:
		// unknown escape: consume the character and use it verbatim, a
		// best-effort replacement per spec.md §4.3's recovery policy.
		s.advance()
		return c, false
	}
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func appendRune(buf []byte, r rune, elemSize int) []byte {
	switch elemSize {
	case 1:
		return append(buf, byte(r))
	case 2:
		v := uint16(r)
		return append(buf, byte(v), byte(v>>8))
	default:
		v := uint32(r)
		return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
}
