package scanner

// scanPPNumber consumes a preprocessing-number per spec.md §4.3's grammar:
//
//	[0-9.]([0-9a-zA-Z.]|[eEpP][+-]|')*
//
// The permissive grammar is reinterpreted into a real integer or floating
// literal later, by cpp.ConvertPPTokens, once macro expansion is done --
// this keeps `1.0e+5`, `0x1p-3`, and digit-separated `1'000'000` all
// lexing uniformly at this stage without the scanner needing to know C's
// full numeric-literal suffix rules.
func (s *Scanner) scanPPNumber() {
	s.advance() // consume the leading digit or '.'
	for {
		switch {
		case (s.cur == 'e' || s.cur == 'E' || s.cur == 'p' || s.cur == 'P') &&
			(s.peek() == '+' || s.peek() == '-'):
			s.advance()
			s.advance()
		case isDigit(s.cur) || isAlpha(s.cur) || s.cur == '.' || s.cur == '\'':
			s.advance()
		default:
			return
		}
	}
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}
