// Package scanner implements the C tokenizer described in spec.md §4.3: it
// turns a source.File into a singly-linked token.Token stream terminated
// by an EOF token, tagging every token with its at-beginning-of-line and
// has-leading-space bits so the preprocessor can recognize directives and
// the printer can recreate whitespace.
//
// Grounded on the teacher's lang/scanner/scanner.go: the advance/peek
// character-cursor design, the "cur rune, off int, roff int" state, and
// the overall Init/Scan API shape are carried over and adapted from
// Starlark-family lexing to C lexing (pp-numbers, string prefixes,
// digraphs, `/* */` comments, line-splicing).
package scanner

import (
	"go/token"
	"unicode"
	"unicode/utf8"

	"github.com/mna/cfront/lang/diag"
	"github.com/mna/cfront/lang/source"
	tok "github.com/mna/cfront/lang/token"
)

// Scanner tokenizes a single source file for the preprocessor to consume.
type Scanner struct {
	set  *source.Set
	file *source.File
	src  []byte
	errs *diag.List

	cur  rune
	off  int
	roff int

	atBOL  bool
	hasWS  bool
}

// Init initializes (or reinitializes) the scanner to tokenize file.
func (s *Scanner) Init(set *source.Set, file *source.File, errs *diag.List) {
	s.set = set
	s.file = file
	// the File's trailing NUL terminator marks the end of input and is not
	// itself scanned.
	s.src = file.Contents
	if n := len(s.src); n > 0 && s.src[n-1] == 0 {
		s.src = s.src[:n-1]
	}
	s.errs = errs
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.atBOL = true
	s.hasWS = false
	s.advance()
}

func (s *Scanner) error(off int, format string, args ...any) {
	pos := s.set.Position(s.file.Tok.Pos(off))
	s.errs.Add(pos, diag.Error, format, args...)
}

// advance reads the next rune into s.cur, transparently eliding
// backslash-newline line splices per spec.md §4.3 ("a backslash
// immediately before a newline is elided prior to tokenization").
func (s *Scanner) advance() {
	for {
		if s.roff >= len(s.src) {
			s.off = len(s.src)
			s.cur = -1
			return
		}
		s.off = s.roff
		r, w := rune(s.src[s.roff]), 1
		if r >= utf8.RuneSelf {
			r, w = utf8.DecodeRune(s.src[s.roff:])
			if r == utf8.RuneError && w == 1 {
				s.error(s.off, "illegal UTF-8 encoding")
			}
		}
		// line splice: backslash followed by (optional \r then) \n
		if r == '\\' {
			n := s.roff + 1
			cr := false
			if n < len(s.src) && s.src[n] == '\r' {
				n++
				cr = true
			}
			if n < len(s.src) && s.src[n] == '\n' {
				_ = cr
				s.roff = n + 1
				continue
			}
		}
		s.roff += w
		s.cur = r
		return
	}
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

// Scan returns the next token in the file. The caller is responsible for
// chaining returned tokens into the linked list (see Tokenize).
func (s *Scanner) Scan() *tok.Token {
	s.skipWhitespaceAndComments()

	start := s.off
	atBOL, hasWS := s.atBOL, s.hasWS
	s.atBOL, s.hasWS = false, false
	pos := s.file.Tok.Pos(start)

	mk := func(k tok.Kind) *tok.Token {
		return &tok.Token{
			Kind: k, Pos: pos, Len: s.off - start, Lit: string(s.src[start:s.off]),
			AtBOL: atBOL, HasLeadingWS: hasWS,
		}
	}

	switch {
	case s.cur == -1:
		return mk(tok.EOF)

	case isStringPrefix(s.cur):
		// L/u/U[8] are also valid identifier-start letters, so a prefixed
		// string/char literal (L"...", u"...", U"...", u8"...") must be tried
		// before the plain-identifier case below, or isIdentStart would always
		// win and the prefix would scan as a separate IDENT token.
		if t := s.tryPrefixedLiteral(start, pos, atBOL, hasWS); t != nil {
			return t
		}
		for isIdentStart(s.cur) || isDigit(s.cur) {
			s.advance()
		}
		return mk(tok.IDENT)

	case isIdentStart(s.cur):
		for isIdentStart(s.cur) || isDigit(s.cur) {
			s.advance()
		}
		return mk(tok.IDENT)

	case isDigit(s.cur) || (s.cur == '.' && isDigit(rune(s.peek()))):
		s.scanPPNumber()
		return mk(tok.PPNUMBER)

	case s.cur == '"' || s.cur == '\'':
		return s.scanStringOrChar(start, pos, atBOL, hasWS, "")

	default:
		return s.scanPunct(start, pos, atBOL, hasWS)
	}
}

func (s *Scanner) tryPrefixedLiteral(start int, pos token.Pos, atBOL, hasWS bool) *tok.Token {
	// lookahead without committing: L/u/U optionally followed by '8', then a
	// quote.
	save := *s
	prefix := string(s.cur)
	s.advance()
	if s.cur == '8' && prefix == "u" {
		prefix = "u8"
		s.advance()
	}
	if s.cur == '"' || s.cur == '\'' {
		return s.scanStringOrChar(start, pos, atBOL, hasWS, prefix)
	}
	*s = save
	return nil
}

func isStringPrefix(r rune) bool { return r == 'L' || r == 'u' || r == 'U' }

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch {
		case s.cur == ' ' || s.cur == '\t' || s.cur == '\v' || s.cur == '\f' || s.cur == '\r':
			s.hasWS = true
			s.advance()
		case s.cur == '\n':
			s.atBOL = true
			s.hasWS = true
			s.advance()
		case s.cur == '/' && s.peek() == '/':
			s.hasWS = true
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
		case s.cur == '/' && s.peek() == '*':
			s.hasWS = true
			startOff := s.off
			s.advance()
			s.advance()
			closed := false
			for s.cur != -1 {
				if s.cur == '*' && s.peek() == '/' {
					s.advance()
					s.advance()
					closed = true
					break
				}
				s.advance()
			}
			if !closed {
				s.error(startOff, "unterminated comment")
			}
		default:
			return
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || (r >= utf8.RuneSelf && unicode.Is(unicode.L, r))
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// Tokenize scans the whole file and returns the head of a singly-linked
// token list terminated by an EOF token, per spec.md §4.3.
func Tokenize(set *source.Set, file *source.File, errs *diag.List) *tok.Token {
	var s Scanner
	s.Init(set, file, errs)
	var head, tail *tok.Token
	for {
		t := s.Scan()
		if head == nil {
			head, tail = t, t
		} else {
			tail.Next = t
			tail = t
		}
		if t.Kind == tok.EOF {
			return head
		}
	}
}
