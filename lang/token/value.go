package token

import "go/token"

// HideSet is the set of macro names a Token refuses to expand to again,
// used by the preprocessor's macro-expansion algorithm to guarantee
// termination (spec.md §4.4, GLOSSARY "Hide-set"). It is kept as a small
// slice in insertion order (not sorted): macro-nesting depth is rarely more than a handful of
// names deep, so linear union/intersection beats a full map here, per
// spec.md §9.
type HideSet []string

// Has reports whether name is a member of the set.
func (h HideSet) Has(name string) bool {
	for _, n := range h {
		if n == name {
			return true
		}
	}
	return false
}

// Union returns the union of h and other (h's names first, then those only
// in other), without mutating either.
func (h HideSet) Union(other HideSet) HideSet {
	if len(h) == 0 {
		return other
	}
	if len(other) == 0 {
		return h
	}
	seen := make(map[string]bool, len(h)+len(other))
	out := make(HideSet, 0, len(h)+len(other))
	for _, set := range [2]HideSet{h, other} {
		for _, n := range set {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Intersect returns the elements common to both h and other.
func (h HideSet) Intersect(other HideSet) HideSet {
	if len(h) == 0 || len(other) == 0 {
		return nil
	}
	var out HideSet
	for _, n := range h {
		if other.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// With returns a copy of h with name added, if not already present.
func (h HideSet) With(name string) HideSet {
	if h.Has(name) {
		return h
	}
	out := make(HideSet, len(h), len(h)+1)
	copy(out, h)
	return append(out, name)
}

// Token is the atomic unit passed between the scanner, preprocessor and
// parser stages, per spec.md §3. Tokens form a singly-linked list
// terminated by an EOF token via the Next field.
type Token struct {
	Kind Kind

	Pos token.Pos // location in the owning go/token.FileSet
	Len int       // length in bytes of the original spelling
	Lit string     // raw spelling, as it appeared in the source

	// Numeric payload, populated once a PPNUMBER is reinterpreted into INT or
	// FLOAT by ConvertPPTokens.
	IntVal   int64
	FloatVal float64
	IsUnsigned bool
	IntBits    int // 8/16/32/64, after suffix + magnitude analysis

	// String/char payload: decoded bytes (NUL-terminated semantics are the
	// parser's concern when it builds the backing byte buffer for a string
	// literal), plus the element width selected by adjacent-literal merging
	// (1 = char/u8, 2 = char16_t/wchar_t-ish, 4 = char32_t/wchar_t-ish).
	StrVal      []byte
	StrElemSize int

	// Provenance, needed across macro expansion to preserve diagnostics
	// quality (spec.md §3).
	AtBOL         bool // at_beginning_of_line
	HasLeadingWS  bool // has_leading_space

	Hide HideSet

	// Origin back-links this token to the token that produced it via macro
	// expansion, or nil for tokens straight from the scanner.
	Origin *Token

	Next *Token
}

// IsKeywordLike reports whether this token's raw spelling matches a C
// keyword -- used by the preprocessor to know a macro name shadows (or
// doesn't yet shadow, since keyword promotion happens after expansion) a
// reserved word.
func (t *Token) IsKeywordLike() bool { return t.Kind == IDENT && LookupKw(t.Lit) != IDENT }
