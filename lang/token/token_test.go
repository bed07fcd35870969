package token

import "testing"

func TestLookupKw(t *testing.T) {
	tests := []struct {
		lit  string
		want Kind
	}{
		{"int", INT_KW},
		{"struct", STRUCT},
		{"_Static_assert", STATIC_ASSERT},
		{"__inline__", INLINE},
		{"foo", IDENT},
		{"", IDENT},
	}
	for _, tt := range tests {
		if got := LookupKw(tt.lit); got != tt.want {
			t.Errorf("LookupKw(%q) = %v, want %v", tt.lit, got, tt.want)
		}
	}
}

func TestLookupPunct(t *testing.T) {
	tests := []struct {
		s       string
		want    Kind
		wantOK  bool
	}{
		{"...", ELLIPSIS, true},
		{"->", ARROW, true},
		{"<<=", LTLTEQ, true},
		{"+", PLUS, true},
		{"@", ILLEGAL, false},
	}
	for _, tt := range tests {
		got, ok := LookupPunct(tt.s)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("LookupPunct(%q) = (%v, %v), want (%v, %v)", tt.s, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestTokenString(t *testing.T) {
	if STRUCT.String() != "struct" {
		t.Errorf("STRUCT.String() = %q", STRUCT.String())
	}
	if !STRUCT.IsKeyword() {
		t.Error("STRUCT should be a keyword")
	}
	if PLUS.IsKeyword() {
		t.Error("PLUS should not be a keyword")
	}
	if !PLUS.IsPunct() {
		t.Error("PLUS should be a punctuator")
	}
}
