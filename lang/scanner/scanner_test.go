package scanner

import (
	"testing"

	"github.com/mna/cfront/lang/diag"
	"github.com/mna/cfront/lang/source"
	tok "github.com/mna/cfront/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []*tok.Token {
	t.Helper()
	set := source.NewSet()
	f := source.AddFile(set, "test.c", []byte(src))
	var errs diag.List
	errs.Collect = true
	var toks []*tok.Token
	for tk := Tokenize(set, f, &errs); ; tk = tk.Next {
		toks = append(toks, tk)
		if tk.Kind == tok.EOF {
			break
		}
	}
	require.False(t, errs.HasErrors(), "unexpected scan errors: %v", errs.Diagnostics)
	return toks
}

func kinds(toks []*tok.Token) []tok.Kind {
	out := make([]tok.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestScanIdentifiersAndPunct(t *testing.T) {
	toks := scanAll(t, "int main(void) { return 0; }")
	assert.Equal(t, []tok.Kind{
		tok.IDENT, tok.IDENT, tok.LPAREN, tok.IDENT, tok.RPAREN, tok.LBRACE,
		tok.IDENT, tok.PPNUMBER, tok.SEMI, tok.RBRACE, tok.EOF,
	}, kinds(toks))
}

func TestScanLineSplice(t *testing.T) {
	toks := scanAll(t, "int x\\\n= 1;")
	assert.Equal(t, []tok.Kind{tok.IDENT, tok.IDENT, tok.EQ, tok.PPNUMBER, tok.SEMI, tok.EOF}, kinds(toks))
}

func TestScanLongestMatchPunct(t *testing.T) {
	toks := scanAll(t, "a <<= b")
	assert.Equal(t, []tok.Kind{tok.IDENT, tok.LTLTEQ, tok.IDENT, tok.EOF}, kinds(toks))
}

func TestScanStringLiteral(t *testing.T) {
	toks := scanAll(t, `"a\tb"`)
	require.Len(t, toks, 2)
	assert.Equal(t, tok.STRING, toks[0].Kind)
	assert.Equal(t, []byte("a\tb"), toks[0].StrVal)
}

func TestScanPrefixedString(t *testing.T) {
	toks := scanAll(t, `u8"hi" L"x" u'a'`)
	require.Len(t, toks, 4)
	assert.Equal(t, tok.STRING, toks[0].Kind)
	assert.Equal(t, 1, toks[0].StrElemSize)
	assert.Equal(t, tok.STRING, toks[1].Kind)
	assert.Equal(t, 4, toks[1].StrElemSize)
	assert.Equal(t, tok.CHARCONST, toks[2].Kind)
	assert.Equal(t, 2, toks[2].StrElemSize)
}

func TestScanComments(t *testing.T) {
	toks := scanAll(t, "int /* comment */ x; // trailing\n")
	assert.Equal(t, []tok.Kind{tok.IDENT, tok.IDENT, tok.SEMI, tok.EOF}, kinds(toks))
}

func TestScanPPNumber(t *testing.T) {
	toks := scanAll(t, "0x1p-3 1'000 3.14e+10")
	require.Len(t, toks, 4)
	for _, tk := range toks[:3] {
		assert.Equal(t, tok.PPNUMBER, tk.Kind)
	}
}

func TestAtBOLAndLeadingSpace(t *testing.T) {
	toks := scanAll(t, "a\n  b")
	require.Len(t, toks, 3)
	assert.True(t, toks[0].AtBOL, "first token in a file is at the beginning of its line")
	assert.True(t, toks[1].AtBOL)
	assert.True(t, toks[1].HasLeadingWS)
}

func TestUnterminatedString(t *testing.T) {
	set := source.NewSet()
	f := source.AddFile(set, "t.c", []byte(`"unterminated`))
	var errs diag.List
	errs.Collect = true
	Tokenize(set, f, &errs)
	assert.True(t, errs.HasErrors())
}
