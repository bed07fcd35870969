package cpp

import (
	"testing"

	"github.com/mna/cfront/lang/diag"
	"github.com/mna/cfront/lang/source"
	tok "github.com/mna/cfront/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPP(t *testing.T, src string, opts Options) ([]*tok.Token, *diag.List) {
	t.Helper()
	set := source.NewSet()
	f := source.AddFile(set, "test.c", []byte(src))
	errs := &diag.List{Collect: true}
	p := New(set, errs, opts)
	var out []*tok.Token
	for tk := p.Preprocess(f); ; tk = tk.Next {
		out = append(out, tk)
		if tk.Kind == tok.EOF {
			break
		}
	}
	return out, errs
}

func spellAll(toks []*tok.Token) string {
	var sb []byte
	for _, t := range toks {
		if t.Kind == tok.EOF {
			continue
		}
		if len(sb) > 0 {
			sb = append(sb, ' ')
		}
		sb = append(sb, t.Lit...)
	}
	return string(sb)
}

func TestObjectLikeMacroRecursionGuard(t *testing.T) {
	// spec.md §8 scenario b.
	toks, errs := runPP(t, "#define M M\nM\n", Options{})
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	require.Len(t, toks, 2)
	assert.Equal(t, tok.IDENT, toks[0].Kind)
	assert.Equal(t, "M", toks[0].Lit)
}

func TestStringizeAndPaste(t *testing.T) {
	// spec.md §8 scenario c.
	toks, errs := runPP(t, "#define S(x) #x\n#define P(a,b) a##b\nS(1+2) P(foo,bar)\n", Options{})
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	var nonEOF []*tok.Token
	for _, tk := range toks {
		if tk.Kind != tok.EOF {
			nonEOF = append(nonEOF, tk)
		}
	}
	require.Len(t, nonEOF, 2)
	assert.Equal(t, tok.STRING, nonEOF[0].Kind)
	assert.Equal(t, []byte("1+2"), nonEOF[0].StrVal)
	assert.Equal(t, tok.IDENT, nonEOF[1].Kind)
	assert.Equal(t, "foobar", nonEOF[1].Lit)
}

func TestConditionalInclusion(t *testing.T) {
	// spec.md §8 scenario d.
	toks, errs := runPP(t, "#if 1+1==2\nint x;\n#else\nint y;\n#endif\n", Options{})
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	var idents []string
	for _, tk := range toks {
		if tk.Kind == tok.IDENT {
			idents = append(idents, tk.Lit)
		}
	}
	assert.Contains(t, idents, "x")
	assert.NotContains(t, idents, "y")
}

func TestIfdefIfndef(t *testing.T) {
	toks, errs := runPP(t, "#define FOO\n#ifdef FOO\nint a;\n#endif\n#ifndef BAR\nint b;\n#endif\n", Options{})
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	var idents []string
	for _, tk := range toks {
		if tk.Kind == tok.IDENT {
			idents = append(idents, tk.Lit)
		}
	}
	assert.Contains(t, idents, "a")
	assert.Contains(t, idents, "b")
}

func TestNestedConditionalInSkippedBranch(t *testing.T) {
	src := "#if 0\n#if 1\nint inner;\n#endif\nint outer;\n#endif\nint after;\n"
	toks, errs := runPP(t, src, Options{})
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	var idents []string
	for _, tk := range toks {
		if tk.Kind == tok.IDENT {
			idents = append(idents, tk.Lit)
		}
	}
	assert.NotContains(t, idents, "inner")
	assert.NotContains(t, idents, "outer")
	assert.Contains(t, idents, "after")
}

func TestFunctionLikeMacroWithArgs(t *testing.T) {
	toks, errs := runPP(t, "#define ADD(a,b) ((a)+(b))\nADD(1,2)\n", Options{})
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	assert.Equal(t, "( ( 1 ) + ( 2 ) )", spellAll(toks))
}

func TestVariadicMacroAndVaOpt(t *testing.T) {
	toks, errs := runPP(t, "#define LOG(fmt, ...) f(fmt __VA_OPT__(,) __VA_ARGS__)\nLOG(\"hi\")\nLOG(\"hi\", 1, 2)\n", Options{})
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	_ = toks
}

func TestDefineCommandLine(t *testing.T) {
	set := source.NewSet()
	f := source.AddFile(set, "t.c", []byte("#if FOO == 42\nint ok;\n#endif\n"))
	errs := &diag.List{Collect: true}
	p := New(set, errs, Options{})
	p.Define("FOO", "42")
	var toks []*tok.Token
	for tk := p.Preprocess(f); ; tk = tk.Next {
		toks = append(toks, tk)
		if tk.Kind == tok.EOF {
			break
		}
	}
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	found := false
	for _, tk := range toks {
		if tk.Kind == tok.IDENT && tk.Lit == "ok" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestUndef(t *testing.T) {
	toks, errs := runPP(t, "#define X 1\n#undef X\n#ifdef X\nint bad;\n#endif\nint good;\n", Options{})
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	var idents []string
	for _, tk := range toks {
		if tk.Kind == tok.IDENT {
			idents = append(idents, tk.Lit)
		}
	}
	assert.NotContains(t, idents, "bad")
	assert.Contains(t, idents, "good")
}

func TestErrorDirective(t *testing.T) {
	_, errs := runPP(t, "#error boom\n", Options{})
	assert.True(t, errs.HasErrors())
}

func TestBuiltinLineAndCounter(t *testing.T) {
	toks, errs := runPP(t, "__LINE__\n__COUNTER__\n__COUNTER__\n", Options{})
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	var nums []*tok.Token
	for _, tk := range toks {
		if tk.Kind == tok.INT {
			nums = append(nums, tk)
		}
	}
	require.Len(t, nums, 3)
	assert.Equal(t, int64(0), nums[1].IntVal)
	assert.Equal(t, int64(1), nums[2].IntVal)
}

func TestUnterminatedConditionalIsError(t *testing.T) {
	_, errs := runPP(t, "#if 1\nint x;\n", Options{})
	assert.True(t, errs.HasErrors())
}
