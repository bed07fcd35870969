package parser

import (
	"testing"

	"github.com/mna/cfront/lang/ast"
	"github.com/mna/cfront/lang/cpp"
	"github.com/mna/cfront/lang/diag"
	"github.com/mna/cfront/lang/source"
	"github.com/mna/cfront/lang/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parse runs src through the full pipeline (preprocess, keyword/number
// conversion, parse) the way Session will, so parser tests exercise the
// same token shape the parser sees in production.
func parse(t *testing.T, src string) ([]*ast.Obj, *diag.List) {
	t.Helper()
	set := source.NewSet()
	f := source.AddFile(set, "test.c", []byte(src))
	errs := &diag.List{Collect: true}
	pp := cpp.New(set, errs, cpp.Options{})
	head := pp.Preprocess(f)
	head = cpp.ConvertPPTokens(head, errs, set)
	p := New(set, errs, head)
	return p.Parse(), errs
}

func findObj(objs []*ast.Obj, name string) *ast.Obj {
	for _, o := range objs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func TestGlobalVarDeclAndInit(t *testing.T) {
	objs, errs := parse(t, "int x = 42;\n")
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	x := findObj(objs, "x")
	require.NotNil(t, x)
	assert.Equal(t, types.IntType, x.Ty)
	assert.True(t, x.IsDefinition)
	require.Len(t, x.InitData, 4)
	assert.Equal(t, byte(42), x.InitData[0])
}

func TestFunctionDefinitionAndLocals(t *testing.T) {
	objs, errs := parse(t, "int add(int a, int b) { int c = a + b; return c; }\n")
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	fn := findObj(objs, "add")
	require.NotNil(t, fn)
	assert.True(t, fn.IsFunction)
	assert.True(t, fn.IsDefinition)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)
	require.Len(t, fn.Locals, 3) // a, b, c
	require.Len(t, fn.Body, 2)   // decl-stmt, return
	ret := fn.Body[1]
	assert.Equal(t, ast.KindReturn, ret.Kind)
	require.NotNil(t, ret.LHS)
	assert.Equal(t, ast.KindVar, ret.LHS.Kind)
}

func TestTypedefDisambiguation(t *testing.T) {
	// Without typedef tracking, "myint x;" would be parsed as two
	// expression statements; the parser must recognize myint as a type.
	objs, errs := parse(t, "typedef int myint;\nmyint x;\n")
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	x := findObj(objs, "x")
	require.NotNil(t, x)
	assert.Equal(t, types.IntType, x.Ty)
}

func TestPointerAndArrayDeclarators(t *testing.T) {
	objs, errs := parse(t, "int *p;\nint arr[10];\nint (*fp)(int);\n")
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)

	p := findObj(objs, "p")
	require.NotNil(t, p)
	require.Equal(t, types.Pointer, p.Ty.Kind)
	assert.Equal(t, types.IntType, p.Ty.Base)

	arr := findObj(objs, "arr")
	require.NotNil(t, arr)
	require.Equal(t, types.Array, arr.Ty.Kind)
	assert.EqualValues(t, 10, arr.Ty.ArrayLen)

	fp := findObj(objs, "fp")
	require.NotNil(t, fp)
	require.Equal(t, types.Pointer, fp.Ty.Kind)
	require.NotNil(t, fp.Ty.Base)
	assert.Equal(t, types.Func, fp.Ty.Base.Kind)
	assert.Equal(t, types.IntType, fp.Ty.Base.Return)
}

func TestStructLayoutAndBitfields(t *testing.T) {
	src := `struct S {
		char a;
		int b;
		unsigned c : 3;
		unsigned d : 3;
	};
	struct S s;
	`
	objs, errs := parse(t, src)
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	s := findObj(objs, "s")
	require.NotNil(t, s)
	require.Equal(t, types.Struct, s.Ty.Kind)
	require.Len(t, s.Ty.Members, 4)

	a, b, c, d := s.Ty.Members[0], s.Ty.Members[1], s.Ty.Members[2], s.Ty.Members[3]
	assert.EqualValues(t, 0, a.ByteOffset)
	assert.EqualValues(t, 4, b.ByteOffset, "b is realigned past the padding after char a")
	assert.True(t, c.IsBitfield)
	assert.True(t, d.IsBitfield)
	assert.Equal(t, c.ByteOffset, d.ByteOffset, "adjacent bitfields share a storage unit")
	assert.EqualValues(t, 0, c.BitOffset)
	assert.EqualValues(t, 3, d.BitOffset)
}

func TestEnumConstantFolding(t *testing.T) {
	objs, errs := parse(t, "enum Color { RED, GREEN, BLUE = 10, PURPLE };\nint x = BLUE;\n")
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	x := findObj(objs, "x")
	require.NotNil(t, x)
	require.Len(t, x.InitData, 4)
	assert.EqualValues(t, 10, x.InitData[0])
}

func TestConstantExpressionArraySize(t *testing.T) {
	objs, errs := parse(t, "int arr[2 + 3 * 2];\n")
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	arr := findObj(objs, "arr")
	require.NotNil(t, arr)
	assert.EqualValues(t, 8, arr.Ty.ArrayLen)
}

func TestDivisionByZeroInConstantExpressionIsError(t *testing.T) {
	_, errs := parse(t, "int arr[1/0];\n")
	assert.True(t, errs.HasErrors())
}

func TestGotoLabelResolution(t *testing.T) {
	src := `void f(void) {
		goto done;
		done:
		return;
	}`
	objs, errs := parse(t, src)
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	fn := findObj(objs, "f")
	require.NotNil(t, fn)
	require.Len(t, fn.Body, 2)
	gotoNode := fn.Body[0]
	assert.Equal(t, ast.KindGoto, gotoNode.Kind)
	require.NotNil(t, gotoNode.GotoTarget)
	assert.Equal(t, gotoNode.UniqueLabel, gotoNode.GotoTarget.UniqueLabel)
}

func TestUnresolvedGotoIsError(t *testing.T) {
	_, errs := parse(t, "void f(void) { goto nowhere; }\n")
	assert.True(t, errs.HasErrors())
}

func TestRelationalOperatorsNormalizeToLtLe(t *testing.T) {
	objs, errs := parse(t, "int f(void) { return 1 > 2; }\n")
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	fn := findObj(objs, "f")
	require.NotNil(t, fn)
	ret := fn.Body[0]
	require.Equal(t, ast.KindReturn, ret.Kind)
	cmp := ret.LHS
	// "1 > 2" must normalize to "2 < 1" (operands swapped, kind becomes Lt).
	require.Equal(t, ast.KindLt, cmp.Kind)
	require.NotNil(t, cmp.LHS)
	require.NotNil(t, cmp.RHS)
	assert.EqualValues(t, 2, cmp.LHS.IntVal)
	assert.EqualValues(t, 1, cmp.RHS.IntVal)
}

func TestPointerArithmeticTypesAsPointer(t *testing.T) {
	objs, errs := parse(t, "int *f(int *p) { return p + 1; }\n")
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	fn := findObj(objs, "f")
	require.NotNil(t, fn)
	ret := fn.Body[0]
	add := ret.LHS
	require.Equal(t, ast.KindAdd, add.Kind)
	require.NotNil(t, add.Ty)
	assert.Equal(t, types.Pointer, add.Ty.Kind)
}

func TestPointerDifferenceTypesAsLong(t *testing.T) {
	objs, errs := parse(t, "long f(int *a, int *b) { return a - b; }\n")
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	fn := findObj(objs, "f")
	require.NotNil(t, fn)
	ret := fn.Body[0]
	sub := ret.LHS
	require.Equal(t, ast.KindSub, sub.Kind)
	assert.Equal(t, types.LongType, sub.Ty)
}

func TestLinkProgsMergesDeclarationAndDefinition(t *testing.T) {
	objsA, errsA := parse(t, "int f(int x);\n")
	require.False(t, errsA.HasErrors(), "%v", errsA.Diagnostics)
	objsB, errsB := parse(t, "int f(int x) { return x; }\n")
	require.False(t, errsB.HasErrors(), "%v", errsB.Diagnostics)

	set := source.NewSet()
	errs := &diag.List{Collect: true}
	merged := LinkProgs(set, errs, objsA, objsB)
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	require.Len(t, merged, 1)
	assert.True(t, merged[0].IsDefinition)
	assert.NotNil(t, merged[0].Body)
}

func TestLinkProgsReportsDoubleDefinition(t *testing.T) {
	objsA, errsA := parse(t, "int f(void) { return 1; }\n")
	require.False(t, errsA.HasErrors(), "%v", errsA.Diagnostics)
	objsB, errsB := parse(t, "int f(void) { return 2; }\n")
	require.False(t, errsB.HasErrors(), "%v", errsB.Diagnostics)

	set := source.NewSet()
	errs := &diag.List{Collect: true}
	LinkProgs(set, errs, objsA, objsB)
	assert.True(t, errs.HasErrors())
}

func TestCaseRangeAndSwitch(t *testing.T) {
	src := `int f(int x) {
		switch (x) {
		case 1 ... 3:
			return 1;
		default:
			return 0;
		}
	}`
	objs, errs := parse(t, src)
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	fn := findObj(objs, "f")
	require.NotNil(t, fn)
	sw := fn.Body[0]
	require.Equal(t, ast.KindSwitch, sw.Kind)
	caseLabel := sw.Then.Body[0]
	require.Equal(t, ast.KindCaseLabel, caseLabel.Kind)
	assert.EqualValues(t, 1, caseLabel.CaseBegin)
	assert.EqualValues(t, 3, caseLabel.CaseEnd)
}

func TestStatementExpression(t *testing.T) {
	objs, errs := parse(t, "int x = ({ int y = 1; y + 1; });\n")
	require.False(t, errs.HasErrors(), "%v", errs.Diagnostics)
	x := findObj(objs, "x")
	require.NotNil(t, x)
	require.Len(t, x.InitData, 4)
}
