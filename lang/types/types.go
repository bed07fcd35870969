// Package types implements spec.md §4.5's C type system: a tagged union
// over the primitive and derived kinds, immutable primitive singletons,
// and the constructors/compatibility rules the parser needs to build a
// typed AST.
//
// Grounded on the teacher's lang/ast node-shape idiom (exported struct
// fields addressed by tag, rather than an interface hierarchy) adapted
// from AST nodes to types; the origin back-link used by IsCompatible is
// grounded on lang/resolver/binding.go's own "walk to a shared
// declaration" pattern, repurposed from name binding to type identity.
package types

import tok "github.com/mna/cfront/lang/token"

// Kind is the tag of a Type's union, per spec.md §3.
type Kind uint8

const (
	Void Kind = iota
	Bool
	Char
	Short
	Int
	Long
	Float
	Double
	LongDouble
	Enum
	Pointer
	Func
	Array
	VLA
	Struct
	Union
	Block
	Error
)

// Type is spec.md §3's Type record: a tagged union with common fields
// (size, align, qualifiers) and kind-specific fields populated only for
// the relevant Kind.
type Type struct {
	Kind Kind

	Size  int64
	Align int64

	IsUnsigned bool
	IsAtomic   bool
	IsConst    bool
	IsVolatile bool

	// Origin back-links a qualifier-derived copy to the Type it was copied
	// from, so IsCompatible can walk to a shared ancestor (spec.md §4.5).
	Origin *Type

	// Pointer/Array/VLA.
	Base     *Type
	ArrayLen int64 // -1 for incomplete arrays
	VLALen   any   // *ast.Node, set by lang/ast to avoid an import cycle

	// Func.
	Return     *Type
	Params     []*Type
	ParamNames []string
	Variadic   bool
	Unprototyped bool

	// Struct/Union.
	Tag     string
	Members []*Member

	// Enum.
	Enumerators []Enumerator

	Name *tok.Token // a representative token, for diagnostics
}

// Member is spec.md §3's Member record.
type Member struct {
	NameTok    *tok.Token
	Type       *Type
	ByteOffset int64
	Align      int64
	IsBitfield bool
	BitOffset  int
	BitWidth   int
}

// Enumerator is one `name = value` pair of an enum type.
type Enumerator struct {
	Name  string
	Value int64
}

// Primitive singletons, per spec.md §4.5 "Immutable singletons for each
// primitive." The 64-bit host data model fixes int=32, long/pointer=64
// (spec.md §1 Non-goals).
var (
	VoidType  = &Type{Kind: Void, Size: 0, Align: 1}
	BoolType  = &Type{Kind: Bool, Size: 1, Align: 1, IsUnsigned: true}
	CharType  = &Type{Kind: Char, Size: 1, Align: 1}
	UCharType = &Type{Kind: Char, Size: 1, Align: 1, IsUnsigned: true}
	ShortType = &Type{Kind: Short, Size: 2, Align: 2}
	UShortType = &Type{Kind: Short, Size: 2, Align: 2, IsUnsigned: true}
	IntType   = &Type{Kind: Int, Size: 4, Align: 4}
	UIntType  = &Type{Kind: Int, Size: 4, Align: 4, IsUnsigned: true}
	LongType  = &Type{Kind: Long, Size: 8, Align: 8}
	ULongType = &Type{Kind: Long, Size: 8, Align: 8, IsUnsigned: true}
	FloatType = &Type{Kind: Float, Size: 4, Align: 4}
	DoubleType = &Type{Kind: Double, Size: 8, Align: 8}
	LDoubleType = &Type{Kind: LongDouble, Size: 16, Align: 16}
	ErrorType = &Type{Kind: Error}
)

// IsInteger reports whether t is one of the integer kinds (Bool through
// Long, plus Enum), per the usual arithmetic conversion rules.
func (t *Type) IsInteger() bool {
	switch t.Kind {
	case Bool, Char, Short, Int, Long, Enum:
		return true
	}
	return false
}

// IsFloating reports whether t is one of Float/Double/LongDouble.
func (t *Type) IsFloating() bool {
	switch t.Kind {
	case Float, Double, LongDouble:
		return true
	}
	return false
}

func (t *Type) IsArithmetic() bool { return t.IsInteger() || t.IsFloating() }

func (t *Type) IsPointerLike() bool { return t.Kind == Pointer || t.Kind == Array || t.Kind == VLA }

// IntRank orders the integer kinds for the usual arithmetic conversions,
// per spec.md §4.5.
func (t *Type) IntRank() int {
	switch t.Kind {
	case Bool:
		return 0
	case Char:
		return 1
	case Short:
		return 2
	case Int, Enum:
		return 3
	case Long:
		return 4
	}
	return -1
}

// PointerTo constructs a fresh pointer-to-base type (an ordinary Go heap
// allocation; no arena is involved), per spec.md §4.5's pointer_to.
func PointerTo(base *Type) *Type {
	return &Type{Kind: Pointer, Size: 8, Align: 8, Base: base}
}

// ArrayOf constructs an array type of len elements of base, or an
// incomplete array when len < 0, per spec.md §3 "array_len (-1 for
// incomplete)".
func ArrayOf(base *Type, length int64) *Type {
	t := &Type{Kind: Array, Base: base, ArrayLen: length, Align: base.Align}
	if length >= 0 {
		t.Size = base.Size * length
	}
	return t
}

// VLAOf constructs a variable-length array type whose length is a
// runtime expression (opaque here to avoid an ast<->types import cycle;
// lang/ast stores the *ast.Node in VLALen).
func VLAOf(base *Type, lengthExpr any) *Type {
	return &Type{Kind: VLA, Base: base, ArrayLen: -1, Align: base.Align, VLALen: lengthExpr}
}

// FuncType constructs a function type, per spec.md §3's "return_ty, a
// linked list of parameter types, and a variadic flag" (realized here as
// a slice rather than a linked list -- Go slices are the idiomatic
// equivalent and the teacher's own lang/ast favors slices over linked
// lists for node children lists).
func FuncType(ret *Type, params []*Type, names []string, variadic, unprototyped bool) *Type {
	return &Type{Kind: Func, Return: ret, Params: params, ParamNames: names, Variadic: variadic, Unprototyped: unprototyped, Size: 1, Align: 1}
}

// StructType / UnionType construct an aggregate type; members and
// size/align are filled in by the parser once layout is computed.
func StructType(tag string) *Type { return &Type{Kind: Struct, Tag: tag, Align: 1} }
func UnionType(tag string) *Type  { return &Type{Kind: Union, Tag: tag, Align: 1} }

// EnumType constructs an enum type; its underlying representation is
// always IntType per this implementation's Non-goal of supporting
// fixed-underlying-type enums beyond plain int (spec.md §1 restricts
// scope to the listed GNU/Clang extensions only).
func EnumType() *Type { return &Type{Kind: Enum, Size: 4, Align: 4} }

// Unqualified returns a copy of t with const/volatile/atomic cleared,
// linked to t via Origin, per spec.md §4.5's qualifier-copy pattern.
func (t *Type) Unqualified() *Type {
	if !t.IsConst && !t.IsVolatile && !t.IsAtomic {
		return t
	}
	cp := *t
	cp.IsConst, cp.IsVolatile, cp.IsAtomic = false, false, false
	cp.Origin = t
	return &cp
}

// WithQualifiers returns a copy of t with the given qualifiers applied,
// linked to t via Origin.
func (t *Type) WithQualifiers(isConst, isVolatile, isAtomic bool) *Type {
	cp := *t
	cp.IsConst, cp.IsVolatile, cp.IsAtomic = isConst, isVolatile, isAtomic
	cp.Origin = t
	return &cp
}

// ancestor walks Origin links to the root type identity, per spec.md
// §4.5 "origin back-link... so is_compatible can walk to a shared
// ancestor."
func ancestor(t *Type) *Type {
	for t.Origin != nil {
		t = t.Origin
	}
	return t
}

// IsCompatible implements spec.md §4.5's compatibility rule: same kind,
// qualifiers ignored at the top level, recursively compatible bases, and
// array-length/function-arity special cases.
func IsCompatible(a, b *Type) bool {
	if a == nil || b == nil {
		return false
	}
	ra, rb := ancestor(a), ancestor(b)
	if ra == rb {
		return true
	}
	if ra.Kind != rb.Kind {
		return false
	}
	switch ra.Kind {
	case Pointer:
		return IsCompatible(ra.Base, rb.Base)
	case Array:
		if ra.ArrayLen >= 0 && rb.ArrayLen >= 0 && ra.ArrayLen != rb.ArrayLen {
			return false
		}
		return IsCompatible(ra.Base, rb.Base)
	case Func:
		if !IsCompatible(ra.Return, rb.Return) {
			return false
		}
		if ra.Unprototyped || rb.Unprototyped {
			return true
		}
		if len(ra.Params) != len(rb.Params) || ra.Variadic != rb.Variadic {
			return false
		}
		for i := range ra.Params {
			if !IsCompatible(ra.Params[i], rb.Params[i]) {
				return false
			}
		}
		return true
	case Struct, Union, Enum:
		return ra.Tag != "" && ra.Tag == rb.Tag
	default:
		return ra.Kind == rb.Kind && ra.IsUnsigned == rb.IsUnsigned
	}
}

// UsualArithmeticConvert implements spec.md §4.5's usual arithmetic
// conversions: the floating ladder dominates; otherwise integer
// promotion/rank comparison with unsigned-wins-on-tie, per C's rules.
func UsualArithmeticConvert(a, b *Type) *Type {
	if a.Kind == LongDouble || b.Kind == LongDouble {
		return LDoubleType
	}
	if a.Kind == Double || b.Kind == Double {
		return DoubleType
	}
	if a.Kind == Float || b.Kind == Float {
		return FloatType
	}
	pa, pb := promote(a), promote(b)
	if pa.IntRank() == pb.IntRank() {
		if pa.IsUnsigned || pb.IsUnsigned {
			if pa.IsUnsigned {
				return pa
			}
			return pb
		}
		return pa
	}
	if pa.IntRank() > pb.IntRank() {
		return rankWinner(pa, pb)
	}
	return rankWinner(pb, pa)
}

// promote applies integer promotion: anything narrower than int promotes
// to int (spec.md §4.5).
func promote(t *Type) *Type {
	if t.IntRank() < IntType.IntRank() {
		return IntType
	}
	return t
}

func rankWinner(hi, lo *Type) *Type {
	if !hi.IsUnsigned && lo.IsUnsigned && lo.Size >= hi.Size {
		// a lower-rank unsigned type whose range the higher-rank signed type
		// can't represent pulls the result to unsigned of the higher rank.
		return unsignedVariant(hi)
	}
	return hi
}

func unsignedVariant(t *Type) *Type {
	switch t.Kind {
	case Int:
		return UIntType
	case Long:
		return ULongType
	case Short:
		return UShortType
	case Char:
		return UCharType
	default:
		return t
	}
}
