package ast

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mna/cfront/lang/types"
)

var kindNames = map[Kind]string{
	KindNum: "num", KindStr: "str", KindVar: "var", KindMemberExpr: "member",
	KindFuncCall: "call", KindCompoundLiteral: "compound-literal",
	KindNeg: "neg", KindNot: "not", KindBitNot: "bitnot", KindAddr: "addr",
	KindDeref: "deref", KindPreInc: "pre++", KindPreDec: "pre--",
	KindPostInc: "post++", KindPostDec: "post--", KindCast: "cast",
	KindAdd: "+", KindSub: "-", KindMul: "*", KindDiv: "/", KindMod: "%",
	KindBitAnd: "&", KindBitOr: "|", KindBitXor: "^", KindShl: "<<", KindShr: ">>",
	KindEq: "==", KindNe: "!=", KindLt: "<", KindLe: "<=",
	KindLogAnd: "&&", KindLogOr: "||", KindAssign: "=", KindComma: ",",
	KindCond: "?:", KindSizeOfExpr: "sizeof", KindAlignOfExpr: "alignof",
	KindGenericExpr: "_Generic", KindLabelAddr: "&&label", KindStmtExpr: "stmt-expr",
	KindAtomicCAS: "atomic-cas", KindAtomicExch: "atomic-exch",
	KindExprStmt: "expr-stmt", KindBlock: "block", KindIf: "if", KindFor: "for",
	KindDo: "do", KindSwitch: "switch", KindCaseLabel: "case", KindLabel: "label",
	KindGoto: "goto", KindGotoExpr: "goto*", KindBreak: "break",
	KindContinue: "continue", KindReturn: "return", KindAsm: "asm",
	KindError: "error",
}

// Print renders n as an indented S-expression tree, in the spirit of the
// teacher's depth-indenting Printer.printNode (adapted from a Visitor walk
// over an interface hierarchy to direct recursion over one tagged struct,
// since that's the shape spec.md §3 specifies for Node).
func Print(w io.Writer, n *Node) error {
	pp := &printer{w: w}
	pp.print(n, 0)
	return pp.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(indent int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s"+format+"\n", append([]any{strings.Repeat(". ", indent)}, args...)...)
}

func (p *printer) print(n *Node, indent int) {
	if n == nil || p.err != nil {
		return
	}
	name := kindNames[n.Kind]
	switch n.Kind {
	case KindNum:
		p.line(indent, "%s %d", name, n.IntVal)
	case KindVar:
		vn := "?"
		if n.Var != nil {
			vn = n.Var.Name
		}
		p.line(indent, "%s %s", name, vn)
	case KindLabel, KindGoto:
		p.line(indent, "%s %s", name, n.Label)
	default:
		p.line(indent, "%s", name)
	}

	for _, child := range []*Node{n.Cond, n.Then, n.Els, n.Init, n.Inc, n.LHS, n.RHS} {
		p.print(child, indent+1)
	}
	for _, c := range n.Args {
		p.print(c, indent+1)
	}
	for _, s := range n.Body {
		p.print(s, indent+1)
	}
}

// jsonType recursively serializes a types.Type, per spec.md §6's
// output_json requirement to record "type (recursively serialized
// including qualifiers, array lengths, parameter lists)".
type jsonType struct {
	Kind       string       `json:"kind"`
	Const      bool         `json:"const,omitempty"`
	Volatile   bool         `json:"volatile,omitempty"`
	Unsigned   bool         `json:"unsigned,omitempty"`
	Atomic     bool         `json:"atomic,omitempty"`
	Size       int64        `json:"size"`
	Base       *jsonType    `json:"base,omitempty"`
	ArrayLen   int64        `json:"array_len,omitempty"`
	Return     *jsonType    `json:"return,omitempty"`
	Params     []*jsonType  `json:"params,omitempty"`
	Variadic   bool         `json:"variadic,omitempty"`
	Tag        string       `json:"tag,omitempty"`
}

var kindNameStrings = map[types.Kind]string{
	types.Void: "void", types.Bool: "bool", types.Char: "char",
	types.Short: "short", types.Int: "int", types.Long: "long",
	types.Float: "float", types.Double: "double", types.LongDouble: "long double",
	types.Enum: "enum", types.Pointer: "pointer", types.Func: "func",
	types.Array: "array", types.VLA: "vla", types.Struct: "struct",
	types.Union: "union", types.Block: "block", types.Error: "error",
}

func toJSONType(t *types.Type) *jsonType {
	if t == nil {
		return nil
	}
	jt := &jsonType{
		Kind:     kindNameStrings[t.Kind],
		Const:    t.IsConst,
		Volatile: t.IsVolatile,
		Unsigned: t.IsUnsigned,
		Atomic:   t.IsAtomic,
		Size:     t.Size,
		Tag:      t.Tag,
	}
	switch t.Kind {
	case types.Pointer, types.VLA:
		jt.Base = toJSONType(t.Base)
	case types.Array:
		jt.Base = toJSONType(t.Base)
		jt.ArrayLen = t.ArrayLen
	case types.Func:
		jt.Return = toJSONType(t.Return)
		jt.Variadic = t.Variadic
		for _, p := range t.Params {
			jt.Params = append(jt.Params, toJSONType(p))
		}
	}
	return jt
}

type jsonFuncDecl struct {
	Name       string      `json:"name"`
	Type       *jsonType   `json:"type"`
	Storage    string      `json:"storage"`
	IsDefinition bool      `json:"is_definition"`
}

type jsonVarDecl struct {
	Name    string    `json:"name"`
	Type    *jsonType `json:"type"`
	Storage string    `json:"storage"`
}

type jsonAggDecl struct {
	Tag     string      `json:"tag"`
	Members []jsonMember `json:"members"`
}

type jsonMember struct {
	Name       string `json:"name"`
	Type       *jsonType `json:"type"`
	ByteOffset int64  `json:"byte_offset"`
	IsBitfield bool   `json:"is_bitfield,omitempty"`
	BitOffset  int    `json:"bit_offset,omitempty"`
	BitWidth   int    `json:"bit_width,omitempty"`
}

type jsonEnumDecl struct {
	Tag         string             `json:"tag"`
	Enumerators []jsonEnumerator `json:"enumerators"`
}

type jsonEnumerator struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// jsonDump is spec.md §6's output_json shape: a grouped object, one array
// per declaration class.
type jsonDump struct {
	Functions []jsonFuncDecl `json:"functions"`
	Variables []jsonVarDecl  `json:"variables"`
	Structs   []jsonAggDecl  `json:"structs"`
	Unions    []jsonAggDecl  `json:"unions"`
	Enums     []jsonEnumDecl `json:"enums"`
}

func storageName(sc StorageClass) string {
	switch sc {
	case SCStatic:
		return "static"
	case SCExtern:
		return "extern"
	case SCTypedef:
		return "typedef"
	default:
		return "none"
	}
}

func aggDecl(t *types.Type) jsonAggDecl {
	d := jsonAggDecl{Tag: t.Tag}
	for _, m := range t.Members {
		name := ""
		if m.NameTok != nil {
			name = m.NameTok.Lit
		}
		d.Members = append(d.Members, jsonMember{
			Name:       name,
			Type:       toJSONType(m.Type),
			ByteOffset: m.ByteOffset,
			IsBitfield: m.IsBitfield,
			BitOffset:  m.BitOffset,
			BitWidth:   m.BitWidth,
		})
	}
	return d
}

// PrintJSON implements spec.md §6's output_json: a grouped JSON object
// describing every top-level Obj in progs plus the struct/union/enum
// types they reference, for FFI binding generation.
func PrintJSON(w io.Writer, progs []*Obj) error {
	dump := jsonDump{}
	seenAgg := map[string]bool{}
	seenEnum := map[string]bool{}

	var visitType func(t *types.Type)
	visitType = func(t *types.Type) {
		if t == nil {
			return
		}
		switch t.Kind {
		case types.Struct:
			if t.Tag != "" && !seenAgg["s:"+t.Tag] {
				seenAgg["s:"+t.Tag] = true
				dump.Structs = append(dump.Structs, aggDecl(t))
			}
			for _, m := range t.Members {
				visitType(m.Type)
			}
		case types.Union:
			if t.Tag != "" && !seenAgg["u:"+t.Tag] {
				seenAgg["u:"+t.Tag] = true
				dump.Unions = append(dump.Unions, aggDecl(t))
			}
			for _, m := range t.Members {
				visitType(m.Type)
			}
		case types.Enum:
			if t.Tag != "" && !seenEnum[t.Tag] {
				seenEnum[t.Tag] = true
				var enums []jsonEnumerator
				for _, e := range t.Enumerators {
					enums = append(enums, jsonEnumerator{Name: e.Name, Value: e.Value})
				}
				dump.Enums = append(dump.Enums, jsonEnumDecl{Tag: t.Tag, Enumerators: enums})
			}
		case types.Pointer, types.Array, types.VLA:
			visitType(t.Base)
		case types.Func:
			visitType(t.Return)
			for _, p := range t.Params {
				visitType(p)
			}
		}
	}

	for _, o := range progs {
		visitType(o.Ty)
		if o.IsFunction {
			dump.Functions = append(dump.Functions, jsonFuncDecl{
				Name:         o.Name,
				Type:         toJSONType(o.Ty),
				Storage:      storageName(o.Storage),
				IsDefinition: o.IsDefinition,
			})
			continue
		}
		dump.Variables = append(dump.Variables, jsonVarDecl{
			Name:    o.Name,
			Type:    toJSONType(o.Ty),
			Storage: storageName(o.Storage),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dump)
}
