// Package consteval implements the integer constant-expression evaluator
// used by the preprocessor's #if/#elif. Identifier resolution sits behind
// the Resolver interface so an unknown identifier can either fold to 0 (the
// #if rule) or be reported as an error. The parser does not call this
// package: it folds array sizes, enum values, bitfield widths and case
// labels with its own walker over the parsed tree (lang/parser's foldConst).
//
// The arithmetic dispatch is grounded on the teacher's
// lang/machine/opcode.go: a table keyed by operator, rather than a long
// if/else chain, repurposed here from bytecode execution to pure int64
// constant folding (no bytecode is emitted or executed; see DESIGN.md).
package consteval

import (
	"fmt"
	"go/token"
)

// Resolver abstracts identifier lookup so the same expression grammar
// serves both callers: the preprocessor's #if (unknown identifier -> 0)
// and the parser's constant contexts (unknown identifier -> error).
type Resolver interface {
	// Resolve returns the constant value of name and true, or false if name
	// is not a known constant in this context.
	Resolve(name string) (value int64, ok bool)
	// Defined reports whether name is a defined macro, for `defined(X)`;
	// only meaningful for the preprocessor's resolver.
	Defined(name string) bool
}

// Item is one token of the expression, pre-classified so this package does
// not need to depend on the scanner or preprocessor packages directly.
type Item struct {
	Pos   token.Pos
	Op    string // punctuator spelling, "" for literals/idents
	Ident string // set for identifiers, including "defined"
	IsInt bool
	Int   int64
}

// evaluator walks a flat Item slice with a classic precedence-climbing
// recursive descent; it is a constant-folding sibling of the parser's
// expression grammar, restricted to the integer constant-expression
// subset C requires for #if (spec.md §4.4).
type evaluator struct {
	items []Item
	pos   int
	res   Resolver
	errFn func(pos token.Pos, msg string)

	// suppressed is a nesting depth: >0 while walking a ||/&&/?: operand
	// that short-circuiting has ruled out. Such an operand is still parsed
	// (token positions must keep advancing) but any fold error it raises
	// (division by zero, an unresolved identifier) is not real, since C
	// never evaluates it -- see Eval's short-circuit note.
	suppressed int
}

// Eval evaluates items as a C constant-expression (comma operator
// excluded, as in #if) and returns its int64 value. unknownIsZero governs
// whether a bare identifier that Resolver.Resolve can't find evaluates to
// 0 (the #if rule) or is reported via errFn (the parser rule).
func Eval(items []Item, r Resolver, unknownIsZero bool, errFn func(token.Pos, string)) int64 {
	e := &evaluator{items: items, res: r, errFn: errFn}
	if len(items) == 0 {
		e.error(token.NoPos, "expected an expression")
		return 0
	}
	v := e.ternary(unknownIsZero)
	if e.pos < len(e.items) {
		e.error(e.items[e.pos].Pos, fmt.Sprintf("unexpected token %q in constant expression", e.items[e.pos].Op))
	}
	return v
}

func (e *evaluator) error(pos token.Pos, msg string) {
	if e.suppressed > 0 {
		return
	}
	if e.errFn != nil {
		e.errFn(pos, msg)
	}
}

// evalSuppressed runs fn, muting any fold error it raises when suppress is
// true. Used for the ||/&&/?: operand that short-circuiting determined is
// never actually evaluated, per spec.md §4.4's "ternary, short-circuiting":
// an operand like `1/0` in `0 && 1/0` must still be walked (so token
// positions stay in sync) but must not raise "division by zero".
func (e *evaluator) evalSuppressed(suppress bool, fn func() int64) int64 {
	if suppress {
		e.suppressed++
		defer func() { e.suppressed-- }()
	}
	return fn()
}

func (e *evaluator) peek() (Item, bool) {
	if e.pos >= len(e.items) {
		return Item{}, false
	}
	return e.items[e.pos], true
}

func (e *evaluator) at(op string) bool {
	it, ok := e.peek()
	return ok && it.Op == op
}

func (e *evaluator) advance() Item {
	it := e.items[e.pos]
	e.pos++
	return it
}

func (e *evaluator) ternary(z bool) int64 {
	cond := e.logicalOr(z)
	if !e.at("?") {
		return cond
	}
	e.advance()
	// Both branches are parsed unconditionally (token positions must keep
	// advancing over the untaken one too), but only the branch cond selects
	// is actually part of the constant expression -- the other's errors
	// (e.g. a division by zero it contains) are suppressed.
	then := e.evalSuppressed(cond == 0, func() int64 { return e.ternary(z) })
	if !e.at(":") {
		e.error(e.curPos(), "expected ':' in conditional expression")
		return then
	}
	e.advance()
	els := e.evalSuppressed(cond != 0, func() int64 { return e.ternary(z) })
	if cond != 0 {
		return then
	}
	return els
}

func (e *evaluator) curPos() token.Pos {
	if it, ok := e.peek(); ok {
		return it.Pos
	}
	return token.NoPos
}

type binLevel struct {
	ops []string
	fn  func(a, b int64, op string) int64
}

// levels covers every binary level below && -- || and && are handled
// separately by logicalOr/logicalAnd below since, unlike the rest, C
// requires them to short-circuit (spec.md §4.4).
var levels = []binLevel{
	{[]string{"|"}, func(a, b int64, _ string) int64 { return a | b }},
	{[]string{"^"}, func(a, b int64, _ string) int64 { return a ^ b }},
	{[]string{"&"}, func(a, b int64, _ string) int64 { return a & b }},
	{[]string{"==", "!="}, func(a, b int64, op string) int64 {
		if op == "==" {
			return b2i(a == b)
		}
		return b2i(a != b)
	}},
	{[]string{"<", ">", "<=", ">="}, func(a, b int64, op string) int64 {
		switch op {
		case "<":
			return b2i(a < b)
		case ">":
			return b2i(a > b)
		case "<=":
			return b2i(a <= b)
		default:
			return b2i(a >= b)
		}
	}},
	{[]string{"<<", ">>"}, func(a, b int64, op string) int64 {
		if op == "<<" {
			return a << uint64(b)
		}
		return a >> uint64(b)
	}},
	{[]string{"+", "-"}, func(a, b int64, op string) int64 {
		if op == "+" {
			return a + b
		}
		return a - b
	}},
	{[]string{"*", "/", "%"}, nil}, // handled specially below for div-by-zero
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// logicalOr and logicalAnd implement spec.md §4.4's short-circuiting: the
// right operand is parsed (to keep token positions in sync) but its errors
// are suppressed once the left operand has already settled the result.
func (e *evaluator) logicalOr(z bool) int64 {
	lhs := e.logicalAnd(z)
	for e.at("||") {
		e.advance()
		short := lhs != 0
		rhs := e.evalSuppressed(short, func() int64 { return e.logicalAnd(z) })
		lhs = b2i(lhs != 0 || rhs != 0)
	}
	return lhs
}

func (e *evaluator) logicalAnd(z bool) int64 {
	lhs := e.binary(0, z)
	for e.at("&&") {
		e.advance()
		short := lhs == 0
		rhs := e.evalSuppressed(short, func() int64 { return e.binary(0, z) })
		lhs = b2i(lhs != 0 && rhs != 0)
	}
	return lhs
}

func (e *evaluator) binary(level int, z bool) int64 {
	if level == len(levels) {
		return e.unary(z)
	}
	lv := levels[level]
	lhs := e.binary(level+1, z)
	for {
		it, ok := e.peek()
		if !ok || !contains(lv.ops, it.Op) {
			return lhs
		}
		op := e.advance().Op
		rhs := e.binary(level+1, z)
		if lv.fn == nil {
			lhs = e.mulDivMod(lhs, rhs, op)
		} else {
			lhs = lv.fn(lhs, rhs, op)
		}
	}
}

func (e *evaluator) mulDivMod(a, b int64, op string) int64 {
	switch op {
	case "*":
		return a * b
	case "/":
		if b == 0 {
			e.error(e.curPos(), "division by zero in constant expression")
			return 0
		}
		return a / b
	default:
		if b == 0 {
			e.error(e.curPos(), "modulo by zero in constant expression")
			return 0
		}
		return a % b
	}
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func (e *evaluator) unary(z bool) int64 {
	if it, ok := e.peek(); ok {
		switch it.Op {
		case "!":
			e.advance()
			return b2i(e.unary(z) == 0)
		case "~":
			e.advance()
			return ^e.unary(z)
		case "-":
			e.advance()
			return -e.unary(z)
		case "+":
			e.advance()
			return e.unary(z)
		}
	}
	return e.primary(z)
}

func (e *evaluator) primary(z bool) int64 {
	it, ok := e.peek()
	if !ok {
		e.error(token.NoPos, "expected an expression")
		return 0
	}
	switch {
	case it.Op == "(":
		e.advance()
		v := e.ternary(z)
		if !e.at(")") {
			e.error(e.curPos(), "expected ')'")
		} else {
			e.advance()
		}
		return v
	case it.IsInt:
		e.advance()
		return it.Int
	case it.Ident == "defined":
		e.advance()
		return e.evalDefined()
	case it.Ident != "":
		e.advance()
		if v, ok := e.res.Resolve(it.Ident); ok {
			return v
		}
		if !z {
			e.error(it.Pos, fmt.Sprintf("use of undeclared identifier %q in constant expression", it.Ident))
		}
		return 0
	default:
		e.error(it.Pos, fmt.Sprintf("unexpected token %q", it.Op))
		e.advance()
		return 0
	}
}

func (e *evaluator) evalDefined() int64 {
	paren := e.at("(")
	if paren {
		e.advance()
	}
	it, ok := e.peek()
	if !ok || it.Ident == "" {
		e.error(e.curPos(), "expected identifier after 'defined'")
		return 0
	}
	e.advance()
	v := b2i(e.res.Defined(it.Ident))
	if paren {
		if !e.at(")") {
			e.error(e.curPos(), "expected ')' after 'defined' operand")
		} else {
			e.advance()
		}
	}
	return v
}
