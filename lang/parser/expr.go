package parser

import (
	"github.com/mna/cfront/lang/ast"
	tok "github.com/mna/cfront/lang/token"
	"github.com/mna/cfront/lang/types"
)

func newNode(kind ast.Kind, t *tok.Token) *ast.Node {
	return &ast.Node{Kind: kind, Tok: t}
}

func binNode(kind ast.Kind, lhs, rhs *ast.Node, t *tok.Token) *ast.Node {
	n := newNode(kind, t)
	n.LHS, n.RHS = lhs, rhs
	return n
}

func unaryNode(kind ast.Kind, operand *ast.Node, t *tok.Token) *ast.Node {
	n := newNode(kind, t)
	n.LHS = operand
	return n
}

// expr parses a full comma-expression, per spec.md §4.6's grammar
// coverage of every operator.
func (p *Parser) expr() *ast.Node {
	n := p.assign()
	for p.peekIs(tok.COMMA) {
		t := p.advance()
		n = binNode(ast.KindComma, n, p.assign(), t)
		n.Ty = n.RHS.Ty
	}
	return n
}

// exprOpt parses expr() unless the next token ends the expression list
// (used for optional for-loop clauses).
func (p *Parser) exprOpt(end tok.Kind) *ast.Node {
	if p.peekIs(end) {
		return nil
	}
	return p.expr()
}

var compoundAssignBinOp = map[tok.Kind]ast.Kind{
	tok.PLUSEQ: ast.KindAdd, tok.MINUSEQ: ast.KindSub, tok.STAREQ: ast.KindMul,
	tok.SLASHEQ: ast.KindDiv, tok.PERCENTEQ: ast.KindMod, tok.AMPEQ: ast.KindBitAnd,
	tok.PIPEEQ: ast.KindBitOr, tok.CARETEQ: ast.KindBitXor,
	tok.LTLTEQ: ast.KindShl, tok.GTGTEQ: ast.KindShr,
}

func (p *Parser) assign() *ast.Node {
	n := p.conditional()
	if p.peekIs(tok.EQ) {
		t := p.advance()
		rhs := p.assign()
		n = binNode(ast.KindAssign, n, rhs, t)
		n.Ty = n.LHS.Ty
		return n
	}
	if op, ok := compoundAssignBinOp[curKind(p.cur)]; ok {
		t := p.advance()
		rhs := p.assign()
		bin := binNode(op, n, rhs, t)
		addBinType(bin)
		assign := binNode(ast.KindAssign, n, bin, t)
		assign.Ty = n.Ty
		return assign
	}
	return n
}

func (p *Parser) conditional() *ast.Node {
	n := p.logOr()
	if p.peekIs(tok.QUESTION) {
		t := p.advance()
		then := p.expr()
		p.expect(tok.COLON)
		els := p.conditional()
		node := newNode(ast.KindCond, t)
		node.Cond, node.Then, node.Els = n, then, els
		node.Ty = then.Ty
		return node
	}
	return n
}

func (p *Parser) binChain(next func() *ast.Node, ops map[tok.Kind]ast.Kind) *ast.Node {
	n := next()
	for p.cur != nil {
		kind, ok := ops[p.cur.Kind]
		if !ok {
			break
		}
		t := p.advance()
		n = binNode(kind, n, next(), t)
		addBinType(n)
	}
	return n
}

func (p *Parser) logOr() *ast.Node {
	return p.binChain(p.logAnd, map[tok.Kind]ast.Kind{tok.PIPEPIPE: ast.KindLogOr})
}
func (p *Parser) logAnd() *ast.Node {
	return p.binChain(p.bitOr, map[tok.Kind]ast.Kind{tok.AMPAMP: ast.KindLogAnd})
}
func (p *Parser) bitOr() *ast.Node {
	return p.binChain(p.bitXor, map[tok.Kind]ast.Kind{tok.PIPE: ast.KindBitOr})
}
func (p *Parser) bitXor() *ast.Node {
	return p.binChain(p.bitAnd, map[tok.Kind]ast.Kind{tok.CARET: ast.KindBitXor})
}
func (p *Parser) bitAnd() *ast.Node {
	return p.binChain(p.equality, map[tok.Kind]ast.Kind{tok.AMP: ast.KindBitAnd})
}
func (p *Parser) equality() *ast.Node {
	return p.binChain(p.relational, map[tok.Kind]ast.Kind{tok.EQEQ: ast.KindEq, tok.BANGEQ: ast.KindNe})
}
// relational normalizes `a > b`/`a >= b` to `b < a`/`b <= a`, per the
// common "only Lt/Le exist as node kinds" simplification (spec.md §3
// lists lhs/rhs without a separate gt/ge tag).
func (p *Parser) relational() *ast.Node {
	n := p.shift()
	for {
		switch curKind(p.cur) {
		case tok.LT:
			t := p.advance()
			n = binNode(ast.KindLt, n, p.shift(), t)
			addBinType(n)
		case tok.LE:
			t := p.advance()
			n = binNode(ast.KindLe, n, p.shift(), t)
			addBinType(n)
		case tok.GT:
			t := p.advance()
			n = binNode(ast.KindLt, p.shift(), n, t)
			addBinType(n)
		case tok.GE:
			t := p.advance()
			n = binNode(ast.KindLe, p.shift(), n, t)
			addBinType(n)
		default:
			return n
		}
	}
}
func (p *Parser) shift() *ast.Node {
	return p.binChain(p.add, map[tok.Kind]ast.Kind{tok.LTLT: ast.KindShl, tok.GTGT: ast.KindShr})
}

// add handles pointer arithmetic per spec.md §4.5: ptr+int, int+ptr,
// ptr-ptr (element-count difference), plus ordinary arithmetic add/sub.
func (p *Parser) add() *ast.Node {
	n := p.mul()
	for p.peekIs(tok.PLUS) || p.peekIs(tok.MINUS) {
		isAdd := p.peekIs(tok.PLUS)
		t := p.advance()
		rhs := p.mul()
		n = p.newAddSub(isAdd, n, rhs, t)
	}
	return n
}

func (p *Parser) newAddSub(isAdd bool, l, r *ast.Node, t *tok.Token) *ast.Node {
	kind := ast.KindSub
	if isAdd {
		kind = ast.KindAdd
	}
	switch {
	case l.Ty != nil && l.Ty.IsPointerLike() && r.Ty != nil && r.Ty.IsArithmetic():
		n := binNode(kind, l, r, t)
		n.Ty = l.Ty
		return n
	case isAdd && l.Ty != nil && l.Ty.IsArithmetic() && r.Ty != nil && r.Ty.IsPointerLike():
		n := binNode(kind, r, l, t) // normalize to ptr + int
		n.Ty = r.Ty
		return n
	case !isAdd && l.Ty != nil && l.Ty.IsPointerLike() && r.Ty != nil && r.Ty.IsPointerLike():
		n := binNode(kind, l, r, t)
		n.Ty = types.LongType
		return n
	default:
		n := binNode(kind, l, r, t)
		addBinType(n)
		return n
	}
}

func (p *Parser) mul() *ast.Node {
	return p.binChain(p.cast, map[tok.Kind]ast.Kind{tok.STAR: ast.KindMul, tok.SLASH: ast.KindDiv, tok.PERCENT: ast.KindMod})
}

// cast handles `( typename ) cast-expression`, disambiguated from a
// parenthesized expression by isTypename() on the token after '('.
func (p *Parser) cast() *ast.Node {
	if p.peekIs(tok.LPAREN) && p.isTypenameAt(p.cur.Next) {
		t := p.advance()
		ty := p.typename()
		p.expect(tok.RPAREN)
		if p.peekIs(tok.LBRACE) {
			// compound literal: (T){ initializer-list }
			return p.compoundLiteral(ty, t)
		}
		n := unaryNode(ast.KindCast, p.cast(), t)
		n.Ty = ty
		return n
	}
	return p.unary()
}

// isTypenameAt peeks one token ahead without consuming, used only by
// cast()'s lookahead; it reuses isTypename's keyword list plus a scope
// lookup for the token t specifically (rather than p.cur).
func (p *Parser) isTypenameAt(t *tok.Token) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case tok.VOID, tok.BOOL, tok.CHAR, tok.SHORT, tok.INT_KW, tok.LONG,
		tok.FLOAT_KW, tok.DOUBLE, tok.SIGNED, tok.UNSIGNED, tok.STRUCT,
		tok.UNION, tok.ENUM, tok.CONST, tok.VOLATILE, tok.RESTRICT,
		tok.ATOMIC, tok.ALIGNAS, tok.COMPLEX, tok.NORETURN, tok.TYPEOF:
		return true
	case tok.IDENT:
		vs := p.scope.FindVar(t.Lit)
		return vs != nil && vs.Typedef != nil
	}
	return false
}

func (p *Parser) unary() *ast.Node {
	switch curKind(p.cur) {
	case tok.PLUS:
		p.advance()
		return p.cast()
	case tok.MINUS:
		t := p.advance()
		n := unaryNode(ast.KindNeg, p.cast(), t)
		n.Ty = n.LHS.Ty
		return n
	case tok.BANG:
		t := p.advance()
		n := unaryNode(ast.KindNot, p.cast(), t)
		n.Ty = types.IntType
		return n
	case tok.TILDE:
		t := p.advance()
		n := unaryNode(ast.KindBitNot, p.cast(), t)
		n.Ty = n.LHS.Ty
		return n
	case tok.AMP:
		t := p.advance()
		n := unaryNode(ast.KindAddr, p.cast(), t)
		n.Ty = types.PointerTo(n.LHS.Ty)
		return n
	case tok.STAR:
		t := p.advance()
		n := unaryNode(ast.KindDeref, p.cast(), t)
		if n.LHS.Ty != nil && n.LHS.Ty.IsPointerLike() {
			n.Ty = n.LHS.Ty.Base
		} else {
			n.Ty = types.ErrorType
		}
		return n
	case tok.PLUSPLUS:
		t := p.advance()
		return unaryNode(ast.KindPreInc, p.unary(), t)
	case tok.MINUSMINUS:
		t := p.advance()
		return unaryNode(ast.KindPreDec, p.unary(), t)
	case tok.AMPAMP:
		// GNU labels-as-values: &&label
		t := p.advance()
		lbl := p.expect(tok.IDENT)
		n := newNode(ast.KindLabelAddr, t)
		n.Label = lbl.Lit
		n.Ty = types.PointerTo(types.VoidType)
		return n
	case tok.SIZEOF:
		return p.sizeofExpr()
	case tok.ALIGNOF:
		t := p.advance()
		p.expect(tok.LPAREN)
		ty := p.typename()
		p.expect(tok.RPAREN)
		n := newNode(ast.KindAlignOfExpr, t)
		n.IntVal = ty.Align
		n.Ty = types.ULongType
		return n
	}
	return p.postfix()
}

func (p *Parser) sizeofExpr() *ast.Node {
	t := p.advance()
	if p.peekIs(tok.LPAREN) && p.isTypenameAt(p.cur.Next) {
		p.advance()
		ty := p.typename()
		p.expect(tok.RPAREN)
		n := newNode(ast.KindSizeOfExpr, t)
		n.IntVal = ty.Size
		n.Ty = types.ULongType
		return n
	}
	operand := p.unary()
	n := newNode(ast.KindSizeOfExpr, t)
	if operand.Ty != nil {
		n.IntVal = operand.Ty.Size
	}
	n.Ty = types.ULongType
	return n
}

func (p *Parser) postfix() *ast.Node {
	n := p.primary()
	for {
		switch curKind(p.cur) {
		case tok.LBRACK:
			t := p.advance()
			idx := p.expr()
			p.expect(tok.RBRACK)
			add := p.newAddSub(true, n, idx, t)
			deref := unaryNode(ast.KindDeref, add, t)
			if add.Ty != nil && add.Ty.IsPointerLike() {
				deref.Ty = add.Ty.Base
			}
			n = deref
		case tok.DOT:
			t := p.advance()
			name := p.expect(tok.IDENT)
			n = p.memberAccess(n, name, t)
		case tok.ARROW:
			t := p.advance()
			name := p.expect(tok.IDENT)
			deref := unaryNode(ast.KindDeref, n, t)
			if n.Ty != nil && n.Ty.IsPointerLike() {
				deref.Ty = n.Ty.Base
			}
			n = p.memberAccess(deref, name, t)
		case tok.PLUSPLUS:
			t := p.advance()
			n = unaryNode(ast.KindPostInc, n, t)
			n.Ty = n.LHS.Ty
		case tok.MINUSMINUS:
			t := p.advance()
			n = unaryNode(ast.KindPostDec, n, t)
			n.Ty = n.LHS.Ty
		case tok.LPAREN:
			n = p.funcCall(n)
		default:
			return n
		}
	}
}

func (p *Parser) memberAccess(base *ast.Node, nameTok *tok.Token, t *tok.Token) *ast.Node {
	n := newNode(ast.KindMemberExpr, t)
	n.LHS = base
	if base.Ty == nil || (base.Ty.Kind != types.Struct && base.Ty.Kind != types.Union) {
		p.errorf("member access on non-aggregate type")
		n.Ty = types.ErrorType
		return n
	}
	for _, m := range base.Ty.Members {
		if m.NameTok != nil && m.NameTok.Lit == nameTok.Lit {
			n.Member = m
			n.Ty = m.Type
			return n
		}
	}
	p.errorf("no member named %q", nameTok.Lit)
	n.Ty = types.ErrorType
	return n
}

func (p *Parser) funcCall(callee *ast.Node) *ast.Node {
	t := p.advance() // '('
	n := newNode(ast.KindFuncCall, t)
	n.LHS = callee
	if !p.peekIs(tok.RPAREN) {
		for {
			n.Args = append(n.Args, p.assign())
			if !p.consumeIf(tok.COMMA) {
				break
			}
		}
	}
	p.expect(tok.RPAREN)
	if callee.Ty != nil && callee.Ty.Kind == types.Func {
		n.Ty = callee.Ty.Return
	} else if callee.Ty != nil && callee.Ty.Kind == types.Pointer && callee.Ty.Base != nil && callee.Ty.Base.Kind == types.Func {
		n.Ty = callee.Ty.Base.Return
	} else {
		n.Ty = types.IntType
	}
	return n
}

func (p *Parser) primary() *ast.Node {
	if p.cur == nil {
		return newNode(ast.KindError, nil)
	}

	switch p.cur.Kind {
	case tok.LPAREN:
		t := p.advance()
		if p.peekIs(tok.LBRACE) {
			// statement expression: ({ ... })
			body := p.compoundStmtBody()
			p.expect(tok.RPAREN)
			n := newNode(ast.KindStmtExpr, t)
			n.Body = body
			if len(body) > 0 && body[len(body)-1].Kind == ast.KindExprStmt {
				n.Ty = body[len(body)-1].LHS.Ty
			} else {
				n.Ty = types.VoidType
			}
			return n
		}
		n := p.expr()
		p.expect(tok.RPAREN)
		return n

	case tok.INT:
		t := p.advance()
		n := newNode(ast.KindNum, t)
		n.IntVal = t.IntVal
		if t.IsUnsigned {
			n.Ty = types.UIntType
			if t.IntBits > 32 {
				n.Ty = types.ULongType
			}
		} else {
			n.Ty = types.IntType
			if t.IntBits > 32 {
				n.Ty = types.LongType
			}
		}
		return n

	case tok.FLOAT:
		t := p.advance()
		n := newNode(ast.KindNum, t)
		n.FloatVal = t.FloatVal
		n.Ty = types.DoubleType
		return n

	case tok.STRING:
		t := p.advance()
		n := newNode(ast.KindStr, t)
		n.StrVal = t.StrVal
		elem := types.CharType
		n.Ty = types.ArrayOf(elem, int64(len(t.StrVal))+1)
		return n

	case tok.CHARCONST:
		t := p.advance()
		n := newNode(ast.KindNum, t)
		n.IntVal = t.IntVal
		n.Ty = types.IntType
		return n

	case tok.IDENT:
		return p.identExpr()

	case tok.GENERIC:
		return p.genericExpr()

	default:
		p.errorf("expected an expression, got %s", p.curKindStr())
		t := p.advance()
		n := newNode(ast.KindError, t)
		n.Ty = types.ErrorType
		return n
	}
}

func (p *Parser) identExpr() *ast.Node {
	t := p.advance()
	vs := p.scope.FindVar(t.Lit)
	if vs == nil {
		p.errorf("undeclared identifier %q", t.Lit)
		n := newNode(ast.KindError, t)
		n.Ty = types.ErrorType
		return n
	}
	if vs.EnumTy != nil {
		n := newNode(ast.KindNum, t)
		n.IntVal = vs.EnumVal
		n.Ty = vs.EnumTy
		return n
	}
	n := newNode(ast.KindVar, t)
	n.Var = vs.Var
	n.Ty = vs.Var.Ty
	return n
}

// genericExpr implements a minimal `_Generic(expr, type: e, ..., default: e)`.
func (p *Parser) genericExpr() *ast.Node {
	t := p.advance()
	p.expect(tok.LPAREN)
	ctrl := p.assign()
	var result *ast.Node
	for p.consumeIf(tok.COMMA) {
		if p.consumeIf(tok.DEFAULT) {
			p.expect(tok.COLON)
			e := p.assign()
			if result == nil {
				result = e
			}
			continue
		}
		ty := p.typename()
		p.expect(tok.COLON)
		e := p.assign()
		if ctrl.Ty != nil && types.IsCompatible(ctrl.Ty, ty) {
			result = e
		}
	}
	p.expect(tok.RPAREN)
	if result == nil {
		p.errorf("_Generic: no matching association")
		n := newNode(ast.KindGenericExpr, t)
		n.Ty = types.ErrorType
		return n
	}
	return result
}

// compoundLiteral parses `(T){ initializer-list }`, per spec.md §4.6.
func (p *Parser) compoundLiteral(ty *types.Type, t *tok.Token) *ast.Node {
	data, relocs := p.initializer(ty)
	n := newNode(ast.KindCompoundLiteral, t)
	n.Ty = ty
	n.InitData = data
	n.Relocs = relocs
	return n
}

// addBinType assigns the usual-arithmetic-conversion result type to a
// binary node whose operands are already typed, per spec.md §4.5.
func addBinType(n *ast.Node) {
	if n.LHS == nil || n.RHS == nil || n.LHS.Ty == nil || n.RHS.Ty == nil {
		return
	}
	switch n.Kind {
	case ast.KindEq, ast.KindNe, ast.KindLt, ast.KindLe, ast.KindLogAnd, ast.KindLogOr:
		n.Ty = types.IntType
	case ast.KindShl, ast.KindShr:
		n.Ty = n.LHS.Ty
	default:
		if n.LHS.Ty.IsArithmetic() && n.RHS.Ty.IsArithmetic() {
			n.Ty = types.UsualArithmeticConvert(n.LHS.Ty, n.RHS.Ty)
		} else {
			n.Ty = n.LHS.Ty
		}
	}
}

// curKind lets callers switch on a possibly-nil token without a nil
// check at every call site (mirrors the defensive style the teacher's
// own scanner uses at EOF boundaries).
func curKind(t *tok.Token) tok.Kind {
	if t == nil {
		return tok.EOF
	}
	return t.Kind
}
