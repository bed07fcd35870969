package parser

import (
	"github.com/mna/cfront/lang/ast"
	"github.com/mna/cfront/lang/diag"
	tok "github.com/mna/cfront/lang/token"
	"github.com/mna/cfront/lang/types"
)

// stmt parses one statement, per spec.md §4.6's grammar coverage list
// (all control-flow forms, labels-as-values' goto *e, asm, statement
// expressions handled in expr.go's primary()).
func (p *Parser) stmt() *ast.Node {
	switch curKind(p.cur) {
	case tok.LBRACE:
		return p.compoundStmt()

	case tok.IF:
		t := p.advance()
		p.expect(tok.LPAREN)
		cond := p.expr()
		p.expect(tok.RPAREN)
		then := p.stmt()
		n := newNode(ast.KindIf, t)
		n.Cond, n.Then = cond, then
		if p.consumeIf(tok.ELSE) {
			n.Els = p.stmt()
		}
		return n

	case tok.FOR:
		return p.forStmt()

	case tok.WHILE:
		t := p.advance()
		p.expect(tok.LPAREN)
		cond := p.expr()
		p.expect(tok.RPAREN)
		n := newNode(ast.KindFor, t)
		n.Cond = cond
		n.Then = p.stmt()
		return n

	case tok.DO:
		t := p.advance()
		body := p.stmt()
		p.expect(tok.WHILE)
		p.expect(tok.LPAREN)
		cond := p.expr()
		p.expect(tok.RPAREN)
		p.expect(tok.SEMI)
		n := newNode(ast.KindDo, t)
		n.Then, n.Cond = body, cond
		return n

	case tok.SWITCH:
		return p.switchStmt()

	case tok.CASE:
		return p.caseStmt()

	case tok.DEFAULT:
		t := p.advance()
		p.expect(tok.COLON)
		n := newNode(ast.KindCaseLabel, t)
		n.CaseBegin, n.CaseEnd = 0, -1 // sentinel: default has no range
		n.Then = p.stmt()
		return n

	case tok.BREAK:
		t := p.advance()
		p.expect(tok.SEMI)
		return newNode(ast.KindBreak, t)

	case tok.CONTINUE:
		t := p.advance()
		p.expect(tok.SEMI)
		return newNode(ast.KindContinue, t)

	case tok.GOTO:
		t := p.advance()
		if p.consumeIf(tok.STAR) {
			n := newNode(ast.KindGotoExpr, t)
			n.LHS = p.expr()
			p.expect(tok.SEMI)
			return n
		}
		lbl := p.expect(tok.IDENT)
		n := newNode(ast.KindGoto, t)
		n.Label = lbl.Lit
		p.expect(tok.SEMI)
		p.gotos = append(p.gotos, n)
		return n

	case tok.RETURN:
		t := p.advance()
		n := newNode(ast.KindReturn, t)
		if !p.peekIs(tok.SEMI) {
			n.LHS = p.expr()
		}
		p.expect(tok.SEMI)
		return n

	case tok.ASM:
		t := p.advance()
		p.consumeIf(tok.VOLATILE)
		p.expect(tok.LPAREN)
		var lit string
		if p.peekIs(tok.STRING) {
			lit = string(p.advance().StrVal)
		}
		for !p.peekIs(tok.RPAREN) && p.cur != nil {
			p.advance()
		}
		p.expect(tok.RPAREN)
		p.expect(tok.SEMI)
		n := newNode(ast.KindAsm, t)
		n.StrVal = []byte(lit)
		return n

	case tok.STATIC_ASSERT:
		p.staticAssert()
		return newNode(ast.KindBlock, nil)

	case tok.SEMI:
		t := p.advance()
		return newNode(ast.KindBlock, t)

	case tok.IDENT:
		if p.cur.Next != nil && p.cur.Next.Kind == tok.COLON {
			t := p.advance()
			label := t.Lit
			p.advance() // ':'
			n := newNode(ast.KindLabel, t)
			n.Label = label
			n.UniqueLabel = p.newUniqueName()
			n.Then = p.stmt()
			p.labels = append(p.labels, n)
			return n
		}
	}

	n := newNode(ast.KindExprStmt, p.cur)
	n.LHS = p.expr()
	p.expect(tok.SEMI)
	return n
}

func (p *Parser) staticAssert() {
	t := p.advance()
	p.expect(tok.LPAREN)
	n := p.conditional()
	v := p.evalConstNode(n)
	var msg string
	if p.consumeIf(tok.COMMA) {
		if p.peekIs(tok.STRING) {
			msg = string(p.advance().StrVal)
		}
	}
	p.expect(tok.RPAREN)
	p.expect(tok.SEMI)
	if v == 0 {
		if msg != "" {
			p.errs.Add(p.set.Position(t.Pos), diag.Error, "static assertion failed: %s", msg)
		} else {
			p.errs.Add(p.set.Position(t.Pos), diag.Error, "static assertion failed")
		}
	}
}

func (p *Parser) forStmt() *ast.Node {
	t := p.advance()
	p.expect(tok.LPAREN)
	p.pushScope()
	defer p.popScope()

	n := newNode(ast.KindFor, t)
	if p.isTypename() {
		attr := &declAttr{}
		base := p.declspec(attr)
		n.Init = p.declStmt(base, attr)
	} else {
		init := p.exprOpt(tok.SEMI)
		p.expect(tok.SEMI)
		if init != nil {
			w := newNode(ast.KindExprStmt, t)
			w.LHS = init
			n.Init = w
		}
	}
	n.Cond = p.exprOpt(tok.SEMI)
	p.expect(tok.SEMI)
	n.Inc = p.exprOpt(tok.RPAREN)
	p.expect(tok.RPAREN)
	n.Then = p.stmt()
	return n
}

func (p *Parser) switchStmt() *ast.Node {
	t := p.advance()
	p.expect(tok.LPAREN)
	cond := p.expr()
	p.expect(tok.RPAREN)
	n := newNode(ast.KindSwitch, t)
	n.Cond = cond
	n.Then = p.stmt()
	return n
}

func (p *Parser) caseStmt() *ast.Node {
	t := p.advance()
	begin := p.evalConstNode(p.conditional())
	end := begin
	if p.consumeIf(tok.ELLIPSIS) {
		end = p.evalConstNode(p.conditional())
	}
	p.expect(tok.COLON)
	n := newNode(ast.KindCaseLabel, t)
	n.CaseBegin, n.CaseEnd = begin, end
	n.Then = p.stmt()
	return n
}

// compoundStmt parses a `{ ... }` block, pushing/popping a Scope per
// spec.md §4.6: "entering a block pushes a fresh Scope; leaving pops
// it."
func (p *Parser) compoundStmt() *ast.Node {
	t := p.expect(tok.LBRACE)
	p.pushScope()
	body := p.blockItems()
	p.expect(tok.RBRACE)
	p.popScope()
	n := newNode(ast.KindBlock, t)
	n.Body = body
	return n
}

// compoundStmtBody is like compoundStmt (it pushes and pops its own
// Scope) but returns only the statement list, for GNU statement
// expressions `({ ... })`.
func (p *Parser) compoundStmtBody() []*ast.Node {
	p.expect(tok.LBRACE)
	p.pushScope()
	body := p.blockItems()
	p.expect(tok.RBRACE)
	p.popScope()
	return body
}

func (p *Parser) blockItems() []*ast.Node {
	var body []*ast.Node
	for !p.peekIs(tok.RBRACE) && p.cur != nil {
		if p.isTypename() {
			attr := &declAttr{}
			base := p.declspec(attr)
			if attr.IsTypedef {
				p.typedefDecl(base)
				continue
			}
			body = append(body, p.declStmt(base, attr))
			continue
		}
		if p.peekIs(tok.STATIC_ASSERT) {
			p.staticAssert()
			continue
		}
		body = append(body, p.stmt())
	}
	return body
}

// declStmt parses one local-variable declaration-statement, registering
// each declared name in the current scope and (for statics) hoisting
// its storage to the global list per spec.md §4.6.
func (p *Parser) declStmt(base *types.Type, attr *declAttr) *ast.Node {
	t := p.cur
	n := newNode(ast.KindBlock, t)
	first := true
	for !p.peekIs(tok.SEMI) {
		if !first {
			p.expect(tok.COMMA)
		}
		first = false
		nameTok, ty := p.declarator(base)
		if nameTok == nil {
			p.errorf("expected a declarator name")
			break
		}
		// attr.Align (_Alignas) is parsed but not applied: locals, globals
		// and struct members (see layoutStruct) all keep their type's own
		// alignment.

		obj := &ast.Obj{Name: nameTok.Lit, Ty: ty, Tok: nameTok, IsLocal: true}

		if attr.IsStatic {
			obj.IsLocal = false
			obj.IsStatic = true
			obj.Name = p.newUniqueName()
			p.globals = append(p.globals, obj)
		} else if p.curFn != nil {
			p.curFn.Locals = append(p.curFn.Locals, obj)
		}

		p.scope.PushVar(&ast.VarScope{Name: nameTok.Lit, Var: obj})

		if p.consumeIf(tok.EQ) {
			data, relocs := p.initializer(ty)
			obj.InitData = data
			obj.Relocs = relocs
		}
	}
	p.expect(tok.SEMI)
	return n
}

// typedefDecl registers one or more typedef names in the current scope.
func (p *Parser) typedefDecl(base *types.Type) {
	first := true
	for !p.peekIs(tok.SEMI) {
		if !first {
			p.expect(tok.COMMA)
		}
		first = false
		nameTok, ty := p.declarator(base)
		if nameTok == nil {
			p.errorf("expected a typedef name")
			break
		}
		p.scope.PushVar(&ast.VarScope{Name: nameTok.Lit, Typedef: ty})
	}
	p.expect(tok.SEMI)
}

// resolveGotos binds every unresolved goto collected while parsing the
// current function body to the label with the same source name, copying
// that label's UniqueLabel, per spec.md §4.6 "unbound gotos are errors."
func (p *Parser) resolveGotos() {
	for _, g := range p.gotos {
		var found *ast.Node
		for _, l := range p.labels {
			if l.Label == g.Label {
				found = l
				break
			}
		}
		if found == nil {
			p.errs.Add(p.set.Position(g.Tok.Pos), diag.Error, "use of undeclared label %q", g.Label)
			continue
		}
		g.UniqueLabel = found.UniqueLabel
		g.GotoTarget = found
	}
	p.gotos = nil
	p.labels = nil
}
