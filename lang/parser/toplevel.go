package parser

import (
	"github.com/mna/cfront/lang/ast"
	tok "github.com/mna/cfront/lang/token"
	"github.com/mna/cfront/lang/types"
)

// topLevel parses one top-level declaration: a function definition, a
// function declaration, or a global-variable declaration (possibly
// several comma-separated declarators sharing one declspec), per
// spec.md §4.6.
func (p *Parser) topLevel() {
	if p.peekIs(tok.STATIC_ASSERT) {
		p.staticAssert()
		return
	}

	attr := &declAttr{}
	base := p.declspec(attr)

	if attr.IsTypedef {
		p.typedefDecl(base)
		return
	}

	if p.peekIs(tok.SEMI) {
		// a bare `struct S;` / `enum E;` tag declaration.
		p.advance()
		return
	}

	first := true
	for !p.peekIs(tok.SEMI) && p.cur != nil {
		if !first {
			p.expect(tok.COMMA)
		}
		first = false

		nameTok, ty := p.declarator(base)
		if nameTok == nil {
			p.errorf("expected a declarator name at top level")
			p.skipToSemiOrBrace()
			return
		}

		if ty.Kind == types.Func {
			obj := p.declareFunc(nameTok, ty, attr)
			if p.peekIs(tok.LBRACE) {
				p.parseFuncBody(obj)
				return
			}
			continue
		}

		obj := p.declareGlobal(nameTok, ty, attr)
		if p.consumeIf(tok.EQ) {
			obj.InitData, obj.Relocs = p.initializer(ty)
			obj.IsDefinition = true
		}
	}
	if p.peekIs(tok.SEMI) {
		p.advance()
	}
}

func (p *Parser) skipToSemiOrBrace() {
	for p.cur != nil && !p.peekIs(tok.SEMI) && !p.peekIs(tok.LBRACE) {
		p.advance()
	}
	p.consumeIf(tok.SEMI)
}

func (p *Parser) declareFunc(nameTok *tok.Token, ty *types.Type, attr *declAttr) *ast.Obj {
	if existing := p.findGlobal(nameTok.Lit); existing != nil {
		existing.Ty = ty
		return existing
	}
	obj := &ast.Obj{
		Name: nameTok.Lit, Ty: ty, Tok: nameTok,
		IsFunction: true,
		IsStatic:   attr.IsStatic,
		IsInline:   attr.IsInline,
	}
	p.globals = append(p.globals, obj)
	p.scope.PushVar(&ast.VarScope{Name: nameTok.Lit, Var: obj})
	return obj
}

func (p *Parser) declareGlobal(nameTok *tok.Token, ty *types.Type, attr *declAttr) *ast.Obj {
	if existing := p.findGlobal(nameTok.Lit); existing != nil {
		existing.Ty = ty
		return existing
	}
	obj := &ast.Obj{
		Name: nameTok.Lit, Ty: ty, Tok: nameTok,
		IsStatic:    attr.IsStatic,
		IsTLS:       attr.IsTLS,
		IsConstexpr: attr.IsConstexpr,
	}
	p.globals = append(p.globals, obj)
	p.scope.PushVar(&ast.VarScope{Name: nameTok.Lit, Var: obj})
	return obj
}

func (p *Parser) findGlobal(name string) *ast.Obj {
	for _, g := range p.globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// parseFuncBody parses a function definition's `{ ... }` body, with
// parameters living in the body's own Scope per spec.md §4.6, and
// resolves that function's gotos at close.
func (p *Parser) parseFuncBody(obj *ast.Obj) {
	obj.IsDefinition = true
	prevFn := p.curFn
	p.curFn = obj

	p.pushScope()
	for i, name := range obj.Ty.ParamNames {
		if name == "" {
			continue
		}
		param := &ast.Obj{Name: name, Ty: obj.Ty.Params[i], IsLocal: true}
		obj.Params = append(obj.Params, param)
		obj.Locals = append(obj.Locals, param)
		p.scope.PushVar(&ast.VarScope{Name: name, Var: param})
	}

	body := p.blockItems2()
	p.popScope()

	p.resolveGotos()
	obj.Body = body
	p.curFn = prevFn
}

// blockItems2 parses a function body's `{ ... }`, reusing blockItems for
// the statement-list grammar (a thin wrapper so parseFuncBody reads as
// "parse the braces" rather than repeating compoundStmt's scope push,
// since the param scope above is already the body's scope).
func (p *Parser) blockItems2() []*ast.Node {
	p.expect(tok.LBRACE)
	body := p.blockItems()
	p.expect(tok.RBRACE)
	return body
}
