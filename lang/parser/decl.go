package parser

import (
	"github.com/mna/cfront/lang/ast"
	tok "github.com/mna/cfront/lang/token"
	"github.com/mna/cfront/lang/types"
)

// declAttr accumulates the storage-class/qualifier/alignment state a
// declaration's specifiers carry, per spec.md §4.6's declarator grammar
// and §3's Obj storage-class fields.
type declAttr struct {
	IsTypedef   bool
	IsStatic    bool
	IsExtern    bool
	IsInline    bool
	IsTLS       bool
	IsConstexpr bool
	Align       int64 // 0 = unspecified
}

// Bitmask counter for the base-type keyword combination, following the
// classical chibicc-style "add a weighted bit per keyword, then switch
// on the sum" declspec technique — grounded on the teacher's own
// table-driven dispatch idiom (lang/machine/opcode.go), repurposed here
// from opcode dispatch to type-specifier combination matching.
const (
	tsVoid   = 1 << 0
	tsBool   = 1 << 2
	tsChar   = 1 << 4
	tsShort  = 1 << 6
	tsInt    = 1 << 8
	tsLong   = 1 << 10
	tsFloat  = 1 << 12
	tsDouble = 1 << 14
	tsOther  = 1 << 16
	tsSigned = 1 << 17
	tsUnsigned = 1 << 18
)

// declspec parses a declaration's type-specifier/storage-class/qualifier
// sequence, per spec.md §4.6's grammar coverage.
func (p *Parser) declspec(attr *declAttr) *types.Type {
	var base *types.Type
	counter := 0

	for p.isTypename() {
		switch p.cur.Kind {
		case tok.TYPEDEF, tok.STATIC, tok.EXTERN, tok.INLINE, tok.THREAD_LOCAL:
			if attr == nil {
				p.errorf("storage-class specifier not allowed in this context")
				p.advance()
				continue
			}
			switch p.cur.Kind {
			case tok.TYPEDEF:
				attr.IsTypedef = true
			case tok.STATIC:
				attr.IsStatic = true
			case tok.EXTERN:
				attr.IsExtern = true
			case tok.INLINE:
				attr.IsInline = true
			case tok.THREAD_LOCAL:
				attr.IsTLS = true
			}
			p.advance()
			continue

		case tok.CONST, tok.VOLATILE, tok.RESTRICT, tok.ATOMIC:
			// qualifiers are accepted but not recorded: the resulting Type
			// never has IsConst, IsVolatile or IsAtomic set.
			p.advance()
			continue

		case tok.ALIGNAS:
			p.advance()
			p.expect(tok.LPAREN)
			if p.isTypename() {
				n := p.typename()
				if attr != nil {
					attr.Align = n.Align
				}
			} else {
				v := p.evalConstNode(p.conditional())
				if attr != nil {
					attr.Align = v
				}
			}
			p.expect(tok.RPAREN)
			continue

		case tok.STRUCT:
			base = p.structUnionDecl(false)
			counter += tsOther
			continue
		case tok.UNION:
			base = p.structUnionDecl(true)
			counter += tsOther
			continue
		case tok.ENUM:
			base = p.enumSpecifier()
			counter += tsOther
			continue
		case tok.TYPEOF:
			base = p.typeofSpecifier()
			counter += tsOther
			continue

		case tok.IDENT:
			vs := p.scope.FindVar(p.cur.Lit)
			base = vs.Typedef
			p.advance()
			counter += tsOther
			continue
		}

		switch p.cur.Kind {
		case tok.VOID:
			counter += tsVoid
		case tok.BOOL:
			counter += tsBool
		case tok.CHAR:
			counter += tsChar
		case tok.SHORT:
			counter += tsShort
		case tok.INT_KW:
			counter += tsInt
		case tok.LONG:
			counter += tsLong
		case tok.FLOAT_KW:
			counter += tsFloat
		case tok.DOUBLE:
			counter += tsDouble
		case tok.SIGNED:
			counter += tsSigned
		case tok.UNSIGNED:
			counter += tsUnsigned
		case tok.COMPLEX, tok.IMAGINARY, tok.NORETURN:
			// accepted, semantically inert in this implementation.
		default:
			p.advance()
			continue
		}
		p.advance()
	}

	if counter == 0 && base == nil {
		// spec.md's Non-goals don't list implicit-int; default to int for
		// resilience against malformed input rather than looping forever.
		return types.IntType
	}

	switch counter {
	case 0, tsOther:
		return base
	case tsVoid:
		return types.VoidType
	case tsBool:
		return types.BoolType
	case tsChar:
		return types.CharType
	case tsChar + tsSigned:
		return types.CharType
	case tsChar + tsUnsigned:
		return types.UCharType
	case tsShort, tsShort + tsInt, tsShort + tsSigned, tsShort + tsSigned + tsInt:
		return types.ShortType
	case tsShort + tsUnsigned, tsShort + tsUnsigned + tsInt:
		return types.UShortType
	case tsInt, tsSigned, tsSigned + tsInt:
		return types.IntType
	case tsUnsigned, tsUnsigned + tsInt:
		return types.UIntType
	case tsLong, tsLong + tsInt, tsLong + tsLong, tsLong + tsLong + tsInt,
		tsLong + tsSigned, tsLong + tsSigned + tsInt:
		return types.LongType
	case tsLong + tsUnsigned, tsLong + tsUnsigned + tsInt,
		tsLong + tsLong + tsUnsigned, tsLong + tsLong + tsUnsigned + tsInt:
		return types.ULongType
	case tsFloat:
		return types.FloatType
	case tsDouble:
		return types.DoubleType
	case tsDouble + tsLong:
		return types.LDoubleType
	default:
		p.errorf("invalid type specifier combination")
		return types.IntType
	}
}

// typeofSpecifier parses GNU `typeof(expr-or-type)`.
func (p *Parser) typeofSpecifier() *types.Type {
	p.advance() // typeof
	p.expect(tok.LPAREN)
	var ty *types.Type
	if p.isTypename() {
		ty = p.typename()
	} else {
		ty = p.expr().Ty
	}
	p.expect(tok.RPAREN)
	return ty
}

// pointers consumes zero or more leading `*` (with qualifiers) and
// wraps base accordingly, per spec.md §4.6's declarator grammar.
func (p *Parser) pointers(base *types.Type) *types.Type {
	for p.consumeIf(tok.STAR) {
		base = types.PointerTo(base)
		for p.peekIs(tok.CONST) || p.peekIs(tok.VOLATILE) || p.peekIs(tok.RESTRICT) || p.peekIs(tok.ATOMIC) {
			p.advance()
		}
	}
	return base
}

// declarator parses a full declarator (pointer* direct-declarator),
// returning the declared name token (nil for abstract declarators) and
// the resulting Type, per spec.md §4.6.
func (p *Parser) declarator(base *types.Type) (*tok.Token, *types.Type) {
	base = p.pointers(base)

	if p.consumeIf(tok.LPAREN) {
		// parenthesized declarator: parse the inner declarator against a
		// placeholder, then re-apply the outer type suffix to it.
		mark := p.cur
		_, _ = p.declarator(types.VoidType)
		p.expect(tok.RPAREN)
		after := p.typeSuffix(base)
		savedCur := p.cur
		p.cur = mark
		name, ty := p.declarator(after)
		p.cur = savedCur
		return name, ty
	}

	var name *tok.Token
	if p.peekIs(tok.IDENT) {
		name = p.advance()
	}
	ty := p.typeSuffix(base)
	return name, ty
}

// abstractDeclarator is declarator without a required identifier, used
// by typename() for casts, sizeof, and unnamed parameters.
func (p *Parser) abstractDeclarator(base *types.Type) *types.Type {
	base = p.pointers(base)
	if p.consumeIf(tok.LPAREN) {
		mark := p.cur
		depth := 1
		for depth > 0 && p.cur != nil {
			switch p.cur.Kind {
			case tok.LPAREN:
				depth++
			case tok.RPAREN:
				depth--
			}
			if depth > 0 {
				p.advance()
			}
		}
		p.expect(tok.RPAREN)
		after := p.typeSuffix(base)
		savedCur := p.cur
		p.cur = mark
		ty := p.abstractDeclarator(after)
		// restore the cursor past the outer suffix we already consumed above,
		// since the recursive call only re-parsed up to its own matching ')'.
		p.cur = savedCur
		return ty
	}
	return p.typeSuffix(base)
}

// typeSuffix parses the array/function suffix(es) following a
// declarator's core, applying them in the C "inside-out" order.
func (p *Parser) typeSuffix(base *types.Type) *types.Type {
	if p.consumeIf(tok.LPAREN) {
		return p.funcParams(base)
	}
	if p.consumeIf(tok.LBRACK) {
		return p.arraySuffix(base)
	}
	return base
}

func (p *Parser) funcParams(ret *types.Type) *types.Type {
	var params []*types.Type
	var names []string
	variadic := false
	unprototyped := false

	if p.peekIs(tok.VOID) && p.cur.Next != nil && p.cur.Next.Kind == tok.RPAREN {
		p.advance()
	} else if p.peekIs(tok.RPAREN) {
		unprototyped = true
	} else {
		for {
			if p.consumeIf(tok.ELLIPSIS) {
				variadic = true
				break
			}
			attr := &declAttr{}
			pty := p.declspec(attr)
			name, full := p.declarator(pty)
			if full.Kind == types.Array {
				full = types.PointerTo(full.Base)
			}
			params = append(params, full)
			if name != nil {
				names = append(names, name.Lit)
			} else {
				names = append(names, "")
			}
			if !p.consumeIf(tok.COMMA) {
				break
			}
		}
	}
	p.expect(tok.RPAREN)
	return types.FuncType(ret, params, names, variadic, unprototyped)
}

func (p *Parser) arraySuffix(base *types.Type) *types.Type {
	length := int64(-1)
	if !p.peekIs(tok.RBRACK) {
		if p.peekIs(tok.STAR) {
			// VLA of unspecified size, e.g. a parameter `int a[*]`.
			p.advance()
		} else {
			n := p.conditional()
			length = p.evalConstNode(n)
		}
	}
	p.expect(tok.RBRACK)
	base = p.typeSuffix(base)
	return types.ArrayOf(base, length)
}

// typename parses a declspec followed by an abstract declarator, per
// spec.md §4.6 (used by sizeof/cast/compound-literal/_Generic).
func (p *Parser) typename() *types.Type {
	base := p.declspec(nil)
	return p.abstractDeclarator(base)
}

// structUnionDecl parses spec.md §4.6's struct/union grammar: tag,
// member list (with bitfields, anonymous-member promotion, flexible
// array members only as the last member).
func (p *Parser) structUnionDecl(isUnion bool) *types.Type {
	p.advance() // struct/union

	var tagTok *tok.Token
	if p.peekIs(tok.IDENT) {
		tagTok = p.advance()
	}

	if tagTok != nil && !p.peekIs(tok.LBRACE) {
		if ts := p.scope.FindTag(tagTok.Lit); ts != nil {
			return ts.Ty
		}
		var ty *types.Type
		if isUnion {
			ty = types.UnionType(tagTok.Lit)
		} else {
			ty = types.StructType(tagTok.Lit)
		}
		p.scope.PushTag(&ast.TagScope{Name: tagTok.Lit, Ty: ty})
		return ty
	}

	var ty *types.Type
	if isUnion {
		ty = types.UnionType(tagName(tagTok))
	} else {
		ty = types.StructType(tagName(tagTok))
	}

	p.expect(tok.LBRACE)
	ty.Members = p.memberList()
	p.expect(tok.RBRACE)

	if isUnion {
		layoutUnion(ty, p.currentPack())
	} else {
		layoutStruct(ty, p.currentPack())
	}

	if tagTok != nil {
		p.scope.PushTag(&ast.TagScope{Name: tagTok.Lit, Ty: ty})
	}
	return ty
}

func tagName(t *tok.Token) string {
	if t == nil {
		return ""
	}
	return t.Lit
}

// memberList parses the member-declaration-list of a struct/union body,
// flattening anonymous struct/union members into the enclosing
// aggregate per spec.md §4.6.
func (p *Parser) memberList() []*types.Member {
	var members []*types.Member
	for !p.peekIs(tok.RBRACE) && p.cur != nil {
		attr := &declAttr{}
		base := p.declspec(attr)

		if (base.Kind == types.Struct || base.Kind == types.Union) && p.peekIs(tok.SEMI) {
			// anonymous member: promote its members directly.
			members = append(members, base.Members...)
			p.advance()
			continue
		}

		first := true
		for !p.peekIs(tok.SEMI) {
			if !first {
				p.expect(tok.COMMA)
			}
			first = false
			name, ty := p.declarator(base)
			m := &types.Member{Type: ty, NameTok: name}
			if p.consumeIf(tok.COLON) {
				w := p.evalConstNode(p.conditional())
				m.IsBitfield = true
				m.BitWidth = int(w)
			}
			members = append(members, m)
		}
		p.expect(tok.SEMI)
	}
	for i := 0; i+1 < len(members); i++ {
		if t := members[i].Type; t.Kind == types.Array && t.ArrayLen < 0 {
			p.errorf("flexible array member must be the last member")
		}
	}
	return members
}

// layoutStruct assigns byte offsets/bit offsets and the overall
// size/align, honoring a #pragma pack(N) cap on alignment.
func layoutStruct(ty *types.Type, pack int) {
	var offset int64
	var maxAlign int64 = 1
	var bitOffset int

	for _, m := range ty.Members {
		align := m.Type.Align
		if pack > 0 && align > int64(pack) {
			align = int64(pack)
		}
		if m.IsBitfield {
			if m.BitWidth == 0 {
				// zero-width bitfield forces alignment to the next unit.
				offset = alignTo(offset+int64((bitOffset+7)/8), align)
				bitOffset = 0
				continue
			}
			unitBits := int(m.Type.Size) * 8
			if bitOffset+m.BitWidth > unitBits {
				offset = alignTo(offset+int64((bitOffset+7)/8), align)
				bitOffset = 0
			}
			m.ByteOffset = offset
			m.BitOffset = bitOffset
			bitOffset += m.BitWidth
			if bitOffset >= unitBits {
				offset += int64(unitBits / 8)
				bitOffset = 0
			}
		} else {
			offset = alignTo(offset+int64((bitOffset+7)/8), align)
			bitOffset = 0
			m.ByteOffset = offset
			m.Align = align
			if m.Type.Kind != types.Array || m.Type.ArrayLen >= 0 {
				offset += m.Type.Size
			}
		}
		if align > maxAlign {
			maxAlign = align
		}
	}

	offset += int64((bitOffset + 7) / 8)
	ty.Size = alignTo(offset, maxAlign)
	ty.Align = maxAlign
}

// layoutUnion overlaps every member at offset 0; size is the widest
// member rounded to the strictest alignment.
func layoutUnion(ty *types.Type, pack int) {
	var maxSize, maxAlign int64 = 0, 1
	for _, m := range ty.Members {
		align := m.Type.Align
		if pack > 0 && align > int64(pack) {
			align = int64(pack)
		}
		m.ByteOffset = 0
		m.Align = align
		if m.Type.Size > maxSize {
			maxSize = m.Type.Size
		}
		if align > maxAlign {
			maxAlign = align
		}
	}
	ty.Size = alignTo(maxSize, maxAlign)
	ty.Align = maxAlign
}

func alignTo(n, align int64) int64 {
	if align <= 0 {
		return n
	}
	return (n + align - 1) / align * align
}

// enumSpecifier parses spec.md §4.6's enum grammar, registering each
// enumerator as a VarScope entry in the current scope.
func (p *Parser) enumSpecifier() *types.Type {
	p.advance() // enum
	var tagTok *tok.Token
	if p.peekIs(tok.IDENT) {
		tagTok = p.advance()
	}

	if tagTok != nil && !p.peekIs(tok.LBRACE) {
		if ts := p.scope.FindTag(tagTok.Lit); ts != nil {
			return ts.Ty
		}
		p.errorf("unknown enum tag %q", tagTok.Lit)
		return types.EnumType()
	}

	ty := types.EnumType()
	p.expect(tok.LBRACE)
	var next int64
	for !p.peekIs(tok.RBRACE) {
		nameTok := p.expect(tok.IDENT)
		if p.consumeIf(tok.EQ) {
			next = p.evalConstNode(p.conditional())
		}
		ty.Enumerators = append(ty.Enumerators, types.Enumerator{Name: nameTok.Lit, Value: next})
		p.scope.PushVar(&ast.VarScope{Name: nameTok.Lit, EnumTy: ty, EnumVal: next})
		next++
		if !p.consumeIf(tok.COMMA) {
			break
		}
	}
	p.expect(tok.RBRACE)

	if tagTok != nil {
		p.scope.PushTag(&ast.TagScope{Name: tagTok.Lit, Ty: ty})
	}
	return ty
}
