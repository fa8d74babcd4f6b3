package cc

import (
	"sort"
)

// expr = assign ("," expr)?
func (p *parser) expr(rest **Token, tok *Token) *AstNode {
	node := p.assign(&tok, tok)

	if tok.isEqual(",") {
		return newBinary(ND_COMMA, node, p.expr(rest, tok.Next), tok)
	}

	*rest = tok
	return node
}

// Convert op= operators to expressions containing an assignment.
//
// In general, `A op= C` is converted to “tmp = &A, *tmp = *tmp op B`.
// However, if a given expression is of form `A.x op= C`, the input is
// converted to `tmp = &A, (*tmp).x = (*tmp).x op C` to handle assignments
// to bitfields.
func (p *parser) toAssign(binary *AstNode) *AstNode {
	binary.Lhs.addType()
	binary.Rhs.addType()
	tok := binary.Tok

	// Convert `A.x op= C` to `tmp = &A, (*tmp).x = (*tmp).x op C`.
	if binary.Lhs.Kind == ND_MEMBER {
		v := p.newTemp(pointerTo(binary.Lhs.Lhs.Ty))

		expr1 := newBinary(ND_ASSIGN, newVarNode(v, tok), newUnary(ND_ADDR, binary.Lhs.Lhs, tok), tok)

		expr2 := newUnary(ND_MEMBER, newUnary(ND_DEREF, newVarNode(v, tok), tok), tok)
		expr2.Member = binary.Lhs.Member

		expr3 := newUnary(ND_MEMBER, newUnary(ND_DEREF, newVarNode(v, tok), tok), tok)
		expr3.Member = binary.Lhs.Member

		expr4 := newBinary(ND_ASSIGN, expr2, newBinary(binary.Kind, expr3, binary.Rhs, tok), tok)

		return newBinary(ND_COMMA, expr1, expr4, tok)
	}

	// Convert `A op= C` to “tmp = &A, *tmp = *tmp op B`.
	v := p.newTemp(pointerTo(binary.Lhs.Ty))

	expr1 := newBinary(ND_ASSIGN, newVarNode(v, tok), newUnary(ND_ADDR, binary.Lhs, tok), tok)

	expr2 := newBinary(ND_ASSIGN,
		newUnary(ND_DEREF, newVarNode(v, tok), tok),
		newBinary(binary.Kind, newUnary(ND_DEREF, newVarNode(v, tok), tok), binary.Rhs, tok),
		tok)

	return newBinary(ND_COMMA, expr1, expr2, tok)
}

var compoundAssignOps = map[string]AstNodeKind{
	"*=":  ND_MUL,
	"/=":  ND_DIV,
	"%=":  ND_MOD,
	"&=":  ND_BITAND,
	"|=":  ND_BITOR,
	"^=":  ND_BITXOR,
	"<<=": ND_SHL,
	">>=": ND_SHR,
}

/*
 * assign    = conditional (assign-op assign)?
 * assign-op = "=" | "+=" | "-=" | "*=" | "/=" | "%=" | "&=" | "|=" | "^="
 *           | "<<=" | ">>="
 */
func (p *parser) assign(rest **Token, tok *Token) *AstNode {
	node := p.conditional(&tok, tok)

	if tok.isEqual("=") {
		return newBinary(ND_ASSIGN, node, p.assign(rest, tok.Next), tok)
	}

	if tok.isEqual("+=") {
		return p.toAssign(newAdd(node, p.assign(rest, tok.Next), tok))
	}

	if tok.isEqual("-=") {
		return p.toAssign(newSub(node, p.assign(rest, tok.Next), tok))
	}

	if tok.Kind == TK_PUNCT {
		if kind, ok := compoundAssignOps[tok.getText()]; ok {
			return p.toAssign(newBinary(kind, node, p.assign(rest, tok.Next), tok))
		}
	}

	*rest = tok
	return node
}

// conditional = logor ("?" expr? ":" conditional)?
func (p *parser) conditional(rest **Token, tok *Token) *AstNode {
	cond := p.logor(&tok, tok)

	if !tok.isEqual("?") {
		*rest = tok
		return cond
	}

	if tok.Next.isEqual(":") {
		// [GNU] Compile `a ?: b` as `tmp = a, tmp ? tmp : b`.
		cond.addType()
		v := p.newTemp(cond.Ty)
		lhs := newBinary(ND_ASSIGN, newVarNode(v, tok), cond, tok)
		rhs := newNode(ND_COND, tok)
		rhs.Cond = newVarNode(v, tok)
		rhs.Then = newVarNode(v, tok)
		rhs.Else = p.conditional(rest, tok.Next.Next)
		return newBinary(ND_COMMA, lhs, rhs, tok)
	}

	node := newNode(ND_COND, tok)
	node.Cond = cond
	node.Then = p.expr(&tok, tok.Next)
	tok = skip(tok, ":")
	node.Else = p.conditional(rest, tok)
	return node
}

// logor = logand ("||" logand)*
func (p *parser) logor(rest **Token, tok *Token) *AstNode {
	node := p.logand(&tok, tok)
	for tok.isEqual("||") {
		start := tok
		node = newBinary(ND_LOGOR, node, p.logand(&tok, tok.Next), start)
	}
	*rest = tok
	return node
}

// logand = bitor ("&&" bitor)*
func (p *parser) logand(rest **Token, tok *Token) *AstNode {
	node := p.bitor(&tok, tok)
	for tok.isEqual("&&") {
		start := tok
		node = newBinary(ND_LOGAND, node, p.bitor(&tok, tok.Next), start)
	}
	*rest = tok
	return node
}

// bitor = bitxor ("|" bitxor)*
func (p *parser) bitor(rest **Token, tok *Token) *AstNode {
	node := p.bitxor(&tok, tok)
	for tok.isEqual("|") {
		start := tok
		node = newBinary(ND_BITOR, node, p.bitxor(&tok, tok.Next), start)
	}
	*rest = tok
	return node
}

// bitxor = bitand ("^" bitand)*
func (p *parser) bitxor(rest **Token, tok *Token) *AstNode {
	node := p.bitand(&tok, tok)
	for tok.isEqual("^") {
		start := tok
		node = newBinary(ND_BITXOR, node, p.bitand(&tok, tok.Next), start)
	}
	*rest = tok
	return node
}

// bitand = equality ("&" equality)*
func (p *parser) bitand(rest **Token, tok *Token) *AstNode {
	node := p.equality(&tok, tok)
	for tok.isEqual("&") {
		start := tok
		node = newBinary(ND_BITAND, node, p.equality(&tok, tok.Next), start)
	}
	*rest = tok
	return node
}

// equality = relational ("==" relational | "!=" relational)*
func (p *parser) equality(rest **Token, tok *Token) *AstNode {
	node := p.relational(&tok, tok)

	for {
		start := tok

		if tok.isEqual("==") {
			node = newBinary(ND_EQ, node, p.relational(&tok, tok.Next), start)
			continue
		}

		if tok.isEqual("!=") {
			node = newBinary(ND_NE, node, p.relational(&tok, tok.Next), start)
			continue
		}

		*rest = tok
		return node
	}
}

// relational = shift ("<" shift | "<=" shift | ">" shift | ">=" shift)*
func (p *parser) relational(rest **Token, tok *Token) *AstNode {
	node := p.shift(&tok, tok)

	for {
		start := tok

		if tok.isEqual("<") {
			node = newBinary(ND_LT, node, p.shift(&tok, tok.Next), start)
			continue
		}

		if tok.isEqual("<=") {
			node = newBinary(ND_LE, node, p.shift(&tok, tok.Next), start)
			continue
		}

		if tok.isEqual(">") {
			node = newBinary(ND_LT, p.shift(&tok, tok.Next), node, start)
			continue
		}

		if tok.isEqual(">=") {
			node = newBinary(ND_LE, p.shift(&tok, tok.Next), node, start)
			continue
		}

		*rest = tok
		return node
	}
}

// shift = add ("<<" add | ">>" add)*
func (p *parser) shift(rest **Token, tok *Token) *AstNode {
	node := p.add(&tok, tok)

	for {
		start := tok

		if tok.isEqual("<<") {
			node = newBinary(ND_SHL, node, p.add(&tok, tok.Next), start)
			continue
		}

		if tok.isEqual(">>") {
			node = newBinary(ND_SHR, node, p.add(&tok, tok.Next), start)
			continue
		}

		*rest = tok
		return node
	}
}

// vlaSize returns an expression computing the size of ty in bytes.
func vlaSize(ty *CType, tok *Token) *AstNode {
	if ty.Kind != TY_VLA {
		return newULong(ty.complete().Size, tok)
	}
	return newBinary(ND_MUL, newCast(ty.VlaLen, TyULong), vlaSize(ty.Base, tok), tok)
}

// In C, `+` operator is overloaded to perform the pointer arithmetic.
// If p is a pointer, p+n adds not n but sizeof(*p)*n to the value of p,
// so that p+n points to the location n elements (not bytes) ahead of p.
// In other words, we need to scale an integer value before adding to a
// pointer value. This function takes care of the scaling.
func newAdd(lhs *AstNode, rhs *AstNode, tok *Token) *AstNode {
	lhs.addType()
	rhs.addType()

	// num + num
	if lhs.Ty.isNumeric() && rhs.Ty.isNumeric() {
		return newBinary(ND_ADD, lhs, rhs, tok)
	}

	if lhs.Ty.Base != nil && rhs.Ty.Base != nil {
		errorTok(tok, "invalid operands")
	}

	// Canonicalize `num + ptr` to `ptr + num`.
	if lhs.Ty.Base == nil && rhs.Ty.Base != nil {
		lhs, rhs = rhs, lhs
	}

	if lhs.Ty.Base == nil || !rhs.Ty.isInteger() {
		errorTok(tok, "invalid operands")
	}

	// VLA + num
	if lhs.Ty.Base.Kind == TY_VLA {
		rhs = newBinary(ND_MUL, rhs, vlaSize(lhs.Ty.Base, tok), tok)
		return newBinary(ND_ADD, lhs, rhs, tok)
	}

	// ptr + num
	rhs = newBinary(ND_MUL, rhs, newLong(lhs.Ty.Base.complete().Size, tok), tok)
	return newBinary(ND_ADD, lhs, rhs, tok)
}

// Like `+`, `-` is overloaded for the pointer type.
func newSub(lhs *AstNode, rhs *AstNode, tok *Token) *AstNode {
	lhs.addType()
	rhs.addType()

	// num - num
	if lhs.Ty.isNumeric() && rhs.Ty.isNumeric() {
		return newBinary(ND_SUB, lhs, rhs, tok)
	}

	if lhs.Ty.Base == nil {
		errorTok(tok, "invalid operands")
	}

	ptrTy := lhs.Ty
	if ptrTy.Kind == TY_ARRAY || ptrTy.Kind == TY_VLA {
		ptrTy = pointerTo(ptrTy.Base)
	}

	// VLA - num
	if lhs.Ty.Base.Kind == TY_VLA && rhs.Ty.isInteger() {
		rhs = newBinary(ND_MUL, rhs, vlaSize(lhs.Ty.Base, tok), tok)
		rhs.addType()
		node := newBinary(ND_SUB, lhs, rhs, tok)
		node.Ty = ptrTy
		return node
	}

	// ptr - num
	if rhs.Ty.isInteger() {
		rhs = newBinary(ND_MUL, rhs, newLong(lhs.Ty.Base.complete().Size, tok), tok)
		rhs.addType()
		node := newBinary(ND_SUB, lhs, rhs, tok)
		node.Ty = ptrTy
		return node
	}

	// ptr - ptr, which returns how many elements are between the two.
	if rhs.Ty.Base != nil {
		node := newBinary(ND_SUB, lhs, rhs, tok)
		node.Ty = TyLong
		return newBinary(ND_DIV, node, newNum(max(lhs.Ty.Base.complete().Size, 1), tok), tok)
	}

	errorTok(tok, "invalid operands")
	return nil
}

// add = mul ("+" mul | "-" mul)*
func (p *parser) add(rest **Token, tok *Token) *AstNode {
	node := p.mul(&tok, tok)

	for {
		start := tok

		if tok.isEqual("+") {
			node = newAdd(node, p.mul(&tok, tok.Next), start)
			continue
		}

		if tok.isEqual("-") {
			node = newSub(node, p.mul(&tok, tok.Next), start)
			continue
		}

		*rest = tok
		return node
	}
}

// mul = cast ("*" cast | "/" cast | "%" cast)*
func (p *parser) mul(rest **Token, tok *Token) *AstNode {
	node := p.castExpr(&tok, tok)

	for {
		start := tok

		if tok.isEqual("*") {
			node = newBinary(ND_MUL, node, p.castExpr(&tok, tok.Next), start)
			continue
		}

		if tok.isEqual("/") {
			node = newBinary(ND_DIV, node, p.castExpr(&tok, tok.Next), start)
			continue
		}

		if tok.isEqual("%") {
			node = newBinary(ND_MOD, node, p.castExpr(&tok, tok.Next), start)
			continue
		}

		*rest = tok
		return node
	}
}

// startsTypeName reports whether tok begins a type name, possibly with
// leading attribute specifiers.
func (p *parser) startsTypeName(tok *Token) bool {
	return p.isTypename(tok) || isStdAttribute(tok)
}

// cast = "(" type-name ")" ("{" ... | cast)
//      | unary
//
// A parenthesized type name followed by "{" is either a compound
// literal or an unnamed function; typedLiteral tells them apart.
func (p *parser) castExpr(rest **Token, tok *Token) *AstNode {
	if tok.isEqual("(") && p.startsTypeName(tok.Next) {
		start := tok
		sh := p.parenTypeName(&tok, tok)

		if tok.isEqual("{") {
			node := p.typedLiteral(&tok, start, tok, sh)
			return p.postfixTail(rest, tok, node)
		}

		if sh.ty.Kind == TY_FUNC {
			errorTok(start, "cannot cast to a function type")
		}

		// type cast
		node := newCast(p.castExpr(rest, tok), sh.ty)
		node.Tok = start
		return node
	}

	return p.unary(rest, tok)
}

// sizeofType returns the value of sizeof applied to ty.
func sizeofType(ty *CType, tok *Token) *AstNode {
	if ty.Kind == TY_VLA {
		return vlaSize(ty, tok)
	}
	ty = ty.complete()
	if ty.Size < 0 {
		errorTok(tok, "invalid application of 'sizeof' to an incomplete type")
	}
	return newULong(ty.Size, tok)
}

// unevaluatedType parses the operand of sizeof or _Alignof and returns
// its type. The operand is an unevaluated operand unless its type is
// variably modified.
func (p *parser) unevaluatedType(rest **Token, tok *Token) *CType {
	p.beginUneval()

	var ty *CType
	if tok.isEqual("(") && p.startsTypeName(tok.Next) {
		var t *Token
		sh := p.parenTypeName(&t, tok)
		if t.isEqual("{") {
			node := p.typedLiteral(&t, tok, t, sh)
			node = p.postfixTail(rest, t, node)
			node.addType()
			ty = node.Ty
		} else {
			*rest = t
			ty = sh.ty
		}
	} else {
		node := p.unary(rest, tok)
		node.addType()
		ty = node.Ty
	}

	p.endUneval(ty.isVariablyModified())
	return ty
}

/*
 * unary = ("+" | "-" | "*" | "&" | "!" | "~") cast
 *       | ("++" | "--") unary
 *       | "&&" ident
 *       | "sizeof" unary
 *       | "sizeof" "(" type-name ")"
 *       | "_Alignof" "(" type-name ")"
 *       | "_Alignof" unary
 *       | postfix
 */
func (p *parser) unary(rest **Token, tok *Token) *AstNode {
	if tok.isEqual("+") {
		return newUnary(ND_POS, p.castExpr(rest, tok.Next), tok)
	}

	if tok.isEqual("-") {
		return newUnary(ND_NEG, p.castExpr(rest, tok.Next), tok)
	}

	if tok.isEqual("&") {
		lhs := p.castExpr(rest, tok.Next)
		lhs.addType()
		if lhs.Kind == ND_FUNCLIT {
			p.report(newDiagnostic(SeverityError, ErrInvalidLvalue, CodeInvalidLvalue, tok,
				"cannot take the address of an unnamed function").
				note(lhs.Tok, "the unnamed function is not an lvalue; assign it to a pointer first"))
		}
		if lhs.isBitField() {
			errorTok(tok, "cannot take address of bitfield")
		}
		return newUnary(ND_ADDR, lhs, tok)
	}

	if tok.isEqual("*") {
		// [https://www.sigbus.info/n1570#6.5.3.2p4] This is an oddity
		// in the C spec, but dereferencing a function shouldn't do
		// anything. If foo is a function, `*foo`, `**foo` or `*****foo`
		// are all equivalent to just `foo`.
		node := p.castExpr(rest, tok.Next)
		node.addType()
		if node.Ty.Kind == TY_FUNC {
			return node
		}
		return newUnary(ND_DEREF, node, tok)
	}

	if tok.isEqual("!") {
		return newUnary(ND_NOT, p.castExpr(rest, tok.Next), tok)
	}

	if tok.isEqual("~") {
		return newUnary(ND_BITNOT, p.castExpr(rest, tok.Next), tok)
	}

	// Read ++i as i+=1
	if tok.isEqual("++") {
		return p.toAssign(newAdd(p.unary(rest, tok.Next), newNum(1, tok), tok))
	}

	// Read --i as i-=1
	if tok.isEqual("--") {
		return p.toAssign(newSub(p.unary(rest, tok.Next), newNum(1, tok), tok))
	}

	// [GNU] labels-as-values
	if tok.isEqual("&&") {
		if p.fn == nil {
			errorTok(tok, "label address outside of a function")
		}
		node := newNode(ND_LABEL_VAL, tok.Next)
		node.Label = tok.Next.getIdent()
		node.GotoNext = p.fn.gotos
		p.fn.gotos = node
		*rest = tok.Next.Next
		return node
	}

	if tok.isEqual("sizeof") {
		ty := p.unevaluatedType(rest, tok.Next)
		return sizeofType(ty, tok)
	}

	if tok.isEqual("_Alignof") || tok.isEqual("alignof") || tok.isEqual("__alignof__") {
		ty := p.unevaluatedType(rest, tok.Next)
		if ty.Kind == TY_VLA {
			return newULong(ty.Base.Align, tok)
		}
		return newULong(ty.complete().Align, tok)
	}

	if tok.isEqual("__extension__") {
		return p.castExpr(rest, tok.Next)
	}

	return p.postfix(rest, tok)
}

func getStructMember(ty *CType, tok *Token) *Member {
	for mem := ty.Members; mem != nil; mem = mem.Next {
		// Anonymous struct member
		if (mem.Ty.Kind == TY_STRUCT || mem.Ty.Kind == TY_UNION) && mem.Name == nil {
			if getStructMember(mem.Ty.complete(), tok) != nil {
				return mem
			}
			continue
		}

		// Regular struct member
		if mem.Name != nil && mem.Name.getText() == tok.getText() {
			return mem
		}
	}
	return nil
}

// Create a node representing a struct member access, such as foo.bar
// where foo is a struct and bar is a member name.
//
// C has a feature called "anonymous struct" which allows a struct to
// have another unnamed struct as a member like this:
//
//	struct { struct { int a; }; int b; } x;
//
// The members of an anonymous struct belong to the outer struct's
// member namespace. Therefore, in the above example, you can access
// member "a" of the anonymous struct as "x.a".
//
// This function takes care of resolving the anonymous struct members.
func structRef(node *AstNode, tok *Token) *AstNode {
	node.addType()
	ty := node.Ty.complete()
	if ty.Kind != TY_STRUCT && ty.Kind != TY_UNION {
		errorTok(node.Tok, "not a struct nor a union")
	}
	if ty.Size < 0 {
		errorTok(node.Tok, "incomplete type")
	}

	for {
		mem := getStructMember(ty, tok)
		if mem == nil {
			errorTok(tok, "no such member")
		}
		node = newUnary(ND_MEMBER, node, tok)
		node.Member = mem
		if mem.Name != nil {
			break
		}
		ty = mem.Ty.complete()
	}
	return node
}

// Convert A++ to `(typeof A)((A += 1) - 1)`
func (p *parser) newIncDec(node *AstNode, tok *Token, addend int64) *AstNode {
	node.addType()
	return newCast(newAdd(p.toAssign(newAdd(node, newNum(addend, tok), tok)), newNum(-addend, tok), tok), node.Ty)
}

// postfix = primary postfix-tail
func (p *parser) postfix(rest **Token, tok *Token) *AstNode {
	node := p.primary(&tok, tok)
	return p.postfixTail(rest, tok, node)
}

// postfix-tail = ("[" expr "]" | "(" func-args ")" | "." ident | "->" ident | "++" | "--")*
func (p *parser) postfixTail(rest **Token, tok *Token, node *AstNode) *AstNode {
	for {
		if tok.isEqual("(") {
			node = p.funcall(&tok, tok.Next, node)
			continue
		}

		if tok.isEqual("[") {
			// x[y] is short for *(x+y)
			start := tok
			idx := p.expr(&tok, tok.Next)
			tok = skip(tok, "]")
			node = newUnary(ND_DEREF, newAdd(node, idx, start), start)
			continue
		}

		if tok.isEqual(".") {
			node = structRef(node, tok.Next)
			tok = tok.Next.Next
			continue
		}

		if tok.isEqual("->") {
			// x->y is short for (*x).y
			node = newUnary(ND_DEREF, node, tok)
			node = structRef(node, tok.Next)
			tok = tok.Next.Next
			continue
		}

		if tok.isEqual("++") {
			node = p.newIncDec(node, tok, 1)
			tok = tok.Next
			continue
		}

		if tok.isEqual("--") {
			node = p.newIncDec(node, tok, -1)
			tok = tok.Next
			continue
		}

		*rest = tok
		return node
	}
}

// funcall = (assign ("," assign)*)? ")"
func (p *parser) funcall(rest **Token, tok *Token, fn *AstNode) *AstNode {
	fn.addType()

	ty := fn.Ty
	if ty.Kind == TY_PTR {
		ty = ty.Base
	}
	if ty.Kind != TY_FUNC {
		errorTok(fn.Tok, "not a function")
	}

	param := ty.ParamList

	head := AstNode{}
	cur := &head

	for commaList(rest, &tok, ")", cur != &head) {
		arg := p.assign(&tok, tok)
		arg.addType()

		switch {
		case param != nil:
			if !param.Ty.isAggregate() {
				arg = newCast(arg, param.Ty)
			}
			param = param.ParamNext
		case !ty.IsVariadic && !ty.IsOldStyle:
			errorTok(tok, "too many arguments")
		case arg.Ty.Kind == TY_FLOAT:
			// If parameter type is omitted (e.g. in "..."), float
			// arguments are promoted to double.
			arg = newCast(arg, TyDouble)
		}

		cur.Next = arg
		cur = cur.Next
	}

	if param != nil {
		errorTok(tok, "too few arguments")
	}

	node := newUnary(ND_FUNCALL, fn, fn.Tok)
	node.Ty = ty.ReturnType
	node.Args = head.Next
	return node
}

// generic-selection = "(" assign "," generic-assoc ("," generic-assoc)* ")"
//
// generic-assoc = type-name ":" assign
//               | "default" ":" assign
func (p *parser) genericSelection(rest **Token, tok *Token) *AstNode {
	start := tok
	tok = skip(tok.Next, "(")

	p.beginUneval()
	ctrl := p.assign(&tok, tok)
	ctrl.addType()
	p.endUneval(false)

	t1 := ctrl.Ty
	switch t1.Kind {
	case TY_FUNC:
		t1 = pointerTo(t1)
	case TY_ARRAY:
		t1 = pointerTo(t1.Base)
	}
	t1 = t1.unqualified()

	var ret, def *AstNode

	for !consume(rest, tok, ")") {
		tok = skip(tok, ",")

		if tok.isEqual("default") {
			tok = skip(tok.Next, ":")
			def = p.assign(&tok, tok)
			continue
		}

		t2 := p.typeName(&tok, tok)
		tok = skip(tok, ":")
		node := p.assign(&tok, tok)
		if ret == nil && t1.isCompatibleWith(t2.unqualified()) {
			ret = node
		}
	}

	if ret == nil {
		ret = def
	}
	if ret == nil {
		errorTok(start, "controlling expression type not compatible with any generic association type")
	}
	return ret
}

// builtinCall parses the arguments of a compiler builtin that behaves
// like a function returning ty.
func (p *parser) builtinCall(rest **Token, tok *Token, ty *CType) *AstNode {
	node := newNode(ND_FUNCALL, tok)
	node.Ty = ty

	tok = skip(tok.Next, "(")
	head := AstNode{}
	cur := &head
	for commaList(rest, &tok, ")", cur != &head) {
		cur.Next = p.assign(&tok, tok)
		cur = cur.Next
	}
	node.Args = head.Next
	return node
}

// visibleNames lists every ordinary identifier in scope, for suggestions.
func (p *parser) visibleNames() []string {
	seen := map[string]struct{}{}
	var names []string
	for sc := p.scope; sc != nil; sc = sc.Parent {
		for name := range sc.Vars {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// implicitFunction declares `int name()` at file scope for a call to an
// undeclared identifier.
func (p *parser) implicitFunction(tok *Token) *AstNode {
	name := tok.getText()
	ty := funcType(TyInt)
	ty.IsOldStyle = true

	fn := &Obj{Name: name, Ty: ty, Tok: tok, IsFunction: true, IsImplicit: true, Ext: p.ext, Align: 1}
	if p.fileScope.Vars == nil {
		p.fileScope.Vars = make(map[string]*VarScope)
	}
	vs := &VarScope{Variable: fn}
	p.fileScope.Vars[name] = vs
	fn.Next = p.globals
	p.globals = fn

	p.report(newDiagnostic(SeverityWarning, ErrImplicitDecl, CodeImplicitFunctionDecl, tok,
		"implicit declaration of function '%s'", name))
	p.noteName(&nameUse{tok: tok, sc: p.fileScope, vs: vs})
	return newVarNode(fn, tok)
}

// stringLiteral returns an anonymous object holding the literal.
func (p *parser) stringLiteral(tok *Token) *AstNode {
	v := p.newAnonGlobalVar(tok.Ty)
	return newVarNode(v, tok)
}

/*
 * primary = "(" "{" stmt+ "}" ")"
 *         | "(" expr ")"
 *         | "(" type-name ")" "{" ...
 *         | "_Generic" generic-selection
 *         | "__builtin_types_compatible_p" "(" type-name, type-name, ")"
 *         | "__builtin_offsetof" "(" type-name "," ident ")"
 *         | "__builtin_va_arg" "(" assign "," type-name ")"
 *         | ident
 *         | str
 *         | num
 */
func (p *parser) primary(rest **Token, tok *Token) *AstNode {
	start := tok

	if tok.isEqual("(") && tok.Next.isEqual("{") {
		// This is a GNU statement expresssion.
		if p.fn == nil {
			errorTok(tok, "statement expression outside of a function")
		}
		node := newNode(ND_STMT_EXPR, tok)
		node.Body = p.compoundStmt(&tok, tok.Next.Next).Body
		*rest = skip(tok, ")")
		return node
	}

	if tok.isEqual("(") && p.startsTypeName(tok.Next) {
		sh := p.parenTypeName(&tok, tok)
		if !tok.isEqual("{") {
			errorTok(tok, "expected '{'")
		}
		return p.typedLiteral(rest, start, tok, sh)
	}

	if tok.isEqual("(") {
		node := p.expr(&tok, tok.Next)
		*rest = skip(tok, ")")
		return node
	}

	if tok.isEqual("_Generic") {
		return p.genericSelection(rest, tok)
	}

	if tok.isEqual("__builtin_types_compatible_p") {
		tok = skip(tok.Next, "(")
		t1 := p.typeName(&tok, tok)
		tok = skip(tok, ",")
		t2 := p.typeName(&tok, tok)
		*rest = skip(tok, ")")
		if t1.isCompatibleWith(t2) {
			return newNum(1, start)
		}
		return newNum(0, start)
	}

	if tok.isEqual("__builtin_offsetof") {
		tok = skip(tok.Next, "(")
		ty := p.typeName(&tok, tok).complete()
		tok = skip(tok, ",")
		var offset int64
		for {
			mem := getStructMember(ty, tok)
			if mem == nil {
				errorTok(tok, "no such member")
			}
			offset += mem.Offset
			if mem.Name != nil {
				ty = mem.Ty.complete()
				tok = tok.Next
				if !tok.isEqual(".") {
					break
				}
				tok = tok.Next
			} else {
				ty = mem.Ty.complete()
			}
		}
		*rest = skip(tok, ")")
		return newULong(offset, start)
	}

	if tok.isEqual("__builtin_va_arg") {
		tok = skip(tok.Next, "(")
		ap := p.assign(&tok, tok)
		tok = skip(tok, ",")
		ty := p.typeName(&tok, tok)
		*rest = skip(tok, ")")
		node := newNode(ND_FUNCALL, start)
		node.Ty = ty
		node.Args = ap
		return node
	}

	if tok.isEqual("__builtin_va_start") || tok.isEqual("__builtin_va_end") || tok.isEqual("__builtin_va_copy") {
		return p.builtinCall(rest, tok, TyVoid)
	}

	if tok.isEqual("true") || tok.isEqual("false") {
		node := newNum(0, tok)
		if tok.isEqual("true") {
			node.Value = 1
		}
		node.Ty = TyBool
		*rest = tok.Next
		return node
	}

	if tok.isEqual("nullptr") {
		*rest = tok.Next
		return newCast(newNum(0, tok), pointerTo(TyVoid))
	}

	if tok.Kind == TK_IDENT {
		// Variable or enum constant
		vs, sc := p.findVariable(tok)
		*rest = tok.Next

		if vs != nil {
			if vs.Variable == nil && vs.EnumType == nil {
				errorTok(tok, "unexpected type name '%s'", tok.getText())
			}
			p.noteName(&nameUse{tok: tok, sc: sc, vs: vs})
			if vs.Variable != nil {
				return newVarNode(vs.Variable, tok)
			}
			node := newNum(vs.EnumValue, tok)
			node.Ty = TyInt
			return node
		}

		if tok.isEqual("__func__") || tok.isEqual("__FUNCTION__") || tok.isEqual("__PRETTY_FUNCTION__") {
			if p.fn == nil {
				errorTok(tok, "'%s' is not defined outside of a function", tok.getText())
			}
			ty := arrayOf(TyPChar, int64(len(p.fn.name())+1))
			return newVarNode(p.newAnonGlobalVar(ty), tok)
		}

		if tok.Next.isEqual("(") {
			return p.implicitFunction(tok)
		}

		if hint := suggest(tok.getText(), p.visibleNames()); hint != "" {
			errorTok(tok, "undefined variable '%s'; did you mean '%s'?", tok.getText(), hint)
		}
		errorTok(tok, "undefined variable '%s'", tok.getText())
	}

	if tok.Kind == TK_STR {
		*rest = tok.Next
		return p.stringLiteral(tok)
	}

	if tok.Kind == TK_NUM {
		var node *AstNode
		if tok.Ty.isFloat() {
			node = newNode(ND_NUM, tok)
			node.FloatValue = tok.FloatValue
		} else {
			node = newNum(tok.Value, tok)
		}

		node.Ty = tok.Ty
		*rest = tok.Next
		return node
	}

	errorTok(tok, "expected an expression")
	return nil
}
