package cc

// skipParen returns the token after the ")" matching an already
// consumed "(".
func skipParen(tok *Token) *Token {
	level := 0
	for level > 0 || !tok.isEqual(")") {
		if tok.Kind == TK_EOF {
			errorTok(tok, "expected ')'")
		}
		if tok.isEqual("(") {
			level++
		} else if tok.isEqual(")") {
			level--
		}
		tok = tok.Next
	}
	return tok.Next
}

// matchingBrace returns the "}" closing the "{" at tok.
func matchingBrace(tok *Token) *Token {
	level := 0
	for ; tok.Kind != TK_EOF; tok = tok.Next {
		if tok.isEqual("{") {
			level++
		} else if tok.isEqual("}") {
			level--
			if level == 0 {
				return tok
			}
		}
	}
	errorTok(tok, "expected '}'")
	return nil
}

// asm-stmt = "asm" ("volatile" | "inline" | "goto")* "(" ... ")"
func (p *parser) asmStmt(rest **Token, tok *Token) *AstNode {
	node := newNode(ND_ASM, tok)
	tok = tok.Next

	for tok.isEqual("volatile") || tok.isEqual("__volatile__") || tok.isEqual("inline") || tok.isEqual("goto") {
		tok = tok.Next
	}

	tok = skip(tok, "(")
	*rest = skipParen(tok)
	return node
}

func (p *parser) loopBody(rest **Token, tok *Token) *AstNode {
	p.fn.loopDepth++
	node := p.stmt(rest, tok, true)
	p.fn.loopDepth--
	return node
}

// labelBody parses the statement following a label. Inside a compound
// statement the label stands alone so that it may also precede a
// declaration or the closing brace.
func (p *parser) labelBody(rest **Token, tok *Token, chained bool) *AstNode {
	if chained {
		return p.stmt(rest, tok, true)
	}
	*rest = tok
	return nil
}

/*
 * stmt = "return" expr? ";"
 *      | "if" "(" expr ")" stmt ("else" stmt)?
 *      | "switch" "(" expr ")" stmt
 *      | "case" const-expr ("..." const-expr)? ":" stmt
 *      | "default" ":" stmt
 *      | "for" "(" expr-stmt expr? ";" expr? ")" stmt
 *      | "while" "(" expr ")" stmt
 *      | "do" stmt "while" "(" expr ")" ";"
 *      | "asm" asm-stmt
 *      | "goto" (ident | "*" expr) ";"
 *      | "break" ";"
 *      | "continue" ";"
 *      | ident ":" stmt
 *      | "{" compound-stmt
 *      | expr-stmt
 */
func (p *parser) stmt(rest **Token, tok *Token, chained bool) *AstNode {
	c := p.fn

	if tok.isEqual("return") {
		node := newNode(ND_RETURN, tok)
		if consume(rest, tok.Next, ";") {
			return node
		}

		exp := p.expr(&tok, tok.Next)
		*rest = skip(tok, ";")

		exp.addType()
		ty := c.fn.Ty.ReturnType
		if ty.Kind != TY_STRUCT && ty.Kind != TY_UNION && ty.Kind != TY_VOID {
			exp = newCast(exp, ty)
		}

		node.Lhs = exp
		return node
	}

	if tok.isEqual("if") {
		node := newNode(ND_IF, tok)
		tok = skip(tok.Next, "(")
		node.Cond = p.expr(&tok, tok)
		tok = skip(tok, ")")
		node.Then = p.stmt(&tok, tok, true)
		if tok.isEqual("else") {
			node.Else = p.stmt(&tok, tok.Next, true)
		}
		*rest = tok
		return node
	}

	if tok.isEqual("switch") {
		node := newNode(ND_SWITCH, tok)
		tok = skip(tok.Next, "(")
		node.Cond = p.expr(&tok, tok)
		tok = skip(tok, ")")

		sw := c.currentSwitch
		c.currentSwitch = node
		c.switchDepth++

		node.Then = p.stmt(rest, tok, true)

		c.switchDepth--
		c.currentSwitch = sw
		return node
	}

	if tok.isEqual("case") {
		if c.currentSwitch == nil {
			errorTok(tok, "stray case")
		}

		node := newNode(ND_CASE, tok)
		begin := p.constExpr(&tok, tok.Next)
		end := begin

		if tok.isEqual("...") {
			// [GNU] Case ranges, e.g. "case 1 ... 5:"
			end = p.constExpr(&tok, tok.Next)
			if end < begin {
				errorTok(tok, "empty case range specified")
			}
		}

		tok = skip(tok, ":")
		node.Begin = begin
		node.End = end
		node.Lhs = p.labelBody(rest, tok, chained)
		node.CaseNext = c.currentSwitch.CaseNext
		c.currentSwitch.CaseNext = node
		return node
	}

	if tok.isEqual("default") {
		if c.currentSwitch == nil {
			errorTok(tok, "stray default")
		}

		node := newNode(ND_CASE, tok)
		tok = skip(tok.Next, ":")
		node.Lhs = p.labelBody(rest, tok, chained)
		c.currentSwitch.DefaultCase = node
		return node
	}

	if tok.isEqual("for") {
		node := newNode(ND_FOR, tok)
		tok = skip(tok.Next, "(")

		p.enterScope()

		if p.isTypename(tok) {
			start := tok
			rec := p.beginDecl(declObject, start)
			attr := VarAttr{}
			basety := p.declspec(&tok, tok, &attr)
			expr := p.declaration(&tok, tok, basety, &attr, spanTo(start, tok), rec)
			p.endDecl(rec, nil)
			if expr != nil {
				node.Init = newUnary(ND_EXPR_STMT, expr, start)
			}
		} else {
			node.Init = p.exprStmt(&tok, tok)
		}

		if !tok.isEqual(";") {
			node.Cond = p.expr(&tok, tok)
		}
		tok = skip(tok, ";")

		if !tok.isEqual(")") {
			node.Inc = p.expr(&tok, tok)
		}
		tok = skip(tok, ")")

		node.Then = p.loopBody(rest, tok)

		p.leaveScope()
		return node
	}

	if tok.isEqual("while") {
		node := newNode(ND_FOR, tok)
		tok = skip(tok.Next, "(")
		node.Cond = p.expr(&tok, tok)
		tok = skip(tok, ")")
		node.Then = p.loopBody(rest, tok)
		return node
	}

	if tok.isEqual("do") {
		node := newNode(ND_DO, tok)
		node.Then = p.loopBody(&tok, tok.Next)

		tok = skip(tok, "while")
		tok = skip(tok, "(")
		node.Cond = p.expr(&tok, tok)
		tok = skip(tok, ")")
		*rest = skip(tok, ";")
		return node
	}

	if tok.isEqual("asm") || tok.isEqual("__asm") || tok.isEqual("__asm__") {
		node := p.asmStmt(&tok, tok)
		*rest = skip(tok, ";")
		return node
	}

	if tok.isEqual("goto") && tok.Next.isEqual("*") {
		// [GNU] `goto *ptr` jumps to the address specified by `ptr`.
		node := newNode(ND_GOTO_EXPR, tok)
		node.Lhs = p.expr(&tok, tok.Next.Next)
		*rest = skip(tok, ";")
		return node
	}

	if tok.isEqual("goto") {
		node := newNode(ND_GOTO, tok.Next)
		node.Label = tok.Next.getIdent()
		node.GotoNext = c.gotos
		c.gotos = node
		*rest = skip(tok.Next.Next, ";")
		return node
	}

	if tok.isEqual("break") {
		if c.loopDepth == 0 && c.switchDepth == 0 {
			errorTok(tok, "stray break")
		}
		*rest = skip(tok.Next, ";")
		return newNode(ND_GOTO, tok)
	}

	if tok.isEqual("continue") {
		if c.loopDepth == 0 {
			errorTok(tok, "stray continue")
		}
		*rest = skip(tok.Next, ";")
		return newNode(ND_GOTO, tok)
	}

	if tok.Kind == TK_IDENT && tok.Next.isEqual(":") {
		node := newNode(ND_LABEL, tok)
		node.Label = tok.getText()
		node.GotoNext = c.labels
		c.labels = node

		tok = p.attributeList(tok.Next.Next, nil)
		node.Lhs = p.labelBody(rest, tok, chained)
		return node
	}

	if tok.isEqual("{") {
		return p.compoundStmt(rest, tok.Next)
	}

	return p.exprStmt(rest, tok)
}

// compound-stmt = (typedef | declaration | stmt)* "}"
func (p *parser) compoundStmt(rest **Token, tok *Token) *AstNode {
	node := newNode(ND_BLOCK, tok)
	head := AstNode{}
	cur := &head

	p.enterScope()

	for !tok.isEqual("}") {
		if tok.Kind == TK_EOF {
			errorTok(tok, "expected '}'")
		}

		tok = skipStdAttributes(tok)

		var stmt *AstNode
		switch {
		case tok.isEqual("_Static_assert") || tok.isEqual("static_assert"):
			p.staticAssertion(&tok, tok.Next)
		case p.isTypename(tok) && !tok.Next.isEqual(":"):
			stmt = p.blockDeclaration(&tok, tok)
		default:
			stmt = p.stmt(&tok, tok, false)
		}

		if stmt != nil {
			cur.Next = stmt
			cur = cur.Next
			cur.addType()
		}
	}

	p.leaveScope()

	node.Body = head.Next
	*rest = tok.Next
	return node
}

// blockDeclaration parses a declaration at block scope. Typedefs and tag
// definitions are recorded so that unnamed functions can repeat them.
func (p *parser) blockDeclaration(rest **Token, tok *Token) *AstNode {
	start := tok
	rec := p.beginDecl(declObject, start)
	attr := VarAttr{}
	basety := p.declspec(&tok, tok, &attr)

	if attr.IsTypeDef {
		if rec != nil {
			rec.Kind = DeclTypedef
		}
		p.parseTypeDef(rest, tok, basety, rec)
		p.endDecl(rec, spanTo(start, *rest).End)
		return nil
	}

	expr := p.declaration(rest, tok, basety, &attr, spanTo(start, tok), rec)
	p.endDecl(rec, nil)
	if expr == nil {
		return nil
	}
	return newUnary(ND_EXPR_STMT, expr, start)
}

// expr-stmt = expr? ";"
func (p *parser) exprStmt(rest **Token, tok *Token) *AstNode {
	if tok.isEqual(";") {
		*rest = tok.Next
		return newNode(ND_BLOCK, tok)
	}

	node := newNode(ND_EXPR_STMT, tok)
	node.Lhs = p.expr(&tok, tok)
	*rest = skip(tok, ";")
	return node
}
