package cc

// evalError reports a non-constant expression. Under evalRecover the
// failure is only recorded.
func (p *parser) evalError(tok *Token, format string, args ...any) int64 {
	if p.evalRecover != nil {
		*p.evalRecover = true
		return 0
	}
	errorTok(tok, format, args...)
	return 0
}

func (p *parser) eval(node *AstNode) int64 {
	return p.eval2(node, nil)
}

// Evaluate a given node as a constant expression.
//
// A constant expression is either just a number or ptr+n where ptr
// is a pointer to a global variable and n is a postiive/negative
// number. The latter form is accepted only as an initialization
// expression for a global variable.
func (p *parser) eval2(node *AstNode, label **string) int64 {
	node.addType()

	if node.Ty.isFloat() {
		return int64(p.evalDouble(node))
	}

	switch node.Kind {
	case ND_ADD:
		return p.eval2(node.Lhs, label) + p.eval(node.Rhs)
	case ND_SUB:
		return p.eval2(node.Lhs, label) - p.eval(node.Rhs)
	case ND_MUL:
		return p.eval(node.Lhs) * p.eval(node.Rhs)
	case ND_DIV:
		rhs := p.eval(node.Rhs)
		if rhs == 0 {
			return p.evalError(node.Rhs.Tok, "division by zero in a constant expression")
		}
		if node.Ty.IsUnsigned {
			return int64(uint64(p.eval(node.Lhs)) / uint64(rhs))
		}
		return p.eval(node.Lhs) / rhs
	case ND_POS:
		return p.eval(node.Lhs)
	case ND_NEG:
		return -p.eval(node.Lhs)
	case ND_MOD:
		rhs := p.eval(node.Rhs)
		if rhs == 0 {
			return p.evalError(node.Rhs.Tok, "division by zero in a constant expression")
		}
		if node.Ty.IsUnsigned {
			return int64(uint64(p.eval(node.Lhs)) % uint64(rhs))
		}
		return p.eval(node.Lhs) % rhs
	case ND_BITAND:
		return p.eval(node.Lhs) & p.eval(node.Rhs)
	case ND_BITOR:
		return p.eval(node.Lhs) | p.eval(node.Rhs)
	case ND_BITXOR:
		return p.eval(node.Lhs) ^ p.eval(node.Rhs)
	case ND_SHL:
		return p.eval(node.Lhs) << p.eval(node.Rhs)
	case ND_SHR:
		if node.Ty.IsUnsigned && node.Ty.Size == 8 {
			return int64(uint64(p.eval(node.Lhs)) >> p.eval(node.Rhs))
		}
		return p.eval(node.Lhs) >> p.eval(node.Rhs)
	case ND_EQ:
		return boolValue(p.eval(node.Lhs) == p.eval(node.Rhs))
	case ND_NE:
		return boolValue(p.eval(node.Lhs) != p.eval(node.Rhs))
	case ND_LT:
		if node.Lhs.Ty.IsUnsigned {
			return boolValue(uint64(p.eval(node.Lhs)) < uint64(p.eval(node.Rhs)))
		}
		return boolValue(p.eval(node.Lhs) < p.eval(node.Rhs))
	case ND_LE:
		if node.Lhs.Ty.IsUnsigned {
			return boolValue(uint64(p.eval(node.Lhs)) <= uint64(p.eval(node.Rhs)))
		}
		return boolValue(p.eval(node.Lhs) <= p.eval(node.Rhs))
	case ND_COND:
		if p.eval(node.Cond) != 0 {
			return p.eval2(node.Then, label)
		}
		return p.eval2(node.Else, label)
	case ND_COMMA:
		return p.eval2(node.Rhs, label)
	case ND_NOT:
		return boolValue(p.eval(node.Lhs) == 0)
	case ND_BITNOT:
		return ^p.eval(node.Lhs)
	case ND_LOGAND:
		return boolValue(p.eval(node.Lhs) != 0 && p.eval(node.Rhs) != 0)
	case ND_LOGOR:
		return boolValue(p.eval(node.Lhs) != 0 || p.eval(node.Rhs) != 0)
	case ND_CAST:
		val := p.eval2(node.Lhs, label)
		if node.Ty.isInteger() {
			switch node.Ty.Size {
			case 1:
				if node.Ty.Kind == TY_BOOL {
					return boolValue(val != 0)
				}
				if node.Ty.IsUnsigned {
					return int64(uint8(val))
				}
				return int64(int8(val))
			case 2:
				if node.Ty.IsUnsigned {
					return int64(uint16(val))
				}
				return int64(int16(val))
			case 4:
				if node.Ty.IsUnsigned {
					return int64(uint32(val))
				}
				return int64(int32(val))
			}
		}
		return val
	case ND_ADDR:
		return p.evalRval(node.Lhs, label)
	case ND_LABEL_VAL:
		if label == nil {
			return p.evalError(node.Tok, "not a compile-time constant")
		}
		*label = &node.Label
		return 0
	case ND_MEMBER:
		if label == nil {
			return p.evalError(node.Tok, "not a compile-time constant")
		}
		if node.Ty.Kind != TY_ARRAY {
			return p.evalError(node.Tok, "invalid initializer")
		}
		return p.evalRval(node.Lhs, label) + node.Member.Offset
	case ND_VAR:
		v := node.Variable
		if v.IsConstexpr && v.init != nil && v.Ty.Kind != TY_ARRAY {
			return p.eval(v.init)
		}
		if label == nil {
			return p.evalError(node.Tok, "not a compile-time constant")
		}
		if v.Ty.Kind != TY_ARRAY && v.Ty.Kind != TY_FUNC {
			return p.evalError(node.Tok, "invalid initializer")
		}
		if v.IsLocal && !v.IsStatic && !v.IsFunction && !v.IsExtern {
			return p.evalError(node.Tok, "not a compile-time constant")
		}
		*label = &v.Name
		return 0
	case ND_FUNCLIT:
		if label == nil {
			return p.evalError(node.Tok, "not a compile-time constant")
		}
		*label = &node.FuncLit.Name
		return 0
	case ND_NUM:
		return node.Value
	}

	return p.evalError(node.Tok, "not a compile-time constant")
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (p *parser) evalRval(node *AstNode, label **string) int64 {
	switch node.Kind {
	case ND_VAR:
		v := node.Variable
		if v.IsLocal && !v.IsStatic && !v.IsFunction && !v.IsExtern {
			return p.evalError(node.Tok, "not a compile-time constant")
		}
		if label == nil {
			return p.evalError(node.Tok, "not a compile-time constant")
		}
		*label = &v.Name
		return 0
	case ND_DEREF:
		return p.eval2(node.Lhs, label)
	case ND_MEMBER:
		return p.evalRval(node.Lhs, label) + node.Member.Offset
	case ND_FUNCLIT:
		if label == nil {
			return p.evalError(node.Tok, "not a compile-time constant")
		}
		*label = &node.FuncLit.Name
		return 0
	}

	return p.evalError(node.Tok, "invalid initializer")
}

func (p *parser) isConstExpr(node *AstNode, val *int64) bool {
	failed := false
	saved := p.evalRecover
	p.evalRecover = &failed

	v := p.eval(node)

	p.evalRecover = saved
	if !failed && val != nil {
		*val = v
	}
	return !failed
}

func (p *parser) evalDouble(node *AstNode) float64 {
	node.addType()

	if node.Ty.isInteger() {
		if node.Ty.IsUnsigned {
			return float64(uint64(p.eval(node)))
		}
		return float64(p.eval(node))
	}

	switch node.Kind {
	case ND_ADD:
		return p.evalDouble(node.Lhs) + p.evalDouble(node.Rhs)
	case ND_SUB:
		return p.evalDouble(node.Lhs) - p.evalDouble(node.Rhs)
	case ND_MUL:
		return p.evalDouble(node.Lhs) * p.evalDouble(node.Rhs)
	case ND_DIV:
		return p.evalDouble(node.Lhs) / p.evalDouble(node.Rhs)
	case ND_POS:
		return p.evalDouble(node.Lhs)
	case ND_NEG:
		return -p.evalDouble(node.Lhs)
	case ND_COND:
		if p.evalDouble(node.Cond) != 0 {
			return p.evalDouble(node.Then)
		}
		return p.evalDouble(node.Else)
	case ND_COMMA:
		return p.evalDouble(node.Rhs)
	case ND_CAST:
		if node.Lhs.Ty.isFloat() {
			return p.evalDouble(node.Lhs)
		}
		return float64(p.eval(node.Lhs))
	case ND_VAR:
		if v := node.Variable; v.IsConstexpr && v.init != nil {
			return p.evalDouble(v.init)
		}
	case ND_NUM:
		return node.FloatValue
	}

	return float64(p.evalError(node.Tok, "not a compile-time constant"))
}

func (p *parser) constExpr(rest **Token, tok *Token) int64 {
	node := p.conditional(rest, tok)
	return p.eval(node)
}
