package cc

type AstNodeKind uint8

// AST Type
const (
	ND_NULL_EXPR AstNodeKind = iota // Do nothing
	ND_ADD                          // +
	ND_SUB                          // -
	ND_MUL                          // *
	ND_DIV                          // /
	ND_POS                          // unary +
	ND_NEG                          // unary -
	ND_EQ                           // ==
	ND_NE                           // !=
	ND_LT                           // <
	ND_LE                           // <=
	ND_ASSIGN                       // =
	ND_COND                         // Ternary conditional (?:)
	ND_COMMA                        // ,
	ND_MEMBER                       // . (struct member access)
	ND_ADDR                         // unary &
	ND_DEREF                        // unary *
	ND_NOT                          // !
	ND_BITNOT                       // ~
	ND_MOD                          // %
	ND_BITAND                       // &
	ND_BITOR                        // |
	ND_BITXOR                       // ^
	ND_SHL                          // <<
	ND_SHR                          // >>
	ND_LOGAND                       // &&
	ND_LOGOR                        // ||
	ND_RETURN                       // "return"
	ND_IF                           // "if"
	ND_FOR                          // "for" or "while"
	ND_DO                           // "do"
	ND_SWITCH                       // "switch"
	ND_CASE                         // "case"
	ND_BLOCK                        // { ... }
	ND_GOTO                         // "goto"
	ND_GOTO_EXPR                    // "goto" labels-as-values
	ND_LABEL                        // Labeled statement
	ND_LABEL_VAL                    // [GNU] Labels-as-values
	ND_FUNCALL                      // Function call
	ND_EXPR_STMT                    // Expression statement
	ND_STMT_EXPR                    // Statement expression
	ND_VAR                          // Variable
	ND_NUM                          // Integer
	ND_CAST                         // Type cast
	ND_ASM                          // "asm"
	ND_COMPOUND_LIT                 // Compound literal
	ND_FUNCLIT                      // Unnamed function expression
)

type AstNode struct {
	Kind AstNodeKind // Node Kind
	Next *AstNode
	Ty   *CType
	Tok  *Token // Representative token

	Lhs *AstNode
	Rhs *AstNode

	Cond *AstNode
	Then *AstNode
	Else *AstNode
	Init *AstNode
	Inc  *AstNode

	// Block or statement expression
	Body *AstNode

	// Struct member access
	Member *Member

	// Function call arguments
	Args *AstNode

	// Goto or labeled statement, or labels-as-values
	Label    string
	GotoNext *AstNode

	// Switch
	CaseNext    *AstNode
	DefaultCase *AstNode

	// Case
	Begin int64
	End   int64

	// Variable
	Variable *Obj

	// Unnamed function expression
	FuncLit *FuncLit

	// Numeric literal
	Value      int64
	FloatValue float64
}

// Struct member
type Member struct {
	Next   *Member
	Ty     *CType
	Name   *Token
	Index  int
	Align  int64
	Offset int64 // Offset from the beginning of the struct

	// Bitfield
	IsBitfield bool
	BitOffset  int64
	BitWidth   int64
}

func newNode(kind AstNodeKind, tok *Token) *AstNode {
	node := &AstNode{}
	node.Kind = kind
	node.Tok = tok
	return node
}

func newBinary(kind AstNodeKind, lhs *AstNode, rhs *AstNode, tok *Token) *AstNode {
	node := newNode(kind, tok)
	node.Lhs = lhs
	node.Rhs = rhs
	return node
}

func newUnary(kind AstNodeKind, expr *AstNode, tok *Token) *AstNode {
	node := newNode(kind, tok)
	node.Lhs = expr
	return node
}

func newNum(value int64, tok *Token) *AstNode {
	node := newNode(ND_NUM, tok)
	node.Value = value
	return node
}

func newLong(value int64, tok *Token) *AstNode {
	node := newNum(value, tok)
	node.Ty = TyLong
	return node
}

func newULong(value int64, tok *Token) *AstNode {
	node := newNum(value, tok)
	node.Ty = TyULong
	return node
}

func newVarNode(variable *Obj, tok *Token) *AstNode {
	node := newNode(ND_VAR, tok)
	node.Variable = variable
	return node
}

func chainExpr(lhs **AstNode, rhs *AstNode) {
	if rhs != nil {
		if *lhs == nil {
			*lhs = rhs
		} else {
			*lhs = newBinary(ND_COMMA, *lhs, rhs, rhs.Tok)
		}
	}
}

// walk calls fn for node and every node below it, in source order.
func (node *AstNode) walk(fn func(*AstNode)) {
	if node == nil {
		return
	}
	fn(node)
	for _, n := range []*AstNode{node.Init, node.Cond, node.Lhs, node.Rhs, node.Then, node.Else, node.Inc} {
		n.walk(fn)
	}
	for n := node.Body; n != nil; n = n.Next {
		n.walk(fn)
	}
	for n := node.Args; n != nil; n = n.Next {
		n.walk(fn)
	}
}
