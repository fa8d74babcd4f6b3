package cc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type macroHandlerFn func(pp *preprocessor, tok *Token) *Token

type Macro struct {
	Name       string
	IsObjlike  bool // Object-like or function-like
	Params     []string
	VaArgsName string
	Body       *Token
	Handler    macroHandlerFn
}

// Macro argument
type macroArg struct {
	name        string
	isVaArgs    bool
	tok         *Token
	tokExpanded *Token
}

// The hideset of a token is the set of macro names that must not be
// expanded again when the token is rescanned.
type hideset struct {
	next *hideset
	name string
}

func newHideset(name string) *hideset {
	return &hideset{name: name}
}

func hidesetUnion(hs1 *hideset, hs2 *hideset) *hideset {
	head := hideset{}
	cur := &head

	for ; hs1 != nil; hs1 = hs1.next {
		cur.next = newHideset(hs1.name)
		cur = cur.next
	}
	cur.next = hs2
	return head.next
}

func (hs *hideset) contains(s string) bool {
	for ; hs != nil; hs = hs.next {
		if hs.name == s {
			return true
		}
	}
	return false
}

func hidesetIntersection(hs1 *hideset, hs2 *hideset) *hideset {
	head := hideset{}
	cur := &head

	for ; hs1 != nil; hs1 = hs1.next {
		if hs2.contains(hs1.name) {
			cur.next = newHideset(hs1.name)
			cur = cur.next
		}
	}
	return head.next
}

func addHideset(tok *Token, hs *hideset) *Token {
	head := Token{}
	cur := &head

	for ; tok != nil; tok = tok.Next {
		t := tok.copy()
		t.Hideset = hidesetUnion(t.Hideset, hs)
		cur.Next = t
		cur = cur.Next
	}
	return head.Next
}

// Append tok2 to the end of tok1.
func appendTokens(tok1 *Token, tok2 *Token) *Token {
	if tok1.Kind == TK_EOF {
		return tok2
	}

	head := Token{}
	cur := &head

	for ; tok1.Kind != TK_EOF; tok1 = tok1.Next {
		cur.Next = tok1.copy()
		cur = cur.Next
	}
	cur.Next = tok2
	return head.Next
}

func newEOF(tok *Token) *Token {
	t := tok.copy()
	t.Kind = TK_EOF
	t.Length = 0
	return t
}

func (pp *preprocessor) findMacro(tok *Token) *Macro {
	if tok.Kind != TK_IDENT {
		return nil
	}
	return pp.macros[tok.getText()]
}

func (pp *preprocessor) addMacro(name string, isObjlike bool, body *Token) *Macro {
	m := &Macro{Name: name, IsObjlike: isObjlike, Body: body}
	pp.macros[name] = m
	return m
}

func (pp *preprocessor) readMacroParams(rest **Token, tok *Token, vaArgsName *string) []string {
	var params []string

	for !tok.isEqual(")") {
		if len(params) > 0 {
			tok = skip(tok, ",")
		}

		if tok.isEqual("...") {
			*vaArgsName = "__VA_ARGS__"
			*rest = skip(tok.Next, ")")
			return params
		}

		if tok.Kind != TK_IDENT {
			errorTok(tok, "expected an identifier")
		}

		if tok.Next.isEqual("...") {
			*vaArgsName = tok.getText()
			*rest = skip(tok.Next.Next, ")")
			return params
		}

		params = append(params, tok.getText())
		tok = tok.Next
	}

	*rest = tok.Next
	return params
}

func (pp *preprocessor) readMacroDefinition(rest **Token, tok *Token) {
	if tok.Kind != TK_IDENT {
		errorTok(tok, "macro name must be an identifier")
	}
	name := tok.getText()
	tok = tok.Next

	if !tok.HasSpace && tok.isEqual("(") {
		// Function-like macro
		vaArgsName := ""
		params := pp.readMacroParams(&tok, tok.Next, &vaArgsName)

		m := pp.addMacro(name, false, copyLine(rest, tok))
		m.Params = params
		m.VaArgsName = vaArgsName
	} else {
		// Object-like macro
		pp.addMacro(name, true, copyLine(rest, tok))
	}
}

func (pp *preprocessor) readMacroArgOne(rest **Token, tok *Token, readRest bool) *macroArg {
	head := Token{}
	cur := &head
	level := 0

	for {
		if level == 0 && tok.isEqual(")") {
			break
		}
		if level == 0 && !readRest && tok.isEqual(",") {
			break
		}

		if tok.Kind == TK_EOF {
			errorTok(tok, "premature end of input")
		}

		if tok.isEqual("(") {
			level++
		} else if tok.isEqual(")") {
			level--
		}

		cur.Next = tok.copy()
		cur = cur.Next
		tok = tok.Next
	}

	cur.Next = newEOF(tok)

	*rest = tok
	return &macroArg{tok: head.Next}
}

func (pp *preprocessor) readMacroArgs(rest **Token, tok *Token, params []string, vaArgsName string) []*macroArg {
	start := tok
	tok = tok.Next.Next

	var args []*macroArg

	for i, pp2 := range params {
		if i > 0 {
			tok = skip(tok, ",")
		}
		arg := pp.readMacroArgOne(&tok, tok, false)
		arg.name = pp2
		args = append(args, arg)
	}

	if vaArgsName != "" {
		var arg *macroArg
		if tok.isEqual(")") {
			arg = &macroArg{tok: newEOF(tok)}
		} else {
			if len(params) > 0 {
				tok = skip(tok, ",")
			}
			arg = pp.readMacroArgOne(&tok, tok, true)
		}
		arg.name = vaArgsName
		arg.isVaArgs = true
		args = append(args, arg)
	} else if len(params) == 0 && !tok.isEqual(")") {
		errorTok(start, "too many arguments")
	}

	if !tok.isEqual(")") {
		errorTok(start, "too many arguments")
	}
	*rest = tok
	return args
}

func findArg(args []*macroArg, tok *Token) *macroArg {
	for _, ap := range args {
		if tok.Length == len(ap.name) && tok.getText() == ap.name {
			return ap
		}
	}
	return nil
}

// Concatenates all tokens in `tok` and returns a new string.
func joinTokens(tok *Token, end *Token) string {
	var sb strings.Builder
	for t := tok; t != end && t.Kind != TK_EOF; t = t.Next {
		if t != tok && t.HasSpace {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.getText())
	}
	return sb.String()
}

// Concatenates all tokens in `arg` and returns a new string token.
// This function is used for the stringizing operator (#).
func (pp *preprocessor) stringize(hash *Token, arg *Token) *Token {
	// Create a new string token. We need to set some value to its
	// source location for error reporting function, so we use a macro
	// name token as a template.
	s := joinTokens(arg, nil)
	return pp.newStrToken(s, hash)
}

func quoteString(str string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(str); i++ {
		if str[i] == '\\' || str[i] == '"' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(str[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

func (pp *preprocessor) newStrToken(str string, tmpl *Token) *Token {
	return pp.tokenizeSynthetic(quoteString(str), tmpl)
}

func (pp *preprocessor) newNumToken(val int, tmpl *Token) *Token {
	return pp.tokenizeSynthetic(strconv.Itoa(val), tmpl)
}

// tokenizeSynthetic tokenizes text that has no source file of its own.
// The resulting tokens report their position at tmpl.
func (pp *preprocessor) tokenizeSynthetic(text string, tmpl *Token) *Token {
	f := newFile(tmpl.File.Name, tmpl.File.FileNo, []byte(text))
	f.Builtin = true
	tok := tokenize(f)
	for t := tok; t != nil; t = t.Next {
		t.Origin = tmpl.source()
		t.LineNo = tmpl.LineNo
		if t.Kind == TK_IDENT {
			pp.idents[t.getText()] = struct{}{}
		}
	}
	return tok
}

// Concatenate two tokens to create a new token.
func (pp *preprocessor) paste(lhs *Token, rhs *Token) *Token {
	// Paste the two tokens.
	buf := lhs.getText() + rhs.getText()

	// Tokenize the resulting string.
	tok := pp.tokenizeSynthetic(buf, lhs)
	if tok.Next.Kind != TK_EOF {
		errorTok(lhs, "pasting forms '%s', an invalid token", buf)
	}
	return tok
}

func hasVarArgs(args []*macroArg) bool {
	for _, ap := range args {
		if ap.isVaArgs {
			return ap.tok.Kind != TK_EOF
		}
	}
	return false
}

func (pp *preprocessor) expandArg(arg *macroArg) *Token {
	if arg.tokExpanded == nil {
		arg.tokExpanded = pp.preprocess2(arg.tok)
	}
	return arg.tokExpanded
}

// markArg copies the tokens of a macro argument so that they keep their
// own source position once substituted.
func markArg(tok *Token) *Token {
	head := Token{}
	cur := &head
	for ; tok.Kind != TK_EOF; tok = tok.Next {
		t := tok.copy()
		t.macroArg = true
		cur.Next = t
		cur = cur.Next
	}
	cur.Next = tok
	return head.Next
}

// Replace func-like macro parameters with given arguments.
func (pp *preprocessor) subst(tok *Token, args []*macroArg) *Token {
	head := Token{}
	cur := &head

	for tok.Kind != TK_EOF {
		// "#" followed by a parameter is replaced with stringized actuals.
		if tok.isEqual("#") {
			arg := findArg(args, tok.Next)
			if arg == nil {
				errorTok(tok.Next, "'#' is not followed by a macro parameter")
			}
			cur.Next = pp.stringize(tok, arg.tok)
			cur = cur.Next
			tok = tok.Next.Next
			continue
		}

		// [GNU] If __VA_ARGS__ is empty, `,##__VA_ARGS__` is expanded
		// to the empty token list. Otherwise, its expaned to `,` and
		// __VA_ARGS__.
		if tok.isEqual(",") && tok.Next.isEqual("##") {
			arg := findArg(args, tok.Next.Next)
			if arg != nil && arg.isVaArgs {
				if arg.tok.Kind == TK_EOF {
					tok = tok.Next.Next.Next
				} else {
					cur.Next = tok.copy()
					cur = cur.Next
					tok = tok.Next.Next
				}
				continue
			}
		}

		if tok.isEqual("##") {
			if cur == &head {
				errorTok(tok, "'##' cannot appear at start of macro expansion")
			}

			if tok.Next.Kind == TK_EOF {
				errorTok(tok, "'##' cannot appear at end of macro expansion")
			}

			arg := findArg(args, tok.Next)
			if arg != nil {
				if arg.tok.Kind != TK_EOF {
					*cur = *pp.paste(cur, arg.tok)
					for t := arg.tok.Next; t.Kind != TK_EOF; t = t.Next {
						cur.Next = t.copy()
						cur = cur.Next
					}
				}
				tok = tok.Next.Next
				continue
			}

			*cur = *pp.paste(cur, tok.Next)
			tok = tok.Next.Next
			continue
		}

		arg := findArg(args, tok)

		if arg != nil && tok.Next.isEqual("##") {
			rhs := tok.Next.Next

			if arg.tok.Kind == TK_EOF {
				arg2 := findArg(args, rhs)
				if arg2 != nil {
					for t := arg2.tok; t.Kind != TK_EOF; t = t.Next {
						cur.Next = t.copy()
						cur = cur.Next
					}
				} else {
					cur.Next = rhs.copy()
					cur = cur.Next
				}
				tok = rhs.Next
				continue
			}

			for t := arg.tok; t.Kind != TK_EOF; t = t.Next {
				cur.Next = t.copy()
				cur = cur.Next
			}
			tok = tok.Next
			continue
		}

		// If __VA_ARGS__ is empty, __VA_OPT__(x) is expanded to the
		// empty token list. Otherwise, __VA_OPT__(x) is expanded to x.
		if tok.isEqual("__VA_OPT__") && tok.Next.isEqual("(") {
			arg := pp.readMacroArgOne(&tok, tok.Next.Next, true)
			if hasVarArgs(args) {
				for t := pp.subst(arg.tok, args); t.Kind != TK_EOF; t = t.Next {
					cur.Next = t
					cur = cur.Next
				}
			}
			tok = skip(tok, ")")
			continue
		}

		// Handle a macro token. Macro arguments are completely macro-expanded
		// before they are substituted into a macro body.
		if arg != nil {
			t := markArg(pp.expandArg(arg))
			t.AtBeginningOfLine = tok.AtBeginningOfLine
			t.HasSpace = tok.HasSpace
			for ; t.Kind != TK_EOF; t = t.Next {
				cur.Next = t.copy()
				cur = cur.Next
			}
			tok = tok.Next
			continue
		}

		// Handle a non-macro token.
		cur.Next = tok.copy()
		cur = cur.Next
		tok = tok.Next
		continue
	}

	cur.Next = tok
	return head.Next
}

// If tok is a macro, expand it and return true.
// Otherwise, do nothing and return false.
func (pp *preprocessor) expandMacro(rest **Token, tok *Token) bool {
	if tok.Hideset.contains(tok.getText()) {
		return false
	}

	m := pp.findMacro(tok)
	if m == nil {
		return false
	}

	// Built-in dynamic macro application such as __LINE__
	if m.Handler != nil {
		*rest = m.Handler(pp, tok)
		(*rest).Next = tok.Next
		return true
	}

	// Object-like macro application
	if m.IsObjlike {
		hs := hidesetUnion(tok.Hideset, newHideset(m.Name))
		body := addHideset(m.Body, hs)
		for t := body; t.Kind != TK_EOF; t = t.Next {
			t.Origin = tok
		}
		*rest = appendTokens(body, tok.Next)
		(*rest).AtBeginningOfLine = tok.AtBeginningOfLine
		(*rest).HasSpace = tok.HasSpace
		return true
	}

	// If a funclike macro token is not followed by an argument list,
	// treat it as a normal identifier.
	if !tok.Next.isEqual("(") {
		return false
	}

	// Function-like macro application
	macroToken := tok
	args := pp.readMacroArgs(&tok, tok, m.Params, m.VaArgsName)
	rparen := tok

	// Tokens that consist a func-like macro invocation may have different
	// hidesets, and if that's the case, it's not clear what the hideset
	// for the new tokens should be. We take the interesection of the
	// macro token and the closing parenthesis and use it as a new hideset
	// as explained in the Dave Prossor's algorithm.
	hs := hidesetIntersection(macroToken.Hideset, rparen.Hideset)
	hs = hidesetUnion(hs, newHideset(m.Name))

	body := pp.subst(m.Body, args)
	body = addHideset(body, hs)
	for t := body; t.Kind != TK_EOF; t = t.Next {
		if !t.macroArg && t.Origin == nil {
			t.Origin = macroToken
		}
	}
	*rest = appendTokens(body, rparen.Next)
	(*rest).AtBeginningOfLine = macroToken.AtBeginningOfLine
	(*rest).HasSpace = macroToken.HasSpace
	return true
}

func fileMacro(pp *preprocessor, tmpl *Token) *Token {
	tmpl = tmpl.source()
	return pp.newStrToken(tmpl.File.Name, tmpl)
}

func lineMacro(pp *preprocessor, tmpl *Token) *Token {
	tmpl = tmpl.source()
	return pp.newNumToken(tmpl.LineNo, tmpl)
}

// __COUNTER__ is expanded to serial values starting from 0.
func counterMacro(pp *preprocessor, tmpl *Token) *Token {
	i := pp.counter
	pp.counter++
	return pp.newNumToken(i, tmpl)
}

// __DATE__ is expanded to the current date, e.g. "May 17 2020".
func dateMacro(pp *preprocessor, tmpl *Token) *Token {
	return pp.newStrToken(pp.now.Format("Jan _2 2006"), tmpl)
}

// __TIME__ is expanded to the current time, e.g. "13:34:03".
func timeMacro(pp *preprocessor, tmpl *Token) *Token {
	return pp.newStrToken(pp.now.Format(time.TimeOnly), tmpl)
}

func (pp *preprocessor) defineMacro(name string, buf string) {
	f := newFile("<built-in>", 0, []byte(buf))
	f.Builtin = true
	tok := tokenize(f)
	pp.addMacro(name, true, tok)
}

func (pp *preprocessor) undefMacro(name string) {
	delete(pp.macros, name)
}

func (pp *preprocessor) addBuiltin(name string, fn macroHandlerFn) {
	m := pp.addMacro(name, true, nil)
	m.Handler = fn
}

func (pp *preprocessor) initMacros() {
	predefined := [][2]string{
		{"__STDC__", "1"},
		{"__STDC_HOSTED__", "1"},
		{"__STDC_VERSION__", "202311L"},
		{"__STDC_UTF_16__", "1"},
		{"__STDC_UTF_32__", "1"},
		{"__LP64__", "1"},
		{"_LP64", "1"},
		{"__x86_64__", "1"},
		{"__x86_64", "1"},
		{"__linux__", "1"},
		{"__unix__", "1"},
		{"__SIZEOF_INT__", "4"},
		{"__SIZEOF_LONG__", "8"},
		{"__SIZEOF_LONG_LONG__", "8"},
		{"__SIZEOF_POINTER__", "8"},
		{"__SIZEOF_SHORT__", "2"},
		{"__SIZEOF_FLOAT__", "4"},
		{"__SIZEOF_DOUBLE__", "8"},
		{"__SIZE_TYPE__", "unsigned long"},
		{"__PTRDIFF_TYPE__", "long"},
		{"__CHAR_BIT__", "8"},
		{"__lfc__", "1"},
		{"__STDC_NO_COMPLEX__", "1"},
		{"__STDC_NO_THREADS__", "1"},
		{"__STDC_NO_ATOMICS__", "1"},
	}
	for _, d := range predefined {
		pp.defineMacro(d[0], d[1])
	}

	pp.addBuiltin("__FILE__", fileMacro)
	pp.addBuiltin("__BASE_FILE__", func(pp *preprocessor, tmpl *Token) *Token {
		return pp.newStrToken(pp.baseFile, tmpl)
	})
	pp.addBuiltin("__LINE__", lineMacro)
	pp.addBuiltin("__COUNTER__", counterMacro)
	pp.addBuiltin("__DATE__", dateMacro)
	pp.addBuiltin("__TIME__", timeMacro)
}

// defineFromFlag handles a -D argument of the form name[=value].
func (pp *preprocessor) defineFromFlag(arg string) {
	name, value, ok := strings.Cut(arg, "=")
	if !ok {
		value = "1"
	}
	if i := strings.IndexByte(name, '('); i > 0 {
		// Function-like definitions go through the directive parser.
		f := newFile("<command-line>", 0, []byte(fmt.Sprintf("#define %s %s\n", name, value)))
		f.Builtin = true
		pp.preprocess2(tokenize(f))
		return
	}
	pp.defineMacro(name, value)
}
