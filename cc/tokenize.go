package cc

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"unicode"
	"unicode/utf8"
)

var Keywords = map[string]struct{}{
	"return": {}, "if": {}, "else": {}, "for": {}, "while": {}, "int": {}, "sizeof": {}, "char": {},
	"struct": {}, "union": {}, "short": {}, "long": {}, "void": {}, "typedef": {}, "_Bool": {},
	"enum": {}, "static": {}, "goto": {}, "break": {}, "continue": {}, "switch": {}, "case": {},
	"default": {}, "extern": {}, "_Alignof": {}, "_Alignas": {}, "do": {}, "signed": {},
	"unsigned": {}, "const": {}, "volatile": {}, "auto": {}, "register": {}, "restrict": {},
	"__restrict": {}, "__restrict__": {}, "_Noreturn": {}, "float": {}, "double": {},
	"typeof": {}, "asm": {}, "_Thread_local": {}, "__thread": {}, "_Atomic": {},
	"__attribute__": {}, "inline": {}, "_Static_assert": {}, "_Generic": {},

	// C23 spellings.
	"bool": {}, "true": {}, "false": {}, "nullptr": {}, "alignof": {}, "alignas": {},
	"static_assert": {}, "thread_local": {}, "constexpr": {}, "typeof_unqual": {},

	// GNU spellings.
	"__typeof": {}, "__typeof__": {}, "__asm": {}, "__asm__": {}, "__inline": {},
	"__inline__": {}, "__alignof__": {}, "__extension__": {}, "__volatile__": {},
	"__const": {}, "__signed__": {},
}

// tokenizer holds the per-buffer scanning state.
type tokenizer struct {
	file *File

	// True if the current position is at the beginning of a line
	atBeginningOfLine bool

	// True if the current position follows a space character
	hasSpace bool

	lineNo int
}

func (t *tokenizer) newToken(kind TokenKind, start int, end int) *Token {
	tok := &Token{
		Kind:              kind,
		Location:          start,
		Length:            end - start,
		File:              t.file,
		LineNo:            t.lineNo,
		AtBeginningOfLine: t.atBeginningOfLine,
		HasSpace:          t.hasSpace,
	}

	t.atBeginningOfLine = false
	t.hasSpace = false
	return tok
}

// Read an identifier and returns the length of it.
// If p does not point to a valid identifier, 0 is returned.
func readIdent(src []byte, start int) int {
	p := start
	c, size := utf8.DecodeRune(src[p:])
	if !isIdentFirstChar(c) {
		return 0
	}
	p += size

	for {
		c, size = utf8.DecodeRune(src[p:])
		if !isIdentInnerChar(c) {
			return p - start
		}
		p += size
	}
}

func isIdentFirstChar(c rune) bool {
	return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') ||
		(c >= 0x80 && c != utf8.RuneError && unicode.IsLetter(c))
}

func isIdentInnerChar(c rune) bool {
	return isIdentFirstChar(c) || ('0' <= c && c <= '9') ||
		(c >= 0x80 && c != utf8.RuneError && (unicode.IsDigit(c) || unicode.Is(unicode.Mn, c)))
}

func fromHex(c byte) int {
	if '0' <= c && c <= '9' {
		return int(c - '0')
	}

	if 'a' <= c && c <= 'f' {
		return int(c-'a') + 10
	}

	return int(c-'A') + 10
}

func (tok *Token) isKeyword() bool {
	_, ok := Keywords[tok.getText()]
	return ok
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isBinDigit(c byte) bool {
	return c == '0' || c == '1'
}

func isOctalDigit(c byte) bool {
	return c >= '0' && c <= '7'
}

func isDecimalDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlphaNumber(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

// readEscapedChar returns the value of the escape sequence at p and the
// position just past it.
func (t *tokenizer) readEscapedChar(p int) (int, int) {
	buf := t.file.Contents
	if isOctalDigit(buf[p]) {
		// Read an octal number.
		c := int(buf[p] - '0')
		p += 1
		if isOctalDigit(buf[p]) {
			c = (c << 3) + int(buf[p]-'0')
			p += 1
			if isOctalDigit(buf[p]) {
				c = (c << 3) + int(buf[p]-'0')
				p += 1
			}
		}

		return c, p
	}

	if buf[p] == 'x' {
		// Read a hexadecimal number
		p += 1
		if !isHexDigit(buf[p]) {
			t.errorAt(p, "invalid hex escape sequence")
		}

		c := 0
		for ; isHexDigit(buf[p]); p += 1 {
			c = c<<4 + fromHex(buf[p])
		}
		return c, p
	}

	// Universal character names.
	if buf[p] == 'u' || buf[p] == 'U' {
		n := 4
		if buf[p] == 'U' {
			n = 8
		}
		c := 0
		for i := 1; i <= n; i++ {
			if !isHexDigit(buf[p+i]) {
				t.errorAt(p, "invalid universal character name")
			}
			c = c<<4 + fromHex(buf[p+i])
		}
		return c, p + n + 1
	}

	switch buf[p] {
	case 'a':
		return '\a', p + 1
	case 'b':
		return '\b', p + 1
	case 't':
		return '\t', p + 1
	case 'n':
		return '\n', p + 1
	case 'v':
		return '\v', p + 1
	case 'f':
		return '\f', p + 1
	case 'r':
		return '\r', p + 1
	case 'e':
		// [GNU] \e for the ASCII escape character is a GNU C extension.
		return 27, p + 1
	default:
		return int(buf[p]), p + 1
	}
}

// Find a closing double-quote.
func (t *tokenizer) stringLiteralEnd(p int) int {
	buf := t.file.Contents
	start := p
	for ; buf[p] != '"'; p += 1 {
		if buf[p] == '\n' || buf[p] == 0 {
			t.errorAt(start, "unclosed string literal")
		}
		if buf[p] == '\\' {
			p += 1
		}
	}
	return p
}

func (t *tokenizer) readStringLiteral(start int, quote int) *Token {
	buf := t.file.Contents
	end := t.stringLiteralEnd(quote + 1)
	str := make([]byte, 0, end-quote)

	for p := quote + 1; p < end; {
		if buf[p] == '\\' {
			c, next := t.readEscapedChar(p + 1)
			if c >= 0x80 && (buf[p+1] == 'u' || buf[p+1] == 'U') {
				str = utf8.AppendRune(str, rune(c))
			} else {
				str = append(str, byte(c))
			}
			p = next
		} else {
			str = append(str, buf[p])
			p += 1
		}
	}
	str = append(str, 0)

	tok := t.newToken(TK_STR, start, end+1)
	tok.Ty = arrayOf(TyPChar, int64(len(str)))
	tok.StringLiteral = str
	return tok
}

// readWideStringLiteral reads a u"", U"" or L"" literal. Only the element
// count matters to the front end, so the contents are kept as UTF-8.
func (t *tokenizer) readWideStringLiteral(start int, quote int, ty *CType) *Token {
	src := t.file.Contents
	end := t.stringLiteralEnd(quote + 1)
	length := 0

	for p := quote + 1; p < end; {
		if src[p] == '\\' {
			_, p = t.readEscapedChar(p + 1)
			length += 1
			continue
		}

		c, size := utf8.DecodeRune(src[p:end])
		p += size
		length += 1
		if ty.Size == 2 && c >= 0x10000 {
			// Surrogate pair.
			length += 1
		}
	}

	tok := t.newToken(TK_STR, start, end+1)
	tok.Ty = arrayOf(ty, int64(length+1))
	tok.StringLiteral = append([]byte(nil), src[quote+1:end]...)
	return tok
}

func (t *tokenizer) readCharLiteral(start int, quote int, ty *CType) *Token {
	src := t.file.Contents
	p := quote + 1
	if src[p] == 0 || src[p] == '\n' {
		t.errorAt(start, "unclosed char literal")
	}

	var c int32
	if src[p] == '\\' {
		v, next := t.readEscapedChar(p + 1)
		p = next
		c = int32(v)
	} else {
		r, size := utf8.DecodeRune(src[p:])
		p += size
		c = int32(r)
	}

	end := p
	for src[end] != '\'' {
		if src[end] == '\n' || src[end] == 0 {
			t.errorAt(p, "unclosed char literal")
		}
		end += 1
	}

	tok := t.newToken(TK_NUM, start, end+1)
	tok.Value = int64(c)
	tok.Ty = ty
	return tok
}

func convertPpInt(tok *Token) bool {
	buf := tok.File.Contents
	p := tok.Location

	// Read a binary, octal, decimal or hexadecimal number.
	base := 10
	if buf[p] == '0' && (buf[p+1] == 'x' || buf[p+1] == 'X') && isHexDigit(buf[p+2]) {
		p += 2
		base = 16
	} else if buf[p] == '0' && (buf[p+1] == 'b' || buf[p+1] == 'B') && isBinDigit(buf[p+2]) {
		p += 2
		base = 2
	} else if buf[p] == '0' {
		base = 8
	}

	digit := isDecimalDigit
	switch base {
	case 16:
		digit = isHexDigit
	case 2:
		digit = isBinDigit
	case 8:
		digit = isOctalDigit
	}

	end := p
	for digit(buf[end]) || buf[end] == '\'' {
		end += 1
	}
	digits := bytes.ReplaceAll(buf[p:end], []byte("'"), nil)
	val, _ := strconv.ParseUint(string(digits), base, 64)
	p = end

	// Read U, L or LL suffixes.
	l := 0
	u := false
	for i := 0; i < 2; i++ {
		switch {
		case !u && (buf[p] == 'u' || buf[p] == 'U'):
			u = true
			p += 1
		case l == 0 && (bytes.HasPrefix(buf[p:], []byte("ll")) || bytes.HasPrefix(buf[p:], []byte("LL"))):
			l = 2
			p += 2
		case l == 0 && (buf[p] == 'l' || buf[p] == 'L'):
			l = 1
			p += 1
		}
	}

	if p != tok.end() {
		return false
	}

	// Infer a type
	var ty *CType
	switch {
	case l == 2 && u:
		ty = TyULLong
	case l == 2:
		ty = TyLLong
		if base != 10 && val>>63 != 0 {
			ty = TyULLong
		}
	case l == 1 && u:
		ty = TyULong
	case l == 1:
		ty = TyLong
		if base != 10 && val>>63 != 0 {
			ty = TyULong
		}
	case u:
		ty = TyUInt
		if val>>32 != 0 {
			ty = TyULong
		}
	case base == 10:
		ty = TyInt
		if val>>31 != 0 {
			ty = TyLong
		}
	case val>>63 != 0:
		ty = TyULong
	case val>>32 != 0:
		ty = TyLong
	case val>>31 != 0:
		ty = TyUInt
	default:
		ty = TyInt
	}

	tok.Kind = TK_NUM
	tok.Value = int64(val)
	tok.Ty = ty
	return true
}

// The definition of the numeric literal at the preprocessing stage
// is more relaxed than the definition of that at the later stages.
// In order to handle that, a numeric literal is tokenized as a
// "pp-number" token first and then converted to a regular number
// token after preprocessing.
func convertPpNumber(tok *Token) {
	// Try to parse as an integer constant.
	if convertPpInt(tok) {
		return
	}

	text := tok.getText()
	ty := TyDouble
	switch text[len(text)-1] {
	case 'f', 'F':
		if !bytes.HasPrefix([]byte(text), []byte("0x")) && !bytes.HasPrefix([]byte(text), []byte("0X")) || bytes.ContainsAny([]byte(text), "pP") {
			ty = TyFloat
			text = text[:len(text)-1]
		}
	case 'l', 'L':
		ty = TyLDouble
		text = text[:len(text)-1]
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		errorTok(tok, "invalid numeric constant")
	}

	tok.Kind = TK_NUM
	tok.FloatValue = value
	tok.Ty = ty
}

// convertPpTokens runs after preprocessing: keywords get their kind and
// pp-numbers become numbers.
func convertPpTokens(tok *Token) {
	for t := tok; t != nil && t.Kind != TK_EOF; t = t.Next {
		if t.Kind == TK_IDENT && t.isKeyword() {
			t.Kind = TK_KEYWORD
		} else if t.Kind == TK_PP_NUM {
			convertPpNumber(t)
		}
	}
}

// Read a punctuator token from p and returns its length.
func readPunct(src []byte, p int) int {
	punctuators := []string{
		"<<=", ">>=", "...", "==", "!=", "<=", ">=", "->", "+=",
		"-=", "*=", "/=", "++", "--", "%=", "&=", "|=", "^=", "&&",
		"||", "<<", ">>", "##",
	}

	for _, punct := range punctuators {
		if bytes.HasPrefix(src[p:], []byte(punct)) {
			return len(punct)
		}
	}

	switch src[p] {
	case '<', '>', '=', '-', '!', '&', '|', '%', '(', ')', '[', ']', '{', '}', ';', ':',
		'#', ',', '.', '+', '*', '/', '?', '~', '^', '`', '@':
		return 1
	}
	return 0
}

// Tokenize a given buffer and returns new tokens.
func tokenize(file *File) *Token {
	t := &tokenizer{file: file, atBeginningOfLine: true, lineNo: 1}
	src := file.Contents

	p := 0

	head := Token{}
	cur := &head

	for src[p] != 0 {
		// Skip line comments.
		if src[p] == '/' && src[p+1] == '/' {
			p += 2
			for src[p] != '\n' && src[p] != 0 {
				p += 1
			}
			t.hasSpace = true
			continue
		}

		// Skip block comments
		if src[p] == '/' && src[p+1] == '*' {
			q := bytes.Index(src[p+2:], []byte("*/"))
			if q < 0 {
				t.errorAt(p, "unclosed block comment")
			}
			t.lineNo += bytes.Count(src[p:p+2+q], []byte("\n"))
			p += q + 4
			t.hasSpace = true
			continue
		}

		// Line splices between tokens.
		if src[p] == '\\' && (src[p+1] == '\n' || (src[p+1] == '\r' && src[p+2] == '\n')) {
			for src[p] != '\n' {
				p += 1
			}
			p += 1
			t.lineNo += 1
			t.hasSpace = true
			continue
		}

		// Skip newline.
		if src[p] == '\n' {
			p += 1
			t.lineNo += 1
			t.atBeginningOfLine = true
			t.hasSpace = false
			continue
		}

		// Skip whitespace characters.
		if src[p] == ' ' || src[p] == '\t' || src[p] == '\v' || src[p] == '\f' || src[p] == '\r' {
			p += 1
			t.hasSpace = true
			continue
		}

		// Numeric literal
		if isDecimalDigit(src[p]) || (src[p] == '.' && isDecimalDigit(src[p+1])) {
			q := p
			p += 1
			for {
				if (src[p] == 'e' || src[p] == 'E' || src[p] == 'p' || src[p] == 'P') && (src[p+1] == '+' || src[p+1] == '-') {
					p += 2
				} else if isAlphaNumber(src[p]) || src[p] == '.' || (src[p] == '\'' && isAlphaNumber(src[p+1])) {
					p += 1
				} else {
					break
				}
			}
			cur.Next = t.newToken(TK_PP_NUM, q, p)
			cur = cur.Next
			continue
		}

		// String literal
		if src[p] == '"' {
			cur.Next = t.readStringLiteral(p, p)
			cur = cur.Next
			p += cur.Length
			continue
		}

		// UTF-8 string literal
		if src[p] == 'u' && src[p+1] == '8' && src[p+2] == '"' {
			cur.Next = t.readStringLiteral(p, p+2)
			cur = cur.Next
			p += cur.Length
			continue
		}

		// UTF-16 string literal
		if src[p] == 'u' && src[p+1] == '"' {
			cur.Next = t.readWideStringLiteral(p, p+1, TyUShort)
			cur = cur.Next
			p += cur.Length
			continue
		}

		// UTF-32 string literal
		if src[p] == 'U' && src[p+1] == '"' {
			cur.Next = t.readWideStringLiteral(p, p+1, TyUInt)
			cur = cur.Next
			p += cur.Length
			continue
		}

		// Wide string literal
		if src[p] == 'L' && src[p+1] == '"' {
			cur.Next = t.readWideStringLiteral(p, p+1, TyInt)
			cur = cur.Next
			p += cur.Length
			continue
		}

		// Character literal
		if src[p] == '\'' {
			cur.Next = t.readCharLiteral(p, p, TyInt)
			cur = cur.Next
			cur.Value = int64(int8(cur.Value))
			p += cur.Length
			continue
		}

		// UTF-8 character literal
		if src[p] == 'u' && src[p+1] == '8' && src[p+2] == '\'' {
			cur.Next = t.readCharLiteral(p, p+2, TyUChar)
			cur = cur.Next
			cur.Value &= 0xFF
			p += cur.Length
			continue
		}

		// UTF-16 character literal
		if src[p] == 'u' && src[p+1] == '\'' {
			cur.Next = t.readCharLiteral(p, p+1, TyUShort)
			cur = cur.Next
			cur.Value &= 0xFFFF
			p += cur.Length
			continue
		}

		// UTF-32 character literal
		if src[p] == 'U' && src[p+1] == '\'' {
			cur.Next = t.readCharLiteral(p, p+1, TyUInt)
			cur = cur.Next
			p += cur.Length
			continue
		}

		// Wide character literal
		if src[p] == 'L' && src[p+1] == '\'' {
			cur.Next = t.readCharLiteral(p, p+1, TyInt)
			cur = cur.Next
			p += cur.Length
			continue
		}

		// Identifier or keyword
		identLength := readIdent(src, p)
		if identLength != 0 {
			cur.Next = t.newToken(TK_IDENT, p, p+identLength)
			cur = cur.Next
			p += cur.Length
			continue
		}

		// Punctuators
		punctLen := readPunct(src, p)
		if punctLen > 0 {
			cur.Next = t.newToken(TK_PUNCT, p, p+punctLen)
			cur = cur.Next
			p += cur.Length
			continue
		}

		t.errorAt(p, "invalid token")
	}

	cur.Next = t.newToken(TK_EOF, p, p)
	return head.Next
}

// newFile wraps contents in a File, making sure that the last line is
// properly terminated and the buffer carries its NUL sentinel.
func newFile(name string, fileNo int, contents []byte) *File {
	// UTF-8 texts may start with a 3-byte "BOM" marker sequence.
	// It is blanked so that offsets still match the input.
	buf := make([]byte, 0, len(contents)+2)
	buf = append(buf, contents...)
	if bytes.HasPrefix(buf, []byte("\xef\xbb\xbf")) {
		copy(buf, "   ")
	}

	size := len(buf)
	if size == 0 || buf[size-1] != '\n' {
		buf = append(buf, '\n')
	}
	buf = append(buf, 0)

	return &File{
		Name:     name,
		FileNo:   fileNo,
		Contents: buf,
		Size:     size,
	}
}

// Returns the contents of a given file.
func readFile(path string) ([]byte, error) {
	if path == "-" {
		// By convention, read from stdin if a given filename is "-"
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
