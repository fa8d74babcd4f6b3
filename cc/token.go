package cc

import (
	"fmt"
	"unicode/utf8"
)

type TokenKind int

const (
	TK_IDENT   TokenKind = iota // Identifiers
	TK_PUNCT                    // Punctuators
	TK_KEYWORD                  // Keywords
	TK_STR                      // String literals
	TK_NUM                      // Numeric literals
	TK_PP_NUM                   // Preprocessing numbers
	TK_EOF                      // End-of-file markers
)

// File is one source buffer. Contents always ends with a newline followed
// by a NUL sentinel; Size is the length of the text as read.
type File struct {
	Name     string
	FileNo   int
	Contents []byte
	Size     int

	// Builtin marks the synthetic buffers of the header model.
	Builtin bool

	once bool // #pragma once
}

// Text returns the source text as read, without the sentinel.
func (f *File) Text() []byte {
	return f.Contents[:f.Size]
}

type Token struct {
	Kind          TokenKind // Token kind
	Next          *Token    // Next token
	Value         int64     // If kind is TK_NUM, its value
	FloatValue    float64   // If kind is TK_NUM, its value
	Location      int       // Token location
	Length        int       // Token length
	Ty            *CType    // Used if TK_NUM or TK_STR
	StringLiteral []byte    // String literal contents including terminating '\0'

	File              *File    // Source location
	LineNo            int      // Line number
	AtBeginningOfLine bool     // True if this token is at beginning of line
	HasSpace          bool     // True if this token follows a space character
	Hideset           *hideset // Macros that must not expand this token again
	Origin            *Token   // If this is expanded from a macro body, the invocation

	macroArg bool // substituted from a macro argument
}

// Position is a resolved source location.
type Position struct {
	File   string `json:"file"   yaml:"file"`
	Line   int    `json:"line"   yaml:"line"`
	Column int    `json:"column" yaml:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

func (tok *Token) copy() *Token {
	t := &Token{}
	*t = *tok
	t.Next = nil
	return t
}

func (tok *Token) getText() string {
	return string(tok.File.Contents[tok.Location : tok.Location+tok.Length])
}

func (tok *Token) getIdent() string {
	if tok.Kind != TK_IDENT {
		errorTok(tok, "expected an identifier")
	}
	return tok.getText()
}

func (tok *Token) isEqual(s string) bool {
	return tok.Length == len(s) && string(tok.File.Contents[tok.Location:tok.Location+tok.Length]) == s
}

// source returns the token a diagnostic should point at: the macro
// invocation for expanded tokens, the token itself otherwise.
func (tok *Token) source() *Token {
	for tok.Origin != nil {
		tok = tok.Origin
	}
	return tok
}

// Pos returns the line and the 1-based column of tok, counting runes.
func (tok *Token) Pos() Position {
	tok = tok.source()
	buf := tok.File.Contents
	line := tok.Location
	for line > 0 && buf[line-1] != '\n' {
		line--
	}
	return Position{
		File:   tok.File.Name,
		Line:   tok.LineNo,
		Column: utf8.RuneCount(buf[line:tok.Location]) + 1,
	}
}

// end returns the offset just past tok.
func (tok *Token) end() int {
	return tok.Location + tok.Length
}
