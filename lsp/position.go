package lsp

import (
	"strings"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/thradams/local-functions/cc"
)

// utf16Len returns the number of UTF-16 code units of s.
func utf16Len(s string) uint32 {
	var n uint32
	for _, r := range s {
		k := utf16.RuneLen(r)
		if k < 0 {
			k = 1
		}
		n += uint32(k)
	}
	return n
}

// runePrefix returns the prefix of line before the 1-based rune column col.
func runePrefix(line string, col int) string {
	i := 1
	for off := range line {
		if i >= col {
			return line[:off]
		}
		i++
	}
	return line
}

// toPosition converts a 1-based line and rune column within line to a
// 0-based LSP position counting UTF-16 code units.
func toPosition(line string, p cc.Position) protocol.Position {
	var pos protocol.Position
	if p.Line > 0 {
		pos.Line = uint32(p.Line - 1)
	}
	if p.Column > 0 {
		pos.Character = utf16Len(runePrefix(line, p.Column))
	}
	return pos
}

// toRange returns the range of n bytes at p. The range never extends
// past the end of line and is at least one character wide.
func toRange(line string, p cc.Position, n int) protocol.Range {
	start := toPosition(line, p)
	prefix := runePrefix(line, p.Column)
	rest := line[len(prefix):]
	if n > len(rest) {
		n = len(rest)
	}
	width := utf16Len(rest[:n])
	if width == 0 {
		width = 1
	}
	end := start
	end.Character += width
	return protocol.Range{Start: start, End: end}
}

// lines splits a document into lines for position conversion.
type lines []string

func splitLines(text string) lines {
	return strings.Split(text, "\n")
}

func (ls lines) line(n int) string {
	if n < 1 || n > len(ls) {
		return ""
	}
	return strings.TrimSuffix(ls[n-1], "\r")
}

func (ls lines) position(p cc.Position) protocol.Position {
	return toPosition(ls.line(p.Line), p)
}
