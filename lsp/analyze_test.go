package lsp

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/thradams/local-functions/cc"
)

const testURI = "file:///tmp/t.c"

func posAt(line, col int) cc.Position {
	return cc.Position{File: "t.c", Line: line, Column: col}
}

func TestAnalyze_Capture(t *testing.T) {
	res := Analyze(context.Background(), testURI, `int main(void) {
  int i = 1;
  int (*f)(void) = (int (void)) { return i; };
  return f();
}
`)
	require.Len(t, res.Diagnostics, 1)

	d := res.Diagnostics[0]
	want := protocol.Range{
		Start: protocol.Position{Line: 2, Character: 41},
		End:   protocol.Position{Line: 2, Character: 42},
	}
	if diff := cmp.Diff(want, d.Range); diff != "" {
		t.Errorf("Range mismatch (-want +got):\n%s", diff)
	}
	require.NotNil(t, d.Code)
	assert.Equal(t, "capture-not-allowed", d.Code.Value)
	require.NotNil(t, d.Severity)
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)

	require.Len(t, d.RelatedInformation, 1)
	rel := d.RelatedInformation[0]
	assert.Equal(t, protocol.DocumentUri(testURI), rel.Location.URI)
	assert.Equal(t, protocol.Position{Line: 1, Character: 6}, rel.Location.Range.Start)
}

func TestAnalyze_SyntaxError(t *testing.T) {
	res := Analyze(context.Background(), testURI, "int main(void) {\n  return\n}\n")
	require.Len(t, res.Diagnostics, 1)
	require.NotNil(t, res.Diagnostics[0].Code)
	assert.Equal(t, "syntax", res.Diagnostics[0].Code.Value)
	assert.Empty(t, res.Symbols)
}

func TestAnalyze_LoweringDiagnostics(t *testing.T) {
	res := Analyze(context.Background(), testURI, `#define ONE ((int (void)) { return 1; })
int main(void) {
  int (*f)(void) = ONE;
  return f();
}
`)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "unlowerable-occurrence", res.Diagnostics[0].Code.Value)
}

func TestAnalyze_Symbols(t *testing.T) {
	res := Analyze(context.Background(), testURI, `int main(void) {
  int (*f)(int) = (int (int a)) {
    int (*g)(void) = (int (void)) { return 1; };
    return a + g();
  };
  return f(1);
}
`)
	assert.Empty(t, res.Diagnostics)
	require.Len(t, res.Symbols, 1)

	outer := res.Symbols[0]
	assert.Equal(t, "__unnamed_fn_0", outer.Name)
	assert.Equal(t, protocol.SymbolKindFunction, outer.Kind)
	require.NotNil(t, outer.Detail)
	assert.Equal(t, "static int __unnamed_fn_0(int a)", *outer.Detail)
	assert.Equal(t, protocol.Position{Line: 1, Character: 18}, outer.Range.Start)
	assert.Equal(t, protocol.Position{Line: 4, Character: 3}, outer.Range.End)

	require.Len(t, outer.Children, 1)
	inner := outer.Children[0]
	assert.Equal(t, "__unnamed_fn_1", inner.Name)
	assert.Equal(t, protocol.Position{Line: 2, Character: 21}, inner.Range.Start)
}

func TestToRange_UTF16(t *testing.T) {
	tests := []struct {
		name string
		line string
		col  int
		n    int
		want protocol.Range
	}{
		{
			name: "ascii",
			line: "  return i;",
			col:  10,
			n:    1,
			want: protocol.Range{
				Start: protocol.Position{Character: 9},
				End:   protocol.Position{Character: 10},
			},
		},
		{
			name: "two byte rune before",
			line: "é x",
			col:  3,
			n:    1,
			want: protocol.Range{
				Start: protocol.Position{Character: 2},
				End:   protocol.Position{Character: 3},
			},
		},
		{
			name: "surrogate pair before",
			line: "a\U0001D11Eb",
			col:  3,
			n:    1,
			want: protocol.Range{
				Start: protocol.Position{Character: 3},
				End:   protocol.Position{Character: 4},
			},
		},
		{
			name: "clipped at end of line",
			line: "abc",
			col:  3,
			n:    10,
			want: protocol.Range{
				Start: protocol.Position{Character: 2},
				End:   protocol.Position{Character: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toRange(tt.line, posAt(1, tt.col), tt.n)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("toRange() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestURI(t *testing.T) {
	assert.Equal(t, "/tmp/a b.c", UriToPath("file:///tmp/a%20b.c"))
	assert.Equal(t, "", UriToPath("untitled:Untitled-1"))
	assert.Equal(t, "file:///tmp/a%20b.c", PathToURI("/tmp/a b.c"))
}
