package cmd

import (
	"encoding/json"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thradams/local-functions/cc"
)

const nestedSource = `int main(void) {
  int (*f)(int) = (int (int a)) {
    int (*g)(void) = (int (void)) { return 1; };
    return a + g();
  };
  return f(1);
}
`

func TestSymbols_Text(t *testing.T) {
	var s streams
	cmd := &Symbols{Format: "text", Source: "-"}

	require.NoError(t, cmd.Run(s.context(nestedSource), frontend()))

	want := "<stdin>:2:19\tstatic int __unnamed_fn_0(int a)\n" +
		"<stdin>:3:22\tstatic int __unnamed_fn_1(void)\tin __unnamed_fn_0\n"
	assert.Equal(t, want, s.out.String())
}

func TestSymbols_Structured(t *testing.T) {
	want := []cc.Symbol{
		{
			Name:      "__unnamed_fn_0",
			Signature: "static int __unnamed_fn_0(int a)",
			Pos:       cc.Position{File: "<stdin>", Line: 2, Column: 19},
		},
		{
			Name:      "__unnamed_fn_1",
			Signature: "static int __unnamed_fn_1(void)",
			Pos:       cc.Position{File: "<stdin>", Line: 3, Column: 22},
			Parent:    "__unnamed_fn_0",
		},
	}

	tests := []struct {
		format    string
		unmarshal func([]byte, any) error
	}{
		{format: "json", unmarshal: json.Unmarshal},
		{format: "yaml", unmarshal: func(b []byte, v any) error { return yaml.Unmarshal(b, v) }},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var s streams
			cmd := &Symbols{Format: tt.format, Source: "-"}
			require.NoError(t, cmd.Run(s.context(nestedSource), frontend()))

			var got []cc.Symbol
			require.NoError(t, tt.unmarshal(s.out.Bytes(), &got))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("symbols mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
