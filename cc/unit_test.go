package cc

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thradams/local-functions/log"
)

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.c"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReadInput))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseFile_IncludePaths(t *testing.T) {
	dir := t.TempDir()
	inc := filepath.Join(dir, "include")
	require.NoError(t, os.Mkdir(inc, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inc, "shape.h"), []byte(`
#pragma once
struct shape { int w, h; };
`), 0o644))

	path := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(path, []byte(`#include "shape.h"
#include <shape.h>
int main(void) {
  int (*area)(struct shape) = (int (struct shape s)) { return s.w * s.h; };
  struct shape sq = { 2, 2 };
  return area(sq);
}
`), 0o644))

	_, err := ParseFile(context.Background(), path)
	require.Error(t, err, "shape.h is not next to main.c")

	tu, err := ParseFile(context.Background(), path, WithIncludePaths(inc))
	require.NoError(t, err)
	assert.NoError(t, tu.Err())
	assert.Len(t, tu.FuncLits, 1)
}

func TestParseSource_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParseSource(ctx, "t.c", []byte("#include <stddef.h>\nint x;\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), context.Canceled.Error())
}

func TestParseSource_Defines(t *testing.T) {
	src := `
#ifndef FACTOR
#error FACTOR is not defined
#endif
int main(void) {
  int (*f)(int) = (int (int x)) { return x * FACTOR; };
  return f(1);
}
`
	_, err := ParseSource(context.Background(), "t.c", []byte(src))
	require.Error(t, err)

	tu, err := ParseSource(context.Background(), "t.c", []byte(src), WithDefine("FACTOR", "3"))
	require.NoError(t, err)
	assert.NoError(t, tu.Err())

	tu, err = ParseSource(context.Background(), "t.c", []byte(src), WithDefine("FACTOR", ""))
	require.NoError(t, err)
	assert.NoError(t, tu.Err())
}

func TestParseSource_BuiltinHeaders(t *testing.T) {
	tu := parse(t, `#include <stdlib.h>
#include <string.h>
#include <stdio.h>
#include <sys/unknown.h>

int main(void) {
  char *s = malloc(4);
  strcpy(s, "abc");
  size_t (*len)(const char *) = (size_t (const char *p)) { return strlen(p); };
  printf("%zu\n", len(s));
  free(s);
  return 0;
}
`)
	assert.NoError(t, tu.Err())
}

func TestParseSource_LogsFunctions(t *testing.T) {
	var buf bytes.Buffer
	logger := log.Make(&buf, log.WithLevel(log.LevelDebug), log.WithFormat(log.FormatJSON))

	parse(t, `
int main(void) {
  int (*f)(void) = (int (void)) { return 1; };
  return f();
}
`, WithLogger(logger))
	assert.Contains(t, buf.String(), `"name":"__unnamed_fn_0"`)
}

func TestTranslationUnit_Symbols(t *testing.T) {
	tu := parse(t, `int main(void) {
  typedef struct { int v; } box;
  int (*f)(box) = (int (box b)) {
    int (*g)(void) = (int (void)) { return 1; };
    return b.v + g();
  };
  box b = { 1 };
  return f(b);
}
`)
	require.NoError(t, tu.Err())

	want := []Symbol{
		{
			Name:      "__unnamed_fn_0",
			Signature: "static int __unnamed_fn_0(box b)",
			Pos:       Position{File: "t.c", Line: 3, Column: 19},
			Deps:      []string{"typedef box"},
		},
		{
			Name:      "__unnamed_fn_1",
			Signature: "static int __unnamed_fn_1(void)",
			Pos:       Position{File: "t.c", Line: 4, Column: 22},
			Parent:    "__unnamed_fn_0",
		},
	}
	if diff := cmp.Diff(want, tu.Symbols()); diff != "" {
		t.Errorf("Symbols() mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslationUnit_SymbolsMatchDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    string
		wrapped bool // the definition keeps the line break
	}{
		{
			name: "parameter names",
			src: `int main(void) {
  int (*f)(int, char *) = (int (int count, char *name)) { return count + *name; };
  return f(1, "a");
}
`,
			want: "static int __unnamed_fn_0(int count, char *name)",
		},
		{
			name: "returns a function pointer",
			src: `int main(void) {
  int (*(*f)(int))(char) = (int (*(int a))(char)) { return 0; };
  return f(1) == 0;
}
`,
			want: "static int (*__unnamed_fn_0(int a))(char)",
		},
		{
			name: "type name over several lines",
			src: `int main(void) {
  unsigned long (*f)(int, int) = (unsigned long (int a,
                                                 int b)) { return a + b; };
  return (int)f(1, 2);
}
`,
			want:    "static unsigned long __unnamed_fn_0(int a, int b)",
			wrapped: true,
		},
		{
			name: "typedef of the function type",
			src: `typedef int binop(int, int);
int main(void) {
  binop *add = (binop) { return 0; };
  return add(1, 2);
}
`,
			want: "static int __unnamed_fn_0(int __arg0, int __arg1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := parse(t, tt.src, WithLineMarkers(false))
			require.NoError(t, tu.Err())

			syms := tu.Symbols()
			require.Len(t, syms, 1)
			assert.Equal(t, tt.want, syms[0].Signature)

			if !tt.wrapped {
				var sb strings.Builder
				require.NoError(t, tu.Lower(&sb))
				assert.Contains(t, sb.String(), syms[0].Signature)
			}
		})
	}
}

func TestDiagnostic_Format(t *testing.T) {
	tu := parse(t, `int main(void) {
  int i = 1;
  int (*f)(void) = (int (void)) { return i; };
  return f();
}
`)
	require.Len(t, tu.Diagnostics, 1)

	var buf bytes.Buffer
	require.NoError(t, tu.Diagnostics.Format(&buf, false))

	want := `t.c:3:42: error: capture-not-allowed: unnamed function cannot use 'i' of the enclosing function
    3 |   int (*f)(void) = (int (void)) { return i; };
      |                                          ^
t.c:2:7: note: 'i' declared here
    2 |   int i = 1;
      |       ^
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Format() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "t.c:3:42: error: capture-not-allowed: unnamed function cannot use 'i' of the enclosing function",
		tu.Diagnostics[0].Error())
}

func TestTypeString(t *testing.T) {
	tu := parse(t, `
typedef int cmp_fn(const void *, const void *);
int (*handlers[4])(int, ...);
char (*grid)[3];
unsigned short u;
int * const cp;
cmp_fn *sorter;
`)
	got := map[string]string{}
	for v := tu.Globals; v != nil; v = v.Next {
		got[v.Name] = typeString(v.Ty)
	}

	want := map[string]string{
		"handlers": "int (*[4])(int, ...)",
		"grid":     "char (*)[3]",
		"u":        "unsigned short",
		"cp":       "int * const",
		"sorter":   "cmp_fn *",
	}
	for name, ty := range want {
		assert.Equal(t, ty, got[name], name)
	}
}
