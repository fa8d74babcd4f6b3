package cmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodSource = `int apply(int (*f)(int), int v) { return f(v); }
int main(void) {
  return apply((int (int x)) { return x * 2; }, 21);
}
`

const captureSource = `int main(void) {
  int i = 1;
  int (*f)(void) = (int (void)) { return i; };
  return f();
}
`

// streams runs commands against in-memory streams.
type streams struct {
	out, err bytes.Buffer
}

func (s *streams) context(stdin string) context.Context {
	return WithStreams(context.Background(), Streams{
		In:  strings.NewReader(stdin),
		Out: &s.out,
		Err: &s.err,
	})
}

func frontend() *Frontend {
	return &Frontend{Color: "never"}
}

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLower_Stdin(t *testing.T) {
	var s streams
	l := &Lower{Output: "-", Source: "-"}

	require.NoError(t, l.Run(s.context(goodSource), frontend()))
	assert.Contains(t, s.out.String(), "static int __unnamed_fn_0(int x) { return x * 2; }")
	assert.Contains(t, s.out.String(), "return apply(__unnamed_fn_0, 21);")
	assert.Empty(t, s.err.String())
}

func TestLower_OutputFile(t *testing.T) {
	var s streams
	src := writeSource(t, "main.c", goodSource)
	out := filepath.Join(t.TempDir(), "lowered.c")

	l := &Lower{Output: out, Source: src}
	require.NoError(t, l.Run(s.context(""), &Frontend{Color: "never", Line: true}))
	assert.Empty(t, s.out.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `#line 3 "`+src+`"`)
}

func TestLower_Diagnostics(t *testing.T) {
	var s streams
	l := &Lower{Output: "-", Source: "-"}

	err := l.Run(s.context(captureSource), frontend())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiagnostics))
	assert.Empty(t, s.out.String())
	assert.Contains(t, s.err.String(), "<stdin>:3:42: error: capture-not-allowed:")
	assert.Contains(t, s.err.String(), "note: 'i' declared here")
}

func TestLower_SyntaxError(t *testing.T) {
	var s streams
	l := &Lower{Output: "-", Source: "-"}

	err := l.Run(s.context("int main(void) {\n  return\n}\n"), frontend())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiagnostics))
	assert.Contains(t, s.err.String(), "<stdin>:3:1: error:")
}

func TestLower_Unlowerable(t *testing.T) {
	var s streams
	l := &Lower{Output: "-", Source: "-"}

	err := l.Run(s.context(`#define ONE ((int (void)) { return 1; })
int main(void) {
  int (*f)(void) = ONE;
  return f();
}
`), frontend())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiagnostics))
	assert.Contains(t, s.err.String(), "unlowerable-occurrence")
	assert.Empty(t, s.out.String())
}

func TestLower_MissingFile(t *testing.T) {
	var s streams
	l := &Lower{Output: "-", Source: filepath.Join(t.TempDir(), "missing.c")}

	err := l.Run(s.context(""), frontend())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFrontend_Options(t *testing.T) {
	src := `#ifndef FACTOR
#error FACTOR is not defined
#endif
int main(void) {
  int (*f)(int) = (int (int x)) { return x * FACTOR; };
  return f(1);
}
`
	var s streams
	l := &Lower{Output: "-", Source: "-"}
	require.Error(t, l.Run(s.context(src), frontend()))

	s = streams{}
	fe := &Frontend{Color: "never", Define: []string{"FACTOR=3"}, Prefix: "lambda_"}
	require.NoError(t, l.Run(s.context(src), fe))
	assert.Contains(t, s.out.String(), "static int lambda_0(int x) { return x * FACTOR; }")

	s = streams{}
	fe = &Frontend{Color: "never", Define: []string{"FACTOR"}}
	require.NoError(t, l.Run(s.context(src), fe))
}

func TestFrontend_IncludePaths(t *testing.T) {
	inc := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inc, "twice.h"), []byte("#define TWICE(x) ((x) * 2)\n"), 0o644))

	src := `#include "twice.h"
int main(void) {
  int (*f)(int) = (int (int x)) { return TWICE(x); };
  return f(1);
}
`
	var s streams
	l := &Lower{Output: "-", Source: "-"}
	require.Error(t, l.Run(s.context(src), frontend()))

	s = streams{}
	require.NoError(t, l.Run(s.context(src), &Frontend{Color: "never", Include: []string{inc}}))
}

func TestFrontend_UseColor(t *testing.T) {
	var buf bytes.Buffer

	assert.True(t, (&Frontend{Color: "always"}).useColor(&buf))
	assert.False(t, (&Frontend{Color: "never"}).useColor(&buf))
	assert.False(t, (&Frontend{Color: "auto"}).useColor(&buf))
}

func TestError(t *testing.T) {
	cause := errors.New("boom")
	err := ErrCompiler.Wrap(cause).With(slog.String("command", "cc"))

	assert.Equal(t, "C compiler failed: boom", err.Error())
	assert.True(t, errors.Is(err, ErrCompiler))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrDiagnostics))

	attrs := err.LogValue().Group()
	require.Len(t, attrs, 3)
	assert.Equal(t, "cause", attrs[1].Key)
	assert.Equal(t, "command", attrs[2].Key)
}
