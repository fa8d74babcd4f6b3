package cc

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lower(t *testing.T, src string, opts ...Option) string {
	t.Helper()
	tu := parse(t, src, append([]Option{WithLineMarkers(false)}, opts...)...)
	require.NoError(t, tu.Err())

	var sb strings.Builder
	require.NoError(t, tu.Lower(&sb))
	return sb.String()
}

func TestLower_Golden(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "argument",
			src: `int apply(int (*f)(int), int v) { return f(v); }
int main(void) {
  return apply((int (int x)) { return x * 2; }, 21);
}
`,
			want: `int apply(int (*f)(int), int v) { return f(v); }
static int __unnamed_fn_0(int x) { return x * 2; }
int main(void) {
  return apply(__unnamed_fn_0, 21);
}
`,
		},
		{
			name: "block scope declarations",
			src: `int main(void) {
  typedef struct { int v; } box;
  enum { K = 4 };
  int (*f)(box) = (int (box b)) { return b.v * K; };
  box b = { 10 };
  return f(b);
}
`,
			want: `typedef struct { int v; } box;
enum { K = 4 };
static int __unnamed_fn_0(box b) { return b.v * K; }
int main(void) {
` + "  \n  \n" + `  int (*f)(box) = __unnamed_fn_0;
  box b = { 10 };
  return f(b);
}
`,
		},
		{
			name: "block scope tag with declarators",
			src: `int main(void) {
  struct pt { int x, y; } p = { 1, 2 };
  int (*f)(struct pt *) = (int (struct pt *q)) { return q->x + q->y; };
  return f(&p);
}
`,
			want: `struct pt { int x, y; };
static int __unnamed_fn_0(struct pt *q) { return q->x + q->y; }
int main(void) {
  struct pt p = { 1, 2 };
  int (*f)(struct pt *) = __unnamed_fn_0;
  return f(&p);
}
`,
		},
		{
			name: "block scope declaration after a comment",
			src: `int main(void) {
  /* kept */ struct S { int v; };
  struct S s = { 3 };
  int (*f)(struct S *) = (int (struct S *p)) { return p->v; };
  return f(&s);
}
`,
			want: `struct S { int v; };
static int __unnamed_fn_0(struct S *p) { return p->v; }
int main(void) {
  /* kept */ struct S { int v; };
  struct S s = { 3 };
  int (*f)(struct S *) = __unnamed_fn_0;
  return f(&s);
}
`,
		},
		{
			name: "nested",
			src: `int main(void) {
  int (*f)(int) = (int (int a)) {
    int (*g)(int) = (int (int b)) { return b + 1; };
    return g(a);
  };
  return f(1);
}
`,
			want: `static int __unnamed_fn_1(int b) { return b + 1; }
static int __unnamed_fn_0(int a) {
    int (*g)(int) = __unnamed_fn_1;
    return g(a);
  }
int main(void) {
  int (*f)(int) = __unnamed_fn_0


;
  return f(1);
}
`,
		},
		{
			name: "unevaluated reference",
			src: `int main(void) {
  int i = 0;
  unsigned long (*f)(void) = (unsigned long (void)) { return sizeof(i); };
  return (int)f() + i;
}
`,
			want: `static unsigned long __unnamed_fn_0(void) { return sizeof((*(int *)0)); }
int main(void) {
  int i = 0;
  unsigned long (*f)(void) = __unnamed_fn_0;
  return (int)f() + i;
}
`,
		},
		{
			name: "returns a function pointer",
			src: `int main(void) {
  int (*(*f)(int))(char) = (int (*(int a))(char)) { return 0; };
  return f(1) == 0;
}
`,
			want: `static int (*__unnamed_fn_0(int a))(char) { return 0; }
int main(void) {
  int (*(*f)(int))(char) = __unnamed_fn_0;
  return f(1) == 0;
}
`,
		},
		{
			name: "block scope extern",
			src: `int main(void) {
  extern int shared;
  int (*f)(void) = (int (void)) { return shared; };
  return f();
}
int shared = 5;
`,
			want: `extern int shared;
static int __unnamed_fn_0(void) { return shared; }
int main(void) {
  extern int shared;
  int (*f)(void) = __unnamed_fn_0;
  return f();
}
int shared = 5;
`,
		},
		{
			name: "file scope initializer",
			src: `int (*table[])(int) = {
  (int (int a)) { return a; },
  (int (int a)) { return -a; },
};
`,
			want: `static int __unnamed_fn_0(int a) { return a; }
static int __unnamed_fn_1(int a) { return -a; }
int (*table[])(int) = {
  __unnamed_fn_0,
  __unnamed_fn_1,
};
`,
		},
		{
			name: "typedef of the function type",
			src: `typedef int binop(int, int);
int main(void) {
  binop *add = (binop) { return 0; };
  return add(1, 2);
}
`,
			want: `typedef int binop(int, int);
static int __unnamed_fn_0(int __arg0, int __arg1) { return 0; }
int main(void) {
  binop *add = __unnamed_fn_0;
  return add(1, 2);
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lower(t, tt.src)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Lower() mismatch (-want +got):\n%s", diff)
			}

			// The output is plain C.
			again := parse(t, got)
			assert.NoError(t, again.Err())
			assert.Empty(t, again.FuncLits)
		})
	}
}

func TestLower_LineMarkers(t *testing.T) {
	tu := parse(t, `int apply(int (*f)(int), int v) { return f(v); }
int main(void) {
  return apply((int (int x)) {
    return x * 2;
  }, 21);
}
`)
	var sb strings.Builder
	require.NoError(t, tu.Lower(&sb))

	want := `int apply(int (*f)(int), int v) { return f(v); }
#line 3 "t.c"
static int __unnamed_fn_0(int x) {
    return x * 2;
  }
#line 2 "t.c"
int main(void) {
  return apply(__unnamed_fn_0

, 21);
}
`
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("Lower() mismatch (-want +got):\n%s", diff)
	}
}

func TestLower_ForwardDeclaresEnclosingFunction(t *testing.T) {
	got := lower(t, `static int fact(int n) {
  int (*step)(int) = (int (int k)) { return k <= 1 ? 1 : k * fact(k - 1); };
  return step(n);
}
`)
	want := `static int fact(int n);
static int __unnamed_fn_0(int k) { return k <= 1 ? 1 : k * fact(k - 1); }
static int fact(int n) {
  int (*step)(int) = __unnamed_fn_0;
  return step(n);
}
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lower() mismatch (-want +got):\n%s", diff)
	}
}

func TestLower_RefusesUnitWithErrors(t *testing.T) {
	tu := parse(t, `
int main(void) {
  int i = 1;
  int (*f)(void) = (int (void)) { return i; };
  return f();
}
`)
	var sb strings.Builder
	err := tu.Lower(&sb)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapture))
	assert.Empty(t, sb.String())
}

func TestLower_HoistConflict(t *testing.T) {
	tu := parse(t, `typedef int box;
int main(void) {
  typedef struct { int v; } box;
  int (*f)(box) = (int (box b)) { return b.v; };
  box b = { 1 };
  return f(b);
}
`)
	require.NoError(t, tu.Err())

	var sb strings.Builder
	err := tu.Lower(&sb)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHoistConflict))
}

func TestLower_SameTagInTwoFunctions(t *testing.T) {
	tu := parse(t, `int a(void) {
  struct S { int v; };
  int (*f)(struct S *) = (int (struct S *s)) { return s->v; };
  struct S s = { 1 };
  return f(&s);
}
int b(void) {
  struct S { long w; };
  long (*g)(struct S *) = (long (struct S *s)) { return s->w; };
  struct S s = { 2 };
  return (int)g(&s);
}
`)
	require.NoError(t, tu.Err())

	var sb strings.Builder
	err := tu.Lower(&sb)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHoistConflict))
	assert.Empty(t, sb.String())

	var diags DiagnosticList
	require.True(t, errors.As(err, &diags))
	require.Len(t, diags, 1)
	assert.Equal(t, CodeHoistConflict, diags[0].Code)
	assert.Equal(t, 8, diags[0].Pos.Line)
	assert.Contains(t, diags[0].Message, "'S'")
	require.Len(t, diags[0].Notes, 1)
	assert.Equal(t, 2, diags[0].Notes[0].Pos.Line)
}

func TestLower_MacroBody(t *testing.T) {
	tu := parse(t, `#define ONE ((int (void)) { return 1; })
int main(void) {
  int (*f)(void) = ONE;
  return f();
}
`)
	require.NoError(t, tu.Err())
	require.Len(t, tu.FuncLits, 1)

	var sb strings.Builder
	err := tu.Lower(&sb)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnlowerable))
}

func TestLower_MacroArgument(t *testing.T) {
	got := lower(t, `#define CALL(f, v) (f)(v)
int main(void) {
  return CALL((int (int x)) { return x; }, 0);
}
`)
	want := `#define CALL(f, v) (f)(v)
static int __unnamed_fn_0(int x) { return x; }
int main(void) {
  return CALL(__unnamed_fn_0, 0);
}
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lower() mismatch (-want +got):\n%s", diff)
	}
}

// compileAndRun lowers src, builds the result with the host C compiler
// and returns what the program prints.
func compileAndRun(t *testing.T, name, src string) string {
	t.Helper()
	compiler, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("no C compiler found")
	}

	tu, err := ParseSource(context.Background(), name+".c", []byte(src))
	require.NoError(t, err)
	require.NoError(t, tu.Err())

	dir := t.TempDir()
	lowered := filepath.Join(dir, name+".c")
	out, err := os.Create(lowered)
	require.NoError(t, err)
	require.NoError(t, tu.Lower(out))
	require.NoError(t, out.Close())

	bin := filepath.Join(dir, name)
	build := exec.Command(compiler, "-std=c11", "-Werror=incompatible-pointer-types", "-o", bin, lowered)
	msg, err := build.CombinedOutput()
	require.NoError(t, err, string(msg))

	res, err := exec.Command(bin).Output()
	require.NoError(t, err)
	return string(res)
}

func TestLower_CompileAndRun(t *testing.T) {
	got := compileAndRun(t, "sort", `#include <stdio.h>
#include <stdlib.h>

int main(void) {
  int a[] = { 3, 1, 2 };
  qsort(a, 3, sizeof a[0], (int (const void *x, const void *y)) {
    return *(const int *)x - *(const int *)y;
  });
  printf("%d %d %d\n", a[0], a[1], a[2]);
  return 0;
}
`)
	assert.Equal(t, "1 2 3\n", got)
}

// Block-scope types used by a hoisted function must stay compatible
// with the ones the enclosing function uses.
func TestLower_CompileBlockScopeTypes(t *testing.T) {
	got := compileAndRun(t, "types", `#include <stdio.h>

int main(void) {
  typedef struct { int v; } box;
  struct pt { int x, y; } p = { 1, 2 };
  struct acc { int sum; };
  int (*f)(box *, struct pt *) = (int (box *b, struct pt *q)) { return b->v + q->x + q->y; };
  void (*g)(struct acc *, int) = (void (struct acc *a, int n)) { a->sum += n; };
  box b = { 4 };
  struct acc a = { 0 };
  g(&a, f(&b, &p));
  printf("%d\n", a.sum);
  return 0;
}
`)
	assert.Equal(t, "7\n", got)
}
