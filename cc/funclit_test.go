package cc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string, opts ...Option) *TranslationUnit {
	t.Helper()
	tu, err := ParseSource(context.Background(), "t.c", []byte(src), opts...)
	require.NoError(t, err)
	return tu
}

// codes returns the codes of the errors of tu.
func codes(tu *TranslationUnit) []string {
	var out []string
	for _, d := range tu.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d.Code)
		}
	}
	return out
}

func litNames(tu *TranslationUnit) []string {
	var out []string
	for _, lit := range tu.FuncLits {
		out = append(out, lit.Name)
	}
	return out
}

func TestFuncLit_InLoop_OneSymbol(t *testing.T) {
	tu := parse(t, `
int main(void) {
  int sum = 0;
  for (int k = 0; k < 3; k++) {
    int (*f)(int) = (int (int a)) { return a + 1; };
    sum += f(k);
  }
  return sum;
}
`)
	assert.NoError(t, tu.Err())
	assert.Equal(t, []string{"__unnamed_fn_0"}, litNames(tu))
}

func TestFuncLit_TwoOccurrences_DistinctNames(t *testing.T) {
	tu := parse(t, `
int main(void) {
  int (*f)(void) = (int (void)) { return 1; };
  int (*g)(void) = (int (void)) { return 2; };
  return f() + g();
}
`)
	assert.NoError(t, tu.Err())
	assert.Equal(t, []string{"__unnamed_fn_0", "__unnamed_fn_1"}, litNames(tu))
}

func TestFuncLit_MacroArgumentUsedTwice(t *testing.T) {
	tu := parse(t, `
#define BOTH(x) ((void)(x), (x))
int main(void) {
  int (*f)(void) = BOTH((int (void)) { return 1; });
  return f();
}
`)
	assert.NoError(t, tu.Err())
	assert.Len(t, tu.FuncLits, 1)
}

func TestFuncLit_ArrayInitializerOfUnknownSize(t *testing.T) {
	tu := parse(t, `
int (*table[])(int) = {
  (int (int a)) { return a; },
  (int (int a)) { return -a; },
};
`)
	assert.NoError(t, tu.Err())
	assert.Equal(t, []string{"__unnamed_fn_0", "__unnamed_fn_1"}, litNames(tu))
}

func TestFuncLit_SkipsNamesSpelledInSource(t *testing.T) {
	tu := parse(t, `
int __unnamed_fn_0;
int main(void) {
  int (*f)(void) = (int (void)) { return 1; };
  return f() + __unnamed_fn_0;
}
`)
	assert.NoError(t, tu.Err())
	assert.Equal(t, []string{"__unnamed_fn_1"}, litNames(tu))
}

func TestFuncLit_Prefix(t *testing.T) {
	tu := parse(t, `
int main(void) {
  int (*f)(void) = (int (void)) { return 1; };
  return f();
}
`, WithPrefix("lambda_"))
	assert.Equal(t, []string{"lambda_0"}, litNames(tu))
}

func TestFuncLit_CompoundLiteralFallback(t *testing.T) {
	tu := parse(t, `
struct point { int x, y; };
int main(void) {
  int *p = (int[]){ 1, 2, 3 };
  struct point q = (struct point){ .x = 1, .y = 2 };
  int n = (int){ 4 };
  return p[0] + q.y + n;
}
`)
	assert.NoError(t, tu.Err())
	assert.Empty(t, tu.FuncLits)
}

func TestFuncLit_DeclaratorNotAFunctionType(t *testing.T) {
	_, err := ParseSource(context.Background(), "t.c", []byte(`
int main(void) {
  int x = (int) { return 1; };
  return x;
}
`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeclaratorNotFunction))

	d, ok := asDiagnostic(err)
	require.True(t, ok)
	assert.Equal(t, CodeDeclaratorNotFunc, d.Code)
	assert.Equal(t, 3, d.Pos.Line)
	assert.Contains(t, d.Message, "'int'")
	require.Len(t, d.Notes, 1)
}

func TestFuncLit_Nested(t *testing.T) {
	tu := parse(t, `
int main(void) {
  int (*f)(int) = (int (int a)) {
    int (*g)(int) = (int (int b)) { return b + 1; };
    return g(a);
  };
  return f(1);
}
`)
	assert.NoError(t, tu.Err())
	require.Len(t, tu.FuncLits, 2)

	inner, outer := tu.FuncLits[0], tu.FuncLits[1]
	assert.Equal(t, "__unnamed_fn_1", inner.Name)
	assert.Equal(t, "__unnamed_fn_0", outer.Name)
	assert.Same(t, outer, inner.Parent)
	assert.Equal(t, []*FuncLit{inner}, outer.Children)
}

func TestFuncLit_TypeNameScoping(t *testing.T) {
	t.Run("result tag visible afterwards", func(t *testing.T) {
		tu := parse(t, `
int main(void) {
  (struct X { int i; } (struct Y { int i; })) { struct X r = { 0 }; return r; };
  struct X x = { 1 };
  return x.i;
}
`)
		assert.NoError(t, tu.Err())
		assert.Len(t, tu.FuncLits, 1)
	})

	t.Run("parameter tag not visible afterwards", func(t *testing.T) {
		_, err := ParseSource(context.Background(), "t.c", []byte(`
int main(void) {
  (struct X { int i; } (struct Y { int i; })) { struct X r = { 0 }; return r; };
  struct Y y;
  return 0;
}
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "incomplete type")
	})

	t.Run("called without the parameter", func(t *testing.T) {
		_, err := ParseSource(context.Background(), "t.c", []byte(`
int main(void) {
  (struct X { int i; } (struct Y { int i; })) { struct X r = { 0 }; return r; }();
  return 0;
}
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too few arguments")
	})
}

func TestFuncLit_ReturnsArray(t *testing.T) {
	_, err := ParseSource(context.Background(), "t.c", []byte(`
typedef int arr[2];
int main(void) {
  (arr (void)) { return 0; };
  return 0;
}
`))
	require.Error(t, err)
}
