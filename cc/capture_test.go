package cc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_Rejected(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{
			name: "evaluated use",
			src: `
int main(void) {
  int i = 1;
  int (*f)(void) = (int (void)) {
    return i;
  };
  return f();
}
`,
			line: 5,
		},
		{
			name: "assignment",
			src: `
int main(void) {
  int i = 1;
  void (*f)(void) = (void (void)) {
    i = 2;
  };
  f();
  return i;
}
`,
			line: 5,
		},
		{
			name: "static local",
			src: `
int main(void) {
  static int counter;
  int (*f)(void) = (int (void)) {
    return counter++;
  };
  return f();
}
`,
			line: 5,
		},
		{
			name: "constexpr local",
			src: `
int main(void) {
  constexpr int limit = 3;
  int (*f)(void) = (int (void)) {
    return limit;
  };
  return f();
}
`,
			line: 5,
		},
		{
			name: "size of a variable length array",
			src: `
int main(void) {
  int n = 3;
  int a[n];
  unsigned long (*f)(void) = (unsigned long (void)) {
    return sizeof(a);
  };
  return (int)f();
}
`,
			line: 6,
		},
		{
			name: "parameter of an enclosing unnamed function",
			src: `
int main(void) {
  int (*f)(int) = (int (int a)) {
    int (*g)(void) = (int (void)) {
      return a;
    };
    return g();
  };
  return f(1);
}
`,
			line: 5,
		},
		{
			name: "address taken",
			src: `
int main(void) {
  int i = 0;
  int *(*f)(void) = (int *(void)) {
    return &i;
  };
  return *f();
}
`,
			line: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := parse(t, tt.src)

			assert.Equal(t, []string{CodeCapture}, codes(tu))
			assert.True(t, errors.Is(tu.Err(), ErrCapture))

			d := tu.Diagnostics[0]
			assert.Equal(t, tt.line, d.Pos.Line)
			require.NotEmpty(t, d.Notes)
		})
	}
}

func TestCapture_Allowed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "sizeof",
			src: `
int main(void) {
  int i = 0;
  unsigned long (*f)(void) = (unsigned long (void)) { return sizeof(i); };
  return (int)f() + i;
}
`,
		},
		{
			name: "typeof",
			src: `
int main(void) {
  int i = 0;
  int (*f)(void) = (int (void)) { typeof(i) j = 7; return j; };
  return f() + i;
}
`,
		},
		{
			name: "generic controlling expression",
			src: `
int main(void) {
  int i = 0;
  int (*f)(void) = (int (void)) { return _Generic(i, int: 1, default: 0); };
  return f() + i;
}
`,
		},
		{
			name: "global",
			src: `
int total;
int main(void) {
  void (*f)(int) = (void (int v)) { total += v; };
  f(3);
  return total;
}
`,
		},
		{
			name: "parameters and locals of its own",
			src: `
int main(void) {
  int (*f)(int, int) = (int (int a, int b)) { int c = a * b; return c; };
  return f(2, 3);
}
`,
		},
		{
			name: "block scope types and constants",
			src: `
int main(void) {
  typedef struct { int v; } box;
  struct pair { int a, b; };
  enum { K = 4 };
  int (*f)(box, struct pair) = (int (box x, struct pair p)) { return x.v * K + p.a; };
  box b = { 1 };
  struct pair p = { 2, 3 };
  return f(b, p);
}
`,
		},
		{
			name: "block scope extern",
			src: `
int main(void) {
  extern int shared;
  int (*f)(void) = (int (void)) { return shared; };
  return f();
}
int shared = 5;
`,
		},
		{
			name: "enclosing function",
			src: `
int twice(int v) { return 2 * v; }
int main(void) {
  int (*f)(int) = (int (int v)) { return twice(v); };
  return f(1);
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := parse(t, tt.src)
			assert.Empty(t, codes(tu))
			assert.NoError(t, tu.Err())
		})
	}
}

func TestCapture_RecordsDependencies(t *testing.T) {
	tu := parse(t, `
int main(void) {
  typedef struct { int v; } box;
  enum { K = 4 };
  int (*f)(box) = (int (box b)) { return b.v * K; };
  box b = { 10 };
  return f(b);
}
`)
	require.NoError(t, tu.Err())
	require.Len(t, tu.FuncLits, 1)

	var kinds []LocalDeclKind
	for _, d := range tu.FuncLits[0].Deps {
		kinds = append(kinds, d.emitted().Kind)
	}
	assert.ElementsMatch(t, []LocalDeclKind{DeclTypedef, DeclTag}, kinds)
}

func TestCapture_TypeDependsOnObject(t *testing.T) {
	tu := parse(t, `
int main(void) {
  int n = 4;
  typedef int row[n];
  unsigned long (*f)(void) = (unsigned long (void)) { row r; return sizeof r; };
  return (int)f();
}
`)
	assert.Equal(t, []string{CodeCapture}, codes(tu))
}
