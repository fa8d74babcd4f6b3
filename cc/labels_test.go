package cc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabels_GotoOutOfFunction(t *testing.T) {
	tu := parse(t, `
int main(void) {
  int (*f)(void) = (int (void)) {
    goto out;
    return 1;
  };
out:
  return f();
}
`)
	assert.Equal(t, []string{CodeLabelScope}, codes(tu))
	assert.True(t, errors.Is(tu.Err(), ErrLabelScope))

	d := tu.Diagnostics[0]
	assert.Equal(t, 4, d.Pos.Line)
	require.Len(t, d.Notes, 1)
	assert.Equal(t, 7, d.Notes[0].Pos.Line)
}

func TestLabels_GotoIntoFunction(t *testing.T) {
	tu := parse(t, `
int main(void) {
  goto in;
  int (*f)(void) = (int (void)) {
  in:
    return 1;
  };
  return f();
}
`)
	assert.Equal(t, []string{CodeLabelScope}, codes(tu))
	assert.Equal(t, 3, tu.Diagnostics[0].Pos.Line)
}

func TestLabels_GotoBetweenSiblings(t *testing.T) {
	tu := parse(t, `
int main(void) {
  int (*f)(void) = (int (void)) { goto there; return 1; };
  int (*g)(void) = (int (void)) { there: return 2; };
  return f() + g();
}
`)
	assert.Equal(t, []string{CodeLabelScope}, codes(tu))
}

func TestLabels_InternalLabels(t *testing.T) {
	tu := parse(t, `
int main(void) {
  int (*f)(void) = (int (void)) {
    int i = 0;
  again:
    if (++i < 3)
      goto again;
    goto done;
  done:
    return i;
  };
again:
  if (f() != 3)
    goto again;
  return 0;
}
`)
	assert.NoError(t, tu.Err())
}

func TestLabels_UndeclaredLabel(t *testing.T) {
	_, err := ParseSource(context.Background(), "t.c", []byte(`
int main(void) {
  int (*f)(void) = (int (void)) { goto nowhere; return 1; };
  return f();
}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared label 'nowhere'")
}

func TestInvalidLvalue(t *testing.T) {
	t.Run("address of", func(t *testing.T) {
		tu := parse(t, `
int main(void) {
  void *p = &(int (void)) { return 1; };
  return p != 0;
}
`)
		assert.Equal(t, []string{CodeInvalidLvalue}, codes(tu))
		assert.True(t, errors.Is(tu.Err(), ErrInvalidLvalue))
		assert.Equal(t, 3, tu.Diagnostics[0].Pos.Line)
	})

	t.Run("assignment and argument", func(t *testing.T) {
		tu := parse(t, `
int call(int (*f)(void)) { return f(); }
int main(void) {
  int (*f)(void);
  f = (int (void)) { return 1; };
  return call(f) + call((int (void)) { return 2; });
}
`)
		assert.NoError(t, tu.Err())
		assert.Len(t, tu.FuncLits, 2)
	})

	t.Run("direct call", func(t *testing.T) {
		tu := parse(t, `
int main(void) {
  return (int (int a)) { return a; }(3);
}
`)
		assert.NoError(t, tu.Err())
	})
}
