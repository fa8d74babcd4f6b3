package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thradams/local-functions/cli/cmd"
	"github.com/thradams/local-functions/log"
)

const source = `#ifndef FACTOR
#define FACTOR 1
#endif
int main(void) {
  int (*f)(int) = (int (int x)) { return x * FACTOR; };
  return f(1);
}
`

type run struct {
	out, err bytes.Buffer
	code     int
}

func (r *run) exec(t *testing.T, args ...string) error {
	t.Helper()
	r.code = -1
	ctx := cmd.WithStreams(context.Background(), cmd.Streams{
		In:  strings.NewReader(""),
		Out: &r.out,
		Err: &r.err,
	})
	return Run(ctx, func(code int) { r.code = code }, args...)
}

func writeFile(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestRun_DefaultCommandLowers(t *testing.T) {
	src := writeFile(t, "main.c", source)

	var r run
	require.NoError(t, r.exec(t, "--color=never", "--no-line", src))
	assert.Contains(t, r.out.String(), "static int __unnamed_fn_0(int x) { return x * FACTOR; }")
	assert.NotContains(t, r.out.String(), "#line")
}

func TestRun_FrontendFlags(t *testing.T) {
	src := writeFile(t, "main.c", source)

	var r run
	require.NoError(t, r.exec(t, "lower", "--prefix=lambda_", "-DFACTOR=3", "-I", t.TempDir(), src))
	assert.Contains(t, r.out.String(), "static int lambda_0(int x)")
	assert.Contains(t, r.out.String(), "#line 5 ")
}

func TestRun_Config(t *testing.T) {
	src := writeFile(t, "main.c", source)
	cfg := writeFile(t, "config.yaml", `
prefix: cb_
line: false
define: ["FACTOR=3"]
`)

	var r run
	require.NoError(t, r.exec(t, "--config", cfg, "symbols", src))
	assert.Contains(t, r.out.String(), "static int cb_0(int x)")
}

func TestRun_Diagnostics(t *testing.T) {
	src := writeFile(t, "bad.c", `int main(void) {
  int i = 1;
  int (*f)(void) = (int (void)) { return i; };
  return f();
}
`)

	var r run
	err := r.exec(t, "check", "--color=never", src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cmd.ErrDiagnostics))
	assert.Contains(t, r.err.String(), "capture-not-allowed")
}

func TestRun_UnknownFlag(t *testing.T) {
	var r run
	require.Error(t, r.exec(t, "--no-such-flag"))
}

func TestLoadYAML(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		res, err := loadYAML(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, config{}, res)
	})

	t.Run("values", func(t *testing.T) {
		res, err := loadYAML(strings.NewReader(`
log_level: debug
line: false
define: [N, 2]
width: 80
`))
		require.NoError(t, err)
		assert.Equal(t, config{
			"log_level": "debug",
			"line":      false,
			"define":    []any{"N", "2"},
			"width":     "80",
		}, res)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := loadYAML(strings.NewReader("prefix: [unclosed\n"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))
	})
}

func TestLogConfig_Scan(t *testing.T) {
	t.Cleanup(func() {
		log.Config(
			log.WithLevel(log.DefaultLevel),
			log.WithFormat(log.DefaultFormat),
			log.WithPretty(false),
			log.WithCaller(false),
		)
	})

	var f logConfig
	f.scan([]string{
		"lower",
		"--log-level=debug",
		"--log-format", "json",
		"--log-pretty",
		"--no-log-caller",
		"--", "--log-level=error",
	})

	assert.Equal(t, logLevel("debug"), f.Level)
	assert.Equal(t, logFormat("json"), f.Format)
	assert.True(t, f.Pretty)
	assert.False(t, f.Caller)

	f.scan([]string{"--log-pretty=false"})
	assert.False(t, f.Pretty)
}

func TestPprofConfig_NoMode(t *testing.T) {
	var f pprofConfig
	stop := f.start(context.Background())
	require.NotNil(t, stop)
	stop()

	assert.Contains(t, f.vars()["pprofModeEnum"], "cpu")
}

func TestPprofConfig_WritesProfile(t *testing.T) {
	f := pprofConfig{Mode: "mem", Dir: t.TempDir()}
	f.start(context.Background())()

	_, err := os.Stat(filepath.Join(f.Dir, "mem.pprof"))
	require.NoError(t, err)
}

func TestConfigPath(t *testing.T) {
	path := configPath(baseConfig)
	assert.Equal(t, baseConfig, filepath.Base(path))
	assert.Equal(t, "lfc", filepath.Base(filepath.Dir(path)))
}
