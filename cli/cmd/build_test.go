package cmd

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_DryRun(t *testing.T) {
	src := writeSource(t, "main.c", goodSource)

	var s streams
	b := &Build{CC: "gcc -std=c11", CFlag: []string{"-O2"}, DryRun: true, Source: src}
	fe := &Frontend{Color: "never", Include: []string{"/opt/inc"}, Define: []string{"N=1"}}

	require.NoError(t, b.Run(s.context(""), fe))

	args := strings.Fields(s.out.String())
	require.GreaterOrEqual(t, len(args), 12)
	assert.Equal(t, []string{"gcc", "-std=c11", "-O2", "-I", filepath.Dir(src), "-I", "/opt/inc", "-DN=1", "-c", "-o", "main.o"}, args[:11])
	assert.True(t, strings.HasSuffix(args[11], "main.c"))
	assert.NotEqual(t, src, args[11])
}

func TestBuild_Command(t *testing.T) {
	tests := []struct {
		name  string
		build Build
		want  []string
	}{
		{
			name:  "object",
			build: Build{CC: "cc", Source: "dir/x.c"},
			want:  []string{"cc", "-I", "dir", "-c", "-o", "x.o", "L"},
		},
		{
			name:  "assembly",
			build: Build{CC: "cc", Assemble: true, Source: "x.c"},
			want:  []string{"cc", "-I", ".", "-S", "-o", "x.s", "L"},
		},
		{
			name:  "output",
			build: Build{CC: "", Output: "out/y.o", Source: "-"},
			want:  []string{"cc", "-I", ".", "-c", "-o", "out/y.o", "L"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.build.command(&Frontend{}, "L"))
		})
	}
}

func TestShellJoin(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"cc", "-c", "x.c"}, want: "cc -c x.c"},
		{args: []string{"cc", `-DMSG="a b"`}, want: `cc '-DMSG="a b"'`},
		{args: []string{"it's"}, want: `'it'\''s'`},
		{args: []string{"cc", ""}, want: "cc ''"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, shellJoin(tt.args), tt.args)
	}
}

func TestBuild_DryRunQuotesArguments(t *testing.T) {
	src := writeSource(t, "main.c", goodSource)

	var s streams
	b := &Build{CC: "cc", DryRun: true, Source: src}
	fe := &Frontend{Color: "never", Define: []string{`MSG="a b"`}}

	require.NoError(t, b.Run(s.context(""), fe))
	assert.Contains(t, s.out.String(), ` '-DMSG="a b"' -c -o main.o `)
}

func TestBuild_RefusesDiagnostics(t *testing.T) {
	var s streams
	b := &Build{CC: "cc", DryRun: true, Source: "-"}

	err := b.Run(s.context(captureSource), frontend())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiagnostics))
	assert.Empty(t, s.out.String())
}

func TestBuild_Compile(t *testing.T) {
	compiler, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("no C compiler found")
	}

	src := writeSource(t, "apply.c", goodSource)
	out := filepath.Join(t.TempDir(), "apply.o")

	var s streams
	b := &Build{CC: compiler, CFlag: []string{"-std=c11"}, Output: out, Source: src}
	require.NoError(t, b.Run(s.context(""), &Frontend{Color: "never", Line: true}), s.err.String())

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestBuild_CompilerFails(t *testing.T) {
	src := writeSource(t, "apply.c", goodSource)

	var s streams
	b := &Build{CC: "false", Source: src}
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("no false command")
	}

	err := b.Run(s.context(""), frontend())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCompiler))
}
