package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Options(t *testing.T) {
	tests := []struct {
		name string
		s    Settings
		want int
	}{
		{name: "zero value", s: Settings{}, want: 0},
		{name: "unknown mode", s: Settings{Mode: "bogus", Dir: "/tmp/x"}, want: 0},
		{name: "mode only", s: Settings{Mode: "cpu"}, want: 3},
		{name: "mode and dir", s: Settings{Mode: "cpu", Dir: "/tmp/x"}, want: 4},
		{name: "verbose", s: Settings{Mode: "cpu", Dir: "/tmp/x", Verbose: true}, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.s.options(), tt.want)
		})
	}
}

func TestStart_NothingToRecord(t *testing.T) {
	started := false
	orig := startProfile
	startProfile = func(...func(*profile.Profile)) Profiler {
		started = true
		return nop{}
	}
	t.Cleanup(func() { startProfile = orig })

	for _, s := range []Settings{{}, {Mode: "bogus"}} {
		p := Start(s)
		assert.IsType(t, nop{}, p)
		assert.NotPanics(t, p.Stop)
	}
	assert.False(t, started)
}

func TestStart_Mem(t *testing.T) {
	dir := t.TempDir()

	Start(Settings{Mode: "mem", Dir: dir}).Stop()

	_, err := os.Stat(filepath.Join(dir, "mem.pprof"))
	require.NoError(t, err)
}

func TestModes(t *testing.T) {
	modes := Modes()
	assert.Contains(t, modes, "cpu")
	assert.Contains(t, modes, "heap")
	assert.IsNonDecreasing(t, modes)
}
