package profile

import (
	"maps"
	"slices"
	"sync"

	"github.com/pkg/profile"
)

// Modes returns the supported profiling modes, sorted.
var Modes = sync.OnceValue(func() []string {
	return slices.Sorted(maps.Keys(kinds))
})

var kinds = map[string]func(*profile.Profile){
	"allocs":    profile.MemProfileAllocs,
	"block":     profile.BlockProfile,
	"clock":     profile.ClockProfile,
	"cpu":       profile.CPUProfile,
	"goroutine": profile.GoroutineProfile,
	"heap":      profile.MemProfileHeap,
	"mem":       profile.MemProfile,
	"mutex":     profile.MutexProfile,
	"thread":    profile.ThreadcreationProfile,
	"trace":     profile.TraceProfile,
}

// startProfile is replaced in tests.
var startProfile = func(opts ...func(*profile.Profile)) Profiler {
	return profile.Start(opts...)
}

// options returns the options of github.com/pkg/profile that record s, or
// nil if s records nothing. The caller stops the profiler itself, so no
// signal handler is installed.
func (s Settings) options() []func(*profile.Profile) {
	kind, ok := kinds[s.Mode]
	if !ok {
		return nil
	}

	opts := []func(*profile.Profile){kind, profile.NoShutdownHook}
	if s.Dir != "" {
		opts = append(opts, profile.ProfilePath(s.Dir))
	}
	if !s.Verbose {
		opts = append(opts, profile.Quiet)
	}
	return opts
}
