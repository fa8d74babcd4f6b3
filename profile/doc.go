// Package profile provides optional runtime profiling of an lfc run.
//
// It wraps [github.com/pkg/profile]. The zero [Settings] start nothing, so
// callers can always start and stop a profiler:
//
//	defer profile.Start(profile.Settings{Mode: "cpu", Dir: "/tmp/lfc"}).Stop()
//
// Profiles are written to the configured directory with names matching
// the mode (cpu.pprof, mem.pprof, ...) and are read with go tool pprof.
//
// Use [Modes] to list the supported modes.
package profile

// Tag names the profile output directory under the cache directory.
const Tag = `pprof`
