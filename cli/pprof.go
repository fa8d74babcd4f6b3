package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/thradams/local-functions/log"
	"github.com/thradams/local-functions/profile"
)

type pprofConfig struct {
	Mode string `default:""            enum:",${pprofModeEnum}" help:"Record a runtime profile of this run." placeholder:"${enum}"`
	Dir  string `default:"${pprofDir}"                          help:"Directory the profile is written to."                     type:"path"`
}

func (pprofConfig) vars() kong.Vars {
	return kong.Vars{
		"pprofModeEnum": strings.Join(profile.Modes(), ","),
		"pprofDir":      filepath.Join(cacheDir(), profile.Tag),
	}
}

func (pprofConfig) group() kong.Group {
	return kong.Group{Key: "pprof", Title: "Profiling"}
}

// start records the selected profile until the returned function is
// called. Without a mode it does nothing.
func (f pprofConfig) start(ctx context.Context) (stop func()) {
	if f.Mode == "" {
		return func() {}
	}

	mode, dir := slog.String("mode", f.Mode), slog.String("dir", f.Dir)
	log.DebugContext(ctx, "profiling", mode, dir)
	p := profile.Start(profile.Settings{Mode: f.Mode, Dir: f.Dir})

	return func() {
		p.Stop()
		log.DebugContext(ctx, "profile written", mode, dir)
	}
}
