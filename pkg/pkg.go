// Package pkg holds the identity of the lfc command.
package pkg

// Version is set at link time with -ldflags "-X ...pkg.Version=...".
var Version string

const (
	// Name is the command name. It appears in help text, the default
	// configuration path and the language server's identity.
	Name = "lfc"
	// Description is a short summary used in help output.
	Description = "Lower C unnamed function expressions to static functions"
)

// VersionString returns Version, or "devel" for unstamped builds.
func VersionString() string {
	if Version == "" {
		return "devel"
	}
	return Version
}
