package cli

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/thradams/local-functions/pkg"
)

// baseConfig is the base name of the configuration file.
const baseConfig = "config.yaml"

// userDir returns dir(), or a directory named fallback under the home
// directory, or the working directory.
func userDir(dir func() (string, error), fallback string) string {
	d, err := dir()
	if err == nil {
		return filepath.Join(d, pkg.Name)
	}

	d, err = os.UserHomeDir()
	if err == nil {
		return filepath.Join(d, fallback, pkg.Name)
	}

	d, err = os.Getwd()
	if err != nil {
		d = "."
	}

	return filepath.Join(d, "."+pkg.Name)
}

// configDir returns the configuration directory path.
var configDir = sync.OnceValue(
	func() string {
		return userDir(os.UserConfigDir, ".config")
	},
)

// cacheDir returns the cache directory path used for profiles.
var cacheDir = sync.OnceValue(
	func() string {
		return userDir(os.UserCacheDir, ".cache")
	},
)

// configPath returns the path formed by joining the configuration
// directory with elem.
func configPath(elem ...string) string {
	return filepath.Join(append([]string{configDir()}, elem...)...)
}
