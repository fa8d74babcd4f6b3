package cli

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

// loadYAML is a [kong.ConfigurationLoader] reading flag values from a
// YAML mapping.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(loadYAML, "/path/to/config.yaml")
//
// Keys are flag names. Hyphens in flag names may be written as
// underscores (e.g. "log_level" for --log-level). Numbers are passed to
// kong as strings, sequences as lists:
//
//	log_level: debug
//	define: [NDEBUG, "VERSION=2"]
//	line: false
//
// An empty file is an empty configuration.
func loadYAML(r io.Reader) (kong.Resolver, error) {
	var doc map[string]any

	err := yaml.NewDecoder(r).Decode(&doc)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return config{}, nil
		}

		return nil, ErrConfig.Wrap(err)
	}

	cfg := make(config, len(doc))
	for k, v := range doc {
		cfg[k] = toFlagValue(v)
	}

	return cfg, nil
}

// config implements [kong.Resolver] for YAML configuration files.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error {
	return nil
}

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	name := flag.Name

	if value, ok := r[name]; ok {
		return value, nil
	}

	if value, ok := r[strings.ReplaceAll(name, "-", "_")]; ok {
		return value, nil
	}

	// Not found - let kong use the default.
	return nil, nil
}

// toFlagValue converts a decoded YAML value to the form kong parses.
func toFlagValue(v any) any {
	switch v := v.(type) {
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = toFlagValue(e)
		}

		return out
	default:
		return v
	}
}
