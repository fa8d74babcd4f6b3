package cli

import (
	"github.com/thradams/local-functions/cli/cmd"
)

// ErrConfig is returned when a configuration file cannot be decoded.
var ErrConfig = cmd.NewError("invalid configuration file")
