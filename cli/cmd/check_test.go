package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	good := writeSource(t, "good.c", goodSource)
	bad := writeSource(t, "bad.c", captureSource)

	t.Run("all clean", func(t *testing.T) {
		var s streams
		c := &Check{Sources: []string{good}}

		require.NoError(t, c.Run(s.context(""), frontend()))
		assert.Contains(t, s.err.String(), "1 of 1 files checked without errors")
		assert.Empty(t, s.out.String())
	})

	t.Run("one with errors", func(t *testing.T) {
		var s streams
		c := &Check{Sources: []string{good, bad}}

		err := c.Run(s.context(""), frontend())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDiagnostics))
		assert.Contains(t, s.err.String(), "capture-not-allowed")
		assert.Contains(t, s.err.String(), "1 of 2 files checked without errors")
	})

	t.Run("quiet", func(t *testing.T) {
		var s streams
		c := &Check{Quiet: true, Sources: []string{good}}

		require.NoError(t, c.Run(s.context(""), frontend()))
		assert.Empty(t, s.err.String())
	})
}
