package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Make_DefaultConfiguration(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf)

	assert.Equal(t, DefaultLevel, logger.Level())
	assert.Equal(t, FormatText, logger.Format())
	assert.False(t, logger.caller)
	assert.False(t, logger.pretty)
}

func TestLogger_ZeroValue_Discards(t *testing.T) {
	var logger Logger

	assert.NotPanics(t, func() {
		logger.Debug("nothing")
		logger.Error("nothing", slog.String("key", "value"))
	})
	assert.Equal(t, DefaultLevel, logger.Level())
	assert.Equal(t, logger, logger.With(slog.String("key", "value")))
}

func TestLogger_Make_WithLevel_FiltersMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf, WithLevel(LevelDebug))

	logger.Debug("debug message")
	assert.Contains(t, buf.String(), "debug message")

	buf.Reset()
	logger = Make(&buf, WithLevel(LevelError))
	logger.Info("info message")
	assert.Empty(t, buf.String())

	logger.Error("error message")
	assert.Contains(t, buf.String(), "error message")
}

func TestLogger_Make_WithFormat_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf, WithFormat(FormatJSON), WithLevel(LevelInfo))
	logger.Info("test message", slog.String("key", "value"))

	var result map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "test message", result["msg"])
	assert.Equal(t, "value", result["key"])
	assert.NotContains(t, result, "time")
}

func TestLogger_Make_WithTimeLayout(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf, WithFormat(FormatJSON), WithTimeLayout("RFC3339"), WithLevel(LevelInfo))
	logger.Info("stamped")

	var result map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Contains(t, result, "time")
}

func TestLogger_Make_WithCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf, WithCaller(true), WithLevel(LevelInfo))
	logger.Info("test message")
	assert.Contains(t, buf.String(), "log_test.go")

	buf.Reset()
	logger = Make(&buf, WithCaller(false), WithLevel(LevelInfo))
	logger.Info("test message")
	assert.NotContains(t, buf.String(), "log_test.go")
}

func TestLogger_Pretty_WritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf, WithPretty(true), WithLevel(LevelDebug)).
		With(slog.String("unit", "a.c"))
	logger.Debug("unnamed function", slog.String("name", "__unnamed_fn_0"), slog.Int("line", 3))

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "unnamed function")
	assert.Contains(t, out, "unit=")
	assert.Contains(t, out, "__unnamed_fn_0")
	assert.Contains(t, out, "3")
}

func TestLogger_Wrap_KeepsOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf).Wrap(WithLevel(LevelDebug))
	logger.Debug("wrapped")

	assert.Equal(t, LevelDebug, logger.Level())
	assert.Contains(t, buf.String(), "wrapped")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warn ", LevelWarn},
		{"error", LevelError},
		{"bogus", DefaultLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, DefaultFormat, ParseFormat("yaml"))
}

func TestLevelsAndFormats(t *testing.T) {
	assert.Equal(t, []string{"debug", "info", "warn", "error"}, slices.Collect(Levels()))
	assert.Equal(t, []string{"text", "json"}, slices.Collect(Formats()))
}
