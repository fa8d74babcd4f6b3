package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackage_LogFunctions_UseDefaultLogger(t *testing.T) {
	original := defaultLog
	defer func() { defaultLog = original }()

	var buf bytes.Buffer
	defaultLog = Make(&buf, WithLevel(LevelDebug), WithFormat(FormatJSON))

	tests := []struct {
		name  string
		fn    func(string, ...slog.Attr)
		level string
		msg   string
	}{
		{"Debug", Debug, "DEBUG", "debug message"},
		{"Info", Info, "INFO", "info message"},
		{"Warn", Warn, "WARN", "warn message"},
		{"Error", Error, "ERROR", "error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn(tt.msg, slog.String("key", "value"))

			out := buf.String()
			assert.Contains(t, out, tt.msg)
			assert.Contains(t, out, tt.level)
			assert.Contains(t, out, `"key":"value"`)
		})
	}
}

func TestPackage_Config_UpdatesDefault(t *testing.T) {
	original := defaultLog
	defer func() { defaultLog = original }()

	var buf bytes.Buffer
	defaultLog = Make(&buf)
	Config(WithLevel(LevelInfo))

	Info("configured")
	assert.Contains(t, buf.String(), "configured")
	assert.Equal(t, LevelInfo, Default().Level())
}
