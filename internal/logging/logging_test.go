package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanLoggerOmitsTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, FormatHuman)

	logger.Info("graph built", "modules", 3)
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "msg=\"graph built\"")
	assert.Contains(t, out, "modules=3")
	assert.NotContains(t, out, "time=")
	assert.NotContains(t, out, "hidden")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug, FormatJSON)
	logger.Debug("resolved", "module", "a.ts")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "resolved", entry["msg"])
	assert.Equal(t, "a.ts", entry["module"])
}

func TestLevels(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelFromString("DEBUG"))
	assert.Equal(t, slog.LevelWarn, LevelFromString("warning"))
	assert.Equal(t, slog.LevelInfo, LevelFromString("nope"))

	assert.Equal(t, slog.LevelWarn, LevelFromVerbosity(0, false))
	assert.Equal(t, slog.LevelInfo, LevelFromVerbosity(1, false))
	assert.Equal(t, slog.LevelDebug, LevelFromVerbosity(3, false))
	assert.Greater(t, LevelFromVerbosity(3, true), slog.LevelError)
}

func TestDiscardLogger(t *testing.T) {
	logger := OrDiscard(nil)
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
}
