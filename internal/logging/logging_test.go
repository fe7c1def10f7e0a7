package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/sir_venger/chunkload/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warn "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LogConfig{Level: "warn"})

	logger.Info("hidden")
	logger.Warn("shown", "upload_id", "up-1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "upload_id=up-1")
}
