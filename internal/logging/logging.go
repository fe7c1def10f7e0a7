// Package logging настраивает slog по секции log конфигурации.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sir_venger/chunkload/internal/config"
)

// Setup создаёт текстовый логгер и делает его логгером по умолчанию.
func Setup(cfg config.LogConfig) *slog.Logger {
	logger := New(os.Stdout, cfg)
	slog.SetDefault(logger)
	return logger
}

func New(w io.Writer, cfg config.LogConfig) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}))
}

// ParseLevel понимает debug, info, warn и error; всё остальное даёт info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
