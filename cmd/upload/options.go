package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/sir_venger/chunkload/internal/config"
	"github.com/sir_venger/chunkload/internal/logging"
	"github.com/sir_venger/chunkload/pkg/backendclient"
	"github.com/urfave/cli/v2"
)

// resolveUpload собирает настройки загрузчика: файл конфигурации, поверх него флаги.
func resolveUpload(c *cli.Context) (config.UploadConfig, error) {
	var up config.UploadConfig
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadUploadFile(path)
		if err != nil {
			return config.UploadConfig{}, err
		}
		up = loaded
	}

	if v := c.String("backend"); v != "" {
		up.BackendURL = v
	}
	if v := c.String("token"); v != "" {
		up.Token = v
	}
	if c.IsSet("part-size") {
		up.PartSize = c.Int64("part-size")
	}
	if c.IsSet("concurrency") {
		up.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("abort-on-failure") {
		up.AbortOnFailure = c.Bool("abort-on-failure")
	}

	up.BackendURL = strings.TrimRight(strings.TrimSpace(up.BackendURL), "/")
	if up.BackendURL == "" {
		return config.UploadConfig{}, cli.Exit("backend URL is not set (--backend or CHUNKLOAD_BACKEND_URL)", 2)
	}
	if up.PartSize < 0 || up.Concurrency < 0 {
		return config.UploadConfig{}, cli.Exit("part-size and concurrency must not be negative", 2)
	}
	return up, nil
}

func newLogger(c *cli.Context) *slog.Logger {
	return logging.New(os.Stderr, config.LogConfig{Level: c.String("log-level")})
}

func newBackend(up config.UploadConfig) *backendclient.Client {
	return backendclient.New(up.BackendURL, up.Token, &http.Client{})
}
