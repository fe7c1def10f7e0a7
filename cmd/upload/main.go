package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "chunkload",
		Usage: "Upload large files in parallel parts through a chunkload backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML file with an upload section",
				EnvVars: []string{"CHUNKLOAD_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "backend API base URL",
				EnvVars: []string{"CHUNKLOAD_BACKEND_URL"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token for the backend API",
				EnvVars: []string{"CHUNKLOAD_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"CHUNKLOAD_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "put",
				Usage:     "Upload a file and print its storage key",
				ArgsUsage: "<file>",
				Action:    Put,
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "part-size", Usage: "part size in bytes (default 5 MiB)"},
					&cli.IntFlag{Name: "concurrency", Usage: "max parallel part transfers, 0 sends every part at once"},
					&cli.BoolFlag{Name: "abort-on-failure", Usage: "abort the backend session when a part or completion fails"},
					&cli.StringFlag{Name: "content-type", Usage: "override detected content type"},
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "hide the progress bar"},
				},
			},
			{
				Name:      "get",
				Usage:     "Download an uploaded object by key",
				ArgsUsage: "<key> <dst>",
				Action:    Get,
			},
		},
	}
}
