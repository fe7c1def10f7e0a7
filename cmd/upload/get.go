package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

// Get скачивает объект по ключу в локальный файл; "-" пишет в stdout.
func Get(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("You must specify a key and a destination", 2)
	}
	key, dst := c.Args().Get(0), c.Args().Get(1)

	up, err := resolveUpload(c)
	if err != nil {
		return err
	}

	rc, err := newBackend(up).Download(c.Context, key)
	if err != nil {
		return cli.Exit(fmt.Sprintf("download failed: %v", err), 1)
	}
	defer rc.Close()

	if dst == "-" {
		_, err = io.Copy(c.App.Writer, rc)
		return err
	}

	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err = io.Copy(f, rc); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("download %s: %w", key, err)
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
