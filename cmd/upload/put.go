package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sir_venger/chunkload/internal/usecase/uploadsvc"
	"github.com/sir_venger/chunkload/pkg/storageclient"
	"github.com/urfave/cli/v2"
)

// Put загружает файл по частям и печатает ключ готового объекта.
func Put(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("You must specify a file to upload", 2)
	}
	path := c.Args().First()

	up, err := resolveUpload(c)
	if err != nil {
		return err
	}
	logger := newLogger(c)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return cli.Exit(path+" is a directory", 2)
	}

	contentType := c.String("content-type")
	if contentType == "" {
		mt, err := mimetype.DetectFile(path)
		if err != nil {
			return fmt.Errorf("detect content type: %w", err)
		}
		contentType = mt.String()
	}

	var opts []storageclient.TransporterOption
	var bar *progressBar
	if !c.Bool("quiet") {
		bar = newProgressBar(c.App.ErrWriter, info.Size(), filepath.Base(path))
		opts = append(opts, storageclient.WithProgress(bar.Add))
	}

	backend := newBackend(up)
	orch := uploadsvc.New(uploadsvc.Deps{
		Initiator:      backend,
		Transporter:    storageclient.NewTransporter(opts...),
		Finalizer:      backend,
		Aborter:        backend,
		PartSize:       up.PartSize,
		Concurrency:    up.Concurrency,
		AbortOnFailure: up.AbortOnFailure,
		Logger:         logger,
	})

	res, err := orch.Upload(c.Context, f, info.Size(), uploadsvc.FileInfo{
		Name:        filepath.Base(path),
		ContentType: contentType,
	})
	if bar != nil {
		bar.Finish(err == nil)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("upload failed: %v", err), 1)
	}

	fmt.Fprintln(c.App.Writer, res.Key)
	return nil
}
