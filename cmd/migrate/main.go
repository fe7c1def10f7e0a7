package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/sir_venger/chunkload/internal/config"
	meta "github.com/sir_venger/chunkload/internal/repo"
)

func main() {
	dsn := strings.TrimSpace(os.Getenv("META_DSN"))
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal(err)
		}
		dsn = strings.TrimSpace(cfg.MetaDSN)
	}

	if dsn == "" {
		log.Fatal("meta_dsn is not configured")
	}
	if strings.HasPrefix(dsn, meta.MemoryDSNPrefix) {
		log.Println("memory meta store selected, skipping migrations")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := meta.ApplyMigrations(ctx, dsn); err != nil {
		log.Fatal(err)
	}

	log.Println("migrations applied")
}
