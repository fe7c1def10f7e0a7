package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sir_venger/chunkload/internal/app/storagehttp"
	"github.com/sir_venger/chunkload/internal/config"
	"github.com/sir_venger/chunkload/internal/logging"
)

const (
	defaultStorageAddr   = ":8081"
	dataDirEnv           = "DATA_DIR"
	signingSecretEnv     = "SIGNING_SECRET"
	logLevelEnv          = "LOG_LEVEL"
	gcTTLHoursEnv        = "GC_TTL_HOURS"
	gcIntervalMinEnv     = "GC_INTERVAL_MIN"
	defaultDataDir       = "/data"
	defaultGCTTLHours    = 24
	defaultGCIntervalMin = 30
)

func main() {
	addr := flag.String("addr", defaultStorageAddr, "listen address")
	flag.Parse()

	logger := logging.Setup(config.LogConfig{Level: os.Getenv(logLevelEnv)})

	dataDir := os.Getenv(dataDirEnv)
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	h := storagehttp.New(storagehttp.Options{
		DataDir: dataDir,
		Secret:  os.Getenv(signingSecretEnv),
		Logger:  logger,
	})

	// Настраиваем фоновый GC по удалению незавершённых загрузок.
	gcTTLHours := envInt(gcTTLHoursEnv, defaultGCTTLHours)
	gcEveryMin := envInt(gcIntervalMinEnv, defaultGCIntervalMin)
	stopGC := storagehttp.StartGC(dataDir, time.Duration(gcTTLHours)*time.Hour, time.Duration(gcEveryMin)*time.Minute, logger)
	defer stopGC()

	server := &http.Server{Addr: *addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("STORAGE shutdown error", "err", err)
		}
	}()

	logger.Info("STORAGE listening", "addr", *addr, "data_dir", dataDir, "gc_ttl_hours", gcTTLHours, "gc_every_min", gcEveryMin)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("STORAGE stopped", "err", err)
		os.Exit(1)
	}
}

// envInt возвращает целочисленное значение из переменной окружения либо дефолт.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
