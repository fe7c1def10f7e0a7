package storagehttp

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const manualGCTTL = 24 * time.Hour

// gcOnce вручную запускает сбор брошенных загрузок и отвечает числом удалённых.
func (a *Server) gcOnce(w http.ResponseWriter, _ *http.Request) {
	now := a.now()
	removed, err := sweepOnce(a.uploadsDir(), manualGCTTL, now, a.logger)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	records, err := sweepCompleted(a.completedDir(), manualGCTTL, now)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"removed": removed, "completed_records": records})
}

// StartGC стартует периодическую очистку загрузок, не завершённых за ttl.
func StartGC(dataDir string, ttl, every time.Duration, logger *slog.Logger) func() {
	if every <= 0 || ttl <= 0 {
		return func() {}
	}
	if logger == nil {
		logger = slog.Default()
	}

	root := filepath.Join(dataDir, uploadsDirName)
	completed := filepath.Join(dataDir, completedDirName)
	ticker := time.NewTicker(every)
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case now := <-ticker.C:
				if _, err := sweepOnce(root, ttl, now, logger); err != nil {
					logger.Warn("gc sweep failed", "err", err)
				}
				if _, err := sweepCompleted(completed, ttl, now); err != nil {
					logger.Warn("gc completion records sweep failed", "err", err)
				}
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(stop)
		})
	}
}

// sweepOnce удаляет каталоги загрузок, meta.json которых не менялся дольше ttl.
// Собранные загрузки из uploads/ уже удалены, так что всё найденное здесь не завершено.
func sweepOnce(root string, ttl time.Duration, now time.Time, logger *slog.Logger) (int, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		dir := filepath.Join(root, e.Name())
		fi, err := os.Stat(filepath.Join(dir, metaFileName))
		if err != nil {
			continue
		}
		if now.Sub(fi.ModTime()) < ttl {
			continue
		}

		if err = os.RemoveAll(dir); err != nil {
			logger.Warn("gc remove failed", "upload_id", e.Name(), "err", err)
			continue
		}
		logger.Info("stale upload removed", "upload_id", e.Name(), "idle", now.Sub(fi.ModTime()).Round(time.Second))
		removed++
	}

	return removed, nil
}

// sweepCompleted удаляет записи о собранных загрузках старше ttl: после этого
// повторный complete по такой загрузке получит 404.
func sweepCompleted(root string, ttl time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil || now.Sub(fi.ModTime()) < ttl {
			continue
		}
		if err = os.Remove(filepath.Join(root, e.Name())); err == nil {
			removed++
		}
	}

	return removed, nil
}
