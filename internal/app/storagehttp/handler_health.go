package storagehttp

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

// healthStats: payload ответа /health.
type healthStats struct {
	OK             bool  `json:"ok"`
	TotalBytes     int64 `json:"total_bytes"`
	PendingUploads int   `json:"pending_uploads"`
}

// health возвращает занятое место и число незавершённых загрузок.
func (a *Server) health(w http.ResponseWriter, r *http.Request) {
	total, err := dirSize(a.dataDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	pending := 0
	entries, err := os.ReadDir(a.uploadsDir())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			pending++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthStats{
		OK:             true,
		TotalBytes:     total,
		PendingUploads: pending,
	})
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}
	return total, nil
}
