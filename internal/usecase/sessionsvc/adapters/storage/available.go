package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const healthTimeout = 2 * time.Second

// HealthAdapter определяет готовность узлов хранения по их health-эндпоинтам.
type HealthAdapter struct {
	MaxStorageLoadBytes int64
	Client              *http.Client
	Logger              *slog.Logger
}

// NewHealthAdapter инициализирует адаптер доступности.
func NewHealthAdapter(maxLoad int64) *HealthAdapter {
	return &HealthAdapter{
		MaxStorageLoadBytes: maxLoad,
		Client:              &http.Client{Timeout: healthTimeout},
		Logger:              slog.Default(),
	}
}

// Available опрашивает узлы параллельно и возвращает готовые, от менее загруженных к более.
func (a *HealthAdapter) Available(ctx context.Context, storages []string) []string {
	if len(storages) == 0 {
		return nil
	}

	type candidate struct {
		base string
		load int64
		ok   bool
	}

	probes := make([]candidate, len(storages))
	var eg errgroup.Group
	for i, base := range storages {
		eg.Go(func() error {
			info, err := a.fetchStorageHealth(ctx, base)
			if err != nil || !info.OK {
				a.Logger.Debug("storage not ready", "storage", base, "err", err)
				return nil
			}
			if !a.loadAcceptable(info.TotalBytes) {
				a.Logger.Debug("storage over load limit", "storage", base, "load", info.TotalBytes)
				return nil
			}
			probes[i] = candidate{base: base, load: info.TotalBytes, ok: true}
			return nil
		})
	}
	_ = eg.Wait()

	ready := make([]candidate, 0, len(probes))
	for _, c := range probes {
		if c.ok {
			ready = append(ready, c)
		}
	}

	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].load < ready[j].load
	})

	result := make([]string, len(ready))
	for i, c := range ready {
		result[i] = c.base
	}
	return result
}

func (a *HealthAdapter) loadAcceptable(load int64) bool {
	if a.MaxStorageLoadBytes <= 0 {
		return true
	}
	return load <= a.MaxStorageLoadBytes
}

type storageHealth struct {
	OK             bool  `json:"ok"`
	TotalBytes     int64 `json:"total_bytes"`
	PendingUploads int   `json:"pending_uploads"`
}

func (a *HealthAdapter) fetchStorageHealth(ctx context.Context, base string) (payload storageHealth, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL(base), nil)
	if err != nil {
		return storageHealth{}, err
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return storageHealth{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return storageHealth{}, fmt.Errorf("health check failed: %s", resp.Status)
	}

	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return storageHealth{}, err
	}

	return payload, nil
}

func healthURL(base string) string {
	return strings.TrimRight(base, "/") + "/health"
}
