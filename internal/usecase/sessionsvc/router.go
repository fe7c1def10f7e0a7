package sessionsvc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sir_venger/chunkload/internal/models"
)

// StorageAdapter описывает источник знаний о доступности узлов хранения.
type StorageAdapter interface {
	Available(ctx context.Context, storages []string) []string
}

// Router выбирает узел хранения под новую загрузку: по кругу среди готовых,
// начиная с наименее загруженных.
type Router struct {
	mu             sync.Mutex
	configured     []string
	next           int
	StorageAdapter StorageAdapter
}

// NewRouter создаёт маршрутизатор с адаптером доступности.
func NewRouter(adapter StorageAdapter) *Router {
	return &Router{StorageAdapter: adapter}
}

// Set заменяет список узлов на новый.
func (r *Router) Set(storages []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configured = r.configured[:0]
	r.next = 0
	r.addLocked(storages)
}

// Add добавляет новые узлы, игнорируя дубликаты и пустые значения.
func (r *Router) Add(storages ...string) {
	if len(storages) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addLocked(storages)
}

// Storages возвращает копию текущего списка узлов.
func (r *Router) Storages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.configured...)
}

func (r *Router) addLocked(storages []string) {
	known := make(map[string]struct{}, len(r.configured))
	for _, s := range r.configured {
		known[s] = struct{}{}
	}

	for _, storage := range storages {
		storage = strings.TrimRight(strings.TrimSpace(storage), "/")
		if storage == "" {
			continue
		}
		if _, exists := known[storage]; exists {
			continue
		}

		r.configured = append(r.configured, storage)
		known[storage] = struct{}{}
	}
}

// Allocate возвращает список узлов длиной count. Если ни один не прошёл health-check,
// выбор идёт из всех сконфигурированных: узел всё равно проверит запрос сам.
func (r *Router) Allocate(ctx context.Context, count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}

	r.mu.Lock()
	if len(r.configured) == 0 {
		r.mu.Unlock()
		return nil, models.ErrNoStorage
	}
	snapshot := append([]string{}, r.configured...)
	r.mu.Unlock()

	available := snapshot
	if r.StorageAdapter != nil {
		if ready := r.StorageAdapter.Available(ctx, snapshot); len(ready) > 0 {
			available = ready
		}
	}

	r.mu.Lock()
	start := r.next % len(available)
	r.next = (start + count) % len(available)
	r.mu.Unlock()

	result := make([]string, count)
	for i := 0; i < count; i++ {
		result[i] = available[(start+i)%len(available)]
	}

	return result, nil
}
