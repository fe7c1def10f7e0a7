package meta

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sir_venger/chunkload/internal/models"
)

// MemoryStore хранит сессии только в оперативной памяти; удобно для тестов.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	byKey    map[string]string
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string]models.Session{},
		byKey:    map[string]string{},
	}
}

// Get возвращает сессию по id или ошибку, если её нет.
func (s *MemoryStore) Get(_ context.Context, id string) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, models.ErrNotFound
	}
	return sess.Clone(), nil
}

// GetByKey ищет сессию по ключу итогового объекта.
func (s *MemoryStore) GetByKey(ctx context.Context, key string) (models.Session, error) {
	s.mu.RLock()
	id, ok := s.byKey[key]
	s.mu.RUnlock()
	if !ok {
		return models.Session{}, models.ErrNotFound
	}
	return s.Get(ctx, id)
}

// Save записывает (или обновляет) сессию целиком.
func (s *MemoryStore) Save(_ context.Context, sess models.Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.byKey[sess.Key]; ok && owner != sess.ID {
		return fmt.Errorf("key %q already belongs to upload %s", sess.Key, owner)
	}
	s.sessions[sess.ID] = sess.Clone()
	s.byKey[sess.Key] = sess.ID
	return nil
}

// Close ничего не делает; нужен для симметрии с PGStore.
func (s *MemoryStore) Close() {}
