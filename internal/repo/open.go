package meta

import (
	"context"
	"strings"

	"github.com/sir_venger/chunkload/internal/models"
)

// MemoryDSNPrefix выбирает in-memory хранилище вместо Postgres.
const MemoryDSNPrefix = "memory://"

// Store: общий интерфейс MemoryStore и PGStore.
type Store interface {
	Get(ctx context.Context, id string) (models.Session, error)
	GetByKey(ctx context.Context, key string) (models.Session, error)
	Save(ctx context.Context, sess models.Session) error
	Close()
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PGStore)(nil)
)

// Open выбирает хранилище по DSN: пустой или memory:// даёт память, иначе Postgres.
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" || strings.HasPrefix(dsn, MemoryDSNPrefix) {
		return NewMemoryStore(), nil
	}
	return OpenPostgres(ctx, dsn)
}
