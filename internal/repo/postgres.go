package meta

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sir_venger/chunkload/internal/models"
)

const sessionsTable = "upload_sessions"

var sessionColumns = []string{
	"id", "key", "file_name", "content_type", "backend", "location",
	"part_count", "size", "status", "created_at", "completed_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGStore сохраняет сессии загрузок в Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres создаёт пул подключений к Postgres. Таблицы создаёт cmd/migrate.
func OpenPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("meta dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return &PGStore{pool: pool}, nil
}

// Get возвращает сессию по идентификатору загрузки.
func (s *PGStore) Get(ctx context.Context, id string) (models.Session, error) {
	if strings.TrimSpace(id) == "" {
		return models.Session{}, fmt.Errorf("upload id is empty")
	}
	return s.selectOne(ctx, sq.Eq{"id": id})
}

// GetByKey возвращает сессию по ключу объекта.
func (s *PGStore) GetByKey(ctx context.Context, key string) (models.Session, error) {
	if strings.TrimSpace(key) == "" {
		return models.Session{}, fmt.Errorf("key is empty")
	}
	return s.selectOne(ctx, sq.Eq{"key": key})
}

func (s *PGStore) selectOne(ctx context.Context, where sq.Eq) (models.Session, error) {
	sqlStr, args, err := psql.
		Select(sessionColumns...).
		From(sessionsTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return models.Session{}, fmt.Errorf("build select: %w", err)
	}

	var (
		sess        models.Session
		status      string
		completedAt *time.Time
	)
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&sess.ID, &sess.Key, &sess.FileName, &sess.ContentType, &sess.Backend, &sess.Location,
		&sess.PartCount, &sess.Size, &status, &sess.CreatedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, models.ErrNotFound
		}
		return models.Session{}, fmt.Errorf("scan session row: %w", err)
	}
	sess.Status = models.SessionStatus(status)
	sess.CompletedAt = completedAt

	return sess, nil
}

// Save записывает (или обновляет) сессию.
func (s *PGStore) Save(ctx context.Context, sess models.Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id is empty")
	}

	sqlStr, args, err := psql.
		Insert(sessionsTable).
		Columns(sessionColumns...).
		Values(
			sess.ID, sess.Key, sess.FileName, sess.ContentType, sess.Backend, sess.Location,
			sess.PartCount, sess.Size, string(sess.Status), sess.CreatedAt, sess.CompletedAt,
		).
		Suffix(`
			ON CONFLICT (id) DO UPDATE
			SET status       = EXCLUDED.status,
				size         = EXCLUDED.size,
				completed_at = EXCLUDED.completed_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert sql: %w", err)
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("exec upsert: %w", err)
	}

	return nil
}

// Close освобождает подключения пула.
func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
