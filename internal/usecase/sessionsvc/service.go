package sessionsvc

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/sir_venger/chunkload/internal/models"
)

const (
	// DefaultMaxParts совпадает с лимитом S3 на число частей.
	DefaultMaxParts  = 10000
	DefaultURLTTL    = time.Hour
	DefaultKeyPrefix = "uploads"
)

type (
	// SessionStore хранилище сессий загрузок
	SessionStore interface {
		Get(ctx context.Context, id string) (models.Session, error)
		GetByKey(ctx context.Context, key string) (models.Session, error)
		Save(ctx context.Context, sess models.Session) error
	}

	// Backend выделяет адреса под части и собирает из них объект.
	Backend interface {
		Name() string
		Create(ctx context.Context, req CreateRequest) (Allocation, error)
		// Complete собирает объект и возвращает его размер.
		Complete(ctx context.Context, sess models.Session, parts []models.PartReceipt) (int64, error)
		Abort(ctx context.Context, sess models.Session) error
		Open(ctx context.Context, sess models.Session) (io.ReadCloser, error)
	}
)

// CreateRequest: то, что бэкенд хранения должен подготовить под одну загрузку.
type CreateRequest struct {
	// UploadID предлагает идентификатор; бэкенд может выдать свой (S3 так и делает).
	UploadID    string
	Key         string
	ContentType string
	PartCount   int
	URLTTL      time.Duration
}

// Allocation описывает ответ бэкенда хранения: где живёт загрузка и куда класть части.
type Allocation struct {
	UploadID string
	Location string
	URLs     []string
}

type Deps struct {
	Sessions SessionStore
	Backend  Backend

	KeyPrefix string
	URLTTL    time.Duration
	MaxParts  int

	Now    func() time.Time
	Logger *slog.Logger
}

type Sessions struct {
	Deps
}

// New конструирует сервис сессий, подставляя значения по умолчанию.
func New(deps Deps) *Sessions {
	if deps.KeyPrefix == "" {
		deps.KeyPrefix = DefaultKeyPrefix
	}
	if deps.URLTTL <= 0 {
		deps.URLTTL = DefaultURLTTL
	}
	if deps.MaxParts <= 0 {
		deps.MaxParts = DefaultMaxParts
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Sessions{Deps: deps}
}
