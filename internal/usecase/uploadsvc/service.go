package uploadsvc

import (
	"context"
	"io"
	"log/slog"

	"github.com/sir_venger/chunkload/internal/models"
)

// DefaultPartSize: размер части по умолчанию, 5 MiB (минимум S3 для всех частей, кроме последней).
const DefaultPartSize int64 = 5 << 20

type (
	// Initiator запрашивает у бэкенда сессию с partCount адресами.
	Initiator interface {
		Initiate(ctx context.Context, req InitiateRequest) (models.UploadSession, error)
	}

	// Transporter передаёт одну часть по выданному адресу и возвращает её квитанцию.
	Transporter interface {
		Transfer(ctx context.Context, req TransferRequest) (models.PartReceipt, error)
	}

	// Finalizer сообщает бэкенду полный набор квитанций и получает ключ итогового объекта.
	Finalizer interface {
		Finalize(ctx context.Context, session models.UploadSession, receipts []models.PartReceipt) (string, error)
	}

	// Aborter отменяет сессию на бэкенде. Используется только при AbortOnFailure.
	Aborter interface {
		Abort(ctx context.Context, session models.UploadSession) error
	}
)

// InitiateRequest: параметры запроса сессии.
type InitiateRequest struct {
	PartCount   int
	FileName    string
	ContentType string
	Size        int64
}

// TransferRequest описывает передачу одной части; Body читает только её диапазон.
type TransferRequest struct {
	Part        models.FilePart
	Body        io.ReadSeeker
	Destination string
	ContentType string
}

// FileInfo: то, что загрузчик знает о файле помимо байтов.
type FileInfo struct {
	Name        string
	ContentType string
}

type Deps struct {
	Initiator   Initiator
	Transporter Transporter
	Finalizer   Finalizer
	// Aborter нужен только вместе с AbortOnFailure.
	Aborter Aborter

	PartSize int64
	// MaxParts ограничивает число частей ещё до запроса сессии; 0 означает DefaultMaxParts.
	MaxParts int
	// Concurrency ограничивает число одновременных передач; при 0 все части уходят сразу.
	Concurrency int
	// AbortOnFailure включает отмену сессии на бэкенде после сбоя передачи или финализации.
	AbortOnFailure bool

	// OnState вызывается при каждом переходе состояния.
	OnState func(State)
	Logger  *slog.Logger
}

type Orchestrator struct {
	Deps
}

// New конструирует оркестратор с заданными зависимостями.
func New(deps Deps) *Orchestrator {
	if deps.PartSize <= 0 {
		deps.PartSize = DefaultPartSize
	}
	if deps.MaxParts <= 0 {
		deps.MaxParts = DefaultMaxParts
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{Deps: deps}
}
