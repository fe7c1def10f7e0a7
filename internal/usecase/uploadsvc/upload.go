package uploadsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sir_venger/chunkload/internal/models"
	"golang.org/x/sync/errgroup"
)

const abortTimeout = 30 * time.Second

// Upload делит файл на части, получает сессию, передаёт все части параллельно и
// финализирует загрузку. Результат всё-или-ничего: при любой ошибке ключ не возвращается.
func (o *Orchestrator) Upload(ctx context.Context, src io.ReaderAt, size int64, file FileInfo) (models.UploadResult, error) {
	o.enter(StateSplitting)
	parts, err := Split(size, o.PartSize, o.MaxParts)
	if err != nil {
		return o.fail(err)
	}

	o.enter(StateInitiating)
	session, err := o.Initiator.Initiate(ctx, InitiateRequest{
		PartCount:   len(parts),
		FileName:    file.Name,
		ContentType: file.ContentType,
		Size:        size,
	})
	if err != nil {
		return o.fail(fmt.Errorf("%w: %w", models.ErrInitiate, err))
	}
	if len(session.URLs) != len(parts) {
		return o.fail(fmt.Errorf("%w: got %d destinations for %d parts", models.ErrInitiate, len(session.URLs), len(parts)))
	}

	log := o.Logger.With("upload_id", session.ID, "key", session.Key)
	log.Info("upload session started", "size", size, "parts", len(parts), "part_size", o.PartSize)

	o.enter(StateTransferring)
	receipts, err := o.transferAll(ctx, src, session, parts, file.ContentType)
	if err != nil {
		log.Warn("part transfer failed", "err", err)
		o.abort(ctx, session, log)
		return o.fail(err)
	}

	o.enter(StateFinalizing)
	key, err := o.Finalizer.Finalize(ctx, session, receipts)
	if err != nil {
		log.Warn("finalize failed", "err", err)
		o.abort(ctx, session, log)
		return o.fail(fmt.Errorf("%w: %w", models.ErrFinalize, err))
	}
	if key == "" {
		key = session.Key
	}

	o.enter(StateCompleted)
	log.Info("upload completed", "size", size, "parts", len(parts))

	return models.UploadResult{Key: key, Size: size, Parts: len(parts)}, nil
}

// transferAll запускает передачу всех частей и ждёт завершения каждой, даже если
// какие-то уже упали. Каждая горутина пишет только в свой слот results/errs.
func (o *Orchestrator) transferAll(
	ctx context.Context,
	src io.ReaderAt,
	session models.UploadSession,
	parts []models.FilePart,
	contentType string,
) ([]models.PartReceipt, error) {
	receipts := make([]models.PartReceipt, len(parts))
	errs := make([]error, len(parts))

	var eg errgroup.Group
	if o.Concurrency > 0 {
		eg.SetLimit(o.Concurrency)
	}

	for i, part := range parts {
		eg.Go(func() error {
			dest, err := session.Destination(part.Number)
			if err != nil {
				errs[i] = err
				return nil
			}

			receipt, err := o.Transporter.Transfer(ctx, TransferRequest{
				Part:        part,
				Body:        part.Section(src),
				Destination: dest,
				ContentType: contentType,
			})
			switch {
			case err != nil:
				errs[i] = fmt.Errorf("part %d: %w", part.Number, err)
			case receipt.PartNumber != part.Number:
				errs[i] = fmt.Errorf("part %d: receipt attributed to part %d", part.Number, receipt.PartNumber)
			case receipt.ETag == "":
				errs[i] = fmt.Errorf("part %d: %w", part.Number, models.ErrMissingETag)
			default:
				receipts[i] = receipt
				o.Logger.Debug("part transferred", "upload_id", session.ID, "part", part.Number, "size", part.Size)
			}

			return nil
		})
	}

	// Горутины всегда возвращают nil: Wait здесь только точка сбора.
	_ = eg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrTransfer, err)
	}

	out, err := models.ValidateReceipts(receipts, len(parts))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrTransfer, err)
	}

	return out, nil
}

func (o *Orchestrator) abort(ctx context.Context, session models.UploadSession, log *slog.Logger) {
	if !o.AbortOnFailure || o.Aborter == nil {
		return
	}

	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()

	if err := o.Aborter.Abort(abortCtx, session); err != nil {
		log.Warn("abort failed, parts left for backend gc", "err", err)
		return
	}
	log.Info("upload session aborted")
}

func (o *Orchestrator) enter(s State) {
	if o.OnState != nil {
		o.OnState(s)
	}
}

func (o *Orchestrator) fail(err error) (models.UploadResult, error) {
	o.enter(StateFailed)
	return models.UploadResult{}, err
}
