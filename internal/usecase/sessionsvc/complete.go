package sessionsvc

import (
	"context"
	"fmt"
	"io"

	"github.com/sir_venger/chunkload/internal/models"
)

// CompleteInput: квитанции по всем частям одной сессии.
type CompleteInput struct {
	UploadID string
	Key      string
	Parts    []models.PartReceipt
}

// Complete собирает объект из частей. Повторный вызов для уже собранной сессии
// возвращает её же без обращения к хранилищу.
func (s *Sessions) Complete(ctx context.Context, in CompleteInput) (models.Session, error) {
	sess, err := s.lookup(ctx, in.UploadID, in.Key)
	if err != nil {
		return models.Session{}, err
	}

	switch sess.Status {
	case models.SessionCompleted:
		return sess, nil
	case models.SessionPending:
	default:
		return models.Session{}, fmt.Errorf("%w: %s", models.ErrSessionClosed, sess.Status)
	}

	parts, err := models.ValidateReceipts(in.Parts, sess.PartCount)
	if err != nil {
		return models.Session{}, err
	}

	size, err := s.Backend.Complete(ctx, sess, parts)
	if err != nil {
		return models.Session{}, fmt.Errorf("complete upload %s: %w", sess.ID, err)
	}

	now := s.Now().UTC()
	sess.Status = models.SessionCompleted
	sess.Size = size
	sess.CompletedAt = &now
	if err = s.Sessions.Save(ctx, sess); err != nil {
		return models.Session{}, fmt.Errorf("save session: %w", err)
	}

	s.Logger.Info("upload completed", "upload_id", sess.ID, "key", sess.Key, "size", size, "parts", len(parts))
	return sess, nil
}

// Abort отменяет незавершённую сессию и удаляет её части. Повторная отмена не считается ошибкой.
func (s *Sessions) Abort(ctx context.Context, uploadID, key string) error {
	sess, err := s.lookup(ctx, uploadID, key)
	if err != nil {
		return err
	}

	switch sess.Status {
	case models.SessionAborted:
		return nil
	case models.SessionCompleted:
		return fmt.Errorf("%w: %s", models.ErrSessionClosed, sess.Status)
	}

	if err = s.Backend.Abort(ctx, sess); err != nil {
		return fmt.Errorf("abort upload %s: %w", sess.ID, err)
	}

	sess.Status = models.SessionAborted
	if err = s.Sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.Logger.Info("upload aborted", "upload_id", sess.ID, "key", sess.Key)
	return nil
}

// Open отдаёт поток собранного объекта по его ключу.
func (s *Sessions) Open(ctx context.Context, key string) (io.ReadCloser, models.Session, error) {
	sess, err := s.Sessions.GetByKey(ctx, key)
	if err != nil {
		return nil, models.Session{}, err
	}
	if sess.Status != models.SessionCompleted {
		return nil, models.Session{}, fmt.Errorf("%w: object %s is %s", models.ErrNotFound, key, sess.Status)
	}
	if sess.Backend != s.Backend.Name() {
		return nil, models.Session{}, fmt.Errorf("object %s lives in %s backend, serving %s", key, sess.Backend, s.Backend.Name())
	}

	rc, err := s.Backend.Open(ctx, sess)
	if err != nil {
		return nil, models.Session{}, err
	}
	return rc, sess, nil
}

func (s *Sessions) lookup(ctx context.Context, uploadID, key string) (models.Session, error) {
	sess, err := s.Sessions.Get(ctx, uploadID)
	if err != nil {
		return models.Session{}, err
	}
	if sess.Key != key {
		return models.Session{}, fmt.Errorf("%w: key does not match upload %s", models.ErrNotFound, uploadID)
	}
	return sess, nil
}
