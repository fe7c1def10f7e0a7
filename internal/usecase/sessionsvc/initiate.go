package sessionsvc

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sir_venger/chunkload/internal/models"
)

// InitiateInput: параметры запроса на новую загрузку.
type InitiateInput struct {
	PartCount   int
	FileName    string
	ContentType string
	Size        int64
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Initiate выделяет сессию ровно на PartCount частей и сохраняет её в статусе pending.
func (s *Sessions) Initiate(ctx context.Context, in InitiateInput) (models.UploadSession, error) {
	if in.PartCount < 1 || in.PartCount > s.MaxParts {
		return models.UploadSession{}, fmt.Errorf("%w: %d not in 1..%d", models.ErrInvalidPartCount, in.PartCount, s.MaxParts)
	}

	now := s.Now().UTC()
	id := uuid.NewString()
	key := buildKey(s.KeyPrefix, now, id, in.FileName, in.ContentType)

	alloc, err := s.Backend.Create(ctx, CreateRequest{
		UploadID:    id,
		Key:         key,
		ContentType: in.ContentType,
		PartCount:   in.PartCount,
		URLTTL:      s.URLTTL,
	})
	if err != nil {
		return models.UploadSession{}, fmt.Errorf("allocate upload: %w", err)
	}

	sess := models.Session{
		ID:          alloc.UploadID,
		Key:         key,
		FileName:    strings.TrimSpace(in.FileName),
		ContentType: in.ContentType,
		Backend:     s.Backend.Name(),
		Location:    alloc.Location,
		PartCount:   in.PartCount,
		Size:        in.Size,
		Status:      models.SessionPending,
		CreatedAt:   now,
	}

	if len(alloc.URLs) != in.PartCount {
		s.release(ctx, sess)
		return models.UploadSession{}, fmt.Errorf("backend returned %d urls for %d parts", len(alloc.URLs), in.PartCount)
	}

	if err = s.Sessions.Save(ctx, sess); err != nil {
		s.release(ctx, sess)
		return models.UploadSession{}, fmt.Errorf("save session: %w", err)
	}

	s.Logger.Info("upload session created",
		"upload_id", sess.ID, "key", sess.Key, "parts", sess.PartCount, "backend", sess.Backend, "location", sess.Location)

	return models.UploadSession{
		ID:        sess.ID,
		Key:       sess.Key,
		URLs:      alloc.URLs,
		PartCount: sess.PartCount,
	}, nil
}

// release отменяет выделение, которое не удалось оформить в сессию.
func (s *Sessions) release(ctx context.Context, sess models.Session) {
	if err := s.Backend.Abort(ctx, sess); err != nil {
		s.Logger.Warn("release allocation failed", "upload_id", sess.ID, "err", err)
	}
}

// buildKey собирает ключ объекта вида <prefix>/<yyyy>/<mm>/<id><ext>.
// Расширение берётся из имени файла, а если его нет, из content type.
func buildKey(prefix string, now time.Time, id, fileName, contentType string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(fileName)))
	if !extPattern.MatchString(ext) {
		ext = ""
		if m := mimetype.Lookup(contentType); m != nil {
			ext = m.Extension()
		}
	}

	return path.Join(strings.Trim(prefix, "/"), now.Format("2006"), now.Format("01"), id+ext)
}
