package storageclient

import (
	"context"
	"io"
	"net/http"

	"github.com/sir_venger/chunkload/internal/models"
	"github.com/sir_venger/chunkload/internal/usecase/uploadsvc"
	"github.com/sir_venger/chunkload/pkg/storageproto"
)

// Transporter кладёт части по pre-signed URL (узел хранения или S3) и достаёт из ответа ETag.
// Состояния между вызовами не держит, поэтому безопасен для параллельного использования.
type Transporter struct {
	c        *http.Client
	progress ProgressFunc
}

type TransporterOption func(*Transporter)

// WithHTTPClient подменяет HTTP-клиент, например с таймаутом или своим транспортом.
func WithHTTPClient(c *http.Client) TransporterOption {
	return func(t *Transporter) { t.c = c }
}

// WithProgress подписывает на счётчик переданных байт.
func WithProgress(fn ProgressFunc) TransporterOption {
	return func(t *Transporter) { t.progress = fn }
}

func NewTransporter(opts ...TransporterOption) *Transporter {
	t := &Transporter{c: &http.Client{}}
	for _, o := range opts {
		o(t)
	}
	return t
}

var _ uploadsvc.Transporter = (*Transporter)(nil)

// Transfer выполняет PUT одной части и возвращает квитанцию с распакованным ETag.
func (t *Transporter) Transfer(ctx context.Context, req uploadsvc.TransferRequest) (models.PartReceipt, error) {
	var body io.Reader = http.NoBody
	if req.Part.Size > 0 {
		body = newProgressReader(req.Body, req.Part.Number, t.progress)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, req.Destination, body)
	if err != nil {
		return models.PartReceipt{}, err
	}
	// Явная длина: S3 не принимает Transfer-Encoding: chunked для pre-signed PUT.
	httpReq.ContentLength = req.Part.Size
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := t.c.Do(httpReq)
	if err != nil {
		return models.PartReceipt{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return models.PartReceipt{}, statusError("part PUT", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	etag, err := storageproto.UnquoteETag(resp.Header.Get(storageproto.HeaderETag))
	if err != nil {
		return models.PartReceipt{}, err
	}

	return models.PartReceipt{PartNumber: req.Part.Number, ETag: etag}, nil
}
