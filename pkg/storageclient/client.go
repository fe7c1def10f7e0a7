package storageclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sir_venger/chunkload/internal/models"
	"github.com/sir_venger/chunkload/pkg/storageproto"
)

// Client управляет загрузками на узле хранения. Им пользуется бэкенд, не браузер/CLI.
type Client interface {
	// CreateUpload заводит на узле каталог под загрузку
	CreateUpload(ctx context.Context, baseURL, uploadID string, req storageproto.CreateUploadRequest) error
	// CompleteUpload собирает части в объект
	CompleteUpload(ctx context.Context, baseURL, uploadID string, req storageproto.CompleteRequest) (storageproto.CompleteResponse, error)
	// AbortUpload удаляет незавершённую загрузку вместе с частями
	AbortUpload(ctx context.Context, baseURL, uploadID string) error
	// GetObject Достать собранный объект
	GetObject(ctx context.Context, baseURL, key string) (io.ReadCloser, error)
}

type httpClient struct {
	c *http.Client
}

// New создаёт HTTP-клиент по умолчанию.
func New() Client {
	return &httpClient{
		c: &http.Client{},
	}
}

// CreateUpload регистрирует загрузку на узле.
func (h *httpClient) CreateUpload(ctx context.Context, baseURL, uploadID string, req storageproto.CreateUploadRequest) error {
	u := fmt.Sprintf(storageproto.UploadPathFormat, baseURL, url.PathEscape(uploadID))
	resp, err := h.doJSON(ctx, http.MethodPost, u, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return statusError("storage create upload", resp)
	}
	return nil
}

// CompleteUpload просит узел собрать объект из частей в порядке PartNumber.
func (h *httpClient) CompleteUpload(ctx context.Context, baseURL, uploadID string, req storageproto.CompleteRequest) (storageproto.CompleteResponse, error) {
	u := fmt.Sprintf(storageproto.CompletePathFormat, baseURL, url.PathEscape(uploadID))
	resp, err := h.doJSON(ctx, http.MethodPost, u, req)
	if err != nil {
		return storageproto.CompleteResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return storageproto.CompleteResponse{}, statusError("storage complete", resp)
	}

	var out storageproto.CompleteResponse
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return storageproto.CompleteResponse{}, fmt.Errorf("decode complete response: %w", err)
	}
	return out, nil
}

// AbortUpload удаляет загрузку; отсутствие загрузки ошибкой не считается.
func (h *httpClient) AbortUpload(ctx context.Context, baseURL, uploadID string) error {
	u := fmt.Sprintf(storageproto.UploadPathFormat, baseURL, url.PathEscape(uploadID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := h.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices && resp.StatusCode != http.StatusNotFound {
		return statusError("storage abort", resp)
	}
	return nil
}

// GetObject скачивает собранный объект и возвращает поток с телом.
func (h *httpClient) GetObject(ctx context.Context, baseURL, key string) (io.ReadCloser, error) {
	u := fmt.Sprintf(storageproto.ObjectPathFormat, baseURL, escapeKey(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError("storage GET", resp)
	}

	return resp.Body, nil
}

func (h *httpClient) doJSON(ctx context.Context, method, u string, payload any) (*http.Response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return h.c.Do(req)
}

// statusError превращает неуспешный ответ в ошибку, сохраняя начало тела для диагностики.
func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))

	var base error
	switch resp.StatusCode {
	case http.StatusNotFound:
		base = models.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		base = models.ErrUnauthorized
	}

	if base != nil {
		return fmt.Errorf("%s failed: %s: %w: %s", op, resp.Status, base, msg)
	}
	return fmt.Errorf("%s failed: %s: %s", op, resp.Status, msg)
}

// escapeKey экранирует сегменты ключа, сохраняя разделители.
func escapeKey(key string) string {
	segs := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
