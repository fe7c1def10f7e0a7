// Package backendclient содержит HTTP-клиент API бэкенда библиотеки: выдача сессий multipart-загрузки,
// их финализация и отмена, скачивание готовых объектов.
package backendclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"
	"github.com/sir_venger/chunkload/internal/models"
	"github.com/sir_venger/chunkload/internal/usecase/uploadsvc"
	"github.com/sir_venger/chunkload/pkg/storageproto"
)

type Client struct {
	baseURL string
	token   string
	c       *http.Client
}

// New создаёт клиент; token уходит как Bearer в каждом запросе.
func New(baseURL, token string, c *http.Client) *Client {
	if c == nil {
		c = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		c:       c,
	}
}

var (
	_ uploadsvc.Initiator = (*Client)(nil)
	_ uploadsvc.Finalizer = (*Client)(nil)
	_ uploadsvc.Aborter   = (*Client)(nil)
)

// Initiate запрашивает сессию ровно на req.PartCount частей.
func (c *Client) Initiate(ctx context.Context, req uploadsvc.InitiateRequest) (models.UploadSession, error) {
	if req.PartCount < 1 {
		return models.UploadSession{}, models.ErrInvalidPartCount
	}

	var out storageproto.InitiateResponse
	err := c.postJSON(ctx, storageproto.APIInitiatePath, storageproto.InitiateRequest{
		PartCount:   req.PartCount,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.Size,
	}, &out)
	if err != nil {
		return models.UploadSession{}, err
	}

	if out.UploadID == "" || out.Key == "" {
		return models.UploadSession{}, fmt.Errorf("initiate response without upload id or key")
	}
	if len(out.URLs) != req.PartCount {
		return models.UploadSession{}, fmt.Errorf("initiate returned %d urls for %d parts", len(out.URLs), req.PartCount)
	}

	return models.UploadSession{
		ID:        out.UploadID,
		Key:       out.Key,
		URLs:      out.URLs,
		PartCount: req.PartCount,
	}, nil
}

// Finalize передаёт бэкенду квитанции, отсортированные по номеру части.
func (c *Client) Finalize(ctx context.Context, session models.UploadSession, receipts []models.PartReceipt) (string, error) {
	sorted, err := models.ValidateReceipts(receipts, session.PartCount)
	if err != nil {
		return "", err
	}

	var out storageproto.CompleteResponse
	err = c.postJSON(ctx, storageproto.APICompletePath, storageproto.CompleteRequest{
		UploadID: session.ID,
		Key:      session.Key,
		Parts: lo.Map(sorted, func(r models.PartReceipt, _ int) storageproto.CompletedPart {
			return storageproto.CompletedPart{PartNumber: r.PartNumber, ETag: r.ETag}
		}),
	}, &out)
	if err != nil {
		return "", err
	}

	if out.Key == "" {
		return session.Key, nil
	}
	return out.Key, nil
}

// Abort отменяет сессию; части на бэкенде удаляются.
func (c *Client) Abort(ctx context.Context, session models.UploadSession) error {
	return c.postJSON(ctx, storageproto.APIAbortPath, storageproto.AbortRequest{
		UploadID: session.ID,
		Key:      session.Key,
	}, nil)
}

// Download отдаёт поток готового объекта.
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	segs := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+storageproto.APIObjectPrefix+strings.Join(segs, "/"), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	return resp.Body, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("backend %s %s: %w", resp.Request.URL.Path, resp.Status, models.ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("backend %s %s: %w: %s", resp.Request.URL.Path, resp.Status, models.ErrNotFound, msg)
	default:
		return fmt.Errorf("backend %s %s: %s", resp.Request.URL.Path, resp.Status, msg)
	}
}
