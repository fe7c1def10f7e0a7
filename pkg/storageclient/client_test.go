package storageclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sir_venger/chunkload/internal/models"
	"github.com/sir_venger/chunkload/internal/usecase/uploadsvc"
	"github.com/sir_venger/chunkload/pkg/storageproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transferReq(dest string, data []byte, number int, offset, size int64) uploadsvc.TransferRequest {
	part := models.FilePart{Number: number, Offset: offset, Size: size}
	return uploadsvc.TransferRequest{
		Part:        part,
		Body:        part.Section(bytes.NewReader(data)),
		Destination: dest,
		ContentType: "application/pdf",
	}
}

func TestTransfer_SendsRangeAndUnquotesETag(t *testing.T) {
	var (
		gotBody   []byte
		gotLen    int64
		gotType   string
		gotMethod string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotLen = r.ContentLength
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"etag2"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	var mu sync.Mutex
	var reported int64
	tr := NewTransporter(WithProgress(func(part int, n int64) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 2, part)
		reported += n
	}))

	data := []byte("aaaaabbbbbcc")
	receipt, err := tr.Transfer(context.Background(), transferReq(srv.URL+"/p/2", data, 2, 5, 5))
	require.NoError(t, err)

	assert.Equal(t, models.PartReceipt{PartNumber: 2, ETag: "etag2"}, receipt)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "bbbbb", string(gotBody))
	assert.EqualValues(t, 5, gotLen)
	assert.Equal(t, "application/pdf", gotType)
	assert.EqualValues(t, 5, reported)
}

func TestTransfer_MissingETagFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	_, err := NewTransporter().Transfer(context.Background(), transferReq(srv.URL, []byte("abc"), 1, 0, 3))
	assert.ErrorIs(t, err, models.ErrMissingETag)
}

func TestTransfer_MissingETagNamesPartOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		if strings.HasSuffix(r.URL.Path, "/2") {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("ETag", `"ok"`)
	}))
	t.Cleanup(srv.Close)

	initiator := sessionFunc(func(_ context.Context, req uploadsvc.InitiateRequest) (models.UploadSession, error) {
		return models.UploadSession{
			ID:        "up",
			Key:       "k",
			URLs:      []string{srv.URL + "/p/1", srv.URL + "/p/2"},
			PartCount: req.PartCount,
		}, nil
	})
	o := uploadsvc.New(uploadsvc.Deps{
		Initiator:   initiator,
		Transporter: NewTransporter(),
		PartSize:    4,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := o.Upload(context.Background(), bytes.NewReader([]byte("abcdefgh")), 8, uploadsvc.FileInfo{})
	require.ErrorIs(t, err, models.ErrMissingETag)
	assert.Equal(t, 1, strings.Count(err.Error(), "part 2"), err.Error())
}

type sessionFunc func(context.Context, uploadsvc.InitiateRequest) (models.UploadSession, error)

func (f sessionFunc) Initiate(ctx context.Context, req uploadsvc.InitiateRequest) (models.UploadSession, error) {
	return f(ctx, req)
}

func TestTransfer_Non2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"x"`)
		http.Error(w, "signature expired", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := NewTransporter().Transfer(context.Background(), transferReq(srv.URL, []byte("abc"), 1, 0, 3))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Contains(t, err.Error(), "signature expired")
}

func TestTransfer_EmptyPartIsNotChunked(t *testing.T) {
	var te []string
	var cl int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		te = r.TransferEncoding
		cl = r.ContentLength
		w.Header().Set("ETag", `"empty"`)
	}))
	t.Cleanup(srv.Close)

	receipt, err := NewTransporter().Transfer(context.Background(), transferReq(srv.URL, nil, 1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "empty", receipt.ETag)
	assert.Empty(t, te)
	assert.Zero(t, cl)
}

func TestClient_NodeOperations(t *testing.T) {
	var created storageproto.CreateUploadRequest
	var completed storageproto.CompleteRequest
	deleted := false

	mux := http.NewServeMux()
	mux.HandleFunc("/uploads/up-1", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewDecoder(r.Body).Decode(&created)
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			deleted = true
			w.WriteHeader(http.StatusNoContent)
		}
	})
	mux.HandleFunc("/uploads/up-1/complete", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&completed)
		_ = json.NewEncoder(w).Encode(storageproto.CompleteResponse{Key: completed.Key, Size: 12})
	})
	mux.HandleFunc("/objects/books/a.pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cli := New()
	ctx := context.Background()

	require.NoError(t, cli.CreateUpload(ctx, srv.URL, "up-1", storageproto.CreateUploadRequest{Key: "books/a.pdf", TotalParts: 3}))
	assert.Equal(t, 3, created.TotalParts)

	res, err := cli.CompleteUpload(ctx, srv.URL, "up-1", storageproto.CompleteRequest{
		UploadID: "up-1",
		Key:      "books/a.pdf",
		Parts:    []storageproto.CompletedPart{{PartNumber: 1, ETag: "e1"}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 12, res.Size)
	assert.Equal(t, "e1", completed.Parts[0].ETag)

	require.NoError(t, cli.AbortUpload(ctx, srv.URL, "up-1"))
	assert.True(t, deleted)
	require.NoError(t, cli.AbortUpload(ctx, srv.URL, "missing"), "404 on abort is fine")

	rc, err := cli.GetObject(ctx, srv.URL, "books/a.pdf")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "payload", string(b))

	_, err = cli.GetObject(ctx, srv.URL, "books/none.pdf")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
