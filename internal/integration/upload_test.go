package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sir_venger/chunkload/internal/models"
	"github.com/sir_venger/chunkload/internal/usecase/uploadsvc"
	"github.com/sir_venger/chunkload/pkg/storageclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPayload(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func download(t *testing.T, st *stack, key string) []byte {
	t.Helper()
	rc, err := st.backend(testToken).Download(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	return got
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	st := newStack(t, 3)
	payload := randomPayload(t, 300<<10+123)

	var states []uploadsvc.State
	orch := st.orchestrator(t, nil, func(d *uploadsvc.Deps) {
		d.OnState = func(s uploadsvc.State) { states = append(states, s) }
	})

	res, err := orch.Upload(context.Background(), bytes.NewReader(payload), int64(len(payload)), uploadsvc.FileInfo{
		Name:        "blob.bin",
		ContentType: "application/octet-stream",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Parts)
	assert.EqualValues(t, len(payload), res.Size)
	assert.True(t, strings.HasPrefix(res.Key, "it/"))
	assert.True(t, strings.HasSuffix(res.Key, ".bin"))
	assert.Equal(t, uploadsvc.StateCompleted, states[len(states)-1])

	assert.Equal(t, payload, download(t, st, res.Key))
}

func TestUploadsSpreadAcrossNodes(t *testing.T) {
	st := newStack(t, 3)
	orch := st.orchestrator(t, nil, func(d *uploadsvc.Deps) { d.Concurrency = 2 })

	for i := 0; i < 3; i++ {
		payload := randomPayload(t, 100<<10)
		res, err := orch.Upload(context.Background(), bytes.NewReader(payload), int64(len(payload)), uploadsvc.FileInfo{Name: "f.dat"})
		require.NoError(t, err)
		assert.Equal(t, payload, download(t, st, res.Key))
	}

	used := 0
	for _, dir := range st.nodeDirs {
		if entries, err := os.ReadDir(filepath.Join(dir, "objects")); err == nil && len(entries) > 0 {
			used++
		}
	}
	assert.GreaterOrEqual(t, used, 2)
}

func TestUploadEmptyFile(t *testing.T) {
	st := newStack(t, 1)
	orch := st.orchestrator(t, nil, nil)

	res, err := orch.Upload(context.Background(), bytes.NewReader(nil), 0, uploadsvc.FileInfo{Name: "empty.txt"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Parts)
	assert.Empty(t, download(t, st, res.Key))
}

func TestUploadExactMultipleHasNoTrailingPart(t *testing.T) {
	st := newStack(t, 1)
	orch := st.orchestrator(t, nil, nil)
	payload := randomPayload(t, 4*64<<10)

	res, err := orch.Upload(context.Background(), bytes.NewReader(payload), int64(len(payload)), uploadsvc.FileInfo{Name: "x.bin"})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Parts)
	assert.Equal(t, payload, download(t, st, res.Key))
}

// failingTransporter роняет передачу выбранной части, остальные шлёт по-настоящему.
type failingTransporter struct {
	inner  uploadsvc.Transporter
	failOn int
	calls  atomic.Int32
}

func (f *failingTransporter) Transfer(ctx context.Context, req uploadsvc.TransferRequest) (models.PartReceipt, error) {
	f.calls.Add(1)
	if req.Part.Number == f.failOn {
		return models.PartReceipt{}, errors.New("connection reset")
	}
	return f.inner.Transfer(ctx, req)
}

func pendingUploads(t *testing.T, st *stack) int {
	t.Helper()
	total := 0
	for _, dir := range st.nodeDirs {
		entries, err := os.ReadDir(filepath.Join(dir, "uploads"))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		require.NoError(t, err)
		total += len(entries)
	}
	return total
}

func TestPartFailureNeverFinalizes(t *testing.T) {
	st := newStack(t, 1)
	tr := &failingTransporter{inner: storageclient.NewTransporter(), failOn: 2}
	orch := st.orchestrator(t, tr, nil)
	payload := randomPayload(t, 3*64<<10)

	_, err := orch.Upload(context.Background(), bytes.NewReader(payload), int64(len(payload)), uploadsvc.FileInfo{Name: "a.bin"})
	require.ErrorIs(t, err, models.ErrTransfer)
	assert.NotErrorIs(t, err, models.ErrFinalize)

	// Все части были запущены, и ни одна не отменена из-за соседа.
	assert.EqualValues(t, 3, tr.calls.Load())
	// Сессия осталась незавершённой: объект не появился, загрузка ждёт GC.
	assert.Equal(t, 1, pendingUploads(t, st))
	entries, _ := os.ReadDir(filepath.Join(st.nodeDirs[0], "objects"))
	assert.Empty(t, entries)
}

func TestPartFailureWithAbortCleansNode(t *testing.T) {
	st := newStack(t, 1)
	tr := &failingTransporter{inner: storageclient.NewTransporter(), failOn: 1}
	orch := st.orchestrator(t, tr, func(d *uploadsvc.Deps) { d.AbortOnFailure = true })
	payload := randomPayload(t, 2*64<<10)

	_, err := orch.Upload(context.Background(), bytes.NewReader(payload), int64(len(payload)), uploadsvc.FileInfo{Name: "a.bin"})
	require.ErrorIs(t, err, models.ErrTransfer)
	assert.Zero(t, pendingUploads(t, st))
}

// tamperingTransporter подменяет ETag одной части после успешной передачи.
type tamperingTransporter struct {
	inner uploadsvc.Transporter
}

func (f tamperingTransporter) Transfer(ctx context.Context, req uploadsvc.TransferRequest) (models.PartReceipt, error) {
	r, err := f.inner.Transfer(ctx, req)
	if err == nil && req.Part.Number == 1 {
		r.ETag = "0000"
	}
	return r, err
}

func TestFinalizeRejectsWrongETag(t *testing.T) {
	st := newStack(t, 1)
	orch := st.orchestrator(t, tamperingTransporter{inner: storageclient.NewTransporter()}, nil)
	payload := randomPayload(t, 2*64<<10)

	_, err := orch.Upload(context.Background(), bytes.NewReader(payload), int64(len(payload)), uploadsvc.FileInfo{Name: "a.bin"})
	require.ErrorIs(t, err, models.ErrFinalize)
	assert.Equal(t, 1, pendingUploads(t, st))
}

func TestInitiateRequiresToken(t *testing.T) {
	st := newStack(t, 1)
	backend := st.backend("")
	orch := uploadsvc.New(uploadsvc.Deps{
		Initiator:   backend,
		Transporter: storageclient.NewTransporter(),
		Finalizer:   backend,
		Logger:      quietLogger(),
	})

	_, err := orch.Upload(context.Background(), bytes.NewReader([]byte("x")), 1, uploadsvc.FileInfo{})
	require.ErrorIs(t, err, models.ErrInitiate)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestCancelledUploadFails(t *testing.T) {
	st := newStack(t, 1)
	orch := st.orchestrator(t, nil, nil)
	payload := randomPayload(t, 64<<10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := orch.Upload(ctx, bytes.NewReader(payload), int64(len(payload)), uploadsvc.FileInfo{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGCRemovesStaleUploads(t *testing.T) {
	st := newStack(t, 1)
	tr := &failingTransporter{inner: storageclient.NewTransporter(), failOn: 1}
	orch := st.orchestrator(t, tr, nil)
	payload := randomPayload(t, 64<<10)

	_, err := orch.Upload(context.Background(), bytes.NewReader(payload), int64(len(payload)), uploadsvc.FileInfo{})
	require.Error(t, err)
	require.Equal(t, 1, pendingUploads(t, st))

	uploads := filepath.Join(st.nodeDirs[0], "uploads")
	entries, err := os.ReadDir(uploads)
	require.NoError(t, err)
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(uploads, entries[0].Name(), "meta.json"), old, old))

	resp, err := http.Post(st.nodes[0].URL+"/admin/gc", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, pendingUploads(t, st))
}
