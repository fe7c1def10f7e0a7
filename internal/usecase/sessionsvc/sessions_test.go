package sessionsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sir_venger/chunkload/internal/models"
	meta "github.com/sir_venger/chunkload/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	createErr   error
	completeErr error
	shortURLs   bool

	created   []CreateRequest
	completed [][]models.PartReceipt
	aborted   []string
	objects   map[string]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: map[string]string{}}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Create(_ context.Context, req CreateRequest) (Allocation, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return Allocation{}, f.createErr
	}
	n := req.PartCount
	if f.shortURLs {
		n--
	}
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("http://node-1/uploads/%s/parts/%d", req.UploadID, i+1)
	}
	return Allocation{UploadID: req.UploadID, Location: "http://node-1", URLs: urls}, nil
}

func (f *fakeBackend) Complete(_ context.Context, sess models.Session, parts []models.PartReceipt) (int64, error) {
	f.completed = append(f.completed, parts)
	if f.completeErr != nil {
		return 0, f.completeErr
	}
	f.objects[sess.Key] = "payload"
	return int64(len("payload")), nil
}

func (f *fakeBackend) Abort(_ context.Context, sess models.Session) error {
	f.aborted = append(f.aborted, sess.ID)
	return nil
}

func (f *fakeBackend) Open(_ context.Context, sess models.Session) (io.ReadCloser, error) {
	body, ok := f.objects[sess.Key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestSessions(backend Backend) (*Sessions, *meta.MemoryStore) {
	store := meta.NewMemoryStore()
	svc := New(Deps{
		Sessions:  store,
		Backend:   backend,
		KeyPrefix: "books",
		MaxParts:  100,
		Now:       func() time.Time { return fixedNow },
	})
	return svc, store
}

func receiptsFor(n int) []models.PartReceipt {
	out := make([]models.PartReceipt, n)
	for i := range out {
		out[i] = models.PartReceipt{PartNumber: i + 1, ETag: fmt.Sprintf("etag-%d", i+1)}
	}
	return out
}

func TestInitiate(t *testing.T) {
	backend := newFakeBackend()
	svc, store := newTestSessions(backend)

	up, err := svc.Initiate(context.Background(), InitiateInput{
		PartCount:   3,
		FileName:    "Atlas.PDF",
		ContentType: "application/pdf",
		Size:        12 << 20,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, up.PartCount)
	assert.Len(t, up.URLs, 3)
	assert.True(t, strings.HasPrefix(up.Key, "books/2026/10/"))
	assert.True(t, strings.HasSuffix(up.Key, up.ID+".pdf"))

	require.Len(t, backend.created, 1)
	assert.Equal(t, DefaultURLTTL, backend.created[0].URLTTL)

	sess, err := store.Get(context.Background(), up.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPending, sess.Status)
	assert.Equal(t, "fake", sess.Backend)
	assert.Equal(t, "http://node-1", sess.Location)
	assert.Equal(t, "Atlas.PDF", sess.FileName)
}

func TestInitiateRejectsPartCount(t *testing.T) {
	svc, _ := newTestSessions(newFakeBackend())

	for _, n := range []int{0, -1, 101} {
		_, err := svc.Initiate(context.Background(), InitiateInput{PartCount: n})
		assert.ErrorIs(t, err, models.ErrInvalidPartCount, "part count %d", n)
	}
}

func TestInitiateBackendFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.createErr = models.ErrNoStorage
	svc, _ := newTestSessions(backend)

	_, err := svc.Initiate(context.Background(), InitiateInput{PartCount: 2})
	require.ErrorIs(t, err, models.ErrNoStorage)
}

func TestInitiateReleasesShortAllocation(t *testing.T) {
	backend := newFakeBackend()
	backend.shortURLs = true
	svc, store := newTestSessions(backend)

	_, err := svc.Initiate(context.Background(), InitiateInput{PartCount: 3})
	require.Error(t, err)

	require.Len(t, backend.aborted, 1)
	_, err = store.Get(context.Background(), backend.aborted[0])
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCompleteAndOpen(t *testing.T) {
	backend := newFakeBackend()
	svc, _ := newTestSessions(backend)
	ctx := context.Background()

	up, err := svc.Initiate(ctx, InitiateInput{PartCount: 3, FileName: "a.txt"})
	require.NoError(t, err)

	parts := receiptsFor(3)
	parts[0], parts[2] = parts[2], parts[0]

	sess, err := svc.Complete(ctx, CompleteInput{UploadID: up.ID, Key: up.Key, Parts: parts})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, sess.Status)
	assert.EqualValues(t, 7, sess.Size)
	require.NotNil(t, sess.CompletedAt)

	require.Len(t, backend.completed, 1)
	assert.Equal(t, receiptsFor(3), backend.completed[0])

	t.Run("repeat is idempotent", func(t *testing.T) {
		again, err := svc.Complete(ctx, CompleteInput{UploadID: up.ID, Key: up.Key, Parts: parts})
		require.NoError(t, err)
		assert.Equal(t, sess.ID, again.ID)
		assert.Len(t, backend.completed, 1)
	})

	t.Run("abort after complete", func(t *testing.T) {
		err := svc.Abort(ctx, up.ID, up.Key)
		assert.ErrorIs(t, err, models.ErrSessionClosed)
	})

	t.Run("open", func(t *testing.T) {
		rc, got, err := svc.Open(ctx, up.Key)
		require.NoError(t, err)
		defer rc.Close()
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(body))
		assert.Equal(t, up.ID, got.ID)
	})
}

func TestCompleteRejectsIncompleteReceipts(t *testing.T) {
	backend := newFakeBackend()
	svc, store := newTestSessions(backend)
	ctx := context.Background()

	up, err := svc.Initiate(ctx, InitiateInput{PartCount: 3})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, CompleteInput{UploadID: up.ID, Key: up.Key, Parts: receiptsFor(2)})
	require.ErrorIs(t, err, models.ErrReceiptsIncomplete)
	assert.Empty(t, backend.completed)

	sess, err := store.Get(ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPending, sess.Status)
}

func TestCompleteWrongKey(t *testing.T) {
	svc, _ := newTestSessions(newFakeBackend())
	ctx := context.Background()

	up, err := svc.Initiate(ctx, InitiateInput{PartCount: 1})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, CompleteInput{UploadID: up.ID, Key: "other", Parts: receiptsFor(1)})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Complete(ctx, CompleteInput{UploadID: "missing", Key: up.Key, Parts: receiptsFor(1)})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCompleteBackendFailureKeepsPending(t *testing.T) {
	backend := newFakeBackend()
	backend.completeErr = errors.New("etag mismatch")
	svc, store := newTestSessions(backend)
	ctx := context.Background()

	up, err := svc.Initiate(ctx, InitiateInput{PartCount: 2})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, CompleteInput{UploadID: up.ID, Key: up.Key, Parts: receiptsFor(2)})
	require.Error(t, err)

	sess, err := store.Get(ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPending, sess.Status)
}

func TestAbort(t *testing.T) {
	backend := newFakeBackend()
	svc, store := newTestSessions(backend)
	ctx := context.Background()

	up, err := svc.Initiate(ctx, InitiateInput{PartCount: 2})
	require.NoError(t, err)

	require.NoError(t, svc.Abort(ctx, up.ID, up.Key))
	require.NoError(t, svc.Abort(ctx, up.ID, up.Key))
	assert.Equal(t, []string{up.ID}, backend.aborted)

	sess, err := store.Get(ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAborted, sess.Status)

	_, err = svc.Complete(ctx, CompleteInput{UploadID: up.ID, Key: up.Key, Parts: receiptsFor(2)})
	assert.ErrorIs(t, err, models.ErrSessionClosed)

	_, _, err = svc.Open(ctx, up.Key)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestOpenUnknownKey(t *testing.T) {
	svc, _ := newTestSessions(newFakeBackend())
	_, _, err := svc.Open(context.Background(), "books/nope.bin")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBuildKey(t *testing.T) {
	cases := []struct {
		name, file, ct, want string
	}{
		{"extension from name", "report.PDF", "", "up/2026/10/id.pdf"},
		{"extension from content type", "noext", "image/png", "up/2026/10/id.png"},
		{"junk extension falls back", "x.some weird", "application/pdf", "up/2026/10/id.pdf"},
		{"nothing known", "", "", "up/2026/10/id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, buildKey("/up/", fixedNow, "id", tc.file, tc.ct))
		})
	}
}
