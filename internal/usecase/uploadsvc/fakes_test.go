package uploadsvc

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sir_venger/chunkload/internal/models"
)

type fakeInitiator struct {
	session models.UploadSession
	err     error

	calls int
	got   InitiateRequest
}

func (f *fakeInitiator) Initiate(_ context.Context, req InitiateRequest) (models.UploadSession, error) {
	f.calls++
	f.got = req
	if f.err != nil {
		return models.UploadSession{}, f.err
	}
	if f.session.ID != "" {
		return f.session, nil
	}

	urls := make([]string, req.PartCount)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://node/uploads/up-1/parts/%d", i+1)
	}
	return models.UploadSession{ID: "up-1", Key: "books/2026/10/up-1.pdf", URLs: urls, PartCount: req.PartCount}, nil
}

type fakeTransporter struct {
	mu    sync.Mutex
	fail  map[int]error
	sizes map[int]int64
	dests map[int]string

	// gates, если заданы, держат передачу части до закрытия канала.
	gates   map[int]chan struct{}
	started chan int
	delay   time.Duration

	calls       atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeTransporter() *fakeTransporter {
	return &fakeTransporter{
		fail:  map[int]error{},
		sizes: map[int]int64{},
		dests: map[int]string{},
	}
}

func (f *fakeTransporter) Transfer(ctx context.Context, req TransferRequest) (models.PartReceipt, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxInFlight.Load()
		if cur <= prev || f.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	if f.started != nil {
		f.started <- req.Part.Number
	}
	if gate, ok := f.gates[req.Part.Number]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.PartReceipt{}, ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	n, err := io.Copy(io.Discard, req.Body)
	if err != nil {
		return models.PartReceipt{}, err
	}

	f.mu.Lock()
	f.sizes[req.Part.Number] = n
	f.dests[req.Part.Number] = req.Destination
	failErr := f.fail[req.Part.Number]
	f.mu.Unlock()

	if failErr != nil {
		return models.PartReceipt{}, failErr
	}
	if err := ctx.Err(); err != nil {
		return models.PartReceipt{}, err
	}

	return models.PartReceipt{PartNumber: req.Part.Number, ETag: fmt.Sprintf("etag%d", req.Part.Number)}, nil
}

type fakeFinalizer struct {
	mu    sync.Mutex
	calls int
	got   []models.PartReceipt
	key   string
	err   error
}

func (f *fakeFinalizer) Finalize(_ context.Context, session models.UploadSession, receipts []models.PartReceipt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got = append([]models.PartReceipt(nil), receipts...)
	if f.err != nil {
		return "", f.err
	}
	if f.key != "" {
		return f.key, nil
	}
	return session.Key, nil
}

type fakeAborter struct {
	calls atomic.Int32
	err   error
}

func (f *fakeAborter) Abort(ctx context.Context, _ models.UploadSession) error {
	f.calls.Add(1)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return f.err
}
