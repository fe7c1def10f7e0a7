package sessionsvc

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sir_venger/chunkload/internal/models"
	"github.com/sir_venger/chunkload/pkg/storageclient"
	"github.com/sir_venger/chunkload/pkg/storageproto"
)

const NodeBackendName = "node"

// NodeBackend раздаёт загрузки по собственным узлам хранения (cmd/storage).
// Части кладутся напрямую на узел по URL, подписанному общим секретом.
type NodeBackend struct {
	Router *Router
	Client storageclient.Client
	Secret string
	Now    func() time.Time
}

// NewNodeBackend конструктор
func NewNodeBackend(router *Router, cli storageclient.Client, secret string) *NodeBackend {
	return &NodeBackend{
		Router: router,
		Client: cli,
		Secret: secret,
		Now:    time.Now,
	}
}

var _ Backend = (*NodeBackend)(nil)

func (b *NodeBackend) Name() string { return NodeBackendName }

// Create выбирает узел, заводит на нём загрузку и подписывает по URL на каждую часть.
func (b *NodeBackend) Create(ctx context.Context, req CreateRequest) (Allocation, error) {
	nodes, err := b.Router.Allocate(ctx, 1)
	if err != nil {
		return Allocation{}, err
	}
	base := nodes[0]

	err = b.Client.CreateUpload(ctx, base, req.UploadID, storageproto.CreateUploadRequest{
		Key:         req.Key,
		ContentType: req.ContentType,
		TotalParts:  req.PartCount,
	})
	if err != nil {
		return Allocation{}, err
	}

	expires := b.Now().Add(req.URLTTL)
	urls := make([]string, req.PartCount)
	for i := range urls {
		urls[i], err = storageproto.SignPartURL(base, b.Secret, req.UploadID, i+1, expires)
		if err != nil {
			_ = b.Client.AbortUpload(ctx, base, req.UploadID)
			return Allocation{}, fmt.Errorf("sign part %d: %w", i+1, err)
		}
	}

	return Allocation{UploadID: req.UploadID, Location: base, URLs: urls}, nil
}

// Complete просит узел склеить части и проверить их ETag.
func (b *NodeBackend) Complete(ctx context.Context, sess models.Session, parts []models.PartReceipt) (int64, error) {
	wire := make([]storageproto.CompletedPart, len(parts))
	for i, p := range parts {
		wire[i] = storageproto.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag}
	}

	res, err := b.Client.CompleteUpload(ctx, sess.Location, sess.ID, storageproto.CompleteRequest{
		UploadID: sess.ID,
		Key:      sess.Key,
		Parts:    wire,
	})
	if err != nil {
		return 0, err
	}
	return res.Size, nil
}

func (b *NodeBackend) Abort(ctx context.Context, sess models.Session) error {
	return b.Client.AbortUpload(ctx, sess.Location, sess.ID)
}

func (b *NodeBackend) Open(ctx context.Context, sess models.Session) (io.ReadCloser, error) {
	return b.Client.GetObject(ctx, sess.Location, sess.Key)
}
