// Package s3 выдаёт multipart-загрузки прямо в бакет S3: бэкенд создаёт загрузку и
// подписывает UploadPart-URL, а клиент кладёт части в S3 без участия наших узлов.
package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sir_venger/chunkload/internal/config"
	"github.com/sir_venger/chunkload/internal/models"
	"github.com/sir_venger/chunkload/internal/usecase/sessionsvc"
)

const BackendName = "s3"

// API: подмножество клиента S3, которым пользуется бэкенд.
type API interface {
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Presigner подписывает UploadPart; реализуется *s3.PresignClient.
type Presigner interface {
	PresignUploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Backend struct {
	api       API
	presigner Presigner
	bucket    string
}

// NewBackend конструктор
func NewBackend(api API, presigner Presigner, bucket string) *Backend {
	return &Backend{api: api, presigner: presigner, bucket: bucket}
}

// FromConfig поднимает клиент S3 из стандартной цепочки учётных данных AWS.
func FromConfig(ctx context.Context, cfg config.S3Config) (*Backend, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewBackend(client, s3.NewPresignClient(client), cfg.Bucket), nil
}

var _ sessionsvc.Backend = (*Backend)(nil)

func (b *Backend) Name() string { return BackendName }

// Create открывает multipart-загрузку в S3 и подписывает URL на каждую часть.
func (b *Backend) Create(ctx context.Context, req sessionsvc.CreateRequest) (sessionsvc.Allocation, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(req.Key),
	}
	if req.ContentType != "" {
		input.ContentType = aws.String(req.ContentType)
	}

	out, err := b.api.CreateMultipartUpload(ctx, input)
	if err != nil {
		return sessionsvc.Allocation{}, fmt.Errorf("create multipart upload: %w", err)
	}
	uploadID := aws.ToString(out.UploadId)

	urls := make([]string, req.PartCount)
	for i := range urls {
		signed, err := b.presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(b.bucket),
			Key:        aws.String(req.Key),
			UploadId:   aws.String(uploadID),
			PartNumber: aws.Int32(int32(i + 1)),
		}, func(o *s3.PresignOptions) {
			o.Expires = req.URLTTL
		})
		if err != nil {
			b.abort(ctx, req.Key, uploadID)
			return sessionsvc.Allocation{}, fmt.Errorf("presign part %d: %w", i+1, err)
		}
		urls[i] = signed.URL
	}

	return sessionsvc.Allocation{UploadID: uploadID, Location: b.bucket, URLs: urls}, nil
}

// Complete собирает объект в S3 и возвращает его итоговый размер.
func (b *Backend) Complete(ctx context.Context, sess models.Session, parts []models.PartReceipt) (int64, error) {
	completed := make([]awstypes.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = awstypes.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(int32(p.PartNumber)),
		}
	}

	_, err := b.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(sess.Location),
		Key:             aws.String(sess.Key),
		UploadId:        aws.String(sess.ID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return 0, fmt.Errorf("complete multipart upload: %w", err)
	}

	head, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(sess.Location),
		Key:    aws.String(sess.Key),
	})
	if err != nil {
		return 0, fmt.Errorf("head object: %w", err)
	}

	return aws.ToInt64(head.ContentLength), nil
}

func (b *Backend) Abort(ctx context.Context, sess models.Session) error {
	_, err := b.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(sess.Location),
		Key:      aws.String(sess.Key),
		UploadId: aws.String(sess.ID),
	})
	if err != nil {
		return fmt.Errorf("abort multipart upload: %w", err)
	}
	return nil
}

func (b *Backend) Open(ctx context.Context, sess models.Session) (io.ReadCloser, error) {
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(sess.Location),
		Key:    aws.String(sess.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return out.Body, nil
}

func (b *Backend) abort(ctx context.Context, key, uploadID string) {
	_, _ = b.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
}
