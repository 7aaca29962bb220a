package minio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	cfg "github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

type MinioStorage struct {
	client *minio.Client
	bucket string
	prefix string
	logger logger.Logger
}

// NewMinioStorage connects to the endpoint and creates the bucket on first use.
func NewMinioStorage(ctx context.Context, minioConfig *cfg.MinioConfig, log logger.Logger) (*MinioStorage, error) {
	client, err := minio.New(minioConfig.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(minioConfig.AccessKey, minioConfig.SecretKey, ""),
		Secure: minioConfig.UseSSL,
		Region: minioConfig.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	bucket := minioConfig.BucketName
	found, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket %q is not reachable: %w", bucket, err)
	}
	if !found {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: minioConfig.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", bucket, err)
		}
		log.Info("Created bucket", logger.String("bucket", bucket))
	}

	return &MinioStorage{
		client: client,
		bucket: bucket,
		prefix: "uploads/",
		logger: log.Named("minio"),
	}, nil
}

// objectSize reports the length of in-memory readers; minio falls back to a
// multipart upload when it is unknown.
func objectSize(reader io.Reader) int64 {
	if l, ok := reader.(interface{ Len() int }); ok {
		return int64(l.Len())
	}
	return -1
}

func (m *MinioStorage) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	info, err := m.client.PutObject(ctx, m.bucket, key, reader, objectSize(reader), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", m.failed("put", key, err)
	}
	m.logger.Debug("Stored object", logger.String("key", key), logger.Int64("size", info.Size))
	return key, nil
}

// Get stats the object first because GetObject defers errors until the
// first read.
func (m *MinioStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("object %s does not exist: %w", key, err)
		}
		return nil, m.failed("stat", key, err)
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.failed("get", key, err)
	}
	return obj, nil
}

// Delete is idempotent: RemoveObject succeeds for missing keys.
func (m *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return m.failed("remove", key, err)
	}
	return nil
}

// CleanupBefore streams expired upload objects into a bulk RemoveObjects call.
func (m *MinioStorage) CleanupBefore(ctx context.Context, threshold time.Time) error {
	listed := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    m.prefix,
		Recursive: true,
	})

	expired := make(chan minio.ObjectInfo)
	listDone := make(chan struct{})
	var listErr error
	go func() {
		defer close(listDone)
		defer close(expired)
		for obj := range listed {
			if obj.Err != nil {
				if listErr == nil {
					listErr = obj.Err
				}
				continue
			}
			if obj.LastModified.Before(threshold) {
				select {
				case expired <- obj:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	failures := 0
	for rerr := range m.client.RemoveObjects(ctx, m.bucket, expired, minio.RemoveObjectsOptions{}) {
		m.logger.Warn("Expired object not removed",
			logger.String("key", rerr.ObjectName),
			logger.Error(rerr.Err),
		)
		failures++
	}
	<-listDone
	if listErr != nil {
		return m.failed("list", m.prefix, listErr)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.logger.Info("Swept expired uploads", logger.Time("before", threshold), logger.Int("failures", failures))
	return nil
}

func (m *MinioStorage) failed(op, key string, err error) error {
	m.logger.Error("MinIO "+op+" failed",
		logger.String("bucket", m.bucket),
		logger.String("key", key),
		logger.Error(err),
	)
	return fmt.Errorf("minio %s %s: %w", op, key, err)
}
