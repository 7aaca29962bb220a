package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/pkg/logger"
	"github.com/feichai0017/document-analyzer/pkg/storage/local"
	"github.com/feichai0017/document-analyzer/pkg/storage/minio"
	"github.com/feichai0017/document-analyzer/pkg/storage/s3"
)

type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage keeps uploaded documents until their job is deleted.
type Storage interface {
	// Store writes reader under key and returns the key.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes objects last modified before threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// UploadKey is the storage key of a job's original upload.
func UploadKey(jobID, filename string) string {
	return fmt.Sprintf("uploads/%s/%s", jobID, filename)
}

// NewStorage builds the backend selected by cfg.Storage.Backend.
func NewStorage(ctx context.Context, cfg *config.AppConfig, log logger.Logger) (Storage, error) {
	log = log.Named("storage")
	switch StorageType(cfg.Storage.Backend) {
	case StorageTypeLocal, "":
		return local.NewLocalStorage(cfg.Storage.UploadDir, log)
	case StorageTypeS3:
		return s3.NewS3Storage(ctx, config.GetS3Config(), log)
	case StorageTypeMinio:
		return minio.NewMinioStorage(ctx, config.GetMinioConfig(), log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Backend)
	}
}
