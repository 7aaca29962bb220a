package store

import (
	"context"
	"fmt"

	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// New builds the job store selected by cfg.Store.Backend. Redis records
// expire after the job retention period.
func New(ctx context.Context, cfg *config.AppConfig, log logger.Logger) (Store, error) {
	switch cfg.Store.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(ctx, &RedisConfig{
			Addr:      cfg.Queue.RedisAddr,
			DB:        cfg.Queue.RedisDB,
			Password:  cfg.Queue.RedisPassword,
			KeyPrefix: cfg.Store.KeyPrefix,
			TTL:       cfg.Jobs.Retention,
		}, log)
	}
	return nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
}
