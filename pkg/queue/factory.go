package queue

import (
	"fmt"

	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

const (
	BackendInline = "inline"
	BackendPool   = "pool"
	BackendAsynq  = "asynq"
)

// NewScheduler builds the scheduler selected by cfg.Queue.Backend.
func NewScheduler(cfg *config.AppConfig, log logger.Logger) (Scheduler, error) {
	switch cfg.Queue.Backend {
	case BackendPool, "":
		return NewPoolScheduler(cfg.Queue.Concurrency, cfg.Queue.Size, log), nil
	case BackendInline:
		return NewInlineScheduler(log), nil
	case BackendAsynq:
		return NewAsynqScheduler(&AsynqConfig{
			RedisAddr:     cfg.Queue.RedisAddr,
			RedisDB:       cfg.Queue.RedisDB,
			RedisPassword: cfg.Queue.RedisPassword,
			Timeout:       cfg.Jobs.Timeout,
		}, log), nil
	}
	return nil, fmt.Errorf("unsupported queue backend: %s", cfg.Queue.Backend)
}
