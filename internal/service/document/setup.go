package document

import (
	"context"
	"fmt"

	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/internal/agent"
	"github.com/feichai0017/document-analyzer/internal/agent/extractors"
	"github.com/feichai0017/document-analyzer/internal/utils/validator"
	"github.com/feichai0017/document-analyzer/pkg/logger"
	"github.com/feichai0017/document-analyzer/pkg/queue"
	"github.com/feichai0017/document-analyzer/pkg/storage"
	"github.com/feichai0017/document-analyzer/pkg/store"
)

// GetService wires the configured backends around scheduler. The returned
// close function releases the store and the extractor.
func GetService(ctx context.Context, cfg *config.AppConfig, scheduler queue.Scheduler, log logger.Logger) (*DocumentService, func(), error) {
	jobs, err := store.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize job store: %w", err)
	}

	blobs, err := storage.NewStorage(ctx, cfg, log)
	if err != nil {
		_ = jobs.Close()
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	extractor, err := extractors.NewExtractor(ctx, cfg, log)
	if err != nil {
		_ = jobs.Close()
		return nil, nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}

	v := validator.NewDocumentValidator(log.Named("validator"), &validator.ValidatorConfig{
		MaxFileSize:       cfg.Upload.MaxFileSizeBytes(),
		AllowedExtensions: cfg.Upload.NormalizedExtensions(),
		MaxPageCount:      cfg.Upload.MaxPDFPages,
	})
	preparer := agent.NewPreparer(log, agent.PrepareOptionsFromConfig(cfg))

	svc := NewService(jobs, blobs, preparer, extractor, scheduler, v, log, &ServiceConfig{
		PageConcurrency: cfg.Jobs.PageConcurrency,
		JobTimeout:      cfg.Jobs.Timeout,
	})

	closeFn := func() {
		if err := extractor.Close(); err != nil {
			log.Warn("Failed to close extractor", logger.Error(err))
		}
		if err := jobs.Close(); err != nil {
			log.Warn("Failed to close job store", logger.Error(err))
		}
	}
	return svc, closeFn, nil
}
