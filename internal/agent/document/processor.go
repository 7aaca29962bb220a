package document

import (
	"context"

	"github.com/feichai0017/document-analyzer/internal/models"
)

// Extractor turns one page image into a structured extraction.
type Extractor interface {
	// Name identifies the backend in logs and result metadata.
	Name() string

	// Extract makes a single attempt; failures are *models.ExtractionError.
	Extract(ctx context.Context, page models.PageImage) (models.Extraction, error)

	// Close releases backend resources.
	Close() error
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, page models.PageImage) (models.Extraction, error)

func (f ExtractorFunc) Name() string { return "func" }

func (f ExtractorFunc) Extract(ctx context.Context, page models.PageImage) (models.Extraction, error) {
	return f(ctx, page)
}

func (f ExtractorFunc) Close() error { return nil }
