// Package extractors selects the configured extraction backend.
package extractors

import (
	"context"
	"fmt"

	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/internal/agent/document"
	"github.com/feichai0017/document-analyzer/internal/agent/document/textract"
	"github.com/feichai0017/document-analyzer/internal/agent/document/vision"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

// TesseractName selects local OCR. The backend needs libtesseract and is only
// compiled with the "tesseract" build tag.
const TesseractName = "tesseract"

// NewExtractor builds the backend named by cfg.AI.Extractor.
func NewExtractor(ctx context.Context, cfg *config.AppConfig, log logger.Logger) (document.Extractor, error) {
	log.Info("Creating extractor", logger.String("extractor", cfg.AI.Extractor))

	switch cfg.AI.Extractor {
	case vision.Name, "":
		return vision.NewClient(vision.Config{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
			Strict:      cfg.AI.StrictSchema,
		}, log)

	case textract.Name:
		tc := config.GetTextractConfig()
		e, err := textract.New(ctx, &textract.Config{
			Region:        tc.Region,
			Endpoint:      tc.Endpoint,
			AccessKey:     tc.AccessKey,
			SecretKey:     tc.SecretKey,
			MinConfidence: float32(tc.MinConfidence),
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create textract extractor: %w", err)
		}
		return e, nil

	case TesseractName:
		return newTesseract(cfg, log)
	}

	log.Error("Unsupported extractor", logger.String("extractor", cfg.AI.Extractor))
	return nil, fmt.Errorf("unsupported extractor: %s", cfg.AI.Extractor)
}
