//go:build tesseract

// Package tesseract runs local OCR through libtesseract.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

const Name = "tesseract"

type Config struct {
	Languages     []string
	PageSegMode   gosseract.PageSegMode
	MinConfidence float64
}

type Extractor struct {
	logger logger.Logger
	config *Config
}

func New(cfg *Config, log logger.Logger) *Extractor {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	if cfg.PageSegMode == 0 {
		cfg.PageSegMode = gosseract.PSM_AUTO
	}
	return &Extractor{
		logger: log.Named("tesseract"),
		config: cfg,
	}
}

func (e *Extractor) Name() string { return Name }

// Extract creates a client per call; gosseract clients are not safe for
// concurrent use.
func (e *Extractor) Extract(ctx context.Context, page models.PageImage) (models.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, &models.ExtractionError{Page: page.Number, Err: err}
	}

	client := gosseract.NewClient()
	defer client.Close()

	fail := func(err error) (models.Extraction, error) {
		return nil, &models.ExtractionError{Page: page.Number, Err: err}
	}

	if err := client.SetLanguage(e.config.Languages...); err != nil {
		return fail(fmt.Errorf("failed to set language: %w", err))
	}
	if err := client.SetPageSegMode(e.config.PageSegMode); err != nil {
		return fail(fmt.Errorf("failed to set page segmentation mode: %w", err))
	}
	if err := client.SetImageFromBytes(page.Data); err != nil {
		return fail(fmt.Errorf("failed to set image: %w", err))
	}

	text, err := client.Text()
	if err != nil {
		return fail(fmt.Errorf("failed to get text: %w", err))
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		e.logger.Warn("Failed to get bounding boxes", logger.Int("page", page.Number), logger.Error(err))
	}

	return buildExtraction(text, boxes, e.config.MinConfidence), nil
}

func (e *Extractor) Close() error { return nil }

func buildExtraction(text string, boxes []gosseract.BoundingBox, minConfidence float64) models.Extraction {
	var total float64
	var valid int
	var uncertain []any
	for _, box := range boxes {
		if box.Confidence >= minConfidence {
			total += box.Confidence
			valid++
		} else if w := strings.TrimSpace(box.Word); w != "" {
			uncertain = append(uncertain, w)
		}
	}

	avg := 0.0
	if valid > 0 {
		avg = total / float64(valid)
	}
	label := "low"
	switch {
	case avg >= 90:
		label = "high"
	case avg >= 70:
		label = "medium"
	}
	if uncertain == nil {
		uncertain = []any{}
	}

	result := models.Extraction{
		"document_classification": map[string]any{},
		"content": map[string]any{
			"full_text": strings.TrimSpace(text),
		},
		"confidence_quality": map[string]any{
			"overall_confidence":     label,
			"average_confidence":     avg,
			"uncertain_elements":     uncertain,
			"requires_manual_review": label == "low",
		},
	}
	result.Metadata()["extractor"] = Name
	return result
}
