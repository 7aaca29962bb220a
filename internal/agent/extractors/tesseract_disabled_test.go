//go:build !tesseract

package extractors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

func TestTesseractRequiresBuildTag(t *testing.T) {
	cfg := config.Default()
	cfg.AI.Extractor = TesseractName

	_, err := NewExtractor(context.Background(), cfg, logger.NewTestLogger())
	assert.ErrorIs(t, err, ErrTesseractUnavailable)
}
