//go:build !tesseract

package extractors

import (
	"errors"

	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/internal/agent/document"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

var ErrTesseractUnavailable = errors.New(`tesseract extractor not compiled in; rebuild with -tags tesseract`)

func newTesseract(*config.AppConfig, logger.Logger) (document.Extractor, error) {
	return nil, ErrTesseractUnavailable
}
