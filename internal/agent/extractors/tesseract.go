//go:build tesseract

package extractors

import (
	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/internal/agent/document"
	"github.com/feichai0017/document-analyzer/internal/agent/document/tesseract"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

func newTesseract(cfg *config.AppConfig, log logger.Logger) (document.Extractor, error) {
	return tesseract.New(&tesseract.Config{
		Languages:     cfg.AI.TesseractLangs,
		MinConfidence: 60,
	}, log), nil
}
