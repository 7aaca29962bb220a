package handlers

import (
	"github.com/feichai0017/document-analyzer/internal/service/document"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

const (
	ServiceName = "Document Analyzer API"
	Version     = "1.0.0"
)

type Options struct {
	// MaxUploadBytes is the largest accepted file; the request body may
	// exceed it by the multipart overhead.
	MaxUploadBytes int64
	// Model is reported by the health check.
	Model string
}

type Handlers struct {
	Document *DocumentHandler
	Health   *HealthHandler
}

func NewHandlers(
	documentService document.DocumentAnalyzer,
	opts Options,
	log logger.Logger,
) *Handlers {
	log = log.Named("api")
	return &Handlers{
		Document: NewDocumentHandler(documentService, opts.MaxUploadBytes, log),
		Health:   NewHealthHandler(documentService, opts.Model),
	}
}
