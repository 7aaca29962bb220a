package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/document-analyzer/internal/service/document"
)

type HealthHandler struct {
	service document.DocumentAnalyzer
	model   string
}

func NewHealthHandler(service document.DocumentAnalyzer, model string) *HealthHandler {
	return &HealthHandler{service: service, model: model}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    ServiceName,
		"version": Version,
		"status":  "running",
	})
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"model":     h.model,
		"extractor": h.service.ExtractorName(),
	})
}
