package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/internal/service/document"
	"github.com/feichai0017/document-analyzer/pkg/converters"
	"github.com/feichai0017/document-analyzer/pkg/logger"
	"github.com/feichai0017/document-analyzer/pkg/queue"
)

const (
	multipartOverhead = 1 << 20
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type DocumentHandler struct {
	service        document.DocumentAnalyzer
	maxUploadBytes int64
	logger         logger.Logger
}

type AnalyzeResponse struct {
	Status  models.JobStatus `json:"status"`
	Message string           `json:"message"`
	JobID   string           `json:"job_id"`
}

type StatusResponse struct {
	JobID          string           `json:"job_id"`
	Status         models.JobStatus `json:"status"`
	Filename       string           `json:"filename"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	PageCount      int              `json:"page_count"`
	PagesProcessed int              `json:"pages_processed"`
	Error          string           `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error   string                    `json:"error"`
	Message string                    `json:"message"`
	Code    string                    `json:"code,omitempty"`
	Status  models.JobStatus          `json:"status,omitempty"`
	Details []*models.ValidationError `json:"details,omitempty"`
}

func NewDocumentHandler(service document.DocumentAnalyzer, maxUploadBytes int64, log logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         log,
	}
}

// Analyze accepts a multipart "file" and returns the pending job's id.
func (h *DocumentHandler) Analyze(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			h.handleError(c, models.ValidationErrors{{
				Code:    models.CodeFileTooLarge,
				Message: fmt.Sprintf("File exceeds the maximum size of %d bytes", h.maxUploadBytes),
				Field:   "file",
			}})
			return
		}
		h.handleError(c, models.ValidationErrors{{
			Code:    models.CodeFileRequired,
			Message: "No file provided",
			Field:   "file",
		}})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.handleError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	job, err := h.service.Submit(c.Request.Context(), document.Upload{
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Status:  models.StatusPending,
		Message: "Document uploaded successfully. Processing started.",
		JobID:   job.ID,
	})
}

func (h *DocumentHandler) GetStatus(c *gin.Context) {
	job, err := h.service.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		JobID:          job.ID,
		Status:         job.Status,
		Filename:       job.Filename,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
		PageCount:      job.PageCount,
		PagesProcessed: job.PagesProcessed,
		Error:          job.Error,
	})
}

func (h *DocumentHandler) GetResults(c *gin.Context) {
	job, err := h.service.GetResults(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, converters.NewResultsDocument(job))
}

// DownloadResults serves the results document as a file attachment.
func (h *DocumentHandler) DownloadResults(c *gin.Context) {
	job, err := h.service.GetResults(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=result_%s.json", job.ID))
	c.IndentedJSON(http.StatusOK, converters.NewResultsDocument(job))
}

func (h *DocumentHandler) ExportResults(c *gin.Context) {
	job, err := h.service.GetResults(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	data, err := converters.ExportXLSX(job)
	if err != nil {
		h.handleError(c, fmt.Errorf("failed to export results: %w", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=result_%s.xlsx", job.ID))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *DocumentHandler) ListJobs(c *gin.Context) {
	jobs, err := h.service.ListJobs(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *DocumentHandler) DeleteJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if err := h.service.DeleteJob(c.Request.Context(), jobID); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "deleted",
		"job_id": jobID,
	})
}

// handleError maps service errors onto status codes.
func (h *DocumentHandler) handleError(c *gin.Context, err error) {
	var (
		verrs    models.ValidationErrors
		notFound *models.NotFoundError
		notReady *models.JobNotReadyError
	)

	switch {
	case errors.As(err, &verrs):
		status := http.StatusBadRequest
		for _, v := range verrs {
			if v.Code == models.CodeFileTooLarge {
				status = http.StatusRequestEntityTooLarge
			}
		}
		resp := ErrorResponse{Error: "validation_failed", Message: verrs.Error(), Details: verrs}
		if len(verrs) > 0 {
			resp.Code = verrs[0].Code
		}
		c.JSON(status, resp)

	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Job not found"})

	case errors.As(err, &notReady):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "job_not_ready",
			Message: notReady.Error(),
			Status:  notReady.Status,
		})

	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrSchedulerClosed):
		h.logger.Warn("Job rejected by scheduler", logger.String("path", c.Request.URL.Path), logger.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: err.Error()})

	default:
		h.logger.Error("Request failed",
			logger.String("path", c.Request.URL.Path),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
	}
}
