package validator

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

// mimeTypes lists the sniffed content types accepted per extension.
var mimeTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".bmp":  {"image/bmp"},
	".tif":  {"image/tiff", "application/octet-stream"},
	".tiff": {"image/tiff", "application/octet-stream"},
}

// DocumentValidator checks uploads before a job is created.
type DocumentValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

type ValidatorConfig struct {
	MaxFileSize       int64    // bytes
	AllowedExtensions []string // lower-case, with leading dot
	MaxPageCount      int      // PDF pages, 0 disables the check
}

// FileInfo describes an accepted upload.
type FileInfo struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
	Hash      string `json:"hash"`
	PageCount int    `json:"pageCount,omitempty"`
}

func DefaultConfig() *ValidatorConfig {
	return &ValidatorConfig{
		MaxFileSize:       50 * 1024 * 1024,
		AllowedExtensions: []string{".pdf", ".jpg", ".jpeg", ".png"},
		MaxPageCount:      200,
	}
}

func NewDocumentValidator(log logger.Logger, config *ValidatorConfig) *DocumentValidator {
	if config == nil {
		config = DefaultConfig()
	}
	return &DocumentValidator{
		logger: log,
		config: config,
	}
}

// MaxFileSize is the configured upload limit in bytes.
func (v *DocumentValidator) MaxFileSize() int64 {
	return v.config.MaxFileSize
}

// Validate inspects the upload and returns models.ValidationErrors listing
// every problem found.
func (v *DocumentValidator) Validate(filename string, data []byte) (*FileInfo, error) {
	info := &FileInfo{
		Filename:  filepath.Base(filename),
		Size:      int64(len(data)),
		Extension: strings.ToLower(filepath.Ext(filename)),
	}

	if strings.TrimSpace(filename) == "" || len(data) == 0 {
		return nil, models.ValidationErrors{{
			Code:    models.CodeFileRequired,
			Message: "No file provided",
			Field:   "file",
		}}
	}

	errs := v.performBasicValidation(info)
	if len(errs) > 0 {
		return nil, errs
	}

	info.MimeType = http.DetectContentType(data[:min(len(data), 512)])
	if err := v.validateMimeType(info); err != nil {
		return nil, models.ValidationErrors{err}
	}

	if info.Extension == ".pdf" {
		if err := v.validatePDF(data, info); err != nil {
			return nil, models.ValidationErrors{err}
		}
	}

	sum := sha256.Sum256(data)
	info.Hash = hex.EncodeToString(sum[:])

	v.logger.Debug("Upload validated",
		logger.String("filename", info.Filename),
		logger.Int64("size", info.Size),
		logger.String("mimeType", info.MimeType),
	)
	return info, nil
}

func (v *DocumentValidator) performBasicValidation(info *FileInfo) models.ValidationErrors {
	var errs models.ValidationErrors

	if info.Size > v.config.MaxFileSize {
		errs = append(errs, &models.ValidationError{
			Code:    models.CodeFileTooLarge,
			Message: fmt.Sprintf("File too large. Maximum size: %dMB", v.config.MaxFileSize/(1024*1024)),
			Field:   "size",
		})
	}

	if !v.extensionAllowed(info.Extension) {
		errs = append(errs, &models.ValidationError{
			Code: models.CodeInvalidFileType,
			Message: fmt.Sprintf("File type %q not allowed. Allowed: %s",
				info.Extension, strings.Join(v.config.AllowedExtensions, ", ")),
			Field: "extension",
		})
	}

	return errs
}

func (v *DocumentValidator) extensionAllowed(ext string) bool {
	if ext == "" {
		return false
	}
	for _, allowed := range v.config.AllowedExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

// validateMimeType compares the sniffed type with the extension. Extensions
// with no known signature are accepted as is.
func (v *DocumentValidator) validateMimeType(info *FileInfo) *models.ValidationError {
	allowed, ok := mimeTypes[info.Extension]
	if !ok {
		return nil
	}
	for _, mime := range allowed {
		if mime == info.MimeType {
			return nil
		}
	}
	return &models.ValidationError{
		Code:    models.CodeInvalidMimeType,
		Message: fmt.Sprintf("Invalid MIME type %s for extension %s", info.MimeType, info.Extension),
		Field:   "mimeType",
	}
}

// validatePDF enforces the page limit. A PDF that cannot be parsed here is
// let through; rendering reports the failure on the job.
func (v *DocumentValidator) validatePDF(data []byte, info *FileInfo) (verr *models.ValidationError) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Warn("PDF inspection panicked", logger.Any("panic", r))
			verr = nil
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		v.logger.Warn("Unable to inspect PDF",
			logger.String("filename", info.Filename),
			logger.Error(err),
		)
		return nil
	}

	info.PageCount = reader.NumPage()
	if v.config.MaxPageCount > 0 && info.PageCount > v.config.MaxPageCount {
		return &models.ValidationError{
			Code:    models.CodeTooManyPages,
			Message: fmt.Sprintf("PDF has %d pages. Maximum: %d", info.PageCount, v.config.MaxPageCount),
			Field:   "pages",
		}
	}
	return nil
}
