package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

// ErrNoPages is wrapped in a ConversionError for documents without pages.
var ErrNoPages = errors.New("document has no pages")

// PageFunc receives each rasterized page, numbered from 1.
type PageFunc func(number int, img image.Image) error

// Renderer rasterizes PDF pages through MuPDF.
type Renderer struct {
	logger logger.Logger
	dpi    float64
}

func NewRenderer(log logger.Logger, dpi int) *Renderer {
	if dpi <= 0 {
		dpi = 200
	}
	return &Renderer{
		logger: log,
		dpi:    float64(dpi),
	}
}

// Render calls fn for every page in order. It returns the page count, which
// is known before the first page is rendered.
func (r *Renderer) Render(ctx context.Context, data []byte, fn PageFunc) (int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return 0, &models.ConversionError{Err: fmt.Errorf("failed to open PDF: %w", err)}
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return 0, &models.ConversionError{Err: ErrNoPages}
	}

	r.logger.Debug("Rendering PDF",
		logger.Int("pages", pageCount),
		logger.Float64("dpi", r.dpi),
	)

	for i := 0; i < pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return pageCount, err
		}

		img, err := doc.ImageDPI(i, r.dpi)
		if err != nil {
			return pageCount, &models.ConversionError{Page: i + 1, Err: err}
		}
		if err := fn(i+1, img); err != nil {
			return pageCount, err
		}
	}

	return pageCount, nil
}
