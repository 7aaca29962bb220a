package agent

import (
	"context"
	stdimage "image"

	"github.com/feichai0017/document-analyzer/internal/agent/document/image"
	"github.com/feichai0017/document-analyzer/internal/agent/document/pdf"
	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

type PrepareOptions struct {
	DPI       int
	Normalize image.NormalizeOptions
}

// Preparer converts an upload into normalized page images.
type Preparer struct {
	logger     logger.Logger
	renderer   *pdf.Renderer
	normalizer *image.Normalizer
}

func NewPreparer(log logger.Logger, opts PrepareOptions) *Preparer {
	log = log.Named("preparer")
	return &Preparer{
		logger:     log,
		renderer:   pdf.NewRenderer(log, opts.DPI),
		normalizer: image.NewNormalizer(log, opts.Normalize),
	}
}

// Prepare returns the pages of data in order. ext selects the renderer.
func (p *Preparer) Prepare(ctx context.Context, data []byte, ext string) ([]models.PageImage, error) {
	fileType, ok := models.DetectFileType(ext)
	if !ok {
		return nil, &models.UnsupportedFormatError{Ext: ext}
	}

	switch fileType {
	case models.PDF:
		return p.preparePDF(ctx, data)
	default:
		return p.prepareImage(data)
	}
}

func (p *Preparer) preparePDF(ctx context.Context, data []byte) ([]models.PageImage, error) {
	var pages []models.PageImage
	count, err := p.renderer.Render(ctx, data, func(n int, img stdimage.Image) error {
		page, err := p.normalizer.Normalize(img, n)
		if err != nil {
			return &models.ConversionError{Page: n, Err: err}
		}
		pages = append(pages, page)
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("PDF prepared", logger.Int("pages", count))
	return pages, nil
}

func (p *Preparer) prepareImage(data []byte) ([]models.PageImage, error) {
	img, err := image.Decode(data)
	if err != nil {
		return nil, &models.ConversionError{Page: 1, Err: err}
	}
	page, err := p.normalizer.Normalize(img, 1)
	if err != nil {
		return nil, &models.ConversionError{Page: 1, Err: err}
	}
	return []models.PageImage{page}, nil
}
