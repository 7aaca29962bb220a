package image

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

// NormalizeOptions controls the page normalization pipeline.
type NormalizeOptions struct {
	MaxWidth int
	Contrast float64
	Sharpen  float64 // sigma, 0 disables
	Quality  int
}

func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		MaxWidth: 600,
		Contrast: 50,
		Quality:  85,
	}
}

// Normalizer turns decoded images into model-ready JPEG pages.
type Normalizer struct {
	logger        logger.Logger
	preprocessors []ImagePreprocessor
	quality       int
}

func NewNormalizer(log logger.Logger, opts NormalizeOptions) *Normalizer {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 85
	}

	preprocessors := []ImagePreprocessor{
		NewGrayscaleProcessor(),
		NewResizeProcessor(opts.MaxWidth),
		NewContrastProcessor(opts.Contrast),
	}
	if opts.Sharpen > 0 {
		preprocessors = append(preprocessors, NewSharpenProcessor(opts.Sharpen))
	}

	return &Normalizer{
		logger:        log,
		preprocessors: preprocessors,
		quality:       opts.Quality,
	}
}

// Decode reads any format imaging understands, honouring EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Normalize runs the pipeline and encodes the result as page number n.
func (n *Normalizer) Normalize(img image.Image, number int) (models.PageImage, error) {
	processed, err := n.applyPreprocessing(img)
	if err != nil {
		return models.PageImage{}, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, processed, imaging.JPEG, imaging.JPEGQuality(n.quality)); err != nil {
		return models.PageImage{}, fmt.Errorf("failed to encode page: %w", err)
	}

	bounds := processed.Bounds()
	return models.PageImage{
		Number:   number,
		Data:     buf.Bytes(),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		MimeType: "image/jpeg",
		Source:   PageName(number),
	}, nil
}

func (n *Normalizer) applyPreprocessing(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	var err error
	result := img
	for _, processor := range n.preprocessors {
		result, err = processor.Process(result)
		if err != nil {
			n.logger.Error("Preprocessing failed", logger.Error(err))
			return nil, fmt.Errorf("preprocessing failed: %w", err)
		}
		if result == nil {
			return nil, fmt.Errorf("preprocessor returned nil image")
		}
	}
	return result, nil
}

// PageName is the descriptive file name of a page image.
func PageName(number int) string {
	return fmt.Sprintf("page_%03d.jpg", number)
}
