package image

import (
	"image"

	"github.com/disintegration/imaging"
)

// ImagePreprocessor is one step of the normalization pipeline.
type ImagePreprocessor interface {
	Process(img image.Image) (image.Image, error)
}

type GrayscaleProcessor struct{}

func NewGrayscaleProcessor() *GrayscaleProcessor {
	return &GrayscaleProcessor{}
}

func (p *GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

// ResizeProcessor shrinks images wider than maxWidth, keeping the aspect
// ratio. Narrower images are returned unchanged.
type ResizeProcessor struct {
	maxWidth int
}

func NewResizeProcessor(maxWidth int) *ResizeProcessor {
	return &ResizeProcessor{maxWidth: maxWidth}
}

func (p *ResizeProcessor) Process(img image.Image) (image.Image, error) {
	if p.maxWidth <= 0 || img.Bounds().Dx() <= p.maxWidth {
		return img, nil
	}
	return imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos), nil
}

// ContrastProcessor adjusts contrast by a percentage in -100..100; 50 gives
// a 1.5x stretch around mid-gray.
type ContrastProcessor struct {
	amount float64
}

func NewContrastProcessor(amount float64) *ContrastProcessor {
	return &ContrastProcessor{amount: amount}
}

func (p *ContrastProcessor) Process(img image.Image) (image.Image, error) {
	if p.amount == 0 {
		return img, nil
	}
	return imaging.AdjustContrast(img, p.amount), nil
}

type SharpenProcessor struct {
	strength float64
}

func NewSharpenProcessor(strength float64) *SharpenProcessor {
	return &SharpenProcessor{strength: strength}
}

func (p *SharpenProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Sharpen(img, p.strength), nil
}
