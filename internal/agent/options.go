package agent

import (
	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/internal/agent/document/image"
)

// PrepareOptionsFromConfig maps the image section onto PrepareOptions.
func PrepareOptionsFromConfig(cfg *config.AppConfig) PrepareOptions {
	return PrepareOptions{
		DPI: cfg.Image.DPI,
		Normalize: image.NormalizeOptions{
			MaxWidth: cfg.Image.MaxWidth,
			Contrast: cfg.Image.Contrast,
			Sharpen:  cfg.Image.Sharpen,
			Quality:  cfg.Image.Quality,
		},
	}
}
