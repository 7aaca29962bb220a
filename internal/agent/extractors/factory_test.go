package extractors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/document-analyzer/config"
	"github.com/feichai0017/document-analyzer/internal/agent/document/vision"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

func TestNewExtractorVision(t *testing.T) {
	cfg := config.Default()
	cfg.AI.APIKey = "k"

	e, err := NewExtractor(context.Background(), cfg, logger.NewTestLogger())
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, vision.Name, e.Name())
	assert.IsType(t, &vision.Client{}, e)
}

func TestNewExtractorUnknown(t *testing.T) {
	cfg := config.Default()
	cfg.AI.Extractor = "magic"

	log := logger.NewTestLogger()
	_, err := NewExtractor(context.Background(), cfg, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extractor")
	assert.True(t, log.HasMessage("ERROR", "Unsupported extractor"))
}
