package pdf

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/internal/testutil"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

func TestRenderVisitsPagesInOrder(t *testing.T) {
	r := NewRenderer(logger.NewTestLogger(), 72)

	var seen []int
	count, err := r.Render(context.Background(), testutil.BuildPDF(3), func(n int, img image.Image) error {
		seen = append(seen, n)
		assert.Equal(t, 200, img.Bounds().Dx())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestRenderScalesWithDPI(t *testing.T) {
	r := NewRenderer(logger.NewTestLogger(), 144)

	_, err := r.Render(context.Background(), testutil.BuildPDF(1), func(n int, img image.Image) error {
		assert.Equal(t, 400, img.Bounds().Dx())
		return nil
	})
	require.NoError(t, err)
}

func TestRenderCorruptDocument(t *testing.T) {
	r := NewRenderer(logger.NewTestLogger(), 72)

	_, err := r.Render(context.Background(), []byte("%PDF-1.4 garbage"), func(int, image.Image) error {
		t.Fatal("no page expected")
		return nil
	})

	var convErr *models.ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, 0, convErr.Page)
}

func TestRenderStopsOnCallbackError(t *testing.T) {
	r := NewRenderer(logger.NewTestLogger(), 72)
	stop := errors.New("stop")

	calls := 0
	_, err := r.Render(context.Background(), testutil.BuildPDF(3), func(int, image.Image) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestRenderHonoursCancellation(t *testing.T) {
	r := NewRenderer(logger.NewTestLogger(), 72)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, testutil.BuildPDF(2), func(int, image.Image) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
