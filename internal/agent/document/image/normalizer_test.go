package image

import (
	"bytes"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/document-analyzer/internal/testutil"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

func decodeJPEG(t *testing.T, data []byte) stdimage.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestNormalizeDownscalesWideImages(t *testing.T) {
	n := NewNormalizer(logger.NewTestLogger(), DefaultNormalizeOptions())

	page, err := n.Normalize(testutil.NewImage(1200, 800), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 600, page.Width)
	assert.Equal(t, 400, page.Height)
	assert.Equal(t, "image/jpeg", page.MimeType)
	assert.Equal(t, "page_001.jpg", page.Source)

	img := decodeJPEG(t, page.Data)
	assert.Equal(t, 600, img.Bounds().Dx())
}

func TestNormalizeNeverUpscales(t *testing.T) {
	n := NewNormalizer(logger.NewTestLogger(), DefaultNormalizeOptions())

	page, err := n.Normalize(testutil.NewImage(300, 100), 7)
	require.NoError(t, err)
	assert.Equal(t, 300, page.Width)
	assert.Equal(t, 100, page.Height)
	assert.Equal(t, "page_007.jpg", page.Source)
}

func TestNormalizeProducesGrayscale(t *testing.T) {
	n := NewNormalizer(logger.NewTestLogger(), NormalizeOptions{MaxWidth: 100, Quality: 95, Sharpen: 0.5})

	src := imaging.New(50, 50, color.NRGBA{R: 255, A: 255})
	page, err := n.Normalize(src, 1)
	require.NoError(t, err)

	img := decodeJPEG(t, page.Data)
	r, g, b, _ := img.At(25, 25).RGBA()
	assert.InDelta(t, r, g, 1024)
	assert.InDelta(t, g, b, 1024)
}

func TestContrastStretchesAroundMidGray(t *testing.T) {
	dark := imaging.New(4, 4, color.NRGBA{R: 80, G: 80, B: 80, A: 255})

	out, err := NewContrastProcessor(50).Process(dark)
	require.NoError(t, err)

	r, _, _, _ := out.At(1, 1).RGBA()
	assert.Less(t, r>>8, uint32(80))

	same, err := NewContrastProcessor(0).Process(dark)
	require.NoError(t, err)
	assert.Same(t, dark, same)
}

func TestDecode(t *testing.T) {
	img, err := Decode(testutil.PNG(40, 20))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())

	_, err = Decode([]byte("not an image"))
	assert.Error(t, err)
}

func TestNormalizeRejectsNil(t *testing.T) {
	n := NewNormalizer(logger.NewTestLogger(), DefaultNormalizeOptions())
	_, err := n.Normalize(nil, 1)
	assert.Error(t, err)
}
