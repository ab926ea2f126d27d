package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashrecipe/internal/recipe"
	"hashrecipe/internal/retrieval"
)

// halves draws a w x h image, dark on the left half and bright on the right.
func halves(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{A: 255}
			if x >= w/2 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAverageHash(t *testing.T) {
	fp, err := AverageHash(halves(t, 64, 32))
	require.NoError(t, err)
	assert.Len(t, fp, FingerprintBits)
	assert.True(t, recipe.ValidFingerprint(fp))
	assert.Equal(t, "00001111000011110000111100001111", fp)

	again, err := AverageHash(halves(t, 128, 64))
	require.NoError(t, err)
	assert.Equal(t, fp, again, "scale invariant")
}

func TestAverageHash_InvalidData(t *testing.T) {
	_, err := AverageHash([]byte("not an image"))
	assert.Error(t, err)
}

func TestHasher(t *testing.T) {
	h := Hasher{}
	fp, err := h.Fingerprint(context.Background(), retrieval.ImageRef{Data: halves(t, 16, 8)})
	require.NoError(t, err)
	assert.Len(t, fp, FingerprintBits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Fingerprint(ctx, retrieval.ImageRef{Data: halves(t, 16, 8)})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAllowedExtension(t *testing.T) {
	ext, ok := AllowedExtension("Dish.JPG")
	assert.True(t, ok)
	assert.Equal(t, ".jpg", ext)
	_, ok = AllowedExtension("dish.gif")
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	out, err := Normalize(halves(t, 1600, 100), ".png")
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, MaxWidth, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	out, err = Normalize(halves(t, 20, 10), ".jpg")
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 20, cfg.Width)

	_, err = Normalize(halves(t, 4, 4), ".gif")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestSaveUpload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	data := halves(t, 10, 10)

	path, err := SaveUpload(dir, data, ".png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ContentHash(data)+".png"), path)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHash(nil))
}
