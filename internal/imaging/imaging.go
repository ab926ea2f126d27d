// Package imaging turns uploaded images into binary fingerprints and keeps
// normalised copies of uploads on disk.
package imaging

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	"hashrecipe/internal/retrieval"
)

// ErrUnsupportedFormat is returned for extensions other than jpg, jpeg and png.
var ErrUnsupportedFormat = errors.New("unsupported image format")

const (
	hashWidth  = 8
	hashHeight = 4

	// FingerprintBits is the length of an AverageHash fingerprint.
	FingerprintBits = hashWidth * hashHeight

	// MaxWidth is the width uploads are scaled down to.
	MaxWidth = 800
)

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
}

// AllowedExtension reports whether name has an image extension we accept.
// It returns the lower-cased extension.
func AllowedExtension(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	return ext, allowedExtensions[ext]
}

// AverageHash downsamples the image to 8x4, compares each pixel's luminance
// to the mean and returns the 32 resulting bits as a string of '0' and '1'.
func AverageHash(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	small := resize.Resize(hashWidth, hashHeight, img, resize.Bilinear)
	b := small.Bounds()

	lum := make([]float64, 0, FingerprintBits)
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := small.At(x, y).RGBA()
			l := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)
			lum = append(lum, l)
			sum += l
		}
	}
	mean := sum / float64(len(lum))

	var sb strings.Builder
	sb.Grow(len(lum))
	for _, l := range lum {
		if l > mean {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String(), nil
}

// Hasher fingerprints query images with AverageHash.
type Hasher struct{}

var _ retrieval.Fingerprinter = Hasher{}

// Fingerprint implements retrieval.Fingerprinter. It fails early on a
// cancelled context.
func (Hasher) Fingerprint(ctx context.Context, img retrieval.ImageRef) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return AverageHash(img.Data)
}

// ContentHash returns the hex SHA-256 of data.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Normalize scales images wider than MaxWidth down to it and re-encodes them
// in the format named by ext.
func Normalize(data []byte, ext string) ([]byte, error) {
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Dx() > MaxWidth {
		img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	switch ext {
	case ".jpeg", ".jpg":
		err = jpeg.Encode(&buf, img, nil)
	case ".png":
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveUpload normalises data and writes it to dir under its content hash.
// It returns the written path.
func SaveUpload(dir string, data []byte, ext string) (string, error) {
	normalized, err := Normalize(data, ext)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(dir, ContentHash(data)+ext)
	if err := os.WriteFile(path, normalized, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return path, nil
}
