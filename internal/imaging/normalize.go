// Package imaging decodes uploaded images into bounded BGR rasters for face detection.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math"

	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/kailas-cloud/facedex/internal/domain"
)

// Normalization defaults.
const (
	DefaultMaxDimension = 1024
	DefaultMaxPixels    = 50_000_000
)

// Normalizer decodes image bytes and downscales them so the longer side fits MaxDimension.
// Images whose header declares more than MaxPixels pixels are rejected before decoding.
type Normalizer struct {
	MaxDimension int
	MaxPixels    int64
}

// NewNormalizer creates a Normalizer. Non-positive maxDimension selects DefaultMaxDimension.
func NewNormalizer(maxDimension int) Normalizer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return Normalizer{MaxDimension: maxDimension, MaxPixels: DefaultMaxPixels}
}

// WithMaxPixels configures the decode pixel budget. Non-positive values keep the current one.
func (n Normalizer) WithMaxPixels(maxPixels int64) Normalizer {
	if maxPixels > 0 {
		n.MaxPixels = maxPixels
	}
	return n
}

// Normalize decodes data (JPEG, PNG, GIF, BMP, TIFF, WebP) into a BGR raster.
// Images larger than MaxDimension are resized with bilinear sampling, never upscaled.
// Alpha is discarded, colour values are kept as stored.
func (n Normalizer) Normalize(data []byte) (*Raster, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrInvalidImageData)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidImageData, err)
	}
	maxPixels := n.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %s image has no pixels", domain.ErrInvalidImageData, format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %s image is %dx%d, limit is %d pixels",
			domain.ErrInvalidImageData, format, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidImageData, err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: %s image has no pixels", domain.ErrInvalidImageData, format)
	}

	maxDim := n.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	// Alpha is gone before resampling.
	full := NewRaster(img)
	w, h := TargetSize(full.width, full.height, maxDim)
	if w == full.width && h == full.height {
		return full, nil
	}

	resized := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(resized, resized.Bounds(), full, full.Bounds(), draw.Src, nil)
	return NewRaster(resized), nil
}

// TargetSize returns the dimensions after fitting the longer side to maxDim.
// The longer side becomes exactly maxDim, the shorter one is rounded and at least 1.
// Images already within bounds keep their size.
func TargetSize(width, height, maxDim int) (int, int) {
	long := max(width, height)
	if long <= maxDim {
		return width, height
	}

	scale := func(side int) int {
		return max(1, int(math.Round(float64(side)*float64(maxDim)/float64(long))))
	}

	if width >= height {
		return maxDim, scale(height)
	}
	return scale(width), maxDim
}
