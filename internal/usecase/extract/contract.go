package extract

import (
	"context"

	"github.com/kailas-cloud/facedex/internal/imaging"
	"github.com/kailas-cloud/facedex/internal/source"
)

// ImageLoader resolves an image source to raw bytes.
type ImageLoader interface {
	Load(ctx context.Context, src source.Source) ([]byte, error)
}

// ImageNormalizer decodes raw bytes into a bounded raster.
type ImageNormalizer interface {
	Normalize(data []byte) (*imaging.Raster, error)
}
