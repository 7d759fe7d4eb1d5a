package batch

import (
	"context"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/source"
)

// Extractor turns one image source into one face embedding.
type Extractor interface {
	Extract(ctx context.Context, src source.Source) (domain.Embedding, error)
}
