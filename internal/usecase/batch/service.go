// Package batch extracts embeddings for many users in one call with per-item error reporting.
package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/facedex/internal/domain"
	dombatch "github.com/kailas-cloud/facedex/internal/domain/batch"
	"github.com/kailas-cloud/facedex/internal/logger"
	"github.com/kailas-cloud/facedex/internal/source"
)

// Batch defaults.
const (
	MaxBatchSize       = 100
	DefaultConcurrency = 1
)

// Item is one image to extract. ImageBase64 takes precedence over ImageURL;
// an item with neither is skipped.
type Item struct {
	ID          string
	ImageURL    string
	ImageBase64 string
}

func (i *Item) source() (source.Source, bool) {
	switch {
	case i.ImageBase64 != "":
		return source.FromBase64(i.ImageBase64), true
	case i.ImageURL != "":
		return source.FromURL(i.ImageURL), true
	default:
		return source.Source{}, false
	}
}

// Service runs extractions for a list of items.
type Service struct {
	extractor    Extractor
	maxBatchSize int
	concurrency  int
	logger       *zap.Logger
}

// New creates a batch service.
func New(extractor Extractor, logger *zap.Logger) *Service {
	return &Service{
		extractor:    extractor,
		maxBatchSize: MaxBatchSize,
		concurrency:  DefaultConcurrency,
		logger:       logger,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// WithConcurrency configures how many items are extracted at once.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Extract processes every item and reports per-item outcomes in input order.
// A failing item never aborts the batch; only an oversized batch is rejected as a whole.
func (s *Service) Extract(ctx context.Context, items []Item) (dombatch.Report, error) {
	if len(items) > s.maxBatchSize {
		return dombatch.Report{}, fmt.Errorf("%w: %d items, limit is %d",
			domain.ErrBatchTooLarge, len(items), s.maxBatchSize)
	}

	results := make([]dombatch.Result, len(items))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := range items {
		item := &items[i]
		src, ok := item.source()
		if !ok {
			results[i] = dombatch.NewSkipped(item.ID, domain.ErrNoImageInput)
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = dombatch.NewError(item.ID,
					fmt.Errorf("%w: not started: %w", domain.ErrEmbeddingExtractionFailed, err))
				return nil
			}
			emb, err := s.extractor.Extract(ctx, src)
			if err != nil {
				results[i] = dombatch.NewError(item.ID, err)
				return nil
			}
			results[i] = dombatch.NewOK(item.ID, emb)
			return nil
		})
	}
	_ = g.Wait()

	report := dombatch.NewReport(results)

	logger.FromContext(ctx, s.logger).Info("Batch extraction completed",
		zap.Int("total", report.Total),
		zap.Int("processed", report.Processed),
		zap.Int("successful", report.Successful),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)

	return report, nil
}
