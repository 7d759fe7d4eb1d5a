// Package search ranks a caller-supplied candidate pool by face similarity.
package search

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/domain/search/request"
	"github.com/kailas-cloud/facedex/internal/domain/search/result"
	"github.com/kailas-cloud/facedex/internal/logger"
	"github.com/kailas-cloud/facedex/internal/metrics"
)

// Service is the similarity search engine. It is stateless and safe for concurrent use.
type Service struct {
	logger *zap.Logger
}

// New creates a search service.
func New(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

// Search scores every well-formed candidate against the query, keeps those at or above
// the threshold, and returns at most TopN matches by descending similarity.
// Ties keep pool order. The result is never nil.
func (s *Service) Search(ctx context.Context, req *request.Request) []result.Match {
	query := req.Query()
	pool := req.Pool()
	threshold := req.Threshold()

	matches := make([]result.Match, 0, min(len(pool), req.TopN()))
	skipped := 0

	for i := range pool {
		c := &pool[i]
		if !c.Valid() {
			skipped++
			logger.FromContext(ctx, s.logger).Warn("Skipping malformed search candidate",
				zap.Int("index", i),
				zap.String("user_id", c.ID),
				zap.Int("dimensions", len(c.Embedding)),
			)
			continue
		}

		sim := Similarity(Distance(query, c.Embedding))
		if sim >= threshold {
			matches = append(matches, result.New(c.ID, sim))
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Similarity() > matches[b].Similarity()
	})
	if len(matches) > req.TopN() {
		matches = matches[:req.TopN()]
	}

	metrics.SearchCandidatesTotal.WithLabelValues("scored").Add(float64(len(pool) - skipped))
	metrics.SearchCandidatesTotal.WithLabelValues("skipped").Add(float64(skipped))
	metrics.SearchMatches.Observe(float64(len(matches)))

	logger.FromContext(ctx, s.logger).Debug("Similarity search completed",
		zap.Int("candidates", len(pool)),
		zap.Int("skipped", skipped),
		zap.Int("matches", len(matches)),
		zap.Int("top_n", req.TopN()),
		zap.Float64("threshold", threshold),
	)

	return matches
}
