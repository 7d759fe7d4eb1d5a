package request

import (
	"fmt"

	"github.com/kailas-cloud/facedex/internal/domain"
)

// Search parameter limits.
const (
	DefaultTopN      = 10
	MaxTopN          = 1000
	DefaultThreshold = 0.6
	MinThreshold     = 0.0
	MaxThreshold     = 1.0
)

// Candidate is one caller-supplied (identifier, embedding) pair.
// Malformed candidates are tolerated here and skipped by the engine.
type Candidate struct {
	ID        string
	Embedding domain.Embedding
}

// Valid reports whether the candidate can be scored.
func (c *Candidate) Valid() bool {
	return c.ID != "" && c.Embedding.Validate() == nil
}

// Request is a validated similarity search.
type Request struct {
	query     domain.Embedding
	pool      []Candidate
	topN      int
	threshold float64
}

// New validates the query and normalizes topN and threshold.
// topN outside [1, MaxTopN] is reset to DefaultTopN when non-positive and clamped to
// MaxTopN when too large; threshold is clamped to [0, 1].
func New(query domain.Embedding, pool []Candidate, topN int, threshold float64) (Request, error) {
	if err := query.Validate(); err != nil {
		return Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidQueryEmbedding, err)
	}

	return Request{
		query:     query.Clone(),
		pool:      pool,
		topN:      clampTopN(topN),
		threshold: clampThreshold(threshold),
	}, nil
}

// Query returns the query embedding.
func (r *Request) Query() domain.Embedding { return r.query }

// Pool returns the candidate pool. The slice is owned by the caller and must not be mutated.
func (r *Request) Pool() []Candidate { return r.pool }

// TopN returns the maximum number of matches to return.
func (r *Request) TopN() int { return r.topN }

// Threshold returns the minimum similarity a match must reach.
func (r *Request) Threshold() float64 { return r.threshold }

func clampTopN(n int) int {
	if n <= 0 {
		return DefaultTopN
	}
	if n > MaxTopN {
		return MaxTopN
	}
	return n
}

func clampThreshold(t float64) float64 {
	return max(MinThreshold, min(MaxThreshold, t))
}
