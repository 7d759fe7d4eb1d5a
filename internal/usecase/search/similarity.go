package search

import (
	"math"

	"github.com/kailas-cloud/facedex/internal/domain"
)

// Distance returns the Euclidean distance between two embeddings of equal length.
func Distance(a, b domain.Embedding) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Similarity maps a distance to (0, 1] with exp(-d). Distance 0 gives exactly 1.
func Similarity(distance float64) float64 {
	return math.Exp(-distance)
}
