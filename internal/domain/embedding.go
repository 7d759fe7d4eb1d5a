package domain

import (
	"context"
	"fmt"
	"image"
	"math"
)

// EmbeddingDim is the fixed length of every face embedding.
const EmbeddingDim = 128

// Embedding is a face descriptor. Values are compared by content only.
type Embedding []float64

// Validate checks the dimension and rejects NaN/Inf components.
func (e Embedding) Validate() error {
	if len(e) != EmbeddingDim {
		return fmt.Errorf("%w: expected %d values, got %d", ErrInvalidEmbedding, EmbeddingDim, len(e))
	}
	for i, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidEmbedding, i)
		}
	}
	return nil
}

// Clone returns an independent copy.
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

// FaceRegion is a face bounding box in raster coordinates.
type FaceRegion struct {
	Rect  image.Rectangle
	Score float64
}

// Landmarks are the alignment points predicted for one face region.
type Landmarks []image.Point

// FaceDetector finds face regions in a grayscale image.
type FaceDetector interface {
	Detect(ctx context.Context, gray *image.Gray) ([]FaceRegion, error)
}

// LandmarkPredictor predicts alignment landmarks for a detected face.
type LandmarkPredictor interface {
	Landmarks(ctx context.Context, img image.Image, region FaceRegion) (Landmarks, error)
}

// DescriptorComputer computes the face embedding from an aligned face.
type DescriptorComputer interface {
	Descriptor(ctx context.Context, img image.Image, landmarks Landmarks) (Embedding, error)
}

// FaceModel is the external detection/landmark/embedding capability.
// Implementations are created once and shared by all requests.
type FaceModel interface {
	FaceDetector
	LandmarkPredictor
	DescriptorComputer
}

// HealthChecker verifies face model availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
