// Package inference holds FaceModel decorators shared by every request:
// bounded concurrency and per-stage instrumentation.
package inference

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/metrics"
)

// BoundedModel caps the number of concurrent calls into the wrapped model.
// A limit of 1 serializes all inference.
type BoundedModel struct {
	inner domain.FaceModel
	sem   *semaphore.Weighted
}

var _ domain.FaceModel = (*BoundedModel)(nil)

// NewBoundedModel wraps inner with a concurrency limit. Non-positive limits mean 1.
func NewBoundedModel(inner domain.FaceModel, limit int) *BoundedModel {
	if limit <= 0 {
		limit = 1
	}
	return &BoundedModel{inner: inner, sem: semaphore.NewWeighted(int64(limit))}
}

func (b *BoundedModel) acquire(ctx context.Context) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire model slot: %w", err)
	}
	metrics.ModelInFlight.Inc()
	return nil
}

func (b *BoundedModel) release() {
	metrics.ModelInFlight.Dec()
	b.sem.Release(1)
}

// Detect implements domain.FaceDetector.
func (b *BoundedModel) Detect(ctx context.Context, gray *image.Gray) ([]domain.FaceRegion, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.release()
	return b.inner.Detect(ctx, gray)
}

// Landmarks implements domain.LandmarkPredictor.
func (b *BoundedModel) Landmarks(ctx context.Context, img image.Image, region domain.FaceRegion) (domain.Landmarks, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.release()
	return b.inner.Landmarks(ctx, img, region)
}

// Descriptor implements domain.DescriptorComputer.
func (b *BoundedModel) Descriptor(ctx context.Context, img image.Image, landmarks domain.Landmarks) (domain.Embedding, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.release()
	return b.inner.Descriptor(ctx, img, landmarks)
}

// HealthCheck delegates to the wrapped model when it supports health checks.
// It does not take a slot.
func (b *BoundedModel) HealthCheck(ctx context.Context) error {
	if hc, ok := b.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
