package inference

import (
	"context"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/logger"
	"github.com/kailas-cloud/facedex/internal/metrics"
)

// Stage labels.
const (
	stageDetect     = "detect"
	stageLandmarks  = "landmarks"
	stageDescriptor = "descriptor"
)

// InstrumentedModel wraps a FaceModel with per-stage logging and duration metrics.
// Transport metrics (requests, backend latency) are recorded by the model client.
// This layer measures what the pipeline sees, including concurrency waits.
type InstrumentedModel struct {
	inner  domain.FaceModel
	logger *zap.Logger
}

var _ domain.FaceModel = (*InstrumentedModel)(nil)

// NewInstrumentedModel wraps a model with observability.
// The request-scoped logger from the context takes precedence over logger.
func NewInstrumentedModel(inner domain.FaceModel, logger *zap.Logger) *InstrumentedModel {
	return &InstrumentedModel{inner: inner, logger: logger}
}

// Detect implements domain.FaceDetector.
func (m *InstrumentedModel) Detect(ctx context.Context, gray *image.Gray) ([]domain.FaceRegion, error) {
	start := time.Now()
	regions, err := m.inner.Detect(ctx, gray)
	m.observe(ctx, stageDetect, start, err, zap.Int("faces", len(regions)))
	return regions, err
}

// Landmarks implements domain.LandmarkPredictor.
func (m *InstrumentedModel) Landmarks(ctx context.Context, img image.Image, region domain.FaceRegion) (domain.Landmarks, error) {
	start := time.Now()
	lm, err := m.inner.Landmarks(ctx, img, region)
	m.observe(ctx, stageLandmarks, start, err, zap.Int("points", len(lm)))
	return lm, err
}

// Descriptor implements domain.DescriptorComputer.
func (m *InstrumentedModel) Descriptor(ctx context.Context, img image.Image, landmarks domain.Landmarks) (domain.Embedding, error) {
	start := time.Now()
	emb, err := m.inner.Descriptor(ctx, img, landmarks)
	m.observe(ctx, stageDescriptor, start, err, zap.Int("dimensions", len(emb)))
	return emb, err
}

// HealthCheck delegates to the wrapped model when it supports health checks.
func (m *InstrumentedModel) HealthCheck(ctx context.Context) error {
	if hc, ok := m.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (m *InstrumentedModel) observe(ctx context.Context, stage string, start time.Time, err error, extra zap.Field) {
	duration := time.Since(start)
	log := logger.FromContext(ctx, m.logger)

	if err != nil {
		metrics.ModelStageDuration.WithLabelValues(stage, "error").Observe(duration.Seconds())
		log.Error("Face model stage failed",
			zap.String("stage", stage),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	metrics.ModelStageDuration.WithLabelValues(stage, "ok").Observe(duration.Seconds())
	log.Debug("Face model stage completed",
		zap.String("stage", stage),
		zap.Duration("duration", duration),
		extra,
	)
}
