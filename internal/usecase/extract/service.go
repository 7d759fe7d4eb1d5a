// Package extract turns one image into one face embedding under the single-face policy.
package extract

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/imaging"
	"github.com/kailas-cloud/facedex/internal/logger"
	"github.com/kailas-cloud/facedex/internal/metrics"
	"github.com/kailas-cloud/facedex/internal/source"
)

// Outcome labels for facedex_extractions_total.
const (
	OutcomeOK               = "ok"
	OutcomeInvalidBase64    = "invalid_base64"
	OutcomeInvalidImage     = "invalid_image"
	OutcomeDownloadFailed   = "download_failed"
	OutcomeNoFace           = "no_face"
	OutcomeMultipleFaces    = "multiple_faces"
	OutcomeExtractionFailed = "extraction_failed"
	OutcomeError            = "error"
)

// Service runs the extraction pipeline: load, normalize, detect, landmarks, descriptor.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	loader     ImageLoader
	normalizer ImageNormalizer
	model      domain.FaceModel
	logger     *zap.Logger
}

// New creates an extraction service.
func New(loader ImageLoader, normalizer ImageNormalizer, model domain.FaceModel, logger *zap.Logger) *Service {
	return &Service{loader: loader, normalizer: normalizer, model: model, logger: logger}
}

// Extract produces the embedding of the single face in src.
// Either a valid 128-d embedding or an error is returned, never both.
func (s *Service) Extract(ctx context.Context, src source.Source) (domain.Embedding, error) {
	emb, err := s.extract(ctx, src)

	outcome := Outcome(err)
	metrics.ExtractionsTotal.WithLabelValues(string(src.Kind()), outcome).Inc()

	log := logger.FromContext(ctx, s.logger).With(
		zap.String("source", string(src.Kind())),
		zap.String("outcome", outcome),
	)
	if err != nil {
		log.Warn("Face embedding extraction failed", zap.Error(err))
		return nil, err
	}
	log.Info("Face embedding extracted", zap.Int("dimensions", len(emb)))
	return emb, nil
}

func (s *Service) extract(ctx context.Context, src source.Source) (domain.Embedding, error) {
	data, err := s.loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}

	raster, err := s.normalizer.Normalize(data)
	if err != nil {
		return nil, fmt.Errorf("normalize image: %w", err)
	}
	logger.FromContext(ctx, s.logger).Debug("Image normalized",
		zap.Int("bytes", len(data)),
		zap.Int("width", raster.Width()),
		zap.Int("height", raster.Height()),
	)

	return s.ExtractRaster(ctx, raster)
}

// ExtractRaster runs detection, landmark prediction and descriptor computation on a raster.
// Zero faces yield ErrNoFaceDetected, more than one a *MultipleFacesError; a face is never picked.
func (s *Service) ExtractRaster(ctx context.Context, raster *imaging.Raster) (domain.Embedding, error) {
	regions, err := s.model.Detect(ctx, raster.Gray())
	if err != nil {
		return nil, fmt.Errorf("%w: detect: %w", domain.ErrEmbeddingExtractionFailed, err)
	}

	switch len(regions) {
	case 0:
		return nil, domain.ErrNoFaceDetected
	case 1:
	default:
		return nil, domain.NewMultipleFaces(len(regions))
	}

	landmarks, err := s.model.Landmarks(ctx, raster, regions[0])
	if err != nil {
		return nil, fmt.Errorf("%w: landmarks: %w", domain.ErrEmbeddingExtractionFailed, err)
	}

	emb, err := s.model.Descriptor(ctx, raster, landmarks)
	if err != nil {
		return nil, fmt.Errorf("%w: descriptor: %w", domain.ErrEmbeddingExtractionFailed, err)
	}
	if err := emb.Validate(); err != nil {
		return nil, fmt.Errorf("%w: descriptor: %w", domain.ErrEmbeddingExtractionFailed, err)
	}

	return emb, nil
}

// Outcome maps an extraction error to its metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrInvalidBase64):
		return OutcomeInvalidBase64
	case errors.Is(err, domain.ErrInvalidImageData):
		return OutcomeInvalidImage
	case errors.Is(err, domain.ErrDownloadFailed):
		return OutcomeDownloadFailed
	case errors.Is(err, domain.ErrNoFaceDetected):
		return OutcomeNoFace
	case errors.Is(err, domain.ErrMultipleFacesDetected):
		return OutcomeMultipleFaces
	case errors.Is(err, domain.ErrEmbeddingExtractionFailed):
		return OutcomeExtractionFailed
	default:
		return OutcomeError
	}
}
