package main

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/config"
	"github.com/kailas-cloud/facedex/internal/imaging"
	logpkg "github.com/kailas-cloud/facedex/internal/logger"
	"github.com/kailas-cloud/facedex/internal/metrics"
	"github.com/kailas-cloud/facedex/internal/source"
	"github.com/kailas-cloud/facedex/internal/transport/modelserver"
	extractuc "github.com/kailas-cloud/facedex/internal/usecase/extract"
	"github.com/kailas-cloud/facedex/internal/usecase/inference"
)

// app is what every subcommand needs: resolved config and a logger.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
}

func loadApp() (*app, error) {
	env := currentEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{
		Level: cfg.Logging.Level,
		Debug: cfg.Logging.DebugEnabled(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterFaceMetrics()

	return &app{env: env, cfg: cfg, logger: logger}, nil
}

// buildModel assembles the decorator chain: sidecar client -> Bounded -> Instrumented.
// The result is created once and shared by every request.
func (a *app) buildModel() *inference.InstrumentedModel {
	client := modelserver.New(&modelserver.Config{
		BaseURL:            a.cfg.Model.BaseURL,
		Timeout:            a.cfg.Model.Timeout(),
		BreakerFailures:    uint32(a.cfg.Model.BreakerFailures), //nolint:gosec // positive after ApplyDefaults
		BreakerOpenTimeout: time.Duration(a.cfg.Model.BreakerOpenTimeoutSec) * time.Second,
		Logger:             a.logger,
	})

	bounded := inference.NewBoundedModel(client, a.cfg.Model.MaxConcurrency)
	return inference.NewInstrumentedModel(bounded, a.logger)
}

// buildExtractor wires the extraction pipeline around model.
func (a *app) buildExtractor(model *inference.InstrumentedModel) *extractuc.Service {
	loader := source.NewLoader(&http.Client{}, a.cfg.Face.DownloadTimeout(), a.cfg.Face.MaxImageBytes)
	normalizer := imaging.NewNormalizer(a.cfg.Face.MaxImageSize).
		WithMaxPixels(a.cfg.Face.MaxImagePixels)
	return extractuc.New(loader, normalizer, model, a.logger)
}
