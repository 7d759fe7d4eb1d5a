package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/facedex/internal/transport/chi"
	batchuc "github.com/kailas-cloud/facedex/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/facedex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/facedex/internal/usecase/search"
	"github.com/kailas-cloud/facedex/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the facedex HTTP server.

Endpoints:
  GET  /health
  GET  /metrics
  POST /api/face/extract-embedding
  POST /api/face/extract-embeddings
  POST /api/face/search-similar`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	logger := a.logger
	defer func() { _ = logger.Sync() }()

	cfg := a.cfg
	logger.Info("Starting facedex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.String("addr", cfg.HTTP.Addr()),
		zap.String("model_url", cfg.Model.BaseURL),
		zap.Int("model_max_concurrency", cfg.Model.MaxConcurrency),
		zap.Duration("request_timeout", cfg.HTTP.RequestTimeout()),
		zap.Float64("similarity_threshold", cfg.Face.SimilarityThreshold),
		zap.Bool("debug", cfg.Logging.DebugEnabled()),
	)

	// Composition root
	model := a.buildModel()
	extractSvc := a.buildExtractor(model)
	searchSvc := searchuc.New(logger)
	batchSvc := batchuc.New(extractSvc, logger).
		WithMaxBatchSize(cfg.Batch.MaxItems).
		WithConcurrency(cfg.Batch.Concurrency)
	healthSvc := healthuc.New(model, logger)

	server := chiTransport.NewServer(extractSvc, searchSvc, batchSvc, healthSvc, chiTransport.Options{
		DefaultThreshold: cfg.Face.SimilarityThreshold,
		MaxBodyBytes:     int64(cfg.HTTP.MaxBodyMB) << 20,
		RequestTimeout:   cfg.HTTP.RequestTimeout(),
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           chiTransport.NewRouter(server, cfg.CORS.Origins(), logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}
