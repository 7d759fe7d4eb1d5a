package health

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "healthy"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	model  ModelChecker
	logger *zap.Logger
}

// New creates a Service. model can be nil, in which case only the process itself is reported.
func New(model ModelChecker, logger *zap.Logger) *Service {
	return &Service{model: model, logger: logger}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.model != nil {
		if err := s.model.HealthCheck(ctx); err != nil {
			logger.FromContext(ctx, s.logger).Warn("Face model health check failed", zap.Error(err))
			checks["model"] = CheckError
		} else {
			checks["model"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
