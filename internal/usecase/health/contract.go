package health

import "context"

// ModelChecker checks face model backend availability.
type ModelChecker interface {
	HealthCheck(ctx context.Context) error
}
