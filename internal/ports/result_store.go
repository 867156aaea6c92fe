package ports

import (
	"context"

	"canal-optimization-service/internal/domain"
)

// Port: boundary to the external results store. The engine hands each run's
// outputs over exactly once and retains nothing.
type ResultStore interface {
	SaveResult(ctx context.Context, result *domain.OptimizationResult) error
	SaveContingencyPlan(ctx context.Context, plan *domain.ContingencyPlan) error
}
