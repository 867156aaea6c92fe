package ports

import (
	"context"

	"canal-optimization-service/internal/domain"
)

// Port: boundary to the SCADA/dispatch collaborator that executes gate
// setpoints in the field.
type GateDispatcher interface {
	Dispatch(ctx context.Context, runID string, commands []domain.GateCommand) error
}

// Port: boundary to alerting/field-ops collaborators. A contingency plan
// with no alternates still gets notified — someone has to walk the canal.
type AlertNotifier interface {
	NotifyContingency(ctx context.Context, plan *domain.ContingencyPlan) error
}
