package dispatch

import (
	"context"
	"errors"
	"log"

	"canal-optimization-service/internal/domain"
)

// Log-backed implementation of the AlertNotifier port. The real alerting
// pipeline is an external collaborator; this adapter keeps local runs and
// tests observable.
type LogAlertNotifier struct{}

func NewLogAlertNotifier() *LogAlertNotifier { return &LogAlertNotifier{} }

func (n *LogAlertNotifier) NotifyContingency(ctx context.Context, plan *domain.ContingencyPlan) error {
	if plan == nil {
		return errors.New("notify contingency: plan is nil")
	}

	if len(plan.Alternates) == 0 {
		log.Printf("alert=no_gravity_route plan_id=%s segment=%s severity=%g", plan.PlanID, plan.SegmentID, plan.Severity)
		return nil
	}

	best := plan.Alternates[0]
	log.Printf("alert=reroute plan_id=%s segment=%s alternates=%d best_capacity=%.3f best_score=%.3f",
		plan.PlanID, plan.SegmentID, len(plan.Alternates), best.BottleneckM3s, best.FeasibilityScore)
	return nil
}
