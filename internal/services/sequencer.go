package services

import (
	"slices"
	"time"

	"canal-optimization-service/internal/config"
	"canal-optimization-service/internal/domain"
)

// A delivery request with its composite schedule score and assigned
// concurrency wave. Requests in the same wave have pairwise disjoint paths
// and may be activated together.
type ScheduledRequest struct {
	Request domain.Request
	Path    *Path
	Score   float64
	Wave    int
}

// DeliveryScore computes the composite scheduling score:
//
//	0.4·priority/10 + 0.3·(dest elevation / source elevation)
//	+ 0.2·(1/(1 + hours_to_deadline/24)) + 0.1·(volume/reference_volume)
//
// A deadline already passed scores maximum urgency.
func DeliveryScore(req domain.Request, p *Path, now time.Time, cfg config.SequencerConfig) float64 {
	priorityNorm := float64(req.Priority) / 10.0

	elevationScore := 0.0
	if p.SourceNode.Elevation > 0 {
		elevationScore = p.DestNode.Elevation / p.SourceNode.Elevation
	}

	hoursToDeadline := req.Deadline.Sub(now).Hours()
	if hoursToDeadline < 0 {
		hoursToDeadline = 0
	}
	urgency := 1.0 / (1.0 + hoursToDeadline/24.0)

	volumeScore := req.VolumeM3 / cfg.ReferenceVolumeM3

	return 0.4*priorityNorm + 0.3*elevationScore + 0.2*urgency + 0.1*volumeScore
}

// SequenceDeliveries orders feasible requests by descending composite score
// and groups them into concurrency waves.
//
// Ordering is fully deterministic: score ties break on earlier deadline,
// then higher priority, then request id. A request joins the earliest wave
// whose members share none of its segments or gates.
func SequenceDeliveries(
	requests []domain.Request,
	paths map[string]*Path,
	now time.Time,
	cfg config.SequencerConfig,
) []ScheduledRequest {
	scheduled := make([]ScheduledRequest, 0, len(requests))
	for _, req := range requests {
		p, ok := paths[req.RequestID]
		if !ok {
			continue
		}
		scheduled = append(scheduled, ScheduledRequest{
			Request: req,
			Path:    p,
			Score:   DeliveryScore(req, p, now, cfg),
		})
	}

	slices.SortFunc(scheduled, func(a, b ScheduledRequest) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.Request.Deadline.Before(b.Request.Deadline) {
			return -1
		}
		if b.Request.Deadline.Before(a.Request.Deadline) {
			return 1
		}
		if a.Request.Priority > b.Request.Priority {
			return -1
		}
		if a.Request.Priority < b.Request.Priority {
			return 1
		}
		if a.Request.RequestID < b.Request.RequestID {
			return -1
		}
		if a.Request.RequestID > b.Request.RequestID {
			return 1
		}
		return 0
	})

	// Greedy wave packing in score order.
	var waves [][]*Path
	for i := range scheduled {
		assigned := false
		for w := range waves {
			if !sharesAny(scheduled[i].Path, waves[w]) {
				scheduled[i].Wave = w
				waves[w] = append(waves[w], scheduled[i].Path)
				assigned = true
				break
			}
		}
		if !assigned {
			scheduled[i].Wave = len(waves)
			waves = append(waves, []*Path{scheduled[i].Path})
		}
	}

	return scheduled
}

func sharesAny(p *Path, members []*Path) bool {
	for _, m := range members {
		if p.SharesInfrastructure(m) {
			return true
		}
	}
	return false
}
