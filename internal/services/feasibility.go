package services

import (
	"canal-optimization-service/internal/config"
)

// Outcome of head/capacity screening for one candidate path. Infeasibility
// is a reported result, never an error: callers surface the margin to
// operators either way.
type FeasibilityReport struct {
	Feasible       bool
	AvailableHeadM float64
	RequiredHeadM  float64
	MarginM        float64
	FrictionLossM  float64
	MinorLossM     float64
	GateLossM      float64
	CapacityM3s    float64 // bottleneck segment capacity along the path
}

// AnalyzePath screens a candidate path on elevation head alone.
//
// Friction loss is length times bed slope per segment, a minor-loss
// allowance is added on top, and each gate consumes a fixed head. The path
// is feasible when the elevation drop clears the total losses plus the
// minimum service depth at the destination. The reported margin is the drop
// minus losses, before the service-depth requirement.
func AnalyzePath(p *Path, targetFlowM3s float64, cfg config.FeasibilityConfig) FeasibilityReport {
	friction := 0.0
	capacity := 0.0
	for i, seg := range p.Segments {
		friction += seg.LengthM * seg.BedSlope
		if i == 0 || seg.CapacityM3s < capacity {
			capacity = seg.CapacityM3s
		}
	}

	minor := cfg.MinorLossFrac * friction
	gateLoss := float64(len(p.Gates)) * cfg.GateLossM
	total := friction + minor + gateLoss

	available := p.SourceNode.Elevation - p.DestNode.Elevation
	required := total + cfg.MinDepthM

	feasible := available > required
	if targetFlowM3s > capacity {
		feasible = false
	}

	return FeasibilityReport{
		Feasible:       feasible,
		AvailableHeadM: available,
		RequiredHeadM:  required,
		MarginM:        available - total,
		FrictionLossM:  friction,
		MinorLossM:     minor,
		GateLossM:      gateLoss,
		CapacityM3s:    capacity,
	}
}
