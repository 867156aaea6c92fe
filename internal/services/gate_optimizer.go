package services

import (
	"context"
	"math"

	"canal-optimization-service/internal/config"
	"canal-optimization-service/internal/domain"
	"canal-optimization-service/internal/hydraulics"
)

// A feasible path activated for delivery with its target flow.
type ActivePath struct {
	Path          *Path
	TargetFlowM3s float64
}

// Gate openings and resulting flows produced by one optimization solve.
// A capped-out solve carries the best incumbent with Suboptimal set; it is
// still a usable operating point.
type GateSettings struct {
	Openings     map[string]float64 // gate id -> opening, m
	PathFlows    []float64          // by ActivePath index
	SegmentFlows map[string]float64
	Objective    float64
	Suboptimal   bool
	Diagnostics  domain.SolveDiagnostics
}

// OptimizeGateSettings solves for gate openings over the active paths,
// minimizing
//
//	w1·Σ head_loss + w2·Σ|Q − Q_target| + w3·Σ|opening − current|
//
// with quadratic penalties for capacity, velocity-band, and minimum-depth
// violations. The method is a trust-region sequential quadratic scheme:
// each iteration builds a local quadratic model from finite differences,
// takes a radius-clipped projected step, re-evaluates through the hydraulic
// solver, and accepts or shrinks. It stops when the relative objective
// change drops below the configured tolerance, when the radius collapses,
// or at the iteration cap — returning the best incumbent in every case.
// Cancellation is checked between iterations.
func OptimizeGateSettings(
	ctx context.Context,
	paths []ActivePath,
	cfg config.OptimizerConfig,
	fcfg config.FeasibilityConfig,
) GateSettings {
	gates, gateIndex := collectGates(paths)
	if len(gates) == 0 {
		// Nothing to actuate; flows are whatever the targets demand.
		sf := map[string]float64{}
		flows := make([]float64, len(paths))
		for i, ap := range paths {
			flows[i] = ap.TargetFlowM3s
			for _, seg := range ap.Path.Segments {
				sf[seg.SegmentID] += ap.TargetFlowM3s
			}
		}
		return GateSettings{
			Openings:     map[string]float64{},
			PathFlows:    flows,
			SegmentFlows: sf,
			Diagnostics:  domain.SolveDiagnostics{Converged: true},
		}
	}

	x := make([]float64, len(gates))
	for i, g := range gates {
		x[i] = g.CurrentOpeningM
	}

	eval := func(openings []float64) float64 {
		return objective(openings, gates, gateIndex, paths, cfg, fcfg)
	}

	j := eval(x)
	best := append([]float64(nil), x...)
	bestJ := j

	radius := cfg.TrustRadiusM
	maxRadius := 4 * cfg.TrustRadiusM
	converged := false

	const h = 1e-4
	grad := make([]float64, len(x))
	curv := make([]float64, len(x))
	trial := make([]float64, len(x))

	iterations := 0
	for ; iterations < cfg.MaxIterations; iterations++ {
		if ctx.Err() != nil {
			break
		}

		// Local quadratic model from central differences.
		for i := range x {
			copy(trial, x)
			trial[i] = clamp(x[i]+h, 0, gates[i].MaxOpeningM)
			jPlus := eval(trial)
			trial[i] = clamp(x[i]-h, 0, gates[i].MaxOpeningM)
			jMinus := eval(trial)

			grad[i] = (jPlus - jMinus) / (2 * h)
			curv[i] = (jPlus + jMinus - 2*j) / (h * h)
			if curv[i] < 1e-6 {
				curv[i] = 1e-6
			}
		}

		// Trust-region-clipped Newton step, projected onto gate bounds.
		for i := range x {
			step := -grad[i] / curv[i]
			if step > radius {
				step = radius
			}
			if step < -radius {
				step = -radius
			}
			trial[i] = clamp(x[i]+step, 0, gates[i].MaxOpeningM)
		}

		jTrial := eval(trial)

		if jTrial < j {
			relChange := math.Abs(j-jTrial) / math.Max(math.Abs(j), 1e-12)
			copy(x, trial)
			j = jTrial
			if j < bestJ {
				bestJ = j
				copy(best, x)
			}
			if radius < maxRadius {
				radius *= 1.5
			}
			if relChange < cfg.RelTolerance {
				iterations++
				converged = true
				break
			}
		} else {
			radius *= 0.5
			if radius < cfg.MinTrustRadiusM {
				// Stationary within resolution: treat as converged.
				iterations++
				converged = true
				break
			}
		}
	}

	openings := make(map[string]float64, len(gates))
	for i, g := range gates {
		openings[g.GateID] = best[i]
	}
	flows, segFlows := flowsAt(best, gates, gateIndex, paths)

	return GateSettings{
		Openings:     openings,
		PathFlows:    flows,
		SegmentFlows: segFlows,
		Objective:    bestJ,
		Suboptimal:   !converged,
		Diagnostics:  domain.SolveDiagnostics{Converged: converged, Iterations: iterations},
	}
}

// collectGates returns the distinct gates across all paths in first-seen
// order, and a per-path list of indices into that order.
func collectGates(paths []ActivePath) ([]domain.Gate, [][]int) {
	var gates []domain.Gate
	byID := map[string]int{}
	index := make([][]int, len(paths))

	for pi, ap := range paths {
		for _, g := range ap.Path.Gates {
			gi, ok := byID[g.GateID]
			if !ok {
				gi = len(gates)
				byID[g.GateID] = gi
				gates = append(gates, g)
			}
			index[pi] = append(index[pi], gi)
		}
	}
	return gates, index
}

// flowsAt computes per-path and per-segment flows for a set of openings.
// A path moves what its most restrictive gate passes.
func flowsAt(openings []float64, gates []domain.Gate, gateIndex [][]int, paths []ActivePath) ([]float64, map[string]float64) {
	gateFlow := make([]float64, len(gates))
	for i, g := range gates {
		gateFlow[i] = hydraulics.GateFlow(hydraulics.GateState{
			WidthM:          g.WidthM,
			OpeningM:        openings[i],
			UpstreamHeadM:   g.UpstreamHeadM,
			DownstreamHeadM: g.DownstreamHeadM,
		})
	}

	pathFlows := make([]float64, len(paths))
	segFlows := map[string]float64{}
	for pi, ap := range paths {
		flow := ap.TargetFlowM3s
		for _, gi := range gateIndex[pi] {
			if gateFlow[gi] < flow {
				flow = gateFlow[gi]
			}
		}
		pathFlows[pi] = flow
		for _, seg := range ap.Path.Segments {
			segFlows[seg.SegmentID] += flow
		}
	}
	return pathFlows, segFlows
}

func objective(
	openings []float64,
	gates []domain.Gate,
	gateIndex [][]int,
	paths []ActivePath,
	cfg config.OptimizerConfig,
	fcfg config.FeasibilityConfig,
) float64 {
	pathFlows, segFlows := flowsAt(openings, gates, gateIndex, paths)

	flowDeviation := 0.0
	for pi, ap := range paths {
		flowDeviation += math.Abs(pathFlows[pi] - ap.TargetFlowM3s)
	}

	movement := 0.0
	for i, g := range gates {
		movement += math.Abs(openings[i] - g.CurrentOpeningM)
	}

	// Head loss and constraint penalties over every wetted segment,
	// re-evaluated through the normal-depth solver.
	headLoss := 0.0
	penalty := 0.0
	seen := map[string]struct{}{}
	for _, ap := range paths {
		for _, seg := range ap.Path.Segments {
			if _, ok := seen[seg.SegmentID]; ok {
				continue
			}
			seen[seg.SegmentID] = struct{}{}

			flow := segFlows[seg.SegmentID]
			if flow > seg.CapacityM3s {
				over := flow - seg.CapacityM3s
				penalty += over * over
			}
			if flow <= 0 {
				continue
			}

			res, err := hydraulics.NormalDepth(flow, hydraulics.Section{
				BedWidthM: seg.BedWidthM,
				SideSlope: seg.SideSlope,
				ManningN:  seg.ManningN,
				BedSlope:  seg.BedSlope,
			})
			if err != nil {
				continue
			}

			headLoss += res.VelocityMs * res.VelocityMs / (2 * hydraulics.Gravity)

			if res.VelocityMs > fcfg.MaxVelocityMs {
				d := res.VelocityMs - fcfg.MaxVelocityMs
				penalty += d * d
			}
			if res.VelocityMs < fcfg.MinVelocityMs {
				d := fcfg.MinVelocityMs - res.VelocityMs
				penalty += d * d
			}
			if res.DepthM < fcfg.MinDepthM {
				d := fcfg.MinDepthM - res.DepthM
				penalty += d * d
			}
		}
	}

	return cfg.HeadLossWeight*headLoss +
		cfg.FlowDeviationWeight*flowDeviation +
		cfg.MovementWeight*movement +
		cfg.PenaltyWeight*penalty
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
