package services

import (
	"math"
	"testing"

	"canal-optimization-service/internal/config"
	"canal-optimization-service/internal/domain"
)

func feasibilityDefaults() config.FeasibilityConfig {
	return config.Default().Feasibility
}

func TestAnalyzePathWorkedScenario(t *testing.T) {
	// Source 221.0 m, destination 217.5 m, 2500 m path, one gate.
	// Losses come to 0.97 m, leaving a 2.53 m margin.
	slope := 0.87 / 1.1 / 2500.0

	p := &Path{
		SourceNode: domain.Node{NodeID: "intake", Elevation: 221.0},
		DestNode:   domain.Node{NodeID: "field", Elevation: 217.5},
		Segments: []domain.Segment{{
			SegmentID:   "lat-1",
			LengthM:     2500,
			BedSlope:    slope,
			BedWidthM:   2.0,
			ManningN:    0.025,
			CapacityM3s: 3.0,
		}},
		Gates: []domain.Gate{{GateID: "g-1", MaxOpeningM: 1.0, WidthM: 2.0}},
	}

	rep := AnalyzePath(p, 1.0, feasibilityDefaults())

	if !rep.Feasible {
		t.Fatalf("expected feasible path, got report %+v", rep)
	}
	if math.Abs(rep.AvailableHeadM-3.5) > 1e-9 {
		t.Fatalf("available head = %g, want 3.5", rep.AvailableHeadM)
	}
	totalLoss := rep.FrictionLossM + rep.MinorLossM + rep.GateLossM
	if math.Abs(totalLoss-0.97) > 1e-9 {
		t.Fatalf("total losses = %g, want 0.97", totalLoss)
	}
	if math.Abs(rep.MarginM-2.53) > 1e-9 {
		t.Fatalf("margin = %g, want 2.53", rep.MarginM)
	}
}

func TestAnalyzePathInfeasibleIsReportedNotFailed(t *testing.T) {
	p := &Path{
		SourceNode: domain.Node{NodeID: "intake", Elevation: 218.0},
		DestNode:   domain.Node{NodeID: "field", Elevation: 217.5},
		Segments: []domain.Segment{{
			SegmentID:   "lat-1",
			LengthM:     2500,
			BedSlope:    0.0004,
			CapacityM3s: 3.0,
		}},
	}

	rep := AnalyzePath(p, 1.0, feasibilityDefaults())
	if rep.Feasible {
		t.Fatalf("0.5 m drop cannot clear %g m required head", rep.RequiredHeadM)
	}
	if rep.MarginM >= 0 {
		t.Fatalf("margin = %g, want negative", rep.MarginM)
	}
}

func TestAnalyzePathFeasibilityMonotonicInSourceElevation(t *testing.T) {
	base := &Path{
		SourceNode: domain.Node{NodeID: "intake", Elevation: 219.0},
		DestNode:   domain.Node{NodeID: "field", Elevation: 217.5},
		Segments: []domain.Segment{{
			SegmentID:   "lat-1",
			LengthM:     2500,
			BedSlope:    0.0004,
			CapacityM3s: 3.0,
		}},
		Gates: []domain.Gate{{GateID: "g-1"}},
	}

	cfg := feasibilityDefaults()

	// Raising the source while holding everything else fixed must never
	// flip a feasible path back to infeasible.
	wasFeasible := false
	for elev := 219.0; elev <= 225.0; elev += 0.25 {
		p := *base
		p.SourceNode.Elevation = elev
		rep := AnalyzePath(&p, 1.0, cfg)
		if wasFeasible && !rep.Feasible {
			t.Fatalf("feasibility regressed at source elevation %g", elev)
		}
		if rep.Feasible {
			wasFeasible = true
		}
	}
	if !wasFeasible {
		t.Fatal("expected the path to become feasible at some elevation")
	}
}

func TestAnalyzePathCapacityExceededIsInfeasible(t *testing.T) {
	p := &Path{
		SourceNode: domain.Node{NodeID: "intake", Elevation: 225.0},
		DestNode:   domain.Node{NodeID: "field", Elevation: 217.5},
		Segments: []domain.Segment{{
			SegmentID:   "lat-1",
			LengthM:     1000,
			BedSlope:    0.0004,
			CapacityM3s: 0.5,
		}},
	}

	rep := AnalyzePath(p, 1.0, feasibilityDefaults())
	if rep.Feasible {
		t.Fatal("target flow above bottleneck capacity must be infeasible")
	}
	if rep.CapacityM3s != 0.5 {
		t.Fatalf("bottleneck capacity = %g, want 0.5", rep.CapacityM3s)
	}
}
