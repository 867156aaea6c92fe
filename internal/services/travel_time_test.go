package services

import (
	"math"
	"testing"
	"time"

	"canal-optimization-service/internal/domain"
	"canal-optimization-service/internal/hydraulics"
)

func travelSegment(id string, dry bool) domain.Segment {
	return domain.Segment{
		SegmentID:   id,
		LengthM:     1500,
		BedWidthM:   2.0,
		SideSlope:   1.0,
		ManningN:    0.025,
		BedSlope:    0.0004,
		CapacityM3s: 3.0,
		Dry:         dry,
	}
}

func TestPredictArrivalWetSegment(t *testing.T) {
	p := &Path{Segments: []domain.Segment{travelSegment("s-1", false)}}
	start := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	pred, err := PredictArrival(p, 1.0, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := hydraulics.NormalDepth(1.0, hydraulics.Section{
		BedWidthM: 2.0, SideSlope: 1.0, ManningN: 0.025, BedSlope: 0.0004,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantTravel := 1500.0 / (1.2 * res.VelocityMs)
	if math.Abs(pred.TotalSeconds-wantTravel) > 1e-6 {
		t.Fatalf("wet segment time = %g s, want %g s", pred.TotalSeconds, wantTravel)
	}
	if pred.Segments[0].FillSeconds != 0 {
		t.Fatalf("wet segment must not accrue fill time, got %g s", pred.Segments[0].FillSeconds)
	}

	wantArrival := start.Add(time.Duration(wantTravel * float64(time.Second)))
	if pred.ArrivalAt.Sub(wantArrival).Abs() > time.Millisecond {
		t.Fatalf("arrival = %v, want %v", pred.ArrivalAt, wantArrival)
	}
}

func TestPredictArrivalDrySegmentAddsWedgeFill(t *testing.T) {
	wet := &Path{Segments: []domain.Segment{travelSegment("s-1", false)}}
	dry := &Path{Segments: []domain.Segment{travelSegment("s-1", true)}}
	start := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	predWet, err := PredictArrival(wet, 1.0, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	predDry, err := PredictArrival(dry, 1.0, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := hydraulics.NormalDepth(1.0, hydraulics.Section{
		BedWidthM: 2.0, SideSlope: 1.0, ManningN: 0.025, BedSlope: 0.0004,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Half the steady prism fills before travel begins.
	wantFill := 1500.0 * res.AreaM2 * 0.5 / 1.0
	if math.Abs(predDry.Segments[0].FillSeconds-wantFill) > 1e-6 {
		t.Fatalf("fill time = %g s, want %g s", predDry.Segments[0].FillSeconds, wantFill)
	}
	if math.Abs((predDry.TotalSeconds-predWet.TotalSeconds)-wantFill) > 1e-6 {
		t.Fatalf("dry path should exceed wet by the fill time, diff = %g s",
			predDry.TotalSeconds-predWet.TotalSeconds)
	}
}

func TestPredictArrivalAccumulatesInPathOrder(t *testing.T) {
	p := &Path{Segments: []domain.Segment{
		travelSegment("s-1", false),
		travelSegment("s-2", true),
		travelSegment("s-3", false),
	}}
	start := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	pred, err := PredictArrival(p, 1.0, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pred.Segments) != 3 {
		t.Fatalf("expected 3 segment times, got %d", len(pred.Segments))
	}

	sum := 0.0
	for _, st := range pred.Segments {
		sum += st.FillSeconds + st.TravelSeconds
	}
	if math.Abs(sum-pred.TotalSeconds) > 1e-9 {
		t.Fatalf("total %g s does not match segment sum %g s", pred.TotalSeconds, sum)
	}
}

func TestPredictArrivalRejectsNonPositiveFlow(t *testing.T) {
	p := &Path{Segments: []domain.Segment{travelSegment("s-1", false)}}
	if _, err := PredictArrival(p, 0, time.Now()); err == nil {
		t.Fatal("expected error for zero flow")
	}
}
