package services

import (
	"fmt"
	"time"

	"canal-optimization-service/internal/hydraulics"
)

// Per-segment breakdown of an arrival prediction.
type SegmentTime struct {
	SegmentID     string
	FillSeconds   float64 // zero for already-wet segments
	TravelSeconds float64
}

// Arrival prediction for one delivery path.
type ArrivalPrediction struct {
	ArrivalAt     time.Time
	TotalSeconds  float64
	Segments      []SegmentTime
	LowConfidence bool // a depth solve along the path failed to converge
}

// PredictArrival estimates when water released at start reaches the end of
// the path at the given flow.
//
// Each segment contributes a travel time of length over wave celerity,
// taken as 1.2 times the mean flow velocity. A dry segment first absorbs
// its wedge volume (half the full prism) before steady travel begins, which
// adds fill_volume/flow on top.
func PredictArrival(p *Path, flowM3s float64, start time.Time) (ArrivalPrediction, error) {
	if flowM3s <= 0 {
		return ArrivalPrediction{}, fmt.Errorf("predict arrival: flow must be positive, got %g", flowM3s)
	}

	pred := ArrivalPrediction{Segments: make([]SegmentTime, 0, len(p.Segments))}

	for _, seg := range p.Segments {
		res, err := hydraulics.NormalDepth(flowM3s, hydraulics.Section{
			BedWidthM: seg.BedWidthM,
			SideSlope: seg.SideSlope,
			ManningN:  seg.ManningN,
			BedSlope:  seg.BedSlope,
		})
		if err != nil {
			return ArrivalPrediction{}, fmt.Errorf("predict arrival: segment %q: %w", seg.SegmentID, err)
		}
		if !res.Converged {
			pred.LowConfidence = true
		}

		st := SegmentTime{SegmentID: seg.SegmentID}

		waveVelocity := 1.2 * res.VelocityMs
		if waveVelocity > 0 {
			st.TravelSeconds = seg.LengthM / waveVelocity
		}

		if seg.Dry {
			// Wedge storage: the advancing front fills roughly half the
			// steady prism before flow establishes.
			fillVolume := seg.LengthM * res.AreaM2 * 0.5
			st.FillSeconds = fillVolume / flowM3s
		}

		pred.TotalSeconds += st.FillSeconds + st.TravelSeconds
		pred.Segments = append(pred.Segments, st)
	}

	pred.ArrivalAt = start.Add(time.Duration(pred.TotalSeconds * float64(time.Second)))
	return pred, nil
}
