package hydraulics

import "math"

// Energy-grade quantities for one channel section, all in meters except the
// dimensionless Froude number.
type EnergyState struct {
	TotalEnergyM    float64 // E = z + y + V²/2g
	HGLM            float64 // hydraulic grade line, z + y
	SpecificEnergyM float64 // Es = y + V²/2g
	Froude          float64
	Subcritical     bool
}

// EnergyAt computes the energy grade, HGL, specific energy, and Froude
// number at bed elevation z, depth y, and mean velocity v. Supercritical
// flow (Fr ≥ 1) is outside this engine's steady subcritical model and is
// flagged, not solved.
func EnergyAt(bedElevationM, depthM, velocityMs float64) EnergyState {
	velocityHead := velocityMs * velocityMs / (2 * Gravity)

	fr := 0.0
	if depthM > 0 {
		fr = velocityMs / math.Sqrt(Gravity*depthM)
	}

	return EnergyState{
		TotalEnergyM:    bedElevationM + depthM + velocityHead,
		HGLM:            bedElevationM + depthM,
		SpecificEnergyM: depthM + velocityHead,
		Froude:          fr,
		Subcritical:     fr < 1,
	}
}
