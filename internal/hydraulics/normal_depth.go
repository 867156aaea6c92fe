package hydraulics

import (
	"errors"
	"math"
)

const (
	// Convergence tolerance on the Manning residual, m³/s.
	manningTolerance = 1e-3
	// Iteration cap for the Newton-Raphson depth solve.
	maxNewtonIterations = 50
	// Central-difference step for the numeric derivative, m.
	derivativeStep = 1e-4
	// Floor applied between iterates so the wetted perimeter stays defined.
	minDepthM = 1e-3
)

// Trapezoidal channel geometry for a normal-depth solve.
type Section struct {
	BedWidthM float64
	SideSlope float64 // horizontal per unit vertical
	ManningN  float64
	BedSlope  float64
}

// Result of a normal-depth solve. A non-converged result carries the last
// iterate as a low-confidence estimate rather than failing the run.
type DepthResult struct {
	DepthM     float64
	VelocityMs float64
	AreaM2     float64
	Converged  bool
	Iterations int
}

// FlowArea returns the trapezoidal cross-section area at depth y.
func (s Section) FlowArea(y float64) float64 {
	return y * (s.BedWidthM + s.SideSlope*y)
}

// WettedPerimeter returns the wetted perimeter at depth y.
func (s Section) WettedPerimeter(y float64) float64 {
	return s.BedWidthM + 2*y*math.Sqrt(1+s.SideSlope*s.SideSlope)
}

// ManningFlow returns the uniform-flow discharge at depth y per Manning's
// equation, Q = (1/n)·A·R^(2/3)·S^(1/2).
func (s Section) ManningFlow(y float64) float64 {
	if y <= 0 {
		return 0
	}
	a := s.FlowArea(y)
	r := a / s.WettedPerimeter(y)
	return (1 / s.ManningN) * a * math.Pow(r, 2.0/3.0) * math.Sqrt(s.BedSlope)
}

// NormalDepth solves f(y) = Q − (1/n)A(y)R(y)^(2/3)S^(1/2) = 0 for the flow
// depth y by Newton-Raphson with a numerically estimated derivative.
// Seeded at 1.0 m; converges when |f| < 1e-3 m³/s or caps at 50 iterations,
// in which case the last iterate is returned flagged not-converged.
func NormalDepth(flowM3s float64, s Section) (DepthResult, error) {
	if flowM3s <= 0 {
		return DepthResult{}, errors.New("normal depth: flow must be positive")
	}
	if s.BedWidthM <= 0 || s.ManningN <= 0 || s.BedSlope <= 0 {
		return DepthResult{}, errors.New("normal depth: section dimensions must be positive")
	}

	residual := func(y float64) float64 { return flowM3s - s.ManningFlow(y) }

	y := 1.0
	iterations := 0
	for ; iterations < maxNewtonIterations; iterations++ {
		f := residual(y)
		if math.Abs(f) < manningTolerance {
			return depthResultAt(flowM3s, y, s, true, iterations), nil
		}

		d := (residual(y+derivativeStep) - residual(y-derivativeStep)) / (2 * derivativeStep)
		if d == 0 {
			break
		}

		y -= f / d
		if y < minDepthM {
			y = minDepthM
		}
	}

	return depthResultAt(flowM3s, y, s, math.Abs(residual(y)) < manningTolerance, iterations), nil
}

func depthResultAt(flowM3s, y float64, s Section, converged bool, iterations int) DepthResult {
	area := s.FlowArea(y)
	v := 0.0
	if area > 0 {
		v = flowM3s / area
	}
	return DepthResult{
		DepthM:     y,
		VelocityMs: v,
		AreaM2:     area,
		Converged:  converged,
		Iterations: iterations,
	}
}
