package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Solver and scheduling tuning for one engine instance. Every knob the
// numeric methods depend on lives here rather than in code, so operators can
// recalibrate against field measurements without a rebuild.
type Config struct {
	Optimizer   OptimizerConfig   `yaml:"optimizer"`
	Feasibility FeasibilityConfig `yaml:"feasibility"`
	Sequencer   SequencerConfig   `yaml:"sequencer"`
	Energy      EnergyConfig      `yaml:"energy"`
	Contingency ContingencyConfig `yaml:"contingency"`
	Budgets     BudgetConfig      `yaml:"budgets"`
}

// Tuning for the gate-setting trust-region solve.
type OptimizerConfig struct {
	HeadLossWeight      float64 `yaml:"head_loss_weight"`      // w1
	FlowDeviationWeight float64 `yaml:"flow_deviation_weight"` // w2
	MovementWeight      float64 `yaml:"movement_weight"`       // w3
	PenaltyWeight       float64 `yaml:"penalty_weight"`
	RelTolerance        float64 `yaml:"rel_tolerance"`
	MaxIterations       int     `yaml:"max_iterations"`
	TrustRadiusM        float64 `yaml:"trust_radius_m"`
	MinTrustRadiusM     float64 `yaml:"min_trust_radius_m"`
}

// Head-loss allowances and operating limits for path screening.
type FeasibilityConfig struct {
	GateLossM     float64 `yaml:"gate_loss_m"`
	MinorLossFrac float64 `yaml:"minor_loss_frac"`
	MinDepthM     float64 `yaml:"min_depth_m"`
	MinVelocityMs float64 `yaml:"min_velocity_ms"`
	MaxVelocityMs float64 `yaml:"max_velocity_ms"`
}

// Normalization constants for delivery scoring.
type SequencerConfig struct {
	ReferenceVolumeM3 float64 `yaml:"reference_volume_m3"`
}

// Economics for the energy-recovery pass.
type EnergyConfig struct {
	CombinedEfficiency float64 `yaml:"combined_efficiency"`
	OperatingHoursYear float64 `yaml:"operating_hours_year"`
	TariffPerKWh       float64 `yaml:"tariff_per_kwh"`
	CapitalPerKW       float64 `yaml:"capital_per_kw"`
	MinPowerKW         float64 `yaml:"min_power_kw"`
}

// Limits for contingency route search.
type ContingencyConfig struct {
	MaxAlternates int `yaml:"max_alternates"`
}

// Wall-clock budgets per run phase, milliseconds.
type BudgetConfig struct {
	OptimizeMs    int `yaml:"optimize_ms"`
	FeasibilityMs int `yaml:"feasibility_ms"`
	ContingencyMs int `yaml:"contingency_ms"`
}

// Default returns the compiled-in tuning, calibrated against the reference
// delivery-efficiency scenario.
func Default() Config {
	return Config{
		Optimizer: OptimizerConfig{
			HeadLossWeight:      0.3,
			FlowDeviationWeight: 0.5,
			MovementWeight:      0.2,
			PenaltyWeight:       10.0,
			RelTolerance:        0.001,
			MaxIterations:       60,
			TrustRadiusM:        0.10,
			MinTrustRadiusM:     1e-5,
		},
		Feasibility: FeasibilityConfig{
			GateLossM:     0.10,
			MinorLossFrac: 0.10,
			MinDepthM:     0.30,
			MinVelocityMs: 0.3,
			MaxVelocityMs: 2.0,
		},
		Sequencer: SequencerConfig{
			ReferenceVolumeM3: 100_000,
		},
		Energy: EnergyConfig{
			CombinedEfficiency: 0.85 * 0.95,
			OperatingHoursYear: 7000,
			TariffPerKWh:       0.12,
			CapitalPerKW:       2500,
			MinPowerKW:         5,
		},
		Contingency: ContingencyConfig{
			MaxAlternates: 3,
		},
		Budgets: BudgetConfig{
			OptimizeMs:    500,
			FeasibilityMs: 50,
			ContingencyMs: 200,
		},
	}
}

// Load reads tuning overrides from a YAML file over the defaults.
// Missing file fields keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: parse %q: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %q: %w", path, err)
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Optimizer.MaxIterations <= 0 {
		return fmt.Errorf("optimizer max_iterations must be positive, got %d", c.Optimizer.MaxIterations)
	}
	if c.Optimizer.RelTolerance <= 0 {
		return fmt.Errorf("optimizer rel_tolerance must be positive, got %g", c.Optimizer.RelTolerance)
	}
	if c.Optimizer.TrustRadiusM <= 0 {
		return fmt.Errorf("optimizer trust_radius_m must be positive, got %g", c.Optimizer.TrustRadiusM)
	}
	if c.Feasibility.MinVelocityMs >= c.Feasibility.MaxVelocityMs {
		return fmt.Errorf("feasibility velocity band [%g, %g] is empty", c.Feasibility.MinVelocityMs, c.Feasibility.MaxVelocityMs)
	}
	if c.Sequencer.ReferenceVolumeM3 <= 0 {
		return fmt.Errorf("sequencer reference_volume_m3 must be positive, got %g", c.Sequencer.ReferenceVolumeM3)
	}
	if c.Contingency.MaxAlternates <= 0 {
		return fmt.Errorf("contingency max_alternates must be positive, got %d", c.Contingency.MaxAlternates)
	}
	return nil
}
