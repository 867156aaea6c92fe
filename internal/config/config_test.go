package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Optimizer.HeadLossWeight+cfg.Optimizer.FlowDeviationWeight+cfg.Optimizer.MovementWeight != 1.0 {
		t.Fatal("default objective weights should sum to 1")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")

	doc := `
optimizer:
  max_iterations: 120
  rel_tolerance: 0.0005
energy:
  min_power_kw: 10
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Optimizer.MaxIterations != 120 {
		t.Fatalf("max_iterations = %d, want 120", cfg.Optimizer.MaxIterations)
	}
	if cfg.Optimizer.RelTolerance != 0.0005 {
		t.Fatalf("rel_tolerance = %g, want 0.0005", cfg.Optimizer.RelTolerance)
	}
	if cfg.Energy.MinPowerKW != 10 {
		t.Fatalf("min_power_kw = %g, want 10", cfg.Energy.MinPowerKW)
	}

	// Untouched fields keep their defaults.
	if cfg.Feasibility.GateLossM != Default().Feasibility.GateLossM {
		t.Fatalf("gate_loss_m = %g, want default", cfg.Feasibility.GateLossM)
	}
	if cfg.Sequencer.ReferenceVolumeM3 != Default().Sequencer.ReferenceVolumeM3 {
		t.Fatalf("reference_volume_m3 = %g, want default", cfg.Sequencer.ReferenceVolumeM3)
	}
}

func TestLoadRejectsBadTuning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")

	doc := `
optimizer:
  max_iterations: 0
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for zero iteration cap")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
