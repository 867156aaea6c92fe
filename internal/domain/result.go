package domain

import "time"

// Diagnostics emitted by every iterative solve. Non-convergence is a flag,
// never an error: the value carried is the best available estimate.
type SolveDiagnostics struct {
	Converged  bool
	Iterations int
}

// One gate setpoint within a result, timestamped for staged execution.
type ScheduledSetting struct {
	At       time.Time
	Commands []GateCommand
}

// Planned state for one delivery request inside a result.
type DeliveryOutcome struct {
	RequestID   string
	Feasible    bool
	RequiredM   float64 // head required along the path
	AvailableM  float64 // head available source to destination
	MarginM     float64
	FlowM3s     float64
	ArrivalAt   time.Time
	Wave        int // concurrency wave index, 0-based
	PathSegIDs  []string
	PathGateIDs []string
}

// Recoverable-energy estimate for one gate site.
type EnergySite struct {
	GateID        string
	PowerKW       float64
	AnnualKWh     float64
	PaybackYears  float64
	HeadM         float64
	FlowM3s       float64
}

// Represents the full output of one optimization run over a request batch.
// Produced once per run and handed to an external results store; the engine
// keeps no state past the run.
type OptimizationResult struct {
	RunID        string
	StartedAt    time.Time
	Outcomes     []DeliveryOutcome
	Settings     []ScheduledSetting
	EnergySites  []EnergySite
	ObjectiveVal float64
	EfficiencyPc float64 // delivered vs requested volume, percent
	Suboptimal   bool    // optimizer capped out before converging
	TimeLimited  bool    // run budget expired, best incumbent returned
	Diagnostics  SolveDiagnostics
}

// One candidate reroute inside a contingency plan.
type AlternatePath struct {
	SegmentIDs       []string
	BottleneckM3s    float64
	FeasibilityScore float64
}

// Represents the rerouting answer to a blockage event. An empty Alternates
// list is a valid terminal outcome meaning no gravity route exists; it is
// surfaced to field operations, not raised as an error.
type ContingencyPlan struct {
	PlanID     string
	SegmentID  string // failing edge
	Severity   float64
	CreatedAt  time.Time
	Alternates []AlternatePath
}
