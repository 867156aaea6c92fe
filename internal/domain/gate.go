package domain

// How a gate is actuated in the field.
type GateType string

const (
	GateManual    GateType = "manual"
	GateAutomated GateType = "automated"
)

// Represents a sluice gate controlling flow between two channel segments.
// CurrentOpening is the live telemetry value; it never exceeds MaxOpeningM,
// and flow through the gate is zero when the opening is zero.
type Gate struct {
	GateID            string
	Location          Coordinates
	SillElevation     float64
	Type              GateType
	WidthM            float64
	MaxOpeningM       float64
	CurrentOpeningM   float64
	UpstreamSegment   string
	DownstreamSegment string
	UpstreamHeadM     float64 // water level above sill, upstream side
	DownstreamHeadM   float64 // water level above sill, downstream side
}

// An opening/flow setpoint for one gate, issued to the SCADA collaborator.
type GateCommand struct {
	GateID   string  `json:"gate_id"`
	OpeningM float64 `json:"opening_m"`
	FlowM3s  float64 `json:"flow_m3s"`
}
