package domain

// Channel classification, from main canal down to field ditch.
type ChannelType string

const (
	ChannelMain       ChannelType = "main"
	ChannelLateral    ChannelType = "lateral"
	ChannelSubLateral ChannelType = "sub_lateral"
	ChannelField      ChannelType = "field"
)

// Represents one trapezoidal open-channel reach between two nodes.
// Geometry is fixed for the duration of a run; only the wetted state and
// current flow reflect live telemetry.
type Segment struct {
	SegmentID      string
	Type           ChannelType
	UpstreamNode   string
	DownstreamNode string
	LengthM        float64
	BedWidthM      float64
	SideSlope      float64 // horizontal per unit vertical
	ManningN       float64
	BedSlope       float64
	CapacityM3s    float64
	CurrentFlowM3s float64
	Dry            bool
}
