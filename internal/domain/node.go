package domain

// Represents a junction, offtake, or delivery point in the canal network.
// Elevation is meters above mean sea level and drives every gravity-flow
// decision; Priority 1 is the highest service priority.
type Node struct {
	NodeID      string
	Name        string
	Elevation   float64
	Location    Coordinates
	WaterDemand float64
	Priority    int
}

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64
	Lat float64
}
