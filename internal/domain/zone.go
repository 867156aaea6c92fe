package domain

// Represents an irrigation zone: a contiguous command area served by one or
// more delivery nodes, bounded by its elevation band.
type Zone struct {
	ZoneID       string
	Name         string
	MinElevation float64
	MaxElevation float64
	AreaHa       float64
	NodeIDs      []string
}
