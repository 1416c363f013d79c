package models

// Horizon is a forecast length in months.
type Horizon int

const (
	Horizon6  Horizon = 6
	Horizon12 Horizon = 12
)

// IsValidHorizon returns true if h is a supported horizon.
func IsValidHorizon(h Horizon) bool {
	switch h {
	case Horizon6, Horizon12:
		return true
	default:
		return false
	}
}

// DefaultHorizon returns the default horizon.
func DefaultHorizon() Horizon { return Horizon6 }

// PriceStatsRows is how many monthly stat rows accompany a forecast of this horizon.
func (h Horizon) PriceStatsRows() int {
	if h <= Horizon6 {
		return 26
	}
	return 12
}
