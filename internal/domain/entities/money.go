package entities

// MajorUnits converts minor units to a decimal amount for display.
func MajorUnits(minor int64) float64 {
	return float64(minor) / 100
}
