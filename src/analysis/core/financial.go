package core

import (
	"math"

	"price-stream/src/models"
)

// -----------------------------------------------------------------------------

// ChangeSinceStart measures the move from the oldest retained tick to the newest.
// Once the buffer has evicted entries this is relative to the oldest retained point,
// not to the first tick of the session. Fewer than two ticks yield zeros.
func ChangeSinceStart(series []models.MTick) models.MChange {
	if len(series) < 2 {
		return models.MChange{}
	}

	first := series[0].Value
	last := series[len(series)-1].Value
	return models.MChange{
		Absolute:   last - first,
		Percentage: CalculateChangePercent(last, first) * 100,
	}
}

// -----------------------------------------------------------------------------

// CalculateChangePercent calculates the fractional change from previous to current.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous
}

// -----------------------------------------------------------------------------

// RoundTo rounds v half away from zero to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
