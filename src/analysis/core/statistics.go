package core

import (
	"math"

	"price-stream/src/models"
)

// -----------------------------------------------------------------------------

// MinMaxMean returns the range and average of the series values.
// An empty series yields all zeros.
func MinMaxMean(series []models.MTick) models.MMinMaxMean {
	if len(series) == 0 {
		return models.MMinMaxMean{}
	}

	minV, maxV, sum := series[0].Value, series[0].Value, 0.0
	for _, t := range series {
		if t.Value < minV {
			minV = t.Value
		}
		if t.Value > maxV {
			maxV = t.Value
		}
		sum += t.Value
	}

	return models.MMinMaxMean{
		Min:  minV,
		Max:  maxV,
		Mean: sum / float64(len(series)),
	}
}

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and population standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) == 1 {
		return mean, 0
	}

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	std := math.Sqrt(varianceSum / float64(len(data)))
	return mean, std
}

// -----------------------------------------------------------------------------

// Values extracts the price column of a series.
func Values(series []models.MTick) []float64 {
	out := make([]float64, len(series))
	for i, t := range series {
		out[i] = t.Value
	}
	return out
}
