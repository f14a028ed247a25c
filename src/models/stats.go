package models

// MMinMaxMean holds the range and average of a series snapshot.
type MMinMaxMean struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// MChange is the move between the oldest and newest retained ticks.
type MChange struct {
	Absolute   float64 `json:"absolute"`
	Percentage float64 `json:"percentage"`
}

// MSeriesStats bundles every derived statistic for one snapshot.
type MSeriesStats struct {
	MMinMaxMean
	StdDev float64 `json:"std_dev"`
	Points int     `json:"points"`
	Change MChange `json:"change"`
}
