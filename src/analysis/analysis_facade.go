package analysis

import (
	"price-stream/src/analysis/core"
	"price-stream/src/logger"
	"price-stream/src/models"
)

// AnalysisFacade derives the dashboard statistics from a series snapshot.
// It is stateless: every call recomputes from the series it is given.
type AnalysisFacade struct {
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(log *logger.Logger) *AnalysisFacade {
	if log == nil {
		log = logger.NewNop()
	}
	return &AnalysisFacade{Logger: log}
}

// -----------------------------------------------------------------------------

// Summarize computes range, mean, deviation and change since the oldest retained tick.
// Values are returned at full precision; rounding is left to presentation.
func (a *AnalysisFacade) Summarize(series []models.MTick) models.MSeriesStats {
	stats := models.MSeriesStats{
		MMinMaxMean: core.MinMaxMean(series),
		Change:      core.ChangeSinceStart(series),
		Points:      len(series),
	}
	_, stats.StdDev = core.CalculateMeanStd(core.Values(series))

	a.Logger.Debug("summarized %d points: min=%.4f max=%.4f mean=%.4f", stats.Points, stats.Min, stats.Max, stats.Mean)
	return stats
}

// -----------------------------------------------------------------------------

// RoundForDisplay returns a copy of stats with every value rounded to places decimals.
func RoundForDisplay(stats models.MSeriesStats, places int) models.MSeriesStats {
	return models.MSeriesStats{
		MMinMaxMean: models.MMinMaxMean{
			Min:  core.RoundTo(stats.Min, places),
			Max:  core.RoundTo(stats.Max, places),
			Mean: core.RoundTo(stats.Mean, places),
		},
		StdDev: core.RoundTo(stats.StdDev, places),
		Points: stats.Points,
		Change: models.MChange{
			Absolute:   core.RoundTo(stats.Change.Absolute, places),
			Percentage: core.RoundTo(stats.Change.Percentage, places),
		},
	}
}
