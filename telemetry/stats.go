// Package telemetry provides windowed herd statistics, bookmarks and CSV output.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	RunID           string  `csv:"run_id"`
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Herd state at window end
	Sheep           int     `csv:"sheep"`
	InPasture       int     `csv:"in_pasture"`
	PastureFraction float64 `csv:"pasture_fraction"`
	Feeding         int     `csv:"feeding"`
	Strays          int     `csv:"strays"`
	CentroidX       float64 `csv:"centroid_x"`
	CentroidZ       float64 `csv:"centroid_z"`

	// Confidence distribution
	ConfidenceMean float64 `csv:"confidence_mean"`
	ConfidenceMin  float64 `csv:"confidence_min"`

	// Spread is the standard deviation of distances to the centroid.
	Spread float64 `csv:"spread"`

	// Distance outside the grassland edge (negative inside)
	PastureDistMean float64 `csv:"pasture_dist_mean"`
	PastureDistP50  float64 `csv:"pasture_dist_p50"`
	PastureDistP90  float64 `csv:"pasture_dist_p90"`

	// Dog states at window end
	DogsIdle       int `csv:"dogs_idle"`
	DogsMoving     int `csv:"dogs_moving"`
	DogsAutonomous int `csv:"dogs_autonomous"`

	// Events during window
	ReleasesArrived int `csv:"releases_arrived"`
	ReleasesExpired int `csv:"releases_expired"`
	ReleasesStuck   int `csv:"releases_stuck"`
	NonFiniteSkips  int `csv:"non_finite_skips"`
}

// Percentile returns the p-th empirical quantile of a sorted slice.
// p is clamped to [0, 1]. Returns 0 if the slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = max(0, min(1, p))
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ComputeDistanceStats calculates mean and percentiles from distance values.
func ComputeDistanceStats(values []float64) (mean, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return stat.Mean(sorted, nil), Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// ComputeConfidenceStats returns the mean and minimum confidence.
func ComputeConfidenceStats(values []float64) (mean, lowest float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return stat.Mean(values, nil), floats.Min(values)
}

// Spread returns the population standard deviation of values.
func Spread(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("sheep", s.Sheep),
		slog.Int("in_pasture", s.InPasture),
		slog.Float64("pasture_fraction", s.PastureFraction),
		slog.Int("feeding", s.Feeding),
		slog.Int("strays", s.Strays),
		slog.Float64("centroid_x", s.CentroidX),
		slog.Float64("centroid_z", s.CentroidZ),
		slog.Float64("confidence_mean", s.ConfidenceMean),
		slog.Float64("confidence_min", s.ConfidenceMin),
		slog.Float64("spread", s.Spread),
		slog.Float64("pasture_dist_p50", s.PastureDistP50),
		slog.Float64("pasture_dist_p90", s.PastureDistP90),
		slog.Int("dogs_moving", s.DogsMoving),
		slog.Int("dogs_autonomous", s.DogsAutonomous),
		slog.Int("releases_arrived", s.ReleasesArrived),
		slog.Int("releases_expired", s.ReleasesExpired),
		slog.Int("releases_stuck", s.ReleasesStuck),
		slog.Int("non_finite_skips", s.NonFiniteSkips),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "run_id", s.RunID, "window", s)
}
