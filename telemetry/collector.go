package telemetry

import "github.com/pthm-cable/pasture/components"

// HerdSample is the per-window input to Flush, sampled at window end.
type HerdSample struct {
	InPasture int
	Feeding   int
	Strays    int
	CentroidX float64
	CentroidZ float64

	Confidences       []float64
	CentroidDistances []float64
	PastureDistances  []float64

	DogStates []components.DogState

	// Running totals since the start of the run.
	Releases       [4]int
	NonFiniteSkips int
}

// Tolerance for clock drift from summing many small steps.
const windowEpsilon = 1e-6

// Collector turns running totals into per-window deltas and produces WindowStats.
// Windows are measured on the simulation clock, so variable steps are fine.
type Collector struct {
	runID         string
	windowSeconds float64

	windowStartTick int32
	windowStartSec  float64

	// Totals at the previous flush
	lastReleases  [4]int
	lastNonFinite int
}

// NewCollector creates a collector whose windows last windowSeconds of
// simulated time.
func NewCollector(runID string, windowSeconds float64) *Collector {
	return &Collector{
		runID:         runID,
		windowSeconds: windowSeconds,
	}
}

// ShouldFlush reports whether the window that started at the last flush has
// run its length by simulation time elapsed.
func (c *Collector) ShouldFlush(elapsed float64) bool {
	return elapsed-c.windowStartSec >= c.windowSeconds-windowEpsilon
}

// Flush produces a WindowStats ending at currentTick / elapsed and starts
// the next window.
func (c *Collector) Flush(currentTick int32, elapsed float64, s HerdSample) WindowStats {
	n := len(s.Confidences)
	stats := WindowStats{
		RunID:           c.runID,
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      elapsed,

		Sheep:     n,
		InPasture: s.InPasture,
		Feeding:   s.Feeding,
		Strays:    s.Strays,
		CentroidX: s.CentroidX,
		CentroidZ: s.CentroidZ,
		Spread:    Spread(s.CentroidDistances),

		ReleasesArrived: s.Releases[components.ReleaseArrived] - c.lastReleases[components.ReleaseArrived],
		ReleasesExpired: s.Releases[components.ReleaseExpired] - c.lastReleases[components.ReleaseExpired],
		ReleasesStuck:   s.Releases[components.ReleaseStuck] - c.lastReleases[components.ReleaseStuck],
		NonFiniteSkips:  s.NonFiniteSkips - c.lastNonFinite,
	}
	if n > 0 {
		stats.PastureFraction = float64(s.InPasture) / float64(n)
	}
	stats.ConfidenceMean, stats.ConfidenceMin = ComputeConfidenceStats(s.Confidences)
	stats.PastureDistMean, stats.PastureDistP50, stats.PastureDistP90 = ComputeDistanceStats(s.PastureDistances)

	for _, st := range s.DogStates {
		switch st {
		case components.DogIdle:
			stats.DogsIdle++
		case components.DogMoving:
			stats.DogsMoving++
		case components.DogAutonomous:
			stats.DogsAutonomous++
		}
	}

	c.windowStartTick = currentTick
	c.windowStartSec = elapsed
	c.lastReleases = s.Releases
	c.lastNonFinite = s.NonFiniteSkips

	return stats
}

// WindowSeconds returns the window length in simulated seconds.
func (c *Collector) WindowSeconds() float64 {
	return c.windowSeconds
}
