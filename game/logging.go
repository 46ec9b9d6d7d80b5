package game

import (
	"log/slog"

	"github.com/pthm-cable/pasture/components"
)

// logWorldState logs the herd and dog state.
func (g *Game) logWorldState() {
	s := g.summary

	var moving, autonomous int
	for _, e := range g.dogs {
		switch g.dogMap.Get(e).State {
		case components.DogMoving:
			moving++
		case components.DogAutonomous:
			autonomous++
		}
	}

	slog.Info("world",
		"tick", g.tick,
		"sim_time", g.elapsed,
		"sheep", s.Count,
		"in_pasture", s.InPasture,
		"feeding", s.Feeding,
		"strays", len(s.Strays),
		"centroid_x", s.Centroid.X,
		"centroid_z", s.Centroid.Z,
		"dogs_moving", moving,
		"dogs_autonomous", autonomous,
		"non_finite_skips", g.flock.NonFiniteSkips(),
	)
}

// logPerfStats logs the rolling per-phase timing.
func (g *Game) logPerfStats() {
	slog.Info("perf", "tick", g.tick, "perf", g.perfCollector.Stats())
}
