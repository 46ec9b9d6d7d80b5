package game

import (
	"log/slog"
	"math"

	"github.com/pthm-cable/pasture/components"
	"github.com/pthm-cable/pasture/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.elapsed) {
		return
	}

	stats := g.collector.Flush(g.tick, g.elapsed, g.sampleHerd())
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}
}

// sampleHerd collects per-sheep distributions and dog totals for the window.
func (g *Game) sampleHerd() telemetry.HerdSample {
	s := g.summary
	sample := telemetry.HerdSample{
		InPasture:      s.InPasture,
		Feeding:        s.Feeding,
		Strays:         len(s.Strays),
		CentroidX:      s.Centroid.X,
		CentroidZ:      s.Centroid.Z,
		NonFiniteSkips: g.flock.NonFiniteSkips(),
	}

	query := g.sheepFilter.Query()
	for query.Next() {
		m, sh := query.Get()
		sample.Confidences = append(sample.Confidences, sh.Confidence)
		sample.CentroidDistances = append(sample.CentroidDistances, math.Hypot(m.Pos.X-s.Centroid.X, m.Pos.Z-s.Centroid.Z))
		sample.PastureDistances = append(sample.PastureDistances, g.terrain.PastureDistance(m.Pos.X, m.Pos.Z))
	}

	sample.DogStates = make([]components.DogState, 0, len(g.dogs))
	for _, e := range g.dogs {
		d := g.dogMap.Get(e)
		sample.DogStates = append(sample.DogStates, d.State)
		for i, n := range d.Releases {
			sample.Releases[i] += n
		}
	}
	return sample
}
