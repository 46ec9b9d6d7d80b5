package game

import "github.com/pthm-cable/pasture/telemetry"

// simulationStep runs one tick. The flock reads dog positions from the
// previous tick; the herder reads the herd summary from this one.
func (g *Game) simulationStep(dt float64) {
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseFlock)
	g.summary = g.flock.Update(dt, g.elapsed, g.dogPositions)

	g.perfCollector.StartPhase(telemetry.PhaseHerder)
	g.dogPositions = append(g.dogPositions[:0], g.herder.Update(dt, g.elapsed, g.summary)...)

	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()
	if every := int32(g.cfg.Telemetry.LogInterval); every > 0 && g.tick%every == 0 {
		g.logWorldState()
		if g.logStats {
			g.logPerfStats()
		}
	}

	g.perfCollector.EndTick()
}
