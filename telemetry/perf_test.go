package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseFlock)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseHerder)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}
	if stats.PhaseAvg[PhaseFlock] <= 0 {
		t.Error("expected flock phase to be tracked")
	}
	if stats.PhaseAvg[PhaseHerder] <= 0 {
		t.Error("expected herder phase to be tracked")
	}
	if stats.PhaseAvg[PhaseTelemetry] != 0 {
		t.Error("untimed phase has a duration")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseFlock)
		time.Sleep(10 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration after window filled")
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
	if stats.MinTickDuration > stats.MaxTickDuration {
		t.Errorf("min %v > max %v", stats.MinTickDuration, stats.MaxTickDuration)
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseTelemetry)
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase(PhaseFlock)
		time.Sleep(500 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	fast := stats.PhasePct[PhaseTelemetry]
	slow := stats.PhasePct[PhaseFlock]
	if slow <= fast {
		t.Errorf("expected flock phase (%v%%) > telemetry phase (%v%%)", slow, fast)
	}
	if total := fast + slow; total > 100.0001 {
		t.Errorf("phase percentages sum to %v", total)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()
	if stats.AvgTickDuration != 0 || stats.TicksPerSecond != 0 {
		t.Error("expected zero timings for empty collector")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}
	if stats.FPS <= 0 || stats.FPS > 70 {
		t.Errorf("FPS = %v, want in (0, 70]", stats.FPS)
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseTelemetry.String() != "telemetry" {
		t.Errorf("PhaseTelemetry = %q", PhaseTelemetry.String())
	}
	if Phase(200).String() != "unknown" {
		t.Errorf("out of range phase = %q", Phase(200).String())
	}
	csv := PerfStats{PhasePct: [phaseCount]float64{PhaseHerder: 12.5}}.ToCSV("r", 60)
	if csv.HerderPct != 12.5 || csv.RunID != "r" || csv.WindowEnd != 60 {
		t.Errorf("ToCSV = %+v", csv)
	}
}
