package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/pasture/components"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.0},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.0},
		{"clamped above", []float64{1, 2, 3}, 1.5, 3.0},
		{"clamped below", []float64{1, 2, 3}, -1, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeDistanceStats(t *testing.T) {
	// Unsorted on purpose.
	values := []float64{-10, 30, 0, 20, 10, -20, 40, 50, 60, 70}
	mean, p50, p90 := ComputeDistanceStats(values)

	if math.Abs(mean-25) > 0.001 {
		t.Errorf("mean = %v, want 25", mean)
	}
	if p50 != 20 {
		t.Errorf("p50 = %v, want 20", p50)
	}
	if p90 != 60 {
		t.Errorf("p90 = %v, want 60", p90)
	}
	if values[0] != -10 {
		t.Error("input slice was reordered")
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	mean, p50, p90 := ComputeDistanceStats(nil)
	if mean != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty distances should return all zeros")
	}
	cm, cmin := ComputeConfidenceStats(nil)
	if cm != 0 || cmin != 0 {
		t.Error("empty confidences should return zeros")
	}
	if s := Spread([]float64{3}); s != 0 {
		t.Errorf("Spread of one value = %v, want 0", s)
	}
}

func TestSpread(t *testing.T) {
	got := Spread([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2) > 1e-9 {
		t.Errorf("Spread = %v, want 2", got)
	}
}

func TestCollectorFlushDeltas(t *testing.T) {
	c := NewCollector("run", 1)
	if c.WindowSeconds() != 1 {
		t.Fatalf("WindowSeconds = %v, want 1", c.WindowSeconds())
	}
	if c.ShouldFlush(0.9) {
		t.Error("ShouldFlush(0.9) = true before the window is full")
	}
	if !c.ShouldFlush(1) {
		t.Error("ShouldFlush(1) = false at window end")
	}

	sample := HerdSample{
		InPasture:   1,
		Confidences: []float64{1, 0.5, 0.75, 0.25},
		DogStates:   []components.DogState{components.DogMoving, components.DogAutonomous, components.DogAutonomous},
		Releases:    [4]int{0, 2, 1, 1},
	}
	sample.NonFiniteSkips = 3

	s := c.Flush(10, 1, sample)
	if s.RunID != "run" || s.WindowEndTick != 10 || math.Abs(s.SimTimeSec-1) > 1e-9 {
		t.Errorf("window header = %q/%d/%v", s.RunID, s.WindowEndTick, s.SimTimeSec)
	}
	if s.Sheep != 4 || s.PastureFraction != 0.25 {
		t.Errorf("sheep = %d, pasture fraction = %v", s.Sheep, s.PastureFraction)
	}
	if s.ConfidenceMean != 0.625 || s.ConfidenceMin != 0.25 {
		t.Errorf("confidence mean/min = %v/%v, want 0.625/0.25", s.ConfidenceMean, s.ConfidenceMin)
	}
	if s.DogsMoving != 1 || s.DogsAutonomous != 2 || s.DogsIdle != 0 {
		t.Errorf("dog states = idle %d moving %d auto %d", s.DogsIdle, s.DogsMoving, s.DogsAutonomous)
	}
	if s.ReleasesArrived != 2 || s.ReleasesExpired != 1 || s.ReleasesStuck != 1 || s.NonFiniteSkips != 3 {
		t.Errorf("first window events = %+v", s)
	}
	if c.ShouldFlush(1.5) {
		t.Error("window did not restart at the flush time")
	}

	// Only the change since the last flush is reported.
	sample.Releases = [4]int{0, 5, 1, 2}
	s = c.Flush(20, 2, sample)
	if s.ReleasesArrived != 3 || s.ReleasesExpired != 0 || s.ReleasesStuck != 1 || s.NonFiniteSkips != 0 {
		t.Errorf("second window events = arrived %d expired %d stuck %d skips %d",
			s.ReleasesArrived, s.ReleasesExpired, s.ReleasesStuck, s.NonFiniteSkips)
	}
	if s.WindowStartTick != 10 {
		t.Errorf("WindowStartTick = %d, want 10", s.WindowStartTick)
	}
}

func TestCollectorFollowsVariableSteps(t *testing.T) {
	c := NewCollector("run", 1)

	// Ten uneven steps that add up to one second.
	steps := []float64{0.05, 0.2, 0.05, 0.1, 0.15, 0.05, 0.1, 0.2, 0.05, 0.05}
	var elapsed float64
	var tick int32
	for i, dt := range steps {
		elapsed += dt
		tick++
		if i < len(steps)-1 && c.ShouldFlush(elapsed) {
			t.Fatalf("flushed early at step %d, elapsed %v", i, elapsed)
		}
	}
	if !c.ShouldFlush(elapsed) {
		t.Fatalf("ShouldFlush(%v) = false after a full second", elapsed)
	}
	s := c.Flush(tick, elapsed, HerdSample{})
	if math.Abs(s.SimTimeSec-1) > 1e-9 || s.WindowEndTick != 10 {
		t.Errorf("window end = tick %d at %vs, want tick 10 at 1s", s.WindowEndTick, s.SimTimeSec)
	}
}
