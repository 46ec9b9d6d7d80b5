package systems

import (
	"math"
	"testing"
)

func TestNoiseDeterministic(t *testing.T) {
	a := NewNoiseField(7)
	b := NewNoiseField(7)
	for i := 0; i < 100; i++ {
		x := float64(i)*0.37 - 15
		y := float64(i)*-0.91 + 4
		if a.Noise(x, y) != b.Noise(x, y) {
			t.Fatalf("Noise(%v, %v) differs between fields with the same seed", x, y)
		}
	}
}

func TestNoiseRangeAndContinuity(t *testing.T) {
	n := NewNoiseField(42)
	const step = 1e-4
	for i := 0; i < 2000; i++ {
		// Walk across integer coordinates where lattice artefacts would show.
		x := float64(i)*0.013 - 10
		y := float64(i)*0.007 + 3
		v := n.Noise(x, y)
		if v < -1 || v > 1 {
			t.Fatalf("Noise(%v, %v) = %v, out of [-1,1]", x, y, v)
		}
		if d := math.Abs(n.Noise(x+step, y) - v); d > 0.01 {
			t.Errorf("Noise jumps by %v over %v at (%v, %v)", d, step, x, y)
		}
	}
}

func TestFBMBounded(t *testing.T) {
	n := NewNoiseField(3)
	tests := []struct {
		name        string
		octaves     int
		persistence float64
		lacunarity  float64
	}{
		{"single octave", 1, 0.5, 2},
		{"default", DefaultOctaves, DefaultPersistence, DefaultLacunarity},
		{"many octaves", 12, 0.9, 2.3},
		{"flat persistence", 8, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 500; i++ {
				x := float64(i)*1.7 - 400
				z := float64(i)*-2.3 + 100
				v := n.FBM(x, z, tt.octaves, tt.persistence, tt.lacunarity)
				if v < -1 || v > 1 {
					t.Fatalf("FBM(%v, %v) = %v, out of [-1,1]", x, z, v)
				}
			}
		})
	}
}

func TestFBMZeroOctaves(t *testing.T) {
	n := NewNoiseField(1)
	if got := n.FBM(1, 2, 0, 0.5, 2); got != 0 {
		t.Errorf("FBM with 0 octaves = %v, want 0", got)
	}
}

func TestFBMDefaultMatchesExplicit(t *testing.T) {
	n := NewNoiseField(9)
	if n.FBMDefault(3.3, -7.1) != n.FBM(3.3, -7.1, 6, 0.5, 2) {
		t.Error("FBMDefault differs from FBM(6, 0.5, 2)")
	}
}
