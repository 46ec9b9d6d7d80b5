package systems

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Default fractal parameters.
const (
	DefaultOctaves     = 6
	DefaultPersistence = 0.5
	DefaultLacunarity  = 2.0
)

// NoiseField generates coherent 2D noise and fractal sums of it.
// It is read-only after construction and safe for concurrent readers.
type NoiseField struct {
	src opensimplex.Noise
}

// NewNoiseField creates a noise field for the given seed.
func NewNoiseField(seed int64) *NoiseField {
	return &NoiseField{src: opensimplex.New(seed)}
}

// Noise returns a smooth noise value in [-1, 1].
func (n *NoiseField) Noise(x, y float64) float64 {
	return clampFloat(n.src.Eval2(x, y), -1, 1)
}

// FBM sums octaves of noise at increasing frequency and decreasing amplitude,
// normalized by the total amplitude so the result stays in [-1, 1].
func (n *NoiseField) FBM(x, z float64, octaves int, persistence, lacunarity float64) float64 {
	if octaves < 1 {
		return 0
	}
	total := 0.0
	amplitude := 1.0
	frequency := 1.0
	maxAmp := 0.0
	for i := 0; i < octaves; i++ {
		total += n.Noise(x*frequency, z*frequency) * amplitude
		maxAmp += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	return total / maxAmp
}

// FBMDefault is FBM with 6 octaves, persistence 0.5 and lacunarity 2.
func (n *NoiseField) FBMDefault(x, z float64) float64 {
	return n.FBM(x, z, DefaultOctaves, DefaultPersistence, DefaultLacunarity)
}
