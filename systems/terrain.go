package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/pasture/config"
)

// Biome is the discrete terrain category at a point.
type Biome uint8

const (
	BiomeSnow Biome = iota
	BiomePath
	BiomeLushGrass
	BiomeFarmDirt
	BiomeSnowForest
	BiomePlains
	BiomeSnowPlains
	biomeCount
)

var biomeNames = [biomeCount]string{
	BiomeSnow:       "snow",
	BiomePath:       "path",
	BiomeLushGrass:  "lush_grass",
	BiomeFarmDirt:   "farm_dirt",
	BiomeSnowForest: "snow_forest",
	BiomePlains:     "plains",
	BiomeSnowPlains: "snow_plains",
}

func (b Biome) String() string {
	if b < biomeCount {
		return biomeNames[b]
	}
	return "unknown"
}

// Seed offsets for the independent noise layers.
const (
	roughSeedOffset    = 1
	moistureSeedOffset = 2
	grassSeedOffset    = 3
	forkSeedOffset     = 4
)

// TerrainField maps ground-plane coordinates to a height and a biome.
// Both are pure functions of (x, z) and the configuration it was built with.
type TerrainField struct {
	cfg   config.TerrainConfig
	farm  config.FarmConfig
	grass config.GrassConfig
	path  config.PathConfig

	base     *NoiseField
	rough    *NoiseField
	moisture *NoiseField
	rim      *NoiseField
	wobble   *NoiseField

	// Main path segment, farm centre to grass centre
	pathAX, pathAZ float64
	pathDX, pathDZ float64
	pathLenSq      float64

	flattenReach float64
}

// forkDir is the unit direction of the fork path from the grass centre.
var forkDir = r3.Vec{X: math.Sqrt2 / 2, Z: math.Sqrt2 / 2}

// NewTerrainField creates a terrain field from the loaded configuration.
func NewTerrainField(cfg *config.Config) *TerrainField {
	seed := cfg.Terrain.Seed
	t := &TerrainField{
		cfg:      cfg.Terrain,
		farm:     cfg.Farm,
		grass:    cfg.Grass,
		path:     cfg.Path,
		base:     NewNoiseField(seed),
		rough:    NewNoiseField(seed + roughSeedOffset),
		moisture: NewNoiseField(seed + moistureSeedOffset),
		rim:      NewNoiseField(seed + grassSeedOffset),
		wobble:   NewNoiseField(seed + forkSeedOffset),

		pathAX:       cfg.Farm.CenterX,
		pathAZ:       cfg.Farm.CenterZ,
		pathDX:       cfg.Grass.CenterX - cfg.Farm.CenterX,
		pathDZ:       cfg.Grass.CenterZ - cfg.Farm.CenterZ,
		flattenReach: cfg.Derived.FarmFlattenReach,
	}
	t.pathLenSq = t.pathDX*t.pathDX + t.pathDZ*t.pathDZ
	return t
}

// Height returns the terrain height at (x, z).
func (t *TerrainField) Height(x, z float64) float64 {
	h := t.baseHeight(x, z)

	// Farm flatten
	fw := t.farmWeight(x, z)
	if fw > 0 {
		h = lerp(h, t.farm.Height, fw)
	}

	// Grassland blend
	r, angle := t.grassPolar(x, z)
	radius := t.GrassRadiusAt(angle)
	if w := 1 - smoothstep(radius, radius+t.grass.BlendWidth, r); w > 0 {
		h = lerp(h, t.grass.Height, w)
	}

	// Main path
	d, along := t.mainPathDistance(x, z)
	if w := 1 - smoothstep(t.path.HalfWidth, t.path.HalfWidth+t.path.BlendWidth, d); w > 0 {
		// The path runs level until it leaves the farm flatten.
		target := lerp(lerp(t.farm.Height, t.grass.Height, along), t.farm.Height, fw)
		h = lerp(h, target, w)
	}

	// Fork path
	fd, s, gate := t.forkDistance(x, z)
	if w := gate * (1 - smoothstep(t.path.ForkHalfWidth, t.path.ForkHalfWidth+t.path.ForkBlendWidth, fd)); w > 0 {
		h = lerp(h, t.grass.Height+t.path.ForkClimb*s, w)
	}

	return h
}

// Biome classifies (x, z) given its height. Zone tests are tighter than the
// height blends so biome borders sit on flattened ground.
func (t *TerrainField) Biome(x, z, height float64) Biome {
	if height > t.cfg.SnowHeight {
		return BiomeSnow
	}
	if d, _ := t.mainPathDistance(x, z); d < t.path.HalfWidth {
		return BiomePath
	}
	if fd, _, gate := t.forkDistance(x, z); gate > 0.5 && fd < t.path.ForkHalfWidth {
		return BiomePath
	}
	if t.InPasture(x, z) {
		return BiomeLushGrass
	}
	if t.farmChebyshev(x, z) < t.farm.HalfSize-t.farm.BiomeInset {
		return BiomeFarmDirt
	}

	m := t.moisture.FBM(x*t.cfg.MoistureScale, z*t.cfg.MoistureScale, 3, 0.5, 2)
	switch {
	case m > t.cfg.ForestMoisture:
		return BiomeSnowForest
	case height > t.cfg.AlpineHeight:
		return BiomeSnowPlains
	default:
		return BiomePlains
	}
}

// BiomeAt classifies (x, z) at its own terrain height.
func (t *TerrainField) BiomeAt(x, z float64) Biome {
	return t.Biome(x, z, t.Height(x, z))
}

// GrassRadiusAt returns the organic grassland radius in the direction angle
// (radians, measured from +X toward +Z around the grass centre).
func (t *TerrainField) GrassRadiusAt(angle float64) float64 {
	f := t.grass.RadiusNoiseFreq
	n := t.rim.Noise(math.Cos(angle)*f, math.Sin(angle)*f)
	return clampFloat(t.grass.NominalRadius+n*t.grass.RadiusNoise, t.grass.MinRadius, t.grass.MaxRadius)
}

// InPasture reports whether (x, z) lies inside the lush-grass footprint.
func (t *TerrainField) InPasture(x, z float64) bool {
	r, angle := t.grassPolar(x, z)
	return r < t.GrassRadiusAt(angle)-t.grass.BiomeInset
}

// PastureDistance returns how far (x, z) lies outside the grassland edge
// (negative inside).
func (t *TerrainField) PastureDistance(x, z float64) float64 {
	r, angle := t.grassPolar(x, z)
	return r - t.GrassRadiusAt(angle)
}

// GrassCenter returns the grassland centre on the ground plane.
func (t *TerrainField) GrassCenter() r3.Vec {
	return r3.Vec{X: t.grass.CenterX, Z: t.grass.CenterZ}
}

// FarmCenter returns the farm pen centre on the ground plane.
func (t *TerrainField) FarmCenter() r3.Vec {
	return r3.Vec{X: t.farm.CenterX, Z: t.farm.CenterZ}
}

// Gradient returns the height gradient at (x, z) by central differences.
func (t *TerrainField) Gradient(x, z float64) (gx, gz float64) {
	const eps = 0.5
	gx = (t.Height(x+eps, z) - t.Height(x-eps, z)) / (2 * eps)
	gz = (t.Height(x, z+eps) - t.Height(x, z-eps)) / (2 * eps)
	return gx, gz
}

// MaxHeight returns the configured peak height.
func (t *TerrainField) MaxHeight() float64 {
	return t.cfg.MaxHeight
}

// baseHeight is the ridged fbm terrain plus height-scaled roughness.
func (t *TerrainField) baseHeight(x, z float64) float64 {
	s := t.cfg.BaseScale
	ridge := math.Pow(math.Abs(t.base.FBM(x*s, z*s, t.cfg.BaseOctaves, 0.5, 2)), t.cfg.RidgeExponent)
	h := ridge * t.cfg.MaxHeight

	// Roughness grows with altitude: valleys stay smooth, peaks get craggy.
	rs := t.cfg.RoughScale
	roughness := t.rough.Noise(x*rs, z*rs) * t.cfg.RoughAmplitude * (1 + 4*ridge)
	return h + roughness
}

func (t *TerrainField) farmChebyshev(x, z float64) float64 {
	return math.Max(math.Abs(x-t.farm.CenterX), math.Abs(z-t.farm.CenterZ))
}

// farmWeight is 1 inside the farm square, falling linearly to 0 at 1.5x its half size.
func (t *TerrainField) farmWeight(x, z float64) float64 {
	d := t.farmChebyshev(x, z)
	if d <= t.farm.HalfSize {
		return 1
	}
	return clamp01(1 - (d-t.farm.HalfSize)/(t.flattenReach-t.farm.HalfSize))
}

func (t *TerrainField) grassPolar(x, z float64) (r, angle float64) {
	dx := x - t.grass.CenterX
	dz := z - t.grass.CenterZ
	return math.Hypot(dx, dz), math.Atan2(dz, dx)
}

// mainPathDistance returns the distance from (x, z) to the farm-grass segment
// and the normalized projection along it.
func (t *TerrainField) mainPathDistance(x, z float64) (dist, along float64) {
	px := x - t.pathAX
	pz := z - t.pathAZ
	if t.pathLenSq > 0 {
		along = clamp01((px*t.pathDX + pz*t.pathDZ) / t.pathLenSq)
	}
	cx := px - t.pathDX*along
	cz := pz - t.pathDZ*along
	return math.Hypot(cx, cz), along
}

// forkDistance returns the lateral distance from (x, z) to the wobbled fork
// centreline, the distance along the fork, and a 0..1 gate that confines the
// fork to the +X/+Z quadrant of the grass centre and fades it out at its end.
func (t *TerrainField) forkDistance(x, z float64) (dist, along, gate float64) {
	rx := x - t.grass.CenterX
	rz := z - t.grass.CenterZ

	ramp := t.path.QuadrantRamp
	gate = smoothstep(0, ramp, math.Min(rx, rz))
	if gate == 0 {
		return math.Inf(1), 0, 0
	}
	along = rx*forkDir.X + rz*forkDir.Z
	gate *= 1 - smoothstep(t.path.ForkLength-ramp, t.path.ForkLength, along)
	if gate == 0 {
		return math.Inf(1), along, 0
	}

	lateral := -rx*forkDir.Z + rz*forkDir.X
	centre := t.path.ForkWobble * t.wobble.Noise(along*t.path.ForkWobbleScale, 0.5)
	return math.Abs(lateral - centre), along, gate
}
