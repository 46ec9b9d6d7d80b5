package game

import (
	"image/color"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/pasture/components"
)

// dogStandoff is how far outside the pen wall the dogs start.
const dogStandoff = 20.0

// spawnHerd places every sheep inside the farm pen, clear of the walls.
func (g *Game) spawnHerd() {
	cfg := g.cfg
	farm := &g.bounds.Farm
	reach := farm.Half - farm.Wall - cfg.Farm.SpawnMargin

	for i := 0; i < cfg.Flock.Count; i++ {
		x := farm.CenterX + (g.rng.Float64()*2-1)*reach
		z := farm.CenterZ + (g.rng.Float64()*2-1)*reach
		g.spawnSheep(i, x, z, g.rng.Float64()*2*math.Pi)
	}
}

// spawnSheep creates one sheep snapped to the terrain.
func (g *Game) spawnSheep(index int, x, z, heading float64) ecs.Entity {
	y := g.terrain.Height(x, z) + g.cfg.Flock.Clearance
	m := components.Motion{Pos: r3.Vec{X: x, Y: y, Z: z}, Heading: heading}
	sh := g.flock.NewSheep(index, g.newPersonality())
	return g.sheepMapper.NewEntity(&m, &sh)
}

// newPersonality draws per-sheep traits from the configured ranges.
func (g *Game) newPersonality() components.Personality {
	f := &g.cfg.Flock
	shade := uint8(g.rng.IntN(30))
	face := uint8(30 + g.rng.IntN(50))
	return components.Personality{
		MaxSpeed:          f.MinSpeed + g.rng.Float64()*(f.MaxSpeed-f.MinSpeed),
		WanderPhase:       g.rng.Float64() * 2 * math.Pi,
		GrazeAngle:        g.rng.Float64() * 2 * math.Pi,
		GrazeRadiusFactor: f.GrazeRadiusMin + g.rng.Float64()*(f.GrazeRadiusMax-f.GrazeRadiusMin),
		FeedDamping:       f.FeedDampingMin + g.rng.Float64()*(f.FeedDampingMax-f.FeedDampingMin),
		Wool:              color.RGBA{R: 235 - shade, G: 230 - shade, B: 218 - shade, A: 255},
		Face:              color.RGBA{R: face, G: face - face/6, B: face - face/5, A: 255},
	}
}

// spawnDogs lines the dogs up outside the pen on the side away from the
// pasture, spaced like their balance points.
func (g *Game) spawnDogs() {
	cfg := g.cfg
	farm := &g.bounds.Farm
	pen := r3.Vec{X: farm.CenterX, Z: farm.CenterZ}
	dir := r3.Sub(g.terrain.GrassCenter(), pen)
	dir.Y = 0
	if n := r3.Norm(dir); n > 0 {
		dir = r3.Scale(1/n, dir)
	} else {
		dir = r3.Vec{X: 1}
	}
	side := r3.Vec{X: -dir.Z, Z: dir.X}
	back := farm.Half + farm.Wall + dogStandoff

	n := cfg.Herder.Count
	g.dogs = g.dogs[:0]
	for i := 0; i < n; i++ {
		offset := (float64(i) - float64(n-1)/2) * cfg.Herder.LateralSpacing
		p := g.bounds.ClampDog(r3.Add(r3.Sub(pen, r3.Scale(back, dir)), r3.Scale(offset, side)))
		p.Y = g.terrain.Height(p.X, p.Z) + cfg.Herder.Clearance

		m := components.Motion{Pos: p, Heading: math.Atan2(dir.X, dir.Z)}
		d := components.Dog{ID: i, State: components.DogIdle}
		g.dogs = append(g.dogs, g.dogMapper.NewEntity(&m, &d))
		g.dogPositions = append(g.dogPositions, p)
	}
}
