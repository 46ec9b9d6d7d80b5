package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/pasture/camera"
	"github.com/pthm-cable/pasture/config"
	"github.com/pthm-cable/pasture/game"
	"github.com/pthm-cable/pasture/systems"
)

const pastureSegments = 96

var (
	wallColor     = rl.Color{R: 96, G: 84, B: 72, A: 255}
	boundsColor   = rl.Color{R: 20, G: 20, B: 20, A: 160}
	pastureColor  = rl.Color{R: 210, G: 255, B: 150, A: 200}
	centroidColor = rl.Color{R: 255, G: 255, B: 255, A: 220}
	strayColor    = rl.Color{R: 255, G: 90, B: 60, A: 220}
	fleeColor     = rl.Color{R: 255, G: 120, B: 80, A: 90}
	targetColor   = rl.Color{R: 255, G: 210, B: 80, A: 180}
	sectorColor   = rl.Color{R: 140, G: 200, B: 255, A: 120}
	gridColor     = rl.Color{R: 0, G: 0, B: 0, A: 40}
	headingColor  = rl.Color{R: 255, G: 255, B: 255, A: 160}
)

func toScreen(cam *camera.Camera, x, z float64) rl.Vector2 {
	sx, sy := cam.WorldToScreen(float32(x), float32(z))
	return rl.Vector2{X: sx, Y: sy}
}

// drawWalls draws the solid pen walls and the world edge.
func drawWalls(cam *camera.Camera, bounds *systems.BoundaryModel, cfg *config.Config) {
	thick := max(1, float32(2*bounds.Farm.Wall)*cam.Zoom)
	for _, seg := range bounds.Farm.WallSegments() {
		rl.DrawLineEx(toScreen(cam, seg[0].X, seg[0].Z), toScreen(cam, seg[1].X, seg[1].Z), thick, wallColor)
	}

	h := cfg.World.HalfExtent
	a := toScreen(cam, -h, -h)
	b := toScreen(cam, h, h)
	rl.DrawRectangleLinesEx(rl.Rectangle{X: a.X, Y: a.Y, Width: b.X - a.X, Height: b.Y - a.Y}, 2, boundsColor)
}

// drawPastureEdge outlines the lush grass footprint.
func drawPastureEdge(cam *camera.Camera, terrain *systems.TerrainField) {
	c := terrain.GrassCenter()
	point := func(i int) rl.Vector2 {
		a := 2 * math.Pi * float64(i) / pastureSegments
		r := terrain.GrassRadiusAt(a)
		return toScreen(cam, c.X+r*math.Cos(a), c.Z+r*math.Sin(a))
	}
	prev := point(0)
	for i := 1; i <= pastureSegments; i++ {
		next := point(i)
		rl.DrawLineEx(prev, next, 2, pastureColor)
		prev = next
	}
}

// drawHerdMarkers marks the centroid and the current strays.
func drawHerdMarkers(cam *camera.Camera, summary systems.HerdSummary) {
	if summary.Count == 0 {
		return
	}
	c := toScreen(cam, summary.Centroid.X, summary.Centroid.Z)
	rl.DrawCircleLinesV(c, 6, centroidColor)
	rl.DrawLineV(rl.Vector2{X: c.X - 8, Y: c.Y}, rl.Vector2{X: c.X + 8, Y: c.Y}, centroidColor)
	rl.DrawLineV(rl.Vector2{X: c.X, Y: c.Y - 8}, rl.Vector2{X: c.X, Y: c.Y + 8}, centroidColor)

	for _, s := range summary.Strays {
		rl.DrawCircleLinesV(toScreen(cam, s.X, s.Z), max(4, 3*cam.Zoom), strayColor)
	}
}

// drawFleeRadius rings each dog with the distance at which sheep flee.
func drawFleeRadius(cam *camera.Camera, dogs []game.DogView, radius float64) {
	for _, d := range dogs {
		rl.DrawCircleLinesV(toScreen(cam, d.Motion.Pos.X, d.Motion.Pos.Z), float32(radius)*cam.Zoom, fleeColor)
	}
}

// drawDogTargets draws a line from each dog to where it is steering.
func drawDogTargets(cam *camera.Camera, dogs []game.DogView) {
	for _, d := range dogs {
		from := toScreen(cam, d.Motion.Pos.X, d.Motion.Pos.Z)
		to := toScreen(cam, d.Dog.Target.X, d.Dog.Target.Z)
		rl.DrawLineEx(from, to, 1.5, targetColor)
		rl.DrawCircleV(to, 3, targetColor)
	}
}

// drawSectors draws each dog's intercept wedge boundaries around the centroid.
func drawSectors(cam *camera.Camera, centroid r3.Vec, cfg *config.HerderConfig) {
	c := toScreen(cam, centroid.X, centroid.Z)
	for _, s := range cfg.Sectors {
		a := s.Start * math.Pi / 180
		edge := toScreen(cam, centroid.X+math.Cos(a)*cfg.PatrolRadius, centroid.Z+math.Sin(a)*cfg.PatrolRadius)
		rl.DrawLineEx(c, edge, 1, sectorColor)
	}
	rl.DrawCircleLinesV(c, float32(cfg.PatrolRadius)*cam.Zoom, sectorColor)
}

// drawSpatialGrid draws the neighbour index cell lines in view.
func drawSpatialGrid(cam *camera.Camera, cellSize float64) {
	if cellSize <= 0 || float32(cellSize)*cam.Zoom < 4 {
		return
	}
	minX, minZ, maxX, maxZ := cam.VisibleWorldBounds()
	for x := math.Floor(float64(minX)/cellSize) * cellSize; x <= float64(maxX); x += cellSize {
		rl.DrawLineV(toScreen(cam, x, float64(minZ)), toScreen(cam, x, float64(maxZ)), gridColor)
	}
	for z := math.Floor(float64(minZ)/cellSize) * cellSize; z <= float64(maxZ); z += cellSize {
		rl.DrawLineV(toScreen(cam, float64(minX), z), toScreen(cam, float64(maxX), z), gridColor)
	}
}

// drawHeadings draws each dog's velocity vector, one second long.
func drawHeadings(cam *camera.Camera, dogs []game.DogView) {
	for _, d := range dogs {
		p, v := d.Motion.Pos, d.Motion.Vel
		rl.DrawLineV(toScreen(cam, p.X, p.Z), toScreen(cam, p.X+v.X, p.Z+v.Z), headingColor)
	}
}
