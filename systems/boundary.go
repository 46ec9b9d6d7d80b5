package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/pasture/config"
)

// FarmPen is the walled square around the farm. The wall is a band of
// ±Wall around the square's edge, broken by a gate at the centre of each
// face and a cutout at each corner.
type FarmPen struct {
	CenterX, CenterZ float64
	Half             float64
	Wall             float64
	GateHalf         float64
	Corner           float64
}

// WorldBounds is the outer containment square.
type WorldBounds struct {
	HalfExtent    float64
	EdgeMargin    float64
	EdgePush      float64
	DogHalfExtent float64
}

// BoundaryModel holds containment geometry shared by sheep and dogs.
type BoundaryModel struct {
	Farm        FarmPen
	World       WorldBounds
	WallDamping float64
}

// NewBoundaryModel creates the boundary model from configuration.
func NewBoundaryModel(cfg *config.Config) *BoundaryModel {
	return &BoundaryModel{
		Farm: FarmPen{
			CenterX:  cfg.Farm.CenterX,
			CenterZ:  cfg.Farm.CenterZ,
			Half:     cfg.Farm.HalfSize,
			Wall:     cfg.Farm.WallThickness,
			GateHalf: cfg.Farm.GateHalfWidth,
			Corner:   cfg.Farm.CornerCutout,
		},
		World: WorldBounds{
			HalfExtent:    cfg.World.HalfExtent,
			EdgeMargin:    cfg.World.EdgeMargin,
			EdgePush:      cfg.World.EdgePush,
			DogHalfExtent: cfg.World.DogHalfExtent,
		},
		WallDamping: cfg.Flock.WallDamping,
	}
}

func (f *FarmPen) local(p r3.Vec) (dx, dz float64) {
	return p.X - f.CenterX, p.Z - f.CenterZ
}

func (f *FarmPen) chebyshev(p r3.Vec) float64 {
	dx, dz := f.local(p)
	return math.Max(math.Abs(dx), math.Abs(dz))
}

// Contains reports whether p lies within the pen square including its wall band.
func (f *FarmPen) Contains(p r3.Vec) bool {
	return f.chebyshev(p) <= f.Half+f.Wall
}

// InInterior reports whether p lies inside the pen, clear of the wall band.
func (f *FarmPen) InInterior(p r3.Vec) bool {
	return f.chebyshev(p) < f.Half-f.Wall
}

// InWall reports whether p lies in the wall band, openings included.
func (f *FarmPen) InWall(p r3.Vec) bool {
	d := f.chebyshev(p)
	return d >= f.Half-f.Wall && d <= f.Half+f.Wall
}

// InGate reports whether p lies in the wall band within a gate opening.
func (f *FarmPen) InGate(p r3.Vec) bool {
	if !f.InWall(p) {
		return false
	}
	dx, dz := f.local(p)
	// The face is the axis with the larger offset; the gate runs along the other.
	if math.Abs(dx) >= math.Abs(dz) {
		return math.Abs(dz) < f.GateHalf
	}
	return math.Abs(dx) < f.GateHalf
}

// InCornerCutout reports whether p lies in the wall band at an open corner.
func (f *FarmPen) InCornerCutout(p r3.Vec) bool {
	if !f.InWall(p) {
		return false
	}
	dx, dz := f.local(p)
	edge := f.Half - f.Corner
	return math.Abs(dx) > edge && math.Abs(dz) > edge
}

// Blocked reports whether p lies on solid wall.
func (f *FarmPen) Blocked(p r3.Vec) bool {
	return f.InWall(p) && !f.InGate(p) && !f.InCornerCutout(p)
}

// GateToward returns a point just outside the gate whose face points most
// directly at target.
func (f *FarmPen) GateToward(target r3.Vec) r3.Vec {
	dx, dz := f.local(target)
	out := f.Half + f.Wall + 2
	if math.Abs(dx) >= math.Abs(dz) {
		return r3.Vec{X: f.CenterX + math.Copysign(out, dx), Z: f.CenterZ}
	}
	return r3.Vec{X: f.CenterX, Z: f.CenterZ + math.Copysign(out, dz)}
}

// WallSegments returns the centrelines of the solid wall pieces on the ground plane.
func (f *FarmPen) WallSegments() [][2]r3.Vec {
	h := f.Half
	inner := h - f.Corner
	segs := make([][2]r3.Vec, 0, 8)
	for _, side := range [2]float64{-1, 1} {
		// North/south faces run along X, east/west faces along Z.
		segs = append(segs,
			[2]r3.Vec{{X: f.CenterX - inner, Z: f.CenterZ + side*h}, {X: f.CenterX - f.GateHalf, Z: f.CenterZ + side*h}},
			[2]r3.Vec{{X: f.CenterX + f.GateHalf, Z: f.CenterZ + side*h}, {X: f.CenterX + inner, Z: f.CenterZ + side*h}},
			[2]r3.Vec{{X: f.CenterX + side*h, Z: f.CenterZ - inner}, {X: f.CenterX + side*h, Z: f.CenterZ - f.GateHalf}},
			[2]r3.Vec{{X: f.CenterX + side*h, Z: f.CenterZ + f.GateHalf}, {X: f.CenterX + side*h, Z: f.CenterZ + inner}},
		)
	}
	return segs
}

// crossing returns the point where the segment prev→next crosses the pen's
// edge line, found by bisection on the Chebyshev distance.
func (f *FarmPen) crossing(prev, next r3.Vec) r3.Vec {
	inside := f.chebyshev(prev) < f.Half
	lo, hi := 0.0, 1.0
	for i := 0; i < 20; i++ {
		mid := (lo + hi) / 2
		p := r3.Add(prev, r3.Scale(mid, r3.Sub(next, prev)))
		if (f.chebyshev(p) < f.Half) == inside {
			lo = mid
		} else {
			hi = mid
		}
	}
	return r3.Add(prev, r3.Scale(hi, r3.Sub(next, prev)))
}

// Resolve applies wall collision to a move from prev to next. A blocked move
// leaves the agent on the side of the wall it started from, with its velocity
// damped.
func (b *BoundaryModel) Resolve(prev, next, vel r3.Vec) (r3.Vec, r3.Vec, bool) {
	f := &b.Farm
	if !f.Contains(next) && !f.Contains(prev) {
		return next, vel, false
	}

	blocked := f.Blocked(next)
	if !blocked {
		// A fast step can jump the band entirely; check where it crossed the edge.
		wasInside := f.chebyshev(prev) < f.Half
		isInside := f.chebyshev(next) < f.Half
		if wasInside != isInside {
			c := f.crossing(prev, next)
			blocked = !f.InGate(c) && !f.InCornerCutout(c)
		}
	}
	if !blocked {
		return next, vel, false
	}

	const nudge = 1e-3
	dx, dz := f.local(next)
	if f.chebyshev(prev) < f.Half {
		lim := f.Half - f.Wall - nudge
		dx = clampFloat(dx, -lim, lim)
		dz = clampFloat(dz, -lim, lim)
	} else {
		// Push out along the face it hit.
		px, pz := f.local(prev)
		out := f.Half + f.Wall + nudge
		if math.Abs(px) >= math.Abs(pz) {
			dx = math.Copysign(math.Max(math.Abs(dx), out), px)
		} else {
			dz = math.Copysign(math.Max(math.Abs(dz), out), pz)
		}
	}
	pos := r3.Vec{X: f.CenterX + dx, Y: next.Y, Z: f.CenterZ + dz}
	return pos, r3.Scale(b.WallDamping, vel), true
}

// EdgeRepulsion returns an inward steering vector that grows from zero at
// EdgeMargin inside the world bounds to one per axis at the bounds.
func (b *BoundaryModel) EdgeRepulsion(pos r3.Vec) r3.Vec {
	w := &b.World
	inner := w.HalfExtent - w.EdgeMargin
	var f r3.Vec
	if pos.X > inner {
		f.X = -(pos.X - inner) / w.EdgeMargin
	} else if pos.X < -inner {
		f.X = (-inner - pos.X) / w.EdgeMargin
	}
	if pos.Z > inner {
		f.Z = -(pos.Z - inner) / w.EdgeMargin
	} else if pos.Z < -inner {
		f.Z = (-inner - pos.Z) / w.EdgeMargin
	}
	return f
}

// SoftContain nudges the velocity inward on any axis beyond the world bounds.
// Position is never clamped, so brief overshoot is possible.
func (b *BoundaryModel) SoftContain(pos, vel r3.Vec) r3.Vec {
	w := &b.World
	if pos.X > w.HalfExtent {
		vel.X -= w.EdgePush
	} else if pos.X < -w.HalfExtent {
		vel.X += w.EdgePush
	}
	if pos.Z > w.HalfExtent {
		vel.Z -= w.EdgePush
	} else if pos.Z < -w.HalfExtent {
		vel.Z += w.EdgePush
	}
	return vel
}

// ClampDog hard-clamps a dog position to the dog bounds.
func (b *BoundaryModel) ClampDog(pos r3.Vec) r3.Vec {
	e := b.World.DogHalfExtent
	pos.X = clampFloat(pos.X, -e, e)
	pos.Z = clampFloat(pos.Z, -e, e)
	return pos
}
