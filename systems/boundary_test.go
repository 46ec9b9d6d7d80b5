package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/pasture/config"
)

func testBoundary() *BoundaryModel {
	return NewBoundaryModel(config.Cfg())
}

func TestFarmPenRegions(t *testing.T) {
	b := testBoundary()
	f := &b.Farm
	cx, cz := f.CenterX, f.CenterZ

	tests := []struct {
		name                         string
		p                            r3.Vec
		interior, wall, gate, cutout bool
	}{
		{"centre", r3.Vec{X: cx, Z: cz}, true, false, false, false},
		{"east wall solid", r3.Vec{X: cx + f.Half, Z: cz + 15}, false, true, false, false},
		{"east gate", r3.Vec{X: cx + f.Half, Z: cz + 2}, false, true, true, false},
		{"north gate", r3.Vec{X: cx - 3, Z: cz + f.Half + 0.5}, false, true, true, false},
		{"corner cutout", r3.Vec{X: cx - f.Half + 1, Z: cz - f.Half}, false, true, false, true},
		{"outside", r3.Vec{X: cx + f.Half + 10, Z: cz}, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.InInterior(tt.p); got != tt.interior {
				t.Errorf("InInterior = %v, want %v", got, tt.interior)
			}
			if got := f.InWall(tt.p); got != tt.wall {
				t.Errorf("InWall = %v, want %v", got, tt.wall)
			}
			if got := f.InGate(tt.p); got != tt.gate {
				t.Errorf("InGate = %v, want %v", got, tt.gate)
			}
			if got := f.InCornerCutout(tt.p); got != tt.cutout {
				t.Errorf("InCornerCutout = %v, want %v", got, tt.cutout)
			}
		})
	}
}

func TestResolveBlocksSolidWall(t *testing.T) {
	b := testBoundary()
	f := &b.Farm
	vel := r3.Vec{X: 4}

	// Leaving through the east face away from the gate.
	prev := r3.Vec{X: f.CenterX + f.Half - f.Wall - 0.2, Z: f.CenterZ + 15}
	next := r3.Vec{X: prev.X + 0.5, Z: prev.Z}
	pos, v, hit := b.Resolve(prev, next, vel)
	if !hit {
		t.Fatal("move into solid wall was not blocked")
	}
	if !f.InInterior(pos) {
		t.Errorf("blocked agent from inside ended at %v, not in the interior", pos)
	}
	if math.Abs(v.X-vel.X*b.WallDamping) > 1e-12 {
		t.Errorf("velocity = %v, want damped by %v", v, b.WallDamping)
	}

	// Arriving at the same face from outside stays outside.
	prev = r3.Vec{X: f.CenterX + f.Half + f.Wall + 0.2, Z: f.CenterZ + 15}
	next = r3.Vec{X: prev.X - 0.5, Z: prev.Z}
	pos, _, hit = b.Resolve(prev, next, r3.Vec{X: -4})
	if !hit {
		t.Fatal("move into solid wall from outside was not blocked")
	}
	if f.Contains(pos) {
		t.Errorf("blocked agent from outside ended at %v, inside the pen", pos)
	}
}

func TestResolveAllowsOpenings(t *testing.T) {
	b := testBoundary()
	f := &b.Farm

	tests := []struct {
		name       string
		prev, next r3.Vec
	}{
		{"east gate", r3.Vec{X: f.CenterX + f.Half - 0.3, Z: f.CenterZ + 1}, r3.Vec{X: f.CenterX + f.Half + 0.3, Z: f.CenterZ + 1}},
		{"south gate", r3.Vec{X: f.CenterX - 2, Z: f.CenterZ - f.Half + 0.3}, r3.Vec{X: f.CenterX - 2, Z: f.CenterZ - f.Half - 0.3}},
		{"corner", r3.Vec{X: f.CenterX + f.Half - 0.5, Z: f.CenterZ + f.Half - 0.5}, r3.Vec{X: f.CenterX + f.Half + 0.5, Z: f.CenterZ + f.Half + 0.5}},
		{"open field", r3.Vec{X: 100, Z: 100}, r3.Vec{X: 101, Z: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, _, hit := b.Resolve(tt.prev, tt.next, r3.Vec{X: 1})
			if hit {
				t.Fatalf("move %v -> %v was blocked", tt.prev, tt.next)
			}
			if pos != tt.next {
				t.Errorf("pos = %v, want %v", pos, tt.next)
			}
		})
	}
}

func TestResolveCatchesTunnelling(t *testing.T) {
	b := testBoundary()
	f := &b.Farm
	// A single step that jumps the whole wall band on a solid face.
	prev := r3.Vec{X: f.CenterX + 10, Z: f.CenterZ + f.Half - f.Wall - 0.5}
	next := r3.Vec{X: f.CenterX + 10, Z: f.CenterZ + f.Half + f.Wall + 0.5}
	pos, _, hit := b.Resolve(prev, next, r3.Vec{Z: 200})
	if !hit {
		t.Fatal("step across the wall band was not blocked")
	}
	if !f.InInterior(pos) {
		t.Errorf("pos = %v, want inside the pen", pos)
	}
}

func TestGateToward(t *testing.T) {
	b := testBoundary()
	f := &b.Farm
	east := f.GateToward(r3.Vec{X: 50, Z: -100})
	if east.X <= f.CenterX+f.Half || math.Abs(east.Z-f.CenterZ) > 1e-9 {
		t.Errorf("GateToward east target = %v, want outside the east gate", east)
	}
	north := f.GateToward(r3.Vec{X: f.CenterX, Z: f.CenterZ + 100})
	if north.Z <= f.CenterZ+f.Half {
		t.Errorf("GateToward north target = %v, want outside the north gate", north)
	}
}

func TestWorldContainment(t *testing.T) {
	b := testBoundary()
	w := b.World

	if f := b.EdgeRepulsion(r3.Vec{}); f != (r3.Vec{}) {
		t.Errorf("EdgeRepulsion at origin = %v, want zero", f)
	}
	f := b.EdgeRepulsion(r3.Vec{X: w.HalfExtent, Z: -w.HalfExtent})
	if f.X >= 0 || f.Z <= 0 {
		t.Errorf("EdgeRepulsion at corner = %v, want pointing inward", f)
	}

	v := b.SoftContain(r3.Vec{X: w.HalfExtent + 1}, r3.Vec{X: 2})
	if v.X != 2-w.EdgePush {
		t.Errorf("SoftContain vel.X = %v, want %v", v.X, 2-w.EdgePush)
	}

	p := b.ClampDog(r3.Vec{X: 1000, Y: 7, Z: -1000})
	if p.X != w.DogHalfExtent || p.Z != -w.DogHalfExtent || p.Y != 7 {
		t.Errorf("ClampDog = %v", p)
	}
}

func TestWallSegmentsAvoidOpenings(t *testing.T) {
	b := testBoundary()
	f := &b.Farm
	segs := f.WallSegments()
	if len(segs) != 8 {
		t.Fatalf("got %d wall segments, want 8", len(segs))
	}
	for _, s := range segs {
		mid := r3.Scale(0.5, r3.Add(s[0], s[1]))
		if !f.Blocked(mid) {
			t.Errorf("segment midpoint %v is not solid wall", mid)
		}
	}
}
