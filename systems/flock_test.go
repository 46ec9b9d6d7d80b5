package systems

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/pasture/components"
	"github.com/pthm-cable/pasture/config"
)

// flockHarness wires a FlockSystem to a fresh world for tests.
type flockHarness struct {
	world  *ecs.World
	flock  *FlockSystem
	mapper *ecs.Map2[components.Motion, components.Sheep]
	motion *ecs.Map1[components.Motion]
	sheep  *ecs.Map1[components.Sheep]
	ents   []ecs.Entity
}

func newFlockHarness(t *testing.T, cfg *config.Config, seed uint64) *flockHarness {
	t.Helper()
	world := ecs.NewWorld()
	terrain := NewTerrainField(cfg)
	bounds := NewBoundaryModel(cfg)
	flock, err := NewFlockSystem(world, cfg, terrain, bounds, rand.New(rand.NewPCG(seed, 0)))
	if err != nil {
		t.Fatalf("NewFlockSystem: %v", err)
	}
	t.Cleanup(flock.Close)
	return &flockHarness{
		world:  world,
		flock:  flock,
		mapper: ecs.NewMap2[components.Motion, components.Sheep](world),
		motion: ecs.NewMap1[components.Motion](world),
		sheep:  ecs.NewMap1[components.Sheep](world),
	}
}

func testPersonality(rng *rand.Rand) components.Personality {
	return components.Personality{
		MaxSpeed:          4.5 + rng.Float64()*2,
		WanderPhase:       rng.Float64() * 2 * math.Pi,
		GrazeAngle:        rng.Float64() * 2 * math.Pi,
		GrazeRadiusFactor: 0.3 + rng.Float64()*0.5,
		FeedDamping:       0.85 + rng.Float64()*0.05,
	}
}

func (h *flockHarness) add(pos, vel r3.Vec, p components.Personality) ecs.Entity {
	m := components.Motion{Pos: pos, Vel: vel}
	sh := h.flock.NewSheep(len(h.ents), p)
	e := h.mapper.NewEntity(&m, &sh)
	h.ents = append(h.ents, e)
	return e
}

func TestConfidenceStaysBounded(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))

	for trial := 0; trial < 8; trial++ {
		cfg := *config.Cfg()
		cfg.Flock.FleeSpeedBoost = 1 + rng.Float64()*10
		cfg.Flock.FleeForceFactor = rng.Float64() * 20
		cfg.Flock.ConfidenceDecay = rng.Float64() * 50
		cfg.Flock.ConfidenceRecovery = rng.Float64() * 5
		cfg.Derived.FleeForceMax = cfg.Flock.MaxForce * cfg.Flock.FleeForceFactor

		h := newFlockHarness(t, &cfg, uint64(trial))
		centre := r3.Vec{X: cfg.Farm.CenterX + 60, Z: cfg.Farm.CenterZ}
		for i := 0; i < 40; i++ {
			pos := r3.Add(centre, r3.Vec{X: rng.Float64()*40 - 20, Z: rng.Float64()*40 - 20})
			h.add(pos, r3.Vec{}, testPersonality(rng))
		}

		elapsed := 0.0
		for tick := 0; tick < 300; tick++ {
			dt := rng.Float64() * 0.3
			elapsed += dt
			dogs := make([]r3.Vec, rng.IntN(4))
			for i := range dogs {
				dogs[i] = r3.Add(centre, r3.Vec{X: rng.Float64()*80 - 40, Z: rng.Float64()*80 - 40})
			}
			h.flock.Update(dt, elapsed, dogs)

			for _, e := range h.ents {
				c := h.sheep.Get(e).Confidence
				if c < 0 || c > 1 || math.IsNaN(c) {
					t.Fatalf("trial %d tick %d: confidence %v outside [0,1]", trial, tick, c)
				}
			}
		}
	}
}

func TestSheepAtFarmNeverReachesPasture(t *testing.T) {
	cfg := *config.Cfg()
	h := newFlockHarness(t, &cfg, 1)

	// Graze sector pointing straight back along the main path.
	p := components.Personality{
		MaxSpeed:          cfg.Flock.MaxSpeed,
		GrazeAngle:        math.Pi,
		GrazeRadiusFactor: 0.5,
		FeedDamping:       0.9,
	}
	start := r3.Vec{X: cfg.Farm.CenterX, Z: cfg.Farm.CenterZ}
	start.Y = h.flock.terrain.Height(start.X, start.Z) + cfg.Flock.Clearance
	e := h.add(start, r3.Vec{}, p)

	dog := r3.Vec{X: cfg.Farm.CenterX, Z: cfg.Farm.CenterZ + 200}
	dogs := []r3.Vec{dog}
	dt := 1.0 / 60
	for tick := 0; tick < 1000; tick++ {
		h.flock.Update(dt, float64(tick)*dt, dogs)

		m := h.motion.Get(e)
		sh := h.sheep.Get(e)
		biome := h.flock.terrain.BiomeAt(m.Pos.X, m.Pos.Z)
		if biome == BiomeLushGrass {
			t.Fatalf("tick %d: sheep reached lush grass at %v", tick, m.Pos)
		}
		if biome != BiomeFarmDirt && biome != BiomePath {
			t.Fatalf("tick %d: sheep left the farm and path onto %v at %v", tick, biome, m.Pos)
		}
		if math.Abs(sh.Confidence-1) > 1e-9 {
			t.Fatalf("tick %d: confidence = %v, want 1", tick, sh.Confidence)
		}
		if sh.Threatened {
			t.Fatalf("tick %d: sheep threatened by a dog %v away", tick, distanceXZ(m.Pos, dog))
		}
	}

	// It should have made progress toward the gate.
	m := h.motion.Get(e)
	if m.Pos.X <= start.X+5 {
		t.Errorf("sheep ended at %v, expected to have moved east toward the pasture", m.Pos)
	}
}

func TestDogWithinFleeRadiusDrainsConfidence(t *testing.T) {
	cfg := *config.Cfg()
	h := newFlockHarness(t, &cfg, 2)
	rng := rand.New(rand.NewPCG(3, 4))

	pos := r3.Vec{X: 0, Z: 100}
	e := h.add(pos, r3.Vec{}, testPersonality(rng))
	dog := r3.Vec{X: 10, Z: 100}

	dt := 1.0 / 60
	h.flock.Update(dt, dt, []r3.Vec{dog})
	sh := h.sheep.Get(e)
	if !sh.Threatened {
		t.Fatal("sheep 10 units from a dog is not threatened")
	}
	want := 1 - cfg.Flock.ConfidenceDecay*dt
	if math.Abs(sh.Confidence-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", sh.Confidence, want)
	}
	m := h.motion.Get(e)
	if m.Vel.X >= 0 {
		t.Errorf("velocity %v does not point away from the dog", m.Vel)
	}
}

func TestFeedingTimerExpires(t *testing.T) {
	cfg := *config.Cfg()
	h := newFlockHarness(t, &cfg, 5)
	rng := rand.New(rand.NewPCG(5, 6))

	g := h.flock.terrain.GrassCenter()
	e := h.add(r3.Vec{X: g.X, Y: cfg.Grass.Height, Z: g.Z + 10}, r3.Vec{X: 1}, testPersonality(rng))
	sh := h.sheep.Get(e)
	sh.State = components.Feeding
	sh.FeedingTimer = 0.04

	dt := 1.0 / 60
	for tick := 0; tick < 2; tick++ {
		h.flock.Update(dt, float64(tick)*dt, nil)
		if st := h.sheep.Get(e).State; st != components.Feeding {
			t.Fatalf("tick %d: state = %v, want feeding", tick, st)
		}
	}
	h.flock.Update(dt, 3*dt, nil)
	if st := h.sheep.Get(e).State; st != components.Roaming {
		t.Errorf("state after timer expiry = %v, want roaming", st)
	}
}

func TestSheepInPastureStartsFeeding(t *testing.T) {
	cfg := *config.Cfg()
	h := newFlockHarness(t, &cfg, 8)
	rng := rand.New(rand.NewPCG(8, 9))

	g := h.flock.terrain.GrassCenter()
	e := h.add(r3.Vec{X: g.X - 10, Y: cfg.Grass.Height, Z: g.Z + 20}, r3.Vec{}, testPersonality(rng))

	dt := 1.0 / 60
	for tick := 0; tick < 200; tick++ {
		h.flock.Update(dt, float64(tick)*dt, nil)
		sh := h.sheep.Get(e)
		if sh.State == components.Feeding {
			if sh.FeedingTimer < cfg.Flock.FeedMin || sh.FeedingTimer > cfg.Flock.FeedMax {
				t.Errorf("feeding timer %v outside [%v, %v]", sh.FeedingTimer, cfg.Flock.FeedMin, cfg.Flock.FeedMax)
			}
			if s := h.flock.Summary(); s.Feeding != 1 || s.InPasture != 1 {
				t.Errorf("summary feeding=%d in_pasture=%d, want 1 and 1", s.Feeding, s.InPasture)
			}
			return
		}
	}
	t.Error("sheep in the pasture never started feeding")
}

func TestNonFiniteAgentIsSkipped(t *testing.T) {
	cfg := *config.Cfg()
	h := newFlockHarness(t, &cfg, 13)
	rng := rand.New(rand.NewPCG(13, 14))

	base := r3.Vec{X: 0, Z: 50}
	bad := h.add(base, r3.Vec{X: math.NaN()}, testPersonality(rng))
	var good []ecs.Entity
	for i := 0; i < 10; i++ {
		good = append(good, h.add(r3.Add(base, r3.Vec{X: float64(i) + 1, Z: 2}), r3.Vec{}, testPersonality(rng)))
	}

	dt := 1.0 / 60
	for tick := 0; tick < 10; tick++ {
		h.flock.Update(dt, float64(tick)*dt, nil)
	}

	if got := h.flock.NonFiniteSkips(); got != 10 {
		t.Errorf("NonFiniteSkips = %d, want 10", got)
	}
	if m := h.motion.Get(bad); m.Pos != base {
		t.Errorf("corrupt agent moved to %v", m.Pos)
	}
	for _, e := range good {
		m := h.motion.Get(e)
		if !finite(m.Pos) || !finite(m.Vel) {
			t.Fatalf("NaN leaked into neighbour: %+v", m)
		}
	}
	if c := h.flock.Summary().Centroid; !finite(c) {
		t.Errorf("centroid %v is not finite", c)
	}
}

func TestStraysOrderedByDistance(t *testing.T) {
	cfg := *config.Cfg()
	h := newFlockHarness(t, &cfg, 21)
	rng := rand.New(rand.NewPCG(21, 22))

	g := h.flock.terrain.GrassCenter()
	// One resident, five strays at increasing distance to the south.
	h.add(r3.Vec{X: g.X, Z: g.Z + 5}, r3.Vec{}, testPersonality(rng))
	for _, d := range []float64{130, 170, 150, 190, 140} {
		h.add(r3.Vec{X: g.X, Z: g.Z - d}, r3.Vec{}, testPersonality(rng))
	}

	s := h.flock.Update(1e-4, 0, nil)
	if s.Count != 6 {
		t.Fatalf("Count = %d, want 6", s.Count)
	}
	if len(s.Strays) != MaxStrays {
		t.Fatalf("got %d strays, want %d", len(s.Strays), MaxStrays)
	}
	want := []float64{190, 170, 150}
	for i, p := range s.Strays {
		if d := distanceXZ(p, g); math.Abs(d-want[i]) > 0.5 {
			t.Errorf("stray %d at distance %v, want ~%v", i, d, want[i])
		}
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	run := func(workers, threshold int) []components.Motion {
		cfg := *config.Cfg()
		cfg.Sim.Workers = workers
		cfg.Sim.ParallelThreshold = threshold
		h := newFlockHarness(t, &cfg, 77)
		rng := rand.New(rand.NewPCG(77, 78))
		for i := 0; i < 120; i++ {
			pos := r3.Vec{X: cfg.Grass.CenterX + rng.Float64()*160 - 80, Z: cfg.Grass.CenterZ + rng.Float64()*160 - 80}
			h.add(pos, r3.Vec{X: rng.Float64() - 0.5, Z: rng.Float64() - 0.5}, testPersonality(rng))
		}
		dogs := []r3.Vec{{X: cfg.Grass.CenterX + 30, Z: cfg.Grass.CenterZ}}
		dt := 1.0 / 60
		for tick := 0; tick < 120; tick++ {
			h.flock.Update(dt, float64(tick)*dt, dogs)
		}
		out := make([]components.Motion, len(h.ents))
		for i, e := range h.ents {
			out[i] = *h.motion.Get(e)
		}
		return out
	}

	serial := run(1, 1<<30)
	parallel := run(4, 0)
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("sheep %d diverged: serial %+v, parallel %+v", i, serial[i], parallel[i])
		}
	}
}

func TestFlockUsesDerivedInteractionReach(t *testing.T) {
	cfg := *config.Cfg()
	cfg.Derived.InteractionReach = cfg.Spatial.CellSize + 1
	terrain := NewTerrainField(&cfg)
	bounds := NewBoundaryModel(&cfg)
	flock, err := NewFlockSystem(ecs.NewWorld(), &cfg, terrain, bounds, rand.New(rand.NewPCG(1, 0)))
	if err == nil {
		flock.Close()
		t.Fatal("NewFlockSystem accepted an interaction reach wider than a cell")
	}
}
