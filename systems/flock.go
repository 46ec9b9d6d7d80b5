package systems

import (
	"math"
	"math/rand/v2"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/pasture/components"
	"github.com/pthm-cable/pasture/config"
)

// MaxStrays is the number of stray targets reported in a HerdSummary.
const MaxStrays = 3

const (
	edgeRepulsionWeight     = 3.0  // multiple of MaxForce at the world edge
	feedSettleFactor        = 0.05 // velocity kept when a sheep starts feeding
	feedingSeparationFactor = 0.2
	wanderNoiseScale        = 0.02
	wanderTimeScale         = 0.05
)

// HerdSummary is recomputed every tick from the flock.
type HerdSummary struct {
	Centroid  r3.Vec
	Strays    []r3.Vec // up to MaxStrays, farthest from the pasture centre first
	InPasture int      // sheep resident in lush grass
	Feeding   int
	Count     int
}

// sheepSnapshot captures read-only state for the parallel phase.
type sheepSnapshot struct {
	Entity ecs.Entity
	Motion components.Motion
	Sheep  components.Sheep
	Bad    bool // non-finite position or velocity
}

// sheepIntent captures computed outputs to apply after the parallel phase.
type sheepIntent struct {
	Motion    components.Motion
	Sheep     components.Sheep
	WantsFeed bool
	Skip      bool
	Outside   float64 // distance beyond the grassland edge, <= 0 inside
}

// FlockSystem steers and integrates every sheep.
type FlockSystem struct {
	cfg     config.FlockConfig
	derived config.DerivedConfig
	terrain *TerrainField
	bounds  *BoundaryModel
	index   *SpatialIndex
	noise   *NoiseField
	rng     *rand.Rand

	filter    ecs.Filter2[components.Motion, components.Sheep]
	motionMap *ecs.Map1[components.Motion]
	sheepMap  *ecs.Map1[components.Sheep]

	snapshots []sheepSnapshot
	positions []r3.Vec
	intents   []sheepIntent
	scratch   [][]int

	pool      *workerPool
	threshold int

	census    int // lush-grass residents as of the last tick
	summary   HerdSummary
	nonFinite int
}

// NewFlockSystem creates the flock system. It fails if the configured
// interaction radii do not fit the spatial grid.
func NewFlockSystem(w *ecs.World, cfg *config.Config, terrain *TerrainField, bounds *BoundaryModel, rng *rand.Rand) (*FlockSystem, error) {
	index, err := NewSpatialIndex(cfg.Spatial.CellSize, cfg.World.HalfExtent, cfg.Derived.InteractionReach)
	if err != nil {
		return nil, err
	}

	pool := newWorkerPool(cfg.Sim.Workers)
	scratch := make([][]int, pool.numWorkers)
	for i := range scratch {
		scratch[i] = make([]int, 0, 64)
	}

	return &FlockSystem{
		cfg:       cfg.Flock,
		derived:   cfg.Derived,
		terrain:   terrain,
		bounds:    bounds,
		index:     index,
		noise:     NewNoiseField(cfg.Sim.Seed),
		rng:       rng,
		filter:    *ecs.NewFilter2[components.Motion, components.Sheep](w),
		motionMap: ecs.NewMap1[components.Motion](w),
		sheepMap:  ecs.NewMap1[components.Sheep](w),
		scratch:   scratch,
		pool:      pool,
		threshold: cfg.Sim.ParallelThreshold,
	}, nil
}

// Close stops the worker pool.
func (s *FlockSystem) Close() {
	s.pool.stop()
}

// Summary returns the herd summary from the last Update.
func (s *FlockSystem) Summary() HerdSummary {
	return s.summary
}

// NonFiniteSkips returns how many agent updates have been dropped for
// non-finite state since creation.
func (s *FlockSystem) NonFiniteSkips() int {
	return s.nonFinite
}

// Index exposes the spatial index built by the last Update.
func (s *FlockSystem) Index() *SpatialIndex {
	return s.index
}

// NewSheep returns the initial state for a sheep with the given personality.
func (s *FlockSystem) NewSheep(index int, p components.Personality) components.Sheep {
	return components.Sheep{
		Index:       index,
		Personality: p,
		State:       components.Roaming,
		Confidence:  1,
		GrazeTarget: s.GrazeTarget(p),
	}
}

// GrazeTarget returns the personal pasture point for a personality: on the
// grassland at the sheep's sector angle, pulled inward until it sits on lush grass.
func (s *FlockSystem) GrazeTarget(p components.Personality) r3.Vec {
	g := s.terrain.GrassCenter()
	c, sn := math.Cos(p.GrazeAngle), math.Sin(p.GrazeAngle)
	r := s.terrain.GrassRadiusAt(p.GrazeAngle) * p.GrazeRadiusFactor
	target := r3.Vec{X: g.X + c*r, Z: g.Z + sn*r}
	for i := 0; i < 4 && s.terrain.BiomeAt(target.X, target.Z) != BiomeLushGrass; i++ {
		r *= 0.9
		target = r3.Vec{X: g.X + c*r, Z: g.Z + sn*r}
	}
	return target
}

// Update advances every sheep by dt. dogs holds dog positions from the
// previous tick. elapsed is the cumulative simulation clock.
func (s *FlockSystem) Update(dt, elapsed float64, dogs []r3.Vec) HerdSummary {
	// Phase A: snapshot (single-threaded)
	s.snapshots = s.snapshots[:0]
	s.positions = s.positions[:0]
	query := s.filter.Query()
	for query.Next() {
		m, sh := query.Get()
		snap := sheepSnapshot{
			Entity: query.Entity(),
			Motion: *m,
			Sheep:  *sh,
			Bad:    !finite(m.Pos) || !finite(m.Vel),
		}
		s.snapshots = append(s.snapshots, snap)
		s.positions = append(s.positions, m.Pos)
	}

	n := len(s.snapshots)
	s.index.Rebuild(s.positions)
	if cap(s.intents) < n {
		s.intents = make([]sheepIntent, n)
	}
	s.intents = s.intents[:n]

	// Phase B: compute, sharded when the herd is large enough
	compute := func(start, end, worker int) {
		for i := start; i < end; i++ {
			s.scratch[worker] = s.computeSheep(i, dt, elapsed, dogs, s.scratch[worker][:0])
		}
	}
	if n < s.threshold {
		compute(0, n, 0)
	} else {
		s.pool.run(n, compute)
	}

	// Phase C: apply (single-threaded, owns all random draws)
	s.applyIntents()
	return s.summary
}

// computeSheep runs the steering pipeline for snapshot i and fills its intent.
// It reads only snapshots, the index, terrain and dogs.
func (s *FlockSystem) computeSheep(i int, dt, elapsed float64, dogs []r3.Vec, nbuf []int) []int {
	cfg := &s.cfg
	snap := &s.snapshots[i]
	out := &s.intents[i]
	*out = sheepIntent{}

	if snap.Bad {
		out.Skip = true
		return nbuf
	}

	sheep := snap.Sheep
	pers := &sheep.Personality
	p := snap.Motion.Pos
	v := flat(snap.Motion.Vel)
	feeding := sheep.State == components.Feeding

	var acc r3.Vec

	// 1. Flocking
	nbuf = s.index.Neighbors(i, nbuf)
	var sep, ali, coh r3.Vec
	var nAli, nCoh int
	for _, j := range nbuf {
		other := &s.snapshots[j]
		if other.Bad {
			continue
		}
		op := other.Motion.Pos
		d := distanceXZ(p, op)
		if d < cfg.SeparationRadius && d > 1e-6 {
			sep = r3.Add(sep, r3.Scale(1/(d*d), flat(r3.Sub(p, op))))
		}
		if d < cfg.AlignmentRadius {
			ali = r3.Add(ali, flat(other.Motion.Vel))
			nAli++
		}
		if d < cfg.CohesionRadius {
			coh = r3.Add(coh, flat(op))
			nCoh++
		}
	}
	if r3.Norm2(sep) > 0 {
		w := cfg.SeparationWeight
		if feeding {
			w *= feedingSeparationFactor
		}
		acc = r3.Add(acc, r3.Scale(w, s.steer(sep, v, pers.MaxSpeed, cfg.MaxForce)))
	}
	var crowd r3.Vec // away from the local crowd, used as "open space"
	if !feeding && nAli > 0 {
		acc = r3.Add(acc, r3.Scale(cfg.AlignmentWeight, s.steer(ali, v, pers.MaxSpeed, cfg.MaxForce)))
	}
	if nCoh > 0 {
		centre := r3.Scale(1/float64(nCoh), coh)
		crowd = normalize(flat(r3.Sub(p, centre)))
		if !feeding {
			acc = r3.Add(acc, r3.Scale(cfg.CohesionWeight, s.steer(r3.Sub(centre, flat(p)), v, pers.MaxSpeed, cfg.MaxForce)))
		}
	}

	// 2. World edge repulsion
	acc = r3.Add(acc, r3.Scale(edgeRepulsionWeight*cfg.MaxForce, s.bounds.EdgeRepulsion(p)))

	// Goal: the gate while penned, otherwise the personal graze target
	grazeTarget := sheep.GrazeTarget
	seeking := s.census < cfg.PastureCap || sheep.Resident
	var goal r3.Vec
	switch {
	case !seeking:
		goal = s.terrain.GrassCenter()
	case s.bounds.Farm.Contains(p):
		goal = s.bounds.Farm.GateToward(grazeTarget)
	default:
		goal = grazeTarget
	}

	// 3. Dog evasion
	fleeRadius := cfg.FleeRadius
	if feeding {
		fleeRadius = s.derived.FeedingFleeRad
	}
	var evade r3.Vec
	urgency := 0.0
	for _, dog := range dogs {
		d := distanceXZ(p, dog)
		if d >= fleeRadius {
			continue
		}
		urgency = math.Max(urgency, 1-d/fleeRadius)
		away := normalize(flat(r3.Sub(p, dog)))
		open := crowd
		if r3.Norm2(open) == 0 {
			open = away
		}
		toGoal := normalize(flat(r3.Sub(goal, p)))
		dir := r3.Add(r3.Add(r3.Scale(cfg.FleeAwayWeight, away), r3.Scale(cfg.FleeGoalWeight, toGoal)), r3.Scale(cfg.FleeOpenWeight, open))
		if r3.Norm2(dir) == 0 {
			dir = away
		}
		evade = r3.Add(evade, s.steer(dir, v, pers.MaxSpeed*cfg.FleeSpeedBoost, s.derived.FleeForceMax))
	}
	threatened := urgency > 0
	if threatened {
		acc = r3.Add(acc, limit(evade, s.derived.FleeForceMax))
		sheep.Confidence -= cfg.ConfidenceDecay * dt
		if feeding {
			sheep.State = components.Roaming
			sheep.FeedingTimer = 0
			feeding = false
		}
	} else {
		// 6. Recovery
		sheep.Confidence += cfg.ConfidenceRecovery * dt
	}
	sheep.Confidence = clamp01(sheep.Confidence)
	sheep.Threatened = threatened

	// 4. Graze-zone seek
	inZone := s.terrain.InPasture(p.X, p.Z)
	if seeking && !feeding {
		strength := cfg.SeekFar
		if inZone {
			strength = cfg.SeekNear
		}
		acc = r3.Add(acc, r3.Scale(strength, s.steer(r3.Sub(goal, flat(p)), v, pers.MaxSpeed, cfg.MaxForce)))
	}
	groundH := s.terrain.Height(p.X, p.Z)
	if seeking && inZone && !feeding && !threatened &&
		sheep.Confidence > cfg.FeedConfidence &&
		s.terrain.Biome(p.X, p.Z, groundH) == BiomeLushGrass {
		out.WantsFeed = true
	}

	// 5. Feeding
	if feeding {
		sheep.FeedingTimer -= dt
		v = r3.Scale(pers.FeedDamping, v)
		if sheep.FeedingTimer <= 0 {
			sheep.FeedingTimer = 0
			sheep.State = components.Roaming
		}
	}

	// 7. Wander
	if !feeding {
		acc = r3.Add(acc, s.wander(p, pers.WanderPhase, elapsed))
	}

	// 8. Integrate
	acc.Y = 0
	v = r3.Add(v, acc)
	speedCap := pers.MaxSpeed
	if threatened {
		speedCap = pers.MaxSpeed * math.Max(1, cfg.FleeSpeedBoost*urgency)
	}
	v = limit(v, speedCap)
	prev := p
	next := r3.Add(p, r3.Scale(dt, v))

	// 9. Vertical placement
	target := s.terrain.Height(next.X, next.Z) + cfg.Clearance
	next.Y = p.Y + (target-p.Y)*(1-math.Exp(-cfg.HeightSmoothing*dt))

	// 10. Farm wall
	next, v, _ = s.bounds.Resolve(prev, next, v)

	// 11. World bounds
	v = s.bounds.SoftContain(next, v)

	if !finite(next) || !finite(v) {
		out.Skip = true
		return nbuf
	}

	m := snap.Motion
	m.Pos = next
	m.Vel = v
	speed := math.Hypot(v.X, v.Z)
	if speed > 0.1 {
		m.Heading = headingOf(v)
	}
	m.Stride += distanceXZ(prev, next)

	biome := s.terrain.BiomeAt(next.X, next.Z)
	sheep.Resident = biome == BiomeLushGrass

	out.Motion = m
	out.Sheep = sheep
	out.Outside = s.terrain.PastureDistance(next.X, next.Z)
	return nbuf
}

// steer returns the Reynolds steering force toward direction dir at speed,
// limited to maxForce.
func (s *FlockSystem) steer(dir, vel r3.Vec, speed, maxForce float64) r3.Vec {
	desired := r3.Scale(speed, normalize(flat(dir)))
	return limit(r3.Sub(desired, vel), maxForce)
}

// wander combines a per-sheep sinusoid with two fbm samples at the sheep's
// position and time. It fades out far beyond the pasture.
func (s *FlockSystem) wander(p r3.Vec, phase, elapsed float64) r3.Vec {
	nx := p.X*wanderNoiseScale + elapsed*wanderTimeScale
	nz := p.Z*wanderNoiseScale - elapsed*wanderTimeScale
	w := r3.Vec{
		X: 0.5*math.Sin(elapsed*0.7+phase) + s.noise.FBM(nx, nz, 3, 0.5, 2),
		Z: 0.5*math.Cos(elapsed*0.6+phase*1.3) + s.noise.FBM(nx+31.7, nz-17.3, 3, 0.5, 2),
	}

	strength := s.cfg.WanderStrength
	g := s.terrain.GrassCenter()
	r := distanceXZ(p, g)
	if r > s.terrain.GrassRadiusAt(math.Atan2(p.Z-g.Z, p.X-g.X))*s.cfg.WanderFarFactor {
		strength *= s.cfg.WanderFarDamp
	}
	return r3.Scale(strength, w)
}

// applyIntents writes results back to the ECS, draws feeding transitions and
// rebuilds the herd summary.
func (s *FlockSystem) applyIntents() {
	cfg := &s.cfg
	var sum r3.Vec
	census, feeding, counted := 0, 0, 0
	type stray struct {
		pos  r3.Vec
		dist float64
	}
	var strays [MaxStrays + 1]stray
	nStrays := 0
	g := s.terrain.GrassCenter()

	for i := range s.snapshots {
		snap := &s.snapshots[i]
		in := &s.intents[i]

		if in.Skip {
			s.nonFinite++
			// Last good state stays in place; it still counts toward the centroid if finite.
			if !snap.Bad {
				sum = r3.Add(sum, snap.Motion.Pos)
				counted++
			}
			continue
		}

		if in.WantsFeed && s.rng.Float64() < cfg.FeedChance {
			in.Sheep.State = components.Feeding
			in.Sheep.FeedingTimer = cfg.FeedMin + s.rng.Float64()*(cfg.FeedMax-cfg.FeedMin)
			in.Motion.Vel = r3.Scale(feedSettleFactor, in.Motion.Vel)
		}

		m := s.motionMap.Get(snap.Entity)
		sh := s.sheepMap.Get(snap.Entity)
		if m == nil || sh == nil {
			continue
		}
		*m = in.Motion
		*sh = in.Sheep

		sum = r3.Add(sum, m.Pos)
		counted++
		if sh.Resident {
			census++
		}
		if sh.State == components.Feeding {
			feeding++
		}

		if in.Outside > 0 {
			// Keep the farthest few, descending.
			d := distanceXZ(m.Pos, g)
			k := nStrays
			for k > 0 && strays[k-1].dist < d {
				strays[k] = strays[k-1]
				k--
			}
			if k < MaxStrays {
				strays[k] = stray{pos: m.Pos, dist: d}
				if nStrays < MaxStrays {
					nStrays++
				}
			}
		}
	}

	s.census = census
	s.summary = HerdSummary{
		InPasture: census,
		Feeding:   feeding,
		Count:     len(s.snapshots),
		Strays:    make([]r3.Vec, nStrays),
	}
	if counted > 0 {
		s.summary.Centroid = r3.Scale(1/float64(counted), sum)
	}
	for k := 0; k < nStrays; k++ {
		s.summary.Strays[k] = strays[k].pos
	}
}
