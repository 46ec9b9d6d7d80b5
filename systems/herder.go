package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/pasture/components"
	"github.com/pthm-cable/pasture/config"
)

// idleDamping is the per-tick velocity multiplier for a dog holding position.
const idleDamping = 0.8

// dogSnapshot captures a dog's state at the start of the tick.
type dogSnapshot struct {
	Entity ecs.Entity
	Motion components.Motion
	Dog    components.Dog
}

// HerderSystem runs the dog command/autonomy state machine and moves dogs.
type HerderSystem struct {
	cfg       config.HerderConfig
	smoothing float64
	nominal   float64 // grassland nominal radius, "grazing" threshold for the herd
	terrain   *TerrainField
	bounds    *BoundaryModel
	noise     *NoiseField

	filter    ecs.Filter2[components.Motion, components.Dog]
	motionMap *ecs.Map1[components.Motion]
	dogMap    *ecs.Map1[components.Dog]

	snapshots []dogSnapshot
	positions []r3.Vec
}

// NewHerderSystem creates the herder system.
func NewHerderSystem(w *ecs.World, cfg *config.Config, terrain *TerrainField, bounds *BoundaryModel) *HerderSystem {
	return &HerderSystem{
		cfg:       cfg.Herder,
		smoothing: cfg.Flock.HeightSmoothing,
		nominal:   cfg.Grass.NominalRadius,
		terrain:   terrain,
		bounds:    bounds,
		noise:     NewNoiseField(cfg.Sim.Seed + 1),
		filter:    *ecs.NewFilter2[components.Motion, components.Dog](w),
		motionMap: ecs.NewMap1[components.Motion](w),
		dogMap:    ecs.NewMap1[components.Dog](w),
	}
}

// IssueCommand points a dog at target. A new command always preempts the
// current one.
func IssueCommand(dog *components.Dog, pos, target r3.Vec) {
	t := target
	dog.CommandTarget = &t
	dog.State = components.DogMoving
	dog.CommandElapsed = 0
	dog.StuckTimer = 0
	dog.LastDistanceToTarget = distanceXZ(pos, target)
	dog.Mode = components.AutoNone
}

// Update advances every dog by dt and returns their new positions, for the
// next tick's flock evasion and pack separation.
func (s *HerderSystem) Update(dt, elapsed float64, herd HerdSummary) []r3.Vec {
	s.snapshots = s.snapshots[:0]
	query := s.filter.Query()
	for query.Next() {
		m, d := query.Get()
		s.snapshots = append(s.snapshots, dogSnapshot{Entity: query.Entity(), Motion: *m, Dog: *d})
	}

	n := len(s.snapshots)
	s.positions = s.positions[:0]
	for i := range s.snapshots {
		snap := &s.snapshots[i]
		m := s.motionMap.Get(snap.Entity)
		d := s.dogMap.Get(snap.Entity)
		if m == nil || d == nil {
			continue
		}

		target, hold := s.think(d, m.Pos, dt, elapsed, herd, n)
		s.move(i, m, target, hold, dt)
		s.positions = append(s.positions, m.Pos)
	}
	return s.positions
}

// think advances the dog's state machine and returns its steering target.
// hold is true when the dog should stay put.
func (s *HerderSystem) think(d *components.Dog, pos r3.Vec, dt, elapsed float64, herd HerdSummary, n int) (r3.Vec, bool) {
	cfg := &s.cfg

	// A target set from outside without IssueCommand still starts a command.
	if d.CommandTarget != nil && d.State != components.DogMoving {
		IssueCommand(d, pos, *d.CommandTarget)
	}

	if d.State == components.DogMoving {
		target := *d.CommandTarget
		dist := distanceXZ(pos, target)
		d.CommandElapsed += dt

		switch {
		case dist < cfg.ArriveDistance:
			s.release(d, components.ReleaseArrived)
		case d.CommandElapsed > cfg.CommandTimeout:
			s.release(d, components.ReleaseExpired)
		default:
			if d.LastDistanceToTarget-dist >= cfg.StuckProgress {
				d.LastDistanceToTarget = dist
				d.StuckTimer = 0
			} else {
				d.StuckTimer += dt
				if d.StuckTimer > cfg.StuckWindow {
					s.release(d, components.ReleaseStuck)
				}
			}
		}
		if d.State == components.DogMoving {
			d.Target = target
			return target, false
		}
	}

	if d.State == components.DogIdle {
		if !cfg.Autonomous {
			d.Target = pos
			return pos, true
		}
		d.State = components.DogAutonomous
	}

	d.SinceCommand += dt
	target, mode := s.autonomousTarget(d, pos, elapsed, herd, n)
	d.Target = target
	d.Mode = mode
	return target, false
}

func (s *HerderSystem) release(d *components.Dog, reason components.ReleaseReason) {
	d.CommandTarget = nil
	d.LastRelease = reason
	d.Releases[reason]++
	d.CommandElapsed = 0
	d.StuckTimer = 0
	d.SinceCommand = 0
	if s.cfg.Autonomous {
		d.State = components.DogAutonomous
	} else {
		d.State = components.DogIdle
	}
}

// autonomousTarget picks a stray in the dog's sector, a patrol point, or the
// balance point behind the herd, in that order.
func (s *HerderSystem) autonomousTarget(d *components.Dog, pos r3.Vec, elapsed float64, herd HerdSummary, n int) (r3.Vec, components.AutoMode) {
	cfg := &s.cfg
	centroid := flat(herd.Centroid)
	sector := s.sectorFor(d.ID)

	// Intercept the closest stray in this dog's wedge.
	best, bestDist := -1, math.Inf(1)
	for i, st := range herd.Strays {
		angle := normalizeDegrees(math.Atan2(st.Z-centroid.Z, st.X-centroid.X) * 180 / math.Pi)
		if angle < sector.Start || angle >= sector.End {
			continue
		}
		if dd := distanceXZ(pos, st); dd < bestDist {
			best, bestDist = i, dd
		}
	}
	if best >= 0 {
		return flat(herd.Strays[best]), components.AutoIntercept
	}

	if d.SinceCommand > cfg.PatrolDelay {
		radius := cfg.PatrolRadius
		if herd.Count > 0 && float64(herd.InPasture)/float64(herd.Count) >= cfg.SettledFraction {
			radius = cfg.SettledPatrolRadius
		}
		mid := (sector.Start + sector.End) / 2
		halfWidth := (sector.End - sector.Start) / 2
		jitter := s.noise.Noise(elapsed*0.05, float64(d.ID)*7.3)
		angle := (mid + 0.8*halfWidth*jitter) * math.Pi / 180
		return r3.Vec{X: centroid.X + math.Cos(angle)*radius, Z: centroid.Z + math.Sin(angle)*radius}, components.AutoPatrol
	}

	return s.balancePoint(d.ID, n, centroid), components.AutoBalance
}

// balancePoint sits behind the herd on the side away from the pasture,
// spread laterally by dog ID.
func (s *HerderSystem) balancePoint(id, n int, centroid r3.Vec) r3.Vec {
	cfg := &s.cfg
	goal := s.terrain.GrassCenter()
	dir := normalize(flat(r3.Sub(goal, centroid)))
	if r3.Norm2(dir) == 0 {
		dir = r3.Vec{X: 1}
	}
	back := cfg.BalanceDistance
	if distanceXZ(centroid, goal) < s.nominal {
		back = cfg.GrazingBalanceDistance
	}
	side := r3.Vec{X: -dir.Z, Z: dir.X}
	offset := (float64(id) - float64(n-1)/2) * cfg.LateralSpacing
	return r3.Add(r3.Sub(centroid, r3.Scale(back, dir)), r3.Scale(offset, side))
}

func (s *HerderSystem) sectorFor(id int) config.SectorConfig {
	if len(s.cfg.Sectors) == 0 {
		return config.SectorConfig{Start: 0, End: 360}
	}
	return s.cfg.Sectors[id%len(s.cfg.Sectors)]
}

// move applies arrival seek and pack separation, then integrates.
func (s *HerderSystem) move(i int, m *components.Motion, target r3.Vec, hold bool, dt float64) {
	cfg := &s.cfg
	pos := m.Pos
	vel := flat(m.Vel)

	if hold {
		vel = r3.Scale(idleDamping, vel)
	} else {
		toTarget := flat(r3.Sub(target, pos))
		dist := r3.Norm(toTarget)
		speed := cfg.MaxSpeed
		if dist < cfg.ArrivalRadius {
			speed *= dist / cfg.ArrivalRadius
		}
		force := r3.Sub(r3.Scale(speed, normalize(toTarget)), vel)

		// Pack separation against the other dogs' start-of-tick positions.
		for j := range s.snapshots {
			if j == i {
				continue
			}
			other := s.snapshots[j].Motion.Pos
			dd := distanceXZ(pos, other)
			if dd < cfg.PackRadius && dd > 1e-6 {
				push := cfg.PackPush * (1 - dd/cfg.PackRadius)
				force = r3.Add(force, r3.Scale(push, normalize(flat(r3.Sub(pos, other)))))
			}
		}

		vel = r3.Add(vel, limit(force, cfg.MaxForceRate*dt))
		vel = limit(vel, cfg.MaxSpeed)
	}

	next := s.bounds.ClampDog(r3.Add(pos, r3.Scale(dt, vel)))
	ground := s.terrain.Height(next.X, next.Z) + cfg.Clearance
	next.Y = pos.Y + (ground-pos.Y)*(1-math.Exp(-s.smoothing*dt))

	if !finite(next) || !finite(vel) {
		return
	}
	m.Stride += distanceXZ(pos, next)
	m.Pos = next
	m.Vel = vel
	if math.Hypot(vel.X, vel.Z) > 0.1 {
		m.Heading = headingOf(vel)
	}
}
