// Package game owns the ECS world and orders the per-tick simulation phases.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/pasture/components"
	"github.com/pthm-cable/pasture/config"
	"github.com/pthm-cable/pasture/systems"
	"github.com/pthm-cable/pasture/telemetry"
)

// ErrUnknownDog is returned when a command names a dog that does not exist.
var ErrUnknownDog = errors.New("unknown dog")

// Options configures a new game.
type Options struct {
	Config         *config.Config // nil uses config.Cfg()
	Seed           uint64
	LogStats       bool    // Log window stats and perf via slog
	StatsWindowSec float64 // 0 uses the configured window
	OutputDir      string  // Empty disables CSV output
	StepsPerUpdate int     // Ticks per UpdateHeadless call
	StatsCallback  func(telemetry.WindowStats)
}

// DogView is a read-only copy of one dog's state.
type DogView struct {
	Motion components.Motion
	Dog    components.Dog
}

// Game holds the complete simulation state.
type Game struct {
	cfg   *config.Config
	world *ecs.World
	rng   *rand.Rand
	runID string

	sheepMapper *ecs.Map2[components.Motion, components.Sheep]
	dogMapper   *ecs.Map2[components.Motion, components.Dog]
	sheepFilter ecs.Filter2[components.Motion, components.Sheep]
	dogMap      *ecs.Map1[components.Dog]
	motionMap   *ecs.Map1[components.Motion]
	dogs        []ecs.Entity // indexed by dog ID

	terrain *systems.TerrainField
	bounds  *systems.BoundaryModel
	flock   *systems.FlockSystem
	herder  *systems.HerderSystem

	// Dog positions from the previous tick, read by the flock.
	dogPositions []r3.Vec
	summary      systems.HerdSummary

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	logStats         bool
	statsCallback    func(telemetry.WindowStats)

	tick           int32
	elapsed        float64
	paused         bool
	stepsPerUpdate int

	renderStates []components.RenderState
}

// NewGameWithOptions builds the world, spawns the herd in the farm pen and
// places the dogs behind it.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	world := ecs.NewWorld()
	rng := rand.New(rand.NewPCG(opts.Seed, uint64(cfg.Sim.Seed)))

	terrain := systems.NewTerrainField(cfg)
	bounds := systems.NewBoundaryModel(cfg)
	flock, err := systems.NewFlockSystem(world, cfg, terrain, bounds, rng)
	if err != nil {
		return nil, fmt.Errorf("creating flock: %w", err)
	}

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}
	steps := opts.StepsPerUpdate
	if steps < 1 {
		steps = 1
	}

	g := &Game{
		cfg:         cfg,
		world:       world,
		rng:         rng,
		runID:       uuid.NewString(),
		sheepMapper: ecs.NewMap2[components.Motion, components.Sheep](world),
		dogMapper:   ecs.NewMap2[components.Motion, components.Dog](world),
		sheepFilter: *ecs.NewFilter2[components.Motion, components.Sheep](world),
		dogMap:      ecs.NewMap1[components.Dog](world),
		motionMap:   ecs.NewMap1[components.Motion](world),
		terrain:     terrain,
		bounds:      bounds,
		flock:       flock,
		herder:      systems.NewHerderSystem(world, cfg, terrain, bounds),

		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(10, cfg.Herder.SettledFraction),
		logStats:         opts.LogStats,
		statsCallback:    opts.StatsCallback,
		stepsPerUpdate:   steps,
	}
	g.collector = telemetry.NewCollector(g.runID, statsWindow)

	om, err := telemetry.NewOutputManager(opts.OutputDir, g.runID)
	if err != nil {
		flock.Close()
		return nil, fmt.Errorf("creating output: %w", err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}
	g.outputManager = om

	g.spawnHerd()
	g.spawnDogs()

	slog.Info("game created",
		"run_id", g.runID,
		"seed", opts.Seed,
		"sheep", cfg.Flock.Count,
		"dogs", cfg.Herder.Count,
		"output_dir", om.Dir(),
	)
	return g, nil
}

// Step advances the simulation by dt on the game's own clock.
func (g *Game) Step(dt float64) {
	g.StepAt(dt, g.elapsed+dt)
}

// StepAt advances the simulation by dt with an externally supplied clock.
func (g *Game) StepAt(dt, elapsed float64) {
	if g.paused || dt <= 0 {
		return
	}
	g.elapsed = elapsed
	g.simulationStep(dt)
}

// UpdateHeadless runs StepsPerUpdate fixed ticks.
func (g *Game) UpdateHeadless() {
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.Step(g.cfg.Sim.DT)
	}
}

// CommandDog points dog id at target. The dog abandons the command on
// arrival, timeout or when it stops making progress.
func (g *Game) CommandDog(id int, target r3.Vec) error {
	if id < 0 || id >= len(g.dogs) {
		return fmt.Errorf("commanding dog %d: %w", id, ErrUnknownDog)
	}
	e := g.dogs[id]
	systems.IssueCommand(g.dogMap.Get(e), g.motionMap.Get(e).Pos, target)
	return nil
}

// Dogs returns a copy of every dog's state, ordered by ID.
func (g *Game) Dogs() []DogView {
	out := make([]DogView, 0, len(g.dogs))
	for _, e := range g.dogs {
		d := *g.dogMap.Get(e)
		if d.CommandTarget != nil {
			t := *d.CommandTarget
			d.CommandTarget = &t
		}
		out = append(out, DogView{Motion: *g.motionMap.Get(e), Dog: d})
	}
	return out
}

// Summary returns the herd summary from the last tick.
func (g *Game) Summary() systems.HerdSummary {
	return g.summary
}

// Config returns the configuration the game was built with.
func (g *Game) Config() *config.Config {
	return g.cfg
}

// Terrain returns the terrain field.
func (g *Game) Terrain() *systems.TerrainField {
	return g.terrain
}

// Boundary returns the boundary model.
func (g *Game) Boundary() *systems.BoundaryModel {
	return g.bounds
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() int32 {
	return g.tick
}

// Elapsed returns the simulation clock in seconds.
func (g *Game) Elapsed() float64 {
	return g.elapsed
}

// RunID identifies this run in telemetry output.
func (g *Game) RunID() string {
	return g.runID
}

// Paused reports whether stepping is suspended.
func (g *Game) Paused() bool {
	return g.paused
}

// SetPaused suspends or resumes stepping.
func (g *Game) SetPaused(p bool) {
	g.paused = p
}

// PerfStats returns timing over the recent tick window.
func (g *Game) PerfStats() telemetry.PerfStats {
	return g.perfCollector.Stats()
}

// RecordFrame marks a rendered frame for FPS tracking.
func (g *Game) RecordFrame() {
	g.perfCollector.RecordFrame()
}

// Unload stops workers and closes output files.
func (g *Game) Unload() {
	g.flock.Close()
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
