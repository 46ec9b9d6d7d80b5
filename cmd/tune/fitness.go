package main

import (
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/pasture/config"
	"github.com/pthm-cable/pasture/game"
	"github.com/pthm-cable/pasture/telemetry"
)

// Seconds the pastured share must stay above the settled fraction.
const settleHoldSec = 10.0

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []uint64
	baseConfig  *config.Config
	statsWindow float64

	mu          sync.Mutex
	lastSettle  float64 // mean settle time from the most recent Evaluate call
	lastQuality float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []uint64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 5.0,
	}
}

// Last returns the mean settle time and quality of the most recent evaluation.
func (fe *FitnessEvaluator) Last() (settleSec, quality float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSettle, fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	settleSec   float64 // time until the herd settled in pasture (or the cap)
	settled     bool
	windowStats []telemetry.WindowStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the settle time scaled up by poor herd quality; runs that
// never settle pay double the time cap.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.configFor(x)
	if err := cfg.Validate(); err != nil {
		slog.Warn("parameters rejected", "error", err)
		return math.Inf(1)
	}

	settles := make([]float64, len(fe.seeds))
	qualities := make([]float64, len(fe.seeds))
	fitnesses := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			result, err := fe.runSimulation(x, s)
			if err != nil {
				slog.Warn("simulation failed", "seed", s, "error", err)
				fitnesses[idx] = math.Inf(1)
				return
			}
			quality := computeQuality(result.windowStats, cfg)
			settles[idx] = result.settleSec
			qualities[idx] = quality
			fitnesses[idx] = computeFitness(result, quality)
		}(i, seed)
	}
	wg.Wait()

	fe.mu.Lock()
	fe.lastSettle = stat.Mean(settles, nil)
	fe.lastQuality = stat.Mean(qualities, nil)
	fe.mu.Unlock()

	return stat.Mean(fitnesses, nil)
}

// configFor returns a copy of the base config with x applied.
func (fe *FitnessEvaluator) configFor(x []float64) *config.Config {
	cfg := *fe.baseConfig
	cfg.Herder.Sectors = append([]config.SectorConfig(nil), fe.baseConfig.Herder.Sectors...)
	// Seeds already run in parallel.
	cfg.Sim.Workers = 1
	fe.params.ApplyToConfig(&cfg, x)
	cfg.Recompute()
	return &cfg
}

// runSimulation executes a single headless run until the herd has
// settled or maxTicks is reached.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed uint64) (*runResult, error) {
	cfg := fe.configFor(x)
	result := &runResult{}

	g, err := game.NewGameWithOptions(game.Options{
		Config:         cfg,
		Seed:           seed,
		StatsWindowSec: fe.statsWindow,
		StepsPerUpdate: 1,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		return nil, err
	}
	defer g.Unload()

	dt := cfg.Sim.DT
	holdTicks := int32(settleHoldSec / dt)
	var heldTicks int32
	var settledAt int32 = -1

	for g.Tick() < fe.maxTicks {
		g.UpdateHeadless()

		s := g.Summary()
		if s.Count > 0 && float64(s.InPasture) >= cfg.Herder.SettledFraction*float64(s.Count) {
			if heldTicks == 0 {
				settledAt = g.Tick()
			}
			heldTicks++
			if heldTicks >= holdTicks {
				result.settled = true
				result.settleSec = float64(settledAt) * dt
				return result, nil
			}
		} else {
			heldTicks = 0
		}
	}

	result.settleSec = float64(fe.maxTicks) * dt
	return result, nil
}

// computeQuality scores herd cohesion in [0,1] from window stats: tight,
// calm herds with few strays score high.
func computeQuality(windows []telemetry.WindowStats, cfg *config.Config) float64 {
	if len(windows) == 0 {
		return 0
	}
	spread := make([]float64, len(windows))
	confidence := make([]float64, len(windows))
	strays := make([]float64, len(windows))
	for i, w := range windows {
		spread[i] = w.Spread
		confidence[i] = w.ConfidenceMean
		if w.Sheep > 0 {
			strays[i] = float64(w.Strays) / float64(w.Sheep)
		}
	}

	// Spread is judged against the pasture it has to fit into.
	tightness := 1 - math.Min(1, stat.Mean(spread, nil)/cfg.Grass.NominalRadius)
	calm := math.Min(1, math.Max(0, stat.Mean(confidence, nil)))
	together := 1 - math.Min(1, stat.Mean(strays, nil))

	return (tightness + calm + together) / 3
}

// computeFitness converts a run into a fitness value (lower = better).
func computeFitness(r *runResult, quality float64) float64 {
	fitness := r.settleSec * (1 + 0.2*(1-quality))
	if !r.settled {
		fitness *= 2
	}
	return fitness
}
