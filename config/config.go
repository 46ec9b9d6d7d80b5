// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Sim       SimConfig       `yaml:"sim"`
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Terrain   TerrainConfig   `yaml:"terrain"`
	Farm      FarmConfig      `yaml:"farm"`
	Grass     GrassConfig     `yaml:"grass"`
	Path      PathConfig      `yaml:"path"`
	Flock     FlockConfig     `yaml:"flock"`
	Herder    HerderConfig    `yaml:"herder"`
	Spatial   SpatialConfig   `yaml:"spatial"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimConfig holds stepping and determinism parameters.
type SimConfig struct {
	Seed              int64   `yaml:"seed"`               // RNG seed for spawning and stochastic transitions
	DT                float64 `yaml:"dt"`                 // Fixed step used by headless runs (seconds)
	Workers           int     `yaml:"workers"`            // Flock read-phase workers (0 = GOMAXPROCS, 1 = serial)
	ParallelThreshold int     `yaml:"parallel_threshold"` // Minimum herd size before sharding
}

// ScreenConfig holds display settings for the viewer.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds the outer containment geometry.
type WorldConfig struct {
	HalfExtent    float64 `yaml:"half_extent"`     // Sheep world bounds are ±HalfExtent on x and z
	EdgeMargin    float64 `yaml:"edge_margin"`     // Soft repulsion margin inside the bounds
	EdgePush      float64 `yaml:"edge_push"`       // Inward nudge applied when beyond the bounds
	DogHalfExtent float64 `yaml:"dog_half_extent"` // Dogs are hard-clamped to ±DogHalfExtent
}

// TerrainConfig holds the base height field and biome split parameters.
type TerrainConfig struct {
	Seed           int64   `yaml:"seed"`
	MaxHeight      float64 `yaml:"max_height"`
	BaseScale      float64 `yaml:"base_scale"`      // Frequency of the ridged base fbm
	BaseOctaves    int     `yaml:"base_octaves"`
	RidgeExponent  float64 `yaml:"ridge_exponent"`  // >1 sharpens peaks, flattens valleys
	RoughScale     float64 `yaml:"rough_scale"`
	RoughAmplitude float64 `yaml:"rough_amplitude"` // Roughness at sea level; grows with height
	SnowHeight     float64 `yaml:"snow_height"`     // Above this everything is Snow
	AlpineHeight   float64 `yaml:"alpine_height"`   // Above this the moisture split uses snow variants
	MoistureScale  float64 `yaml:"moisture_scale"`
	ForestMoisture float64 `yaml:"forest_moisture"` // Moisture above this is forest
}

// FarmConfig holds the farm pen geometry.
type FarmConfig struct {
	CenterX       float64 `yaml:"center_x"`
	CenterZ       float64 `yaml:"center_z"`
	HalfSize      float64 `yaml:"half_size"`
	Height        float64 `yaml:"height"`
	WallThickness float64 `yaml:"wall_thickness"`
	GateHalfWidth float64 `yaml:"gate_half_width"`
	CornerCutout  float64 `yaml:"corner_cutout"`
	BiomeInset    float64 `yaml:"biome_inset"`
	SpawnMargin   float64 `yaml:"spawn_margin"`
}

// GrassConfig holds the grassland (pasture) geometry.
type GrassConfig struct {
	CenterX         float64 `yaml:"center_x"`
	CenterZ         float64 `yaml:"center_z"`
	NominalRadius   float64 `yaml:"nominal_radius"`
	MinRadius       float64 `yaml:"min_radius"`
	MaxRadius       float64 `yaml:"max_radius"`
	RadiusNoise     float64 `yaml:"radius_noise"`      // Amplitude of the angular radius perturbation
	RadiusNoiseFreq float64 `yaml:"radius_noise_freq"` // Radius of the unit-circle noise sample
	BlendWidth      float64 `yaml:"blend_width"`
	Height          float64 `yaml:"height"`
	BiomeInset      float64 `yaml:"biome_inset"`
}

// PathConfig holds the main path and fork path parameters.
type PathConfig struct {
	HalfWidth       float64 `yaml:"half_width"`
	BlendWidth      float64 `yaml:"blend_width"`
	ForkHalfWidth   float64 `yaml:"fork_half_width"`
	ForkBlendWidth  float64 `yaml:"fork_blend_width"`
	ForkLength      float64 `yaml:"fork_length"`
	ForkWobble      float64 `yaml:"fork_wobble"`       // Max lateral centreline displacement
	ForkWobbleScale float64 `yaml:"fork_wobble_scale"` // Noise frequency along the fork
	ForkClimb       float64 `yaml:"fork_climb"`        // Height gained per unit along the fork
	QuadrantRamp    float64 `yaml:"quadrant_ramp"`     // Distance over which the fork fades in at its quadrant edge
}

// FlockConfig holds sheep steering and state machine parameters.
type FlockConfig struct {
	Count int `yaml:"count"`

	SeparationRadius float64 `yaml:"separation_radius"`
	AlignmentRadius  float64 `yaml:"alignment_radius"`
	CohesionRadius   float64 `yaml:"cohesion_radius"`
	SeparationWeight float64 `yaml:"separation_weight"`
	AlignmentWeight  float64 `yaml:"alignment_weight"`
	CohesionWeight   float64 `yaml:"cohesion_weight"`
	MaxForce         float64 `yaml:"max_force"` // Velocity change per tick for ordinary steering

	MinSpeed float64 `yaml:"min_speed"` // Personality max speed is drawn from [MinSpeed, MaxSpeed]
	MaxSpeed float64 `yaml:"max_speed"`

	FleeRadius        float64 `yaml:"flee_radius"`
	FeedingFleeFactor float64 `yaml:"feeding_flee_factor"` // Flee radius multiplier while feeding
	FleeAwayWeight    float64 `yaml:"flee_away_weight"`
	FleeGoalWeight    float64 `yaml:"flee_goal_weight"`
	FleeOpenWeight    float64 `yaml:"flee_open_weight"`
	FleeSpeedBoost    float64 `yaml:"flee_speed_boost"`
	FleeForceFactor   float64 `yaml:"flee_force_factor"` // Flee force ceiling as a multiple of MaxForce

	ConfidenceDecay    float64 `yaml:"confidence_decay"`    // Per second while threatened
	ConfidenceRecovery float64 `yaml:"confidence_recovery"` // Per second

	PastureCap      int     `yaml:"pasture_cap"`
	SeekFar         float64 `yaml:"seek_far"`
	SeekNear        float64 `yaml:"seek_near"`
	GrazeRadiusMin  float64 `yaml:"graze_radius_min"` // Personality graze radius factor range
	GrazeRadiusMax  float64 `yaml:"graze_radius_max"`
	FeedChance      float64 `yaml:"feed_chance"`
	FeedConfidence  float64 `yaml:"feed_confidence"`
	FeedMin         float64 `yaml:"feed_min"`
	FeedMax         float64 `yaml:"feed_max"`
	FeedDampingMin  float64 `yaml:"feed_damping_min"`
	FeedDampingMax  float64 `yaml:"feed_damping_max"`
	WanderStrength  float64 `yaml:"wander_strength"`
	WanderFarDamp   float64 `yaml:"wander_far_damp"`   // Wander multiplier when far outside the pasture
	WanderFarFactor float64 `yaml:"wander_far_factor"` // "Far" is beyond grass radius × this

	Clearance       float64 `yaml:"clearance"`
	HeightSmoothing float64 `yaml:"height_smoothing"` // Exponential rate toward terrain height (1/s)
	WallDamping     float64 `yaml:"wall_damping"`
}

// SectorConfig is one dog's angular wedge around the herd centroid, in degrees.
type SectorConfig struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// HerderConfig holds dog state machine and movement parameters.
type HerderConfig struct {
	Count      int  `yaml:"count"`
	Autonomous bool `yaml:"autonomous"` // If false, dogs without a command stay Idle

	MaxSpeed       float64 `yaml:"max_speed"`
	ArriveDistance float64 `yaml:"arrive_distance"`
	CommandTimeout float64 `yaml:"command_timeout"`
	StuckWindow    float64 `yaml:"stuck_window"`
	StuckProgress  float64 `yaml:"stuck_progress"`
	ArrivalRadius  float64 `yaml:"arrival_radius"`
	PackRadius     float64 `yaml:"pack_radius"`
	PackPush       float64 `yaml:"pack_push"`
	MaxForceRate   float64 `yaml:"max_force_rate"` // Force ceiling is MaxForceRate·dt

	BalanceDistance        float64 `yaml:"balance_distance"`
	GrazingBalanceDistance float64 `yaml:"grazing_balance_distance"`
	LateralSpacing         float64 `yaml:"lateral_spacing"`
	PatrolDelay            float64 `yaml:"patrol_delay"`
	PatrolRadius           float64 `yaml:"patrol_radius"`
	SettledPatrolRadius    float64 `yaml:"settled_patrol_radius"`
	SettledFraction        float64 `yaml:"settled_fraction"` // Herd counts as settled when this share is in pasture

	Clearance float64        `yaml:"clearance"`
	Sectors   []SectorConfig `yaml:"sectors"`
}

// SpatialConfig holds the neighbour grid parameters.
type SpatialConfig struct {
	CellSize float64 `yaml:"cell_size"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // Seconds of simulated time per stats row
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	LogInterval         int     `yaml:"log_interval"` // Ticks between world state log lines (0 = off)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	FarmFlattenReach float64 // Farm linear blend ends at 1.5 × half size
	InteractionReach float64 // Largest flocking radius, must not exceed the grid cell
	FeedingFleeRad   float64 // Flee radius while feeding
	FleeForceMax     float64 // Flee force ceiling
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. The user file is checked
// against the embedded schema and the merged result against Validate.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := validateSchema(data); err != nil {
			return nil, fmt.Errorf("validating config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Parse is like Load but reads the override document from memory.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if err := validateSchema(data); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.FarmFlattenReach = c.Farm.HalfSize * 1.5
	c.Derived.InteractionReach = max(c.Flock.SeparationRadius, c.Flock.AlignmentRadius, c.Flock.CohesionRadius)
	c.Derived.FeedingFleeRad = c.Flock.FleeRadius * c.Flock.FeedingFleeFactor
	c.Derived.FleeForceMax = c.Flock.MaxForce * c.Flock.FleeForceFactor
}

// Recompute refreshes derived values after fields are changed in code.
func (c *Config) Recompute() {
	c.computeDerived()
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
