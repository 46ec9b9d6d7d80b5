package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "config.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// ErrInvalid is wrapped by every invariant violation reported by Validate.
var ErrInvalid = errors.New("invalid configuration")

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// validateSchema checks a YAML override document against the embedded schema.
// The document is round-tripped through JSON so the validator sees plain JSON values.
func validateSchema(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding yaml: %w", err)
	}
	if doc == nil {
		return nil // empty file overrides nothing
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("re-encoding yaml as json: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decoding json: %w", err)
	}

	return sch.Validate(v)
}

// Validate checks the invariants the simulation relies on at startup.
// A violation is a programming or deployment error and must abort startup.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Sim.DT <= 0 {
		fail("sim.dt must be positive, got %v", c.Sim.DT)
	}
	if c.Spatial.CellSize <= 0 {
		fail("spatial.cell_size must be positive, got %v", c.Spatial.CellSize)
	}

	// The 3x3 neighbour block only covers radii up to one cell.
	radii := []struct {
		name string
		r    float64
	}{
		{"flock.separation_radius", c.Flock.SeparationRadius},
		{"flock.alignment_radius", c.Flock.AlignmentRadius},
		{"flock.cohesion_radius", c.Flock.CohesionRadius},
	}
	for _, r := range radii {
		if r.r <= 0 {
			fail("%s must be positive, got %v", r.name, r.r)
		}
		if r.r > c.Spatial.CellSize {
			fail("%s (%v) exceeds spatial.cell_size (%v)", r.name, r.r, c.Spatial.CellSize)
		}
	}

	if c.Flock.Count < 0 {
		fail("flock.count must not be negative, got %d", c.Flock.Count)
	}
	if c.Flock.MinSpeed <= 0 || c.Flock.MaxSpeed < c.Flock.MinSpeed {
		fail("flock speed range [%v, %v] is invalid", c.Flock.MinSpeed, c.Flock.MaxSpeed)
	}
	if c.Flock.FeedMax < c.Flock.FeedMin || c.Flock.FeedMin < 0 {
		fail("flock feeding timer range [%v, %v] is invalid", c.Flock.FeedMin, c.Flock.FeedMax)
	}
	if c.Flock.FeedChance < 0 || c.Flock.FeedChance > 1 {
		fail("flock.feed_chance must be in [0,1], got %v", c.Flock.FeedChance)
	}

	if c.Farm.HalfSize <= 0 || c.Farm.WallThickness <= 0 {
		fail("farm half_size and wall_thickness must be positive")
	}
	if c.Farm.GateHalfWidth < 0 || c.Farm.GateHalfWidth >= c.Farm.HalfSize {
		fail("farm.gate_half_width (%v) must be in [0, half_size)", c.Farm.GateHalfWidth)
	}
	if c.Farm.SpawnMargin+c.Farm.WallThickness >= c.Farm.HalfSize {
		fail("farm.spawn_margin leaves no room to spawn inside the pen")
	}

	if c.Grass.MinRadius <= 0 || c.Grass.MinRadius > c.Grass.NominalRadius || c.Grass.NominalRadius > c.Grass.MaxRadius {
		fail("grass radii must satisfy 0 < min (%v) <= nominal (%v) <= max (%v)",
			c.Grass.MinRadius, c.Grass.NominalRadius, c.Grass.MaxRadius)
	}
	if c.Grass.BiomeInset >= c.Grass.MinRadius {
		fail("grass.biome_inset (%v) must be smaller than grass.min_radius", c.Grass.BiomeInset)
	}
	if c.Path.BlendWidth <= 0 || c.Path.ForkBlendWidth <= 0 || c.Grass.BlendWidth <= 0 {
		fail("blend widths must be positive")
	}

	if c.World.HalfExtent <= 0 || c.World.DogHalfExtent < c.World.HalfExtent {
		fail("world.dog_half_extent (%v) must be >= world.half_extent (%v) > 0",
			c.World.DogHalfExtent, c.World.HalfExtent)
	}

	if c.Herder.Count < 0 {
		fail("herder.count must not be negative, got %d", c.Herder.Count)
	}
	if c.Herder.Count > 0 {
		if err := validateSectors(c.Herder.Sectors, c.Herder.Count); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// validateSectors requires one wedge per dog, and that the wedges tile
// [0, 360) without gaps or overlaps.
func validateSectors(sectors []SectorConfig, dogs int) error {
	if len(sectors) != dogs {
		return fmt.Errorf("%w: herder.sectors has %d entries for %d dogs", ErrInvalid, len(sectors), dogs)
	}

	sorted := make([]SectorConfig, len(sectors))
	copy(sorted, sectors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	const eps = 1e-9
	if math.Abs(sorted[0].Start) > eps {
		return fmt.Errorf("%w: herder.sectors must start at 0, got %v", ErrInvalid, sorted[0].Start)
	}
	for i, s := range sorted {
		if s.End <= s.Start {
			return fmt.Errorf("%w: herder sector [%v, %v) is empty", ErrInvalid, s.Start, s.End)
		}
		if i > 0 && math.Abs(sorted[i-1].End-s.Start) > eps {
			return fmt.Errorf("%w: herder sectors [%v, %v) and [%v, %v) do not meet",
				ErrInvalid, sorted[i-1].Start, sorted[i-1].End, s.Start, s.End)
		}
	}
	if last := sorted[len(sorted)-1].End; math.Abs(last-360) > eps {
		return fmt.Errorf("%w: herder.sectors must end at 360, got %v", ErrInvalid, last)
	}
	return nil
}
