package main

import (
	"github.com/pthm-cable/pasture/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Column name in the log
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64

	field func(*config.Config) *float64
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of herding parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Dog placement
			{Name: "balance_distance", Path: "herder.balance_distance", Min: 30, Max: 90, Default: 55,
				field: func(c *config.Config) *float64 { return &c.Herder.BalanceDistance }},
			{Name: "grazing_balance_distance", Path: "herder.grazing_balance_distance", Min: 40, Max: 120, Default: 80,
				field: func(c *config.Config) *float64 { return &c.Herder.GrazingBalanceDistance }},
			{Name: "lateral_spacing", Path: "herder.lateral_spacing", Min: 10, Max: 45, Default: 25,
				field: func(c *config.Config) *float64 { return &c.Herder.LateralSpacing }},
			{Name: "patrol_radius", Path: "herder.patrol_radius", Min: 40, Max: 110, Default: 70,
				field: func(c *config.Config) *float64 { return &c.Herder.PatrolRadius }},
			{Name: "patrol_delay", Path: "herder.patrol_delay", Min: 1, Max: 15, Default: 5,
				field: func(c *config.Config) *float64 { return &c.Herder.PatrolDelay }},
			// Pack
			{Name: "pack_radius", Path: "herder.pack_radius", Min: 20, Max: 90, Default: 55,
				field: func(c *config.Config) *float64 { return &c.Herder.PackRadius }},
			{Name: "pack_push", Path: "herder.pack_push", Min: 5, Max: 40, Default: 22,
				field: func(c *config.Config) *float64 { return &c.Herder.PackPush }},
			{Name: "dog_max_speed", Path: "herder.max_speed", Min: 15, Max: 40, Default: 28,
				field: func(c *config.Config) *float64 { return &c.Herder.MaxSpeed }},
			// Sheep response
			{Name: "flee_radius", Path: "flock.flee_radius", Min: 20, Max: 50, Default: 35,
				field: func(c *config.Config) *float64 { return &c.Flock.FleeRadius }},
			{Name: "flee_speed_boost", Path: "flock.flee_speed_boost", Min: 1.5, Max: 6, Default: 4.2,
				field: func(c *config.Config) *float64 { return &c.Flock.FleeSpeedBoost }},
			{Name: "cohesion_weight", Path: "flock.cohesion_weight", Min: 0.1, Max: 1.5, Default: 0.5,
				field: func(c *config.Config) *float64 { return &c.Flock.CohesionWeight }},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	for i, spec := range pv.Specs {
		*spec.field(cfg) = clamped[i]
	}
}

// ExtractFromConfig reads parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	values := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		values[i] = *spec.field(cfg)
	}
	return values
}
