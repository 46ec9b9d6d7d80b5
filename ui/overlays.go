package ui

import (
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID names a toggleable world overlay.
type OverlayID string

const (
	OverlayPasture     OverlayID = "pasture"
	OverlayCentroid    OverlayID = "centroid"
	OverlayFleeRadius  OverlayID = "flee_radius"
	OverlayDogTargets  OverlayID = "dog_targets"
	OverlaySectors     OverlayID = "sectors"
	OverlaySpatialGrid OverlayID = "spatial_grid"
	OverlayHeadings    OverlayID = "headings"
)

// OverlayDescriptor describes one overlay and its hotkey.
type OverlayDescriptor struct {
	ID       OverlayID
	Name     string
	Key      int32 // 0 = no hotkey
	KeyLabel string
	Category string
	Default  bool // enabled at startup
}

var defaultOverlays = []OverlayDescriptor{
	{OverlayPasture, "Pasture edge", rl.KeyP, "P", "herd", true},
	{OverlayCentroid, "Centroid + strays", rl.KeyC, "C", "herd", false},
	{OverlayFleeRadius, "Flee radius", rl.KeyF, "F", "dogs", false},
	{OverlayDogTargets, "Targets", rl.KeyT, "T", "dogs", false},
	{OverlaySectors, "Intercept sectors", rl.KeyS, "S", "dogs", false},
	{OverlaySpatialGrid, "Neighbour grid", rl.KeyG, "G", "debug", false},
	{OverlayHeadings, "Velocities", rl.KeyV, "V", "debug", false},
}

// OverlayRegistry tracks which overlays are on, in registration order.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry returns a registry holding the standard overlays.
func NewOverlayRegistry() *OverlayRegistry {
	r := &OverlayRegistry{enabled: make(map[OverlayID]bool)}
	for _, d := range defaultOverlays {
		r.Register(d)
	}
	return r
}

// Register adds an overlay in its default state.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.enabled[desc.ID] = desc.Default
}

// Set turns an overlay on or off. Unknown IDs are ignored.
func (r *OverlayRegistry) Set(id OverlayID, on bool) {
	if _, ok := r.enabled[id]; ok {
		r.enabled[id] = on
	}
}

// Toggle flips an overlay and returns its new state.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	r.Set(id, !r.enabled[id])
	return r.enabled[id]
}

func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// ByCategory returns the overlays in one category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var out []OverlayDescriptor
	for _, d := range r.descriptors {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Categories returns categories in first-seen order.
func (r *OverlayRegistry) Categories() []string {
	var cats []string
	for _, d := range r.descriptors {
		if !slices.Contains(cats, d.Category) {
			cats = append(cats, d.Category)
		}
	}
	return cats
}

// HandleKeyPress toggles the overlay bound to key. ok is false when no
// overlay uses that key.
func (r *OverlayRegistry) HandleKeyPress(key int32) (id OverlayID, on, ok bool) {
	for _, d := range r.descriptors {
		if d.Key != 0 && d.Key == key {
			return d.ID, r.Toggle(d.ID), true
		}
	}
	return "", false, false
}
