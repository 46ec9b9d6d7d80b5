package game

import (
	"image/color"
	"math"

	"github.com/pthm-cable/pasture/components"
)

// Gait and pose constants for the render channels.
const (
	sheepStrideLength = 1.6 // ground distance per leg cycle
	dogStrideLength   = 2.6
	legSwing          = 0.55
	grazeHeadDrop     = 0.7
	munchRate         = 3.0
	sheepTailRate     = 2.0
	dogTailRate       = 9.0
	idleSpeed         = 0.2

	sheepRadius = 1.2
	dogRadius   = 1.0
)

var (
	dogCoat  = color.RGBA{R: 28, G: 26, B: 24, A: 255}
	dogMarks = color.RGBA{R: 236, G: 232, B: 226, A: 255}
)

// RenderStates returns one record per agent: sheep first in spawn order,
// then dogs by ID. The returned slice is reused by the next call.
func (g *Game) RenderStates() []components.RenderState {
	out := g.renderStates[:0]

	query := g.sheepFilter.Query()
	for query.Next() {
		m, sh := query.Get()
		out = append(out, g.sheepRenderState(m, sh))
	}
	for _, e := range g.dogs {
		out = append(out, g.dogRenderState(g.motionMap.Get(e), g.dogMap.Get(e)))
	}

	g.renderStates = out
	return out
}

func (g *Game) sheepRenderState(m *components.Motion, sh *components.Sheep) components.RenderState {
	p := &sh.Personality
	speed := math.Hypot(m.Vel.X, m.Vel.Z)
	ratio := min(1, speed/p.MaxSpeed)
	gait := m.Stride * 2 * math.Pi / sheepStrideLength

	rs := components.RenderState{
		Kind:    components.KindSheep,
		Index:   sh.Index,
		Pos:     m.Pos,
		Heading: m.Heading,
		Legs:    components.AnimChannel{Phase: gait, Amplitude: legSwing * ratio},
		Tail:    components.AnimChannel{Phase: g.elapsed*sheepTailRate + p.WanderPhase, Amplitude: 0.15},
		Body:    p.Wool,
		Accent:  p.Face,
		Radius:  sheepRadius,
	}

	switch {
	case sh.State == components.Feeding:
		rs.Visual = components.VisualFeeding
		rs.Head = components.AnimChannel{Phase: g.elapsed*munchRate + p.WanderPhase, Amplitude: 0.08, Offset: grazeHeadDrop}
	case speed < idleSpeed:
		rs.Visual = components.VisualIdle
	case speed > p.MaxSpeed*1.2:
		rs.Visual = components.VisualRunning
		rs.Head = components.AnimChannel{Phase: gait * 2, Amplitude: 0.1, Offset: -0.15}
	default:
		rs.Visual = components.VisualRoaming
		rs.Head = components.AnimChannel{Phase: gait * 2, Amplitude: 0.05 * ratio}
	}
	return rs
}

func (g *Game) dogRenderState(m *components.Motion, d *components.Dog) components.RenderState {
	maxSpeed := g.cfg.Herder.MaxSpeed
	speed := math.Hypot(m.Vel.X, m.Vel.Z)
	ratio := min(1, speed/maxSpeed)
	gait := m.Stride * 2 * math.Pi / dogStrideLength

	rs := components.RenderState{
		Kind:    components.KindDog,
		Index:   d.ID,
		Pos:     m.Pos,
		Heading: m.Heading,
		Legs:    components.AnimChannel{Phase: gait, Amplitude: legSwing * ratio},
		Body:    dogCoat,
		Accent:  dogMarks,
		Radius:  dogRadius,
	}

	switch {
	case speed < idleSpeed:
		rs.Visual = components.VisualIdle
		rs.Tail = components.AnimChannel{Phase: g.elapsed * dogTailRate, Amplitude: 0.6}
	case speed > maxSpeed*0.5:
		rs.Visual = components.VisualRunning
		// Herding crouch: head low, tail streaming.
		rs.Head = components.AnimChannel{Phase: gait, Amplitude: 0.05, Offset: 0.35}
		rs.Tail = components.AnimChannel{Phase: gait, Amplitude: 0.1, Offset: -0.3}
	default:
		rs.Visual = components.VisualRoaming
		rs.Head = components.AnimChannel{Phase: gait * 2, Amplitude: 0.05}
		rs.Tail = components.AnimChannel{Phase: g.elapsed * dogTailRate * 0.5, Amplitude: 0.3}
	}
	return rs
}
