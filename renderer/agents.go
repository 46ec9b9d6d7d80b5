package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pasture/camera"
	"github.com/pthm-cable/pasture/components"
)

// AgentRenderer draws sheep and dogs from their render states.
type AgentRenderer struct {
	SelectedDog int // -1 for none
}

// NewAgentRenderer creates a new agent renderer.
func NewAgentRenderer() *AgentRenderer {
	return &AgentRenderer{SelectedDog: -1}
}

// Draw renders every visible agent.
func (r *AgentRenderer) Draw(cam *camera.Camera, states []components.RenderState) {
	for i := range states {
		rs := &states[i]
		if !cam.IsVisible(float32(rs.Pos.X), float32(rs.Pos.Z), float32(rs.Radius*2)) {
			continue
		}
		r.drawAgent(cam, rs)
	}
}

// bodyPoint maps a point given in the agent's frame (forward, right, in
// body radii) to the screen.
func bodyPoint(cam *camera.Camera, rs *components.RenderState, forward, right float64) rl.Vector2 {
	sin, cos := math.Sincos(rs.Heading)
	// Heading 0 faces +Z; right is -X at that heading.
	x := rs.Pos.X + (sin*forward-cos*right)*rs.Radius
	z := rs.Pos.Z + (cos*forward+sin*right)*rs.Radius
	sx, sy := cam.WorldToScreen(float32(x), float32(z))
	return rl.Vector2{X: sx, Y: sy}
}

func (r *AgentRenderer) drawAgent(cam *camera.Camera, rs *components.RenderState) {
	scale := float32(rs.Radius) * cam.Zoom
	body := rl.Color{R: rs.Body.R, G: rs.Body.G, B: rs.Body.B, A: rs.Body.A}
	accent := rl.Color{R: rs.Accent.R, G: rs.Accent.G, B: rs.Accent.B, A: rs.Accent.A}
	legColor := rl.Color{R: 40, G: 36, B: 32, A: 255}

	// Legs swing fore and aft in diagonal pairs.
	swing := rs.Legs.Angle()
	for _, leg := range [4]struct{ f, side, dir float64 }{
		{0.5, 1, 1}, {0.5, -1, -1}, {-0.5, 1, -1}, {-0.5, -1, 1},
	} {
		hip := bodyPoint(cam, rs, leg.f, leg.side*0.6)
		foot := bodyPoint(cam, rs, leg.f+leg.dir*swing, leg.side*0.8)
		rl.DrawLineEx(hip, foot, max(1, scale*0.18), legColor)
	}

	tail := bodyPoint(cam, rs, -1.2, rs.Tail.Angle())
	rl.DrawLineEx(bodyPoint(cam, rs, -0.8, 0), tail, max(1, scale*0.2), accent)

	rl.DrawCircleV(bodyPoint(cam, rs, 0, 0), scale, body)
	if rs.Kind == components.KindDog {
		// Saddle marking.
		rl.DrawCircleV(bodyPoint(cam, rs, -0.2, 0), scale*0.6, accent)
	}

	// A lowered head sits further forward, as seen from above.
	head := bodyPoint(cam, rs, 0.9+0.4*rs.Head.Angle(), 0)
	headColor := accent
	if rs.Kind == components.KindDog {
		headColor = body
	}
	rl.DrawCircleV(head, scale*0.45, headColor)

	if rs.Kind == components.KindDog && rs.Index == r.SelectedDog {
		rl.DrawCircleLinesV(bodyPoint(cam, rs, 0, 0), scale*2, rl.Color{R: 255, G: 210, B: 80, A: 255})
	}
}
