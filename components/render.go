package components

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Kind distinguishes agent types in render output.
type Kind uint8

const (
	KindSheep Kind = iota
	KindDog
)

// VisualState selects an animation set.
type VisualState uint8

const (
	VisualIdle VisualState = iota
	VisualRoaming
	VisualFeeding
	VisualRunning
)

func (v VisualState) String() string {
	switch v {
	case VisualIdle:
		return "idle"
	case VisualRoaming:
		return "roaming"
	case VisualFeeding:
		return "feeding"
	case VisualRunning:
		return "running"
	default:
		return "unknown"
	}
}

// AnimChannel is one animatable sub-part. The renderer applies
// Offset + Amplitude*sin(Phase) as a rotation about the part's pivot.
type AnimChannel struct {
	Phase     float64
	Amplitude float64
	Offset    float64
}

// Angle evaluates the channel.
func (c AnimChannel) Angle() float64 {
	return c.Offset + c.Amplitude*math.Sin(c.Phase)
}

// RenderState is the per-agent record handed to renderers each frame.
type RenderState struct {
	Kind    Kind
	Index   int
	Pos     r3.Vec
	Heading float64
	Visual  VisualState

	Head AnimChannel
	Legs AnimChannel
	Tail AnimChannel

	Body   color.RGBA
	Accent color.RGBA
	Radius float64
}
