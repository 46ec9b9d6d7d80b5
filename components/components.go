// Package components defines ECS components for the simulation.
package components

import (
	"image/color"

	"gonum.org/v1/gonum/spatial/r3"
)

// Motion holds an agent's kinematic state. Y is height above the terrain datum.
type Motion struct {
	Pos     r3.Vec
	Vel     r3.Vec
	Heading float64 // radians about +Y, 0 faces +Z
	Stride  float64 // distance travelled on the ground plane, drives gait animation
}

// BehaviorState is a sheep's grazing state.
type BehaviorState uint8

const (
	Roaming BehaviorState = iota
	Feeding
)

func (s BehaviorState) String() string {
	switch s {
	case Roaming:
		return "roaming"
	case Feeding:
		return "feeding"
	default:
		return "unknown"
	}
}

// Personality is fixed per sheep at spawn.
type Personality struct {
	MaxSpeed          float64
	WanderPhase       float64 // offset into the sinusoidal wander term
	GrazeAngle        float64 // sector of the pasture boundary this sheep heads for (radians)
	GrazeRadiusFactor float64 // fraction of the boundary radius at GrazeAngle
	FeedDamping       float64 // per-tick velocity multiplier while feeding
	Wool              color.RGBA
	Face              color.RGBA
}

// Sheep holds grazing agent state.
type Sheep struct {
	Index        int
	Personality  Personality
	State        BehaviorState
	FeedingTimer float64
	Confidence   float64 // 0 = panicked, 1 = calm
	Threatened   bool    // a dog was inside the flee radius last tick
	Resident     bool    // counted in the lush-grass census last tick
	GrazeTarget  r3.Vec  // personal pasture point, fixed at spawn
}

// DogState is a herding dog's control mode.
type DogState uint8

const (
	DogIdle DogState = iota
	DogMoving
	DogAutonomous
)

func (s DogState) String() string {
	switch s {
	case DogIdle:
		return "idle"
	case DogMoving:
		return "moving"
	case DogAutonomous:
		return "autonomous"
	default:
		return "unknown"
	}
}

// ReleaseReason records why a command target was dropped.
type ReleaseReason uint8

const (
	ReleaseNone ReleaseReason = iota
	ReleaseArrived
	ReleaseExpired
	ReleaseStuck
)

func (r ReleaseReason) String() string {
	switch r {
	case ReleaseNone:
		return "none"
	case ReleaseArrived:
		return "arrived"
	case ReleaseExpired:
		return "expired"
	case ReleaseStuck:
		return "stuck"
	default:
		return "unknown"
	}
}

// Dog holds herding agent state.
// CommandTarget is set from outside the simulation and cleared only by HerderSystem.
type Dog struct {
	ID            int
	CommandTarget *r3.Vec
	State         DogState

	// Command progress tracking
	CommandElapsed       float64
	LastDistanceToTarget float64
	StuckTimer           float64
	SinceCommand         float64 // seconds since the last command was released
	LastRelease          ReleaseReason
	Releases             [4]int // indexed by ReleaseReason

	Target r3.Vec // steering target chosen this tick
	Mode   AutoMode
}

// AutoMode names the target an autonomous dog is steering to.
type AutoMode uint8

const (
	AutoNone AutoMode = iota
	AutoBalance
	AutoIntercept
	AutoPatrol
)

func (m AutoMode) String() string {
	switch m {
	case AutoNone:
		return "none"
	case AutoBalance:
		return "balance"
	case AutoIntercept:
		return "intercept"
	case AutoPatrol:
		return "patrol"
	default:
		return "unknown"
	}
}
