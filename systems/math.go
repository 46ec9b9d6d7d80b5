package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Clamp functions for common value ranges

// clampFloat clamps v between minVal and maxVal.
func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// clamp01 clamps v to the [0, 1] range.
func clamp01(v float64) float64 {
	return clampFloat(v, 0, 1)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// smoothstep is the cubic Hermite ramp from 0 at edge0 to 1 at edge1.
func smoothstep(edge0, edge1, x float64) float64 {
	t := clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

// Angle normalization functions

// normalizeAngle wraps an angle to [-Pi, Pi].
func normalizeAngle(angle float64) float64 {
	return math.Remainder(angle, 2*math.Pi)
}

// normalizeDegrees wraps an angle in degrees to [0, 360).
func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// Ground-plane vector helpers. Steering happens on X/Z; Y is owned by terrain snapping.

func flat(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Z: v.Z}
}

// distanceXZ returns the ground-plane distance between two points.
func distanceXZ(a, b r3.Vec) float64 {
	return math.Hypot(a.X-b.X, a.Z-b.Z)
}

func distanceSqXZ(a, b r3.Vec) float64 {
	dx := a.X - b.X
	dz := a.Z - b.Z
	return dx*dx + dz*dz
}

// normalize returns v scaled to unit length, or the zero vector if v is degenerate.
func normalize(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < 1e-9 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// limit clamps the magnitude of v to maxLen.
func limit(v r3.Vec, maxLen float64) r3.Vec {
	n2 := r3.Norm2(v)
	if n2 <= maxLen*maxLen || n2 == 0 {
		return v
	}
	return r3.Scale(maxLen/math.Sqrt(n2), v)
}

func finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}

// headingOf returns the yaw of a ground-plane direction, 0 facing +Z.
func headingOf(v r3.Vec) float64 {
	return math.Atan2(v.X, v.Z)
}
