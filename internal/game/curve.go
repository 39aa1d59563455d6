package game

import (
	"math"
)

const (
	CurvePadding = 10.0

	// Control point as a fraction of the play area, measured from the top-left.
	controlXRatio = 0.6
	controlYRatio = 0.85

	angleScale    = 0.9
	maxAngleDeg   = 40.0
	minLogCeiling = 2.0
)

// Geometry is the play area and marker size as currently rendered.
type Geometry struct {
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	MarkerWidth  float64 `json:"marker_width"`
	MarkerHeight float64 `json:"marker_height"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Position struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// Curve returns the start, control and end points of the flight path.
func (g Geometry) Curve() (start, control, end Point) {
	start = Point{X: CurvePadding, Y: g.Height - CurvePadding - g.MarkerHeight}
	control = Point{X: g.Width * controlXRatio, Y: g.Height * controlYRatio}
	end = Point{X: g.Width - CurvePadding - g.MarkerWidth, Y: CurvePadding}
	return start, control, end
}

// Progress maps a multiplier onto [0,1] against the round ceiling.
func Progress(multiplier, maxMultiplier float64) float64 {
	if math.IsNaN(multiplier) || math.IsNaN(maxMultiplier) || maxMultiplier <= 0 {
		return 0
	}
	var t float64
	if maxMultiplier > 1 {
		t = math.Log(math.Max(multiplier, 1)) / math.Log(math.Max(maxMultiplier, minLogCeiling))
	} else {
		t = multiplier / maxMultiplier
	}
	return clamp(t, 0, 1)
}

func EaseOutCubic(p float64) float64 {
	p = clamp(p, 0, 1)
	inv := 1 - p
	return 1 - inv*inv*inv
}

// Interpolate evaluates the quadratic Bézier at t and the marker tilt there.
func Interpolate(t float64, g Geometry) Position {
	if math.IsNaN(t) {
		t = 0
	}
	t = clamp(t, 0, 1)
	p0, p1, p2 := g.Curve()

	u := 1 - t
	x := u*u*p0.X + 2*u*t*p1.X + t*t*p2.X
	y := u*u*p0.Y + 2*u*t*p1.Y + t*t*p2.Y

	dx := 2*u*(p1.X-p0.X) + 2*t*(p2.X-p1.X)
	dy := 2*u*(p1.Y-p0.Y) + 2*t*(p2.Y-p1.Y)
	angle := -math.Atan2(dy, dx) * 180 / math.Pi * angleScale

	return Position{X: x, Y: y, Angle: clamp(angle, -maxAngleDeg, maxAngleDeg)}
}

// PositionAt is Interpolate driven by a multiplier.
func PositionAt(multiplier, maxMultiplier float64, g Geometry) Position {
	return Interpolate(Progress(multiplier, maxMultiplier), g)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
