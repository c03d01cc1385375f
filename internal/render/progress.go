package render

import (
	"math"

	"github.com/fogleman/ease"

	"github.com/ivlev/sketchcast/internal/scene"
)

const (
	// ArrowHeadStart is the linear progress after which arrowheads appear.
	ArrowHeadStart = 0.8
	// ArrowHeadLength is the full head stroke length at ReferenceWidth.
	ArrowHeadLength = 15.0
	// ArrowHeadAngle is the rotation of each head stroke off the shaft.
	ArrowHeadAngle = math.Pi / 6

	// wipeWindowMs is how long after its delay a clear operation keeps wiping.
	wipeWindowMs = 100.0
)

// Progress is the animation state of one operation at a point in time.
type Progress struct {
	Elapsed float64 // ms since the operation's delay
	Linear  float64 // clamp(elapsed/duration, 0, 1)
	Eased   float64 // cubic ease-out of Linear
}

// ProgressAt computes the progress of op at timeMs. Nothing is cached:
// the result depends only on the operation and the time.
func ProgressAt(op scene.Operation, timeMs float64) Progress {
	elapsed := timeMs - op.DelayMs
	linear := clamp01(elapsed / op.Duration())
	return Progress{
		Elapsed: elapsed,
		Linear:  linear,
		Eased:   Eased(linear),
	}
}

// Eased is the cubic ease-out 1-(1-p)^3 used for every growing primitive.
func Eased(linear float64) float64 {
	return ease.OutCubic(clamp01(linear))
}

// ArrowHeadScale is the fraction of the full arrowhead length at the given
// linear progress: 0 up to ArrowHeadStart, then growing linearly to 1.
func ArrowHeadScale(linear float64) float64 {
	if linear <= ArrowHeadStart {
		return 0
	}
	return math.Min(1, (linear-ArrowHeadStart)/(1-ArrowHeadStart))
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
