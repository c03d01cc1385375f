package render

import (
	"fmt"
	"math"

	"github.com/ivlev/sketchcast/internal/scene"
)

// ReferenceWidth is the canvas width the pixel constants (stroke width,
// arrowhead length, label size) are tuned for.
const ReferenceWidth = 1200

// Size is a drawing surface size in pixels. Height is always Width*9/16.
type Size struct {
	Width  int
	Height int
}

// SizeForWidth returns the 16:9 size with the given width.
func SizeForWidth(width int) Size {
	return Size{Width: width, Height: width * 9 / 16}
}

// Validate fails with ErrSurfaceUnavailable for sizes that cannot be drawn to.
func (s Size) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrSurfaceUnavailable, s.Width, s.Height)
	}
	if s.Height != s.Width*9/16 {
		return fmt.Errorf("%w: size %dx%d is not 16:9 (want height %d)", ErrSurfaceUnavailable, s.Width, s.Height, s.Width*9/16)
	}
	return nil
}

// Scale is the ratio between this size and the reference canvas.
func (s Size) Scale() float64 {
	return float64(s.Width) / ReferenceWidth
}

// Point is a position in pixel space.
type Point struct {
	X, Y float64
}

// Lerp moves from p toward q by t.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{X: lerp(p.X, q.X, t), Y: lerp(p.Y, q.Y, t)}
}

// Dist is the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Mapper converts the 177x100 logical grid into pixels. Each axis has its own
// scale: widths follow X, heights follow Y.
type Mapper struct {
	width  float64
	height float64
}

// NewMapper creates a Mapper for the given surface size.
func NewMapper(size Size) Mapper {
	return Mapper{width: float64(size.Width), height: float64(size.Height)}
}

// X maps a logical x coordinate or width.
func (m Mapper) X(x float64) float64 {
	return x / scene.LogicalWidth * m.width
}

// Y maps a logical y coordinate or height.
func (m Mapper) Y(y float64) float64 {
	return y / scene.LogicalHeight * m.height
}

// Point maps a logical position.
func (m Mapper) Point(x, y float64) Point {
	return Point{X: m.X(x), Y: m.Y(y)}
}
