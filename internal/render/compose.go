package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/ivlev/sketchcast/internal/scene"
)

// ErrMalformedOperation marks an operation that lacks the geometry its kind
// needs. Such operations are skipped for the frame; siblings still draw.
var ErrMalformedOperation = errors.New("malformed operation")

// OperationError describes one skipped operation.
type OperationError struct {
	Index  int
	ID     string
	Kind   scene.Kind
	Reason string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %d (%q, %s): %s", e.Index, e.ID, e.Kind, e.Reason)
}

func (e *OperationError) Unwrap() error {
	return ErrMalformedOperation
}

// Shape is one entry of a frame's display list, with all geometry already
// mapped to pixels and scaled by the operation's progress.
type Shape struct {
	Index     int // position of the operation in the scene
	OpID      string
	Kind      scene.Kind
	Progress  Progress
	Seed      int64
	Roughness float64
	Stroke    Paint
	Fill      Paint

	Center   Point   // draw_circle
	Diameter float64 // draw_circle

	Origin Point   // draw_rect top-left, write_label baseline start
	Width  float64 // draw_rect
	Height float64 // draw_rect

	From, To   Point      // draw_line, draw_arrow: To is the current tip
	Heads      [][2]Point // draw_arrow, empty until the head window opens
	HeadLength float64

	Label string // write_label; Stroke.Alpha already carries the fade-in

	Wipe bool // clear: true while the wipe window is open
}

// Frame is the complete visual state of a scene at one instant.
type Frame struct {
	TimeMs   float64
	Size     Size
	Shapes   []Shape
	Skipped  []error  // *OperationError for each malformed operation
	Warnings []string // recoverable style problems (unparseable colours)
}

// Shape returns the shape drawn for the operation id, if it is active.
func (f Frame) Shape(id string) (Shape, bool) {
	for _, sh := range f.Shapes {
		if sh.OpID == id {
			return sh, true
		}
	}
	return Shape{}, false
}

// Compose computes the display list of sc at timeMs for a surface of the
// given size. It is a pure function of its arguments.
func Compose(sc *scene.Scene, timeMs float64, size Size) Frame {
	frame := Frame{TimeMs: timeMs, Size: size}
	if sc == nil {
		return frame
	}

	m := NewMapper(size)
	scale := size.Scale()
	defaultStroke := MustPaint(scene.DefaultStroke)

	for i, op := range sc.Operations {
		if op.DelayMs > timeMs {
			continue
		}

		sh := Shape{
			Index:     i,
			OpID:      op.ID,
			Kind:      op.Kind,
			Progress:  ProgressAt(op, timeMs),
			Seed:      op.Seed(),
			Roughness: op.RoughnessOrDefault(),
		}

		stroke, err := ParsePaint(op.StrokeColor())
		if err != nil {
			frame.Warnings = append(frame.Warnings, fmt.Sprintf("operation %q: %v, using %s", op.ID, err, scene.DefaultStroke))
			stroke = defaultStroke
		}
		fill, err := ParsePaint(op.FillColor())
		if err != nil {
			frame.Warnings = append(frame.Warnings, fmt.Sprintf("operation %q: %v, not filling", op.ID, err))
			fill = Paint{}
		}
		sh.Stroke, sh.Fill = stroke, fill

		if reason := composeShape(&sh, op, m, scale); reason != "" {
			frame.Skipped = append(frame.Skipped, &OperationError{Index: i, ID: op.ID, Kind: op.Kind, Reason: reason})
			continue
		}
		frame.Shapes = append(frame.Shapes, sh)
	}

	return frame
}

// composeShape fills in the kind-specific geometry. It returns a non-empty
// reason when the operation cannot be drawn.
func composeShape(sh *Shape, op scene.Operation, m Mapper, scale float64) string {
	eased := sh.Progress.Eased

	switch op.Kind {
	case scene.KindClear:
		sh.Wipe = sh.Progress.Elapsed < wipeWindowMs

	case scene.KindCircle:
		if op.X == nil || op.Y == nil || op.Width == nil {
			return "draw_circle needs x, y and width"
		}
		sh.Center = m.Point(*op.X, *op.Y)
		sh.Diameter = m.X(*op.Width) * eased

	case scene.KindRect:
		if op.X == nil || op.Y == nil || op.Width == nil || op.Height == nil {
			return "draw_rect needs x, y, width and height"
		}
		sh.Origin = m.Point(*op.X, *op.Y)
		sh.Width = m.X(*op.Width) * eased
		sh.Height = m.Y(*op.Height) * eased

	case scene.KindLine, scene.KindArrow:
		if len(op.Points) < 4 {
			return fmt.Sprintf("%s needs 4 points, got %d", op.Kind, len(op.Points))
		}
		p1 := m.Point(op.Points[0], op.Points[1])
		p2 := m.Point(op.Points[2], op.Points[3])
		sh.From = p1
		sh.To = p1.Lerp(p2, eased)

		if op.Kind == scene.KindArrow {
			sh.HeadLength = ArrowHeadLength * scale * ArrowHeadScale(sh.Progress.Linear)
			if sh.HeadLength > 0 {
				sh.Heads = arrowHeads(p1, p2, sh.To, sh.HeadLength)
			}
		}

	case scene.KindLabel:
		if op.X == nil || op.Y == nil {
			return "write_label needs x and y"
		}
		sh.Origin = m.Point(*op.X, *op.Y)
		sh.Label = op.LabelText()
		sh.Stroke = sh.Stroke.WithAlpha(eased)

	default:
		return fmt.Sprintf("unknown type %q", op.Kind)
	}

	return ""
}

// arrowHeads returns the two head strokes at tip, each rotated ±30° off the
// direction pointing back along the shaft.
func arrowHeads(p1, p2, tip Point, length float64) [][2]Point {
	angle := math.Atan2(p2.Y-p1.Y, p2.X-p1.X)
	heads := make([][2]Point, 0, 2)
	for _, da := range []float64{-ArrowHeadAngle, ArrowHeadAngle} {
		heads = append(heads, [2]Point{tip, {
			X: tip.X - length*math.Cos(angle+da),
			Y: tip.Y - length*math.Sin(angle+da),
		}})
	}
	return heads
}
