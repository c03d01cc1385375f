package render

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"

	"github.com/ivlev/sketchcast/internal/logger"
	"github.com/ivlev/sketchcast/internal/scene"
)

const (
	// LabelSize is the label font size in pixels at ReferenceWidth.
	LabelSize = 24.0

	GridColumns = 18
	GridRows    = 10
)

var (
	DefaultBackground = MustPaint("#0a0a0a")
	gridPaint         = MustPaint("rgba(255, 255, 255, 0.05)")
)

var labelFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(gobold.TTF)
})

// Renderer draws frames onto a Surface. A Renderer caches font faces and is
// not safe for concurrent use; give each goroutine its own.
type Renderer struct {
	background Paint
	faces      map[int]font.Face
	log        *logrus.Entry
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBackground sets the colour the surface is cleared to.
func WithBackground(p Paint) Option {
	return func(r *Renderer) { r.background = p }
}

// WithLogger sets the logger used for skipped operations.
func WithLogger(l *logrus.Entry) Option {
	return func(r *Renderer) { r.log = l }
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		background: DefaultBackground,
		faces:      make(map[int]font.Face),
		log:        logger.WithField("component", "render"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Background returns the clear colour.
func (r *Renderer) Background() Paint { return r.background }

// NewSurface allocates a surface cleared to the renderer's background.
func (r *Renderer) NewSurface(size Size) (*Surface, error) {
	return NewSurface(size, r.background)
}

// RenderFrame draws sc as it looks at timeMs. The surface is fully cleared
// first, so the result never depends on earlier calls.
func (r *Renderer) RenderFrame(s *Surface, sc *scene.Scene, timeMs float64) (Frame, error) {
	if s == nil {
		return Frame{}, fmt.Errorf("%w: no surface", ErrSurfaceUnavailable)
	}
	if err := s.Size().Validate(); err != nil {
		return Frame{}, err
	}

	frame := Compose(sc, timeMs, s.Size())
	r.Paint(s, frame)

	for _, err := range frame.Skipped {
		r.log.WithField("t_ms", timeMs).Debugf("skipping %v", err)
	}
	for _, w := range frame.Warnings {
		r.log.WithField("t_ms", timeMs).Debug(w)
	}
	return frame, nil
}

// Paint draws an already composed frame.
func (r *Renderer) Paint(s *Surface, f Frame) {
	s.Clear()
	drawGrid(s)

	for _, sh := range f.Shapes {
		r.drawShape(s, sh)
	}
}

func drawGrid(s *Surface) {
	w, h := s.size.Width, s.size.Height
	for i := 0; i <= GridColumns; i++ {
		x := int(math.Round(float64(i) * float64(w) / GridColumns))
		if x >= w {
			x = w - 1
		}
		s.FillRect(image.Rect(x, 0, x+1, h), gridPaint)
	}
	for i := 0; i <= GridRows; i++ {
		y := int(math.Round(float64(i) * float64(h) / GridRows))
		if y >= h {
			y = h - 1
		}
		s.FillRect(image.Rect(0, y, w, y+1), gridPaint)
	}
}

func (r *Renderer) drawShape(s *Surface, sh Shape) {
	scale := s.size.Scale()
	width := math.Max(1, StrokeWidth*scale)
	sketch := func() *sketcher { return newSketcher(sh.Seed, sh.Roughness, scale) }

	var strokes []Polyline
	switch sh.Kind {
	case scene.KindClear:
		if sh.Wipe {
			s.Clear()
		}
		return

	case scene.KindCircle:
		if sh.Diameter >= 1 {
			s.FillPolygon(circlePolygon(sh.Center, sh.Diameter/2, ringSteps(sh.Diameter/2), 0, 2*math.Pi), sh.Fill)
		}
		strokes = sketch().Ellipse(sh.Center, sh.Diameter)

	case scene.KindRect:
		if sh.Width >= 1 && sh.Height >= 1 {
			s.FillPolygon(rectPolygon(sh.Origin, sh.Width, sh.Height), sh.Fill)
		}
		strokes = sketch().Rect(sh.Origin, sh.Width, sh.Height)

	case scene.KindLine, scene.KindArrow:
		strokes = sketch().Line(sh.From, sh.To)
		for _, head := range sh.Heads {
			strokes = append(strokes, sketch().Line(head[0], head[1])...)
		}

	case scene.KindLabel:
		s.DrawText(r.face(scale), sh.Label, sh.Origin, sh.Stroke)
		return
	}

	for _, pl := range strokes {
		s.StrokePolyline(pl, width, sh.Stroke)
	}
}

// face returns the bold label face for the given canvas scale.
func (r *Renderer) face(scale float64) font.Face {
	px := int(math.Round(LabelSize * scale))
	if px < 1 {
		px = 1
	}
	if f, ok := r.faces[px]; ok {
		return f
	}

	f, err := labelFont()
	if err != nil {
		r.log.Errorf("label font unavailable: %v", err)
		return nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		r.log.Errorf("label face %dpx: %v", px, err)
		return nil
	}
	r.faces[px] = face
	return face
}
