package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// ErrSurfaceUnavailable means the drawing surface could not be acquired or
// has an unusable size. It is fatal for one render call only.
var ErrSurfaceUnavailable = errors.New("surface unavailable")

// Surface is a raster drawing target owned by a single renderer.
type Surface struct {
	img        *image.RGBA
	size       Size
	ras        *vector.Rasterizer
	background image.Image
}

// NewSurface allocates a surface of the given size.
func NewSurface(size Size, background Paint) (*Surface, error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}
	return NewSurfaceFrom(image.NewRGBA(image.Rect(0, 0, size.Width, size.Height)), background)
}

// NewSurfaceFrom wraps an existing image, e.g. one taken from an image pool.
func NewSurfaceFrom(img *image.RGBA, background Paint) (*Surface, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrSurfaceUnavailable)
	}
	b := img.Bounds()
	if b.Min != (image.Point{}) {
		return nil, fmt.Errorf("%w: image origin %v", ErrSurfaceUnavailable, b.Min)
	}
	size := Size{Width: b.Dx(), Height: b.Dy()}
	if err := size.Validate(); err != nil {
		return nil, err
	}

	return &Surface{
		img:        img,
		size:       size,
		ras:        vector.NewRasterizer(size.Width, size.Height),
		background: image.NewUniform(background.NRGBA()),
	}, nil
}

// Image exposes the backing pixels.
func (s *Surface) Image() *image.RGBA { return s.img }

// Size returns the surface size.
func (s *Surface) Size() Size { return s.size }

// Clear replaces every pixel with the background colour.
func (s *Surface) Clear() {
	draw.Draw(s.img, s.img.Bounds(), s.background, image.Point{}, draw.Src)
}

// StrokePolyline draws pl as a stroke of the given pixel width. Each segment
// becomes its own quad; all quads share the same winding so overlaps at the
// joints do not cancel out.
func (s *Surface) StrokePolyline(pl Polyline, width float64, p Paint) {
	if len(pl) < 2 || !p.Visible() {
		return
	}

	half := width / 2
	quads := make([]Polyline, 0, len(pl)-1)
	for i := 1; i < len(pl); i++ {
		a, b := pl[i-1], pl[i]
		length := a.Dist(b)
		if length < 1e-9 {
			continue
		}
		nx, ny := -(b.Y-a.Y)/length*half, (b.X-a.X)/length*half
		quads = append(quads, Polyline{
			{a.X + nx, a.Y + ny},
			{b.X + nx, b.Y + ny},
			{b.X - nx, b.Y - ny},
			{a.X - nx, a.Y - ny},
		})
	}
	s.fillPaths(quads, p)
}

// FillPolygon fills the closed polygon pl.
func (s *Surface) FillPolygon(pl Polyline, p Paint) {
	if len(pl) < 3 || !p.Visible() {
		return
	}
	s.fillPaths([]Polyline{pl}, p)
}

// FillRect blends p over the pixel rectangle r.
func (s *Surface) FillRect(r image.Rectangle, p Paint) {
	if !p.Visible() {
		return
	}
	draw.Draw(s.img, r.Intersect(s.img.Bounds()), image.NewUniform(p.NRGBA()), image.Point{}, draw.Over)
}

// fillPaths rasterizes closed paths inside their bounding box only, so the
// cost follows the shape's size rather than the surface's.
func (s *Surface) fillPaths(paths []Polyline, p Paint) {
	box := s.bounds(paths)
	if box.Empty() {
		return
	}

	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	s.ras.Reset(box.Dx(), box.Dy())
	for _, pl := range paths {
		if len(pl) < 3 {
			continue
		}
		s.ras.MoveTo(f32(pl[0].X-ox), f32(pl[0].Y-oy))
		for _, pt := range pl[1:] {
			s.ras.LineTo(f32(pt.X-ox), f32(pt.Y-oy))
		}
		s.ras.ClosePath()
	}
	s.ras.DrawOp = draw.Over
	s.ras.Draw(s.img, box, image.NewUniform(p.NRGBA()), image.Point{})
}

// bounds is the pixel box covering every point of paths, clipped to the surface.
func (s *Surface) bounds(paths []Polyline) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pl := range paths {
		for _, pt := range pl {
			minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
			minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
		}
	}
	if minX > maxX || minY > maxY {
		return image.Rectangle{}
	}

	w, h := float64(s.size.Width), float64(s.size.Height)
	box := image.Rect(
		int(math.Floor(clampTo(minX, -1, w+1))),
		int(math.Floor(clampTo(minY, -1, h+1))),
		int(math.Ceil(clampTo(maxX, -1, w+1))),
		int(math.Ceil(clampTo(maxY, -1, h+1))),
	)
	return box.Intersect(s.img.Bounds())
}

func clampTo(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// DrawText draws text with its baseline starting at at.
func (s *Surface) DrawText(face font.Face, text string, at Point, p Paint) {
	if text == "" || face == nil || !p.Visible() {
		return
	}
	d := font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(p.NRGBA()),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(math.Round(at.X * 64)), Y: fixed.Int26_6(math.Round(at.Y * 64))},
	}
	d.DrawString(text)
}

func f32(v float64) float32 { return float32(v) }
