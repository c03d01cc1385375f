package render

import (
	"math"
	"math/rand"
)

// Hand-drawn stroke parameters at ReferenceWidth.
const (
	StrokeWidth         = 2.0
	bowing              = 1.5
	maxRandomnessOffset = 2.0
)

// Polyline is a sequence of connected points.
type Polyline []Point

// sketcher turns exact geometry into hand-drawn polylines.
//
// Every shape gets its own sketcher seeded from the operation id, so the
// same shape always sketches the same way no matter what was drawn before.
type sketcher struct {
	rnd       *rand.Rand
	roughness float64
	scale     float64
}

func newSketcher(seed int64, roughness, scale float64) *sketcher {
	return &sketcher{
		rnd:       rand.New(rand.NewSource(seed)),
		roughness: roughness,
		scale:     scale,
	}
}

// jitter returns a random offset in [-max, max] scaled by roughness.
func (s *sketcher) jitter(max float64) float64 {
	return (s.rnd.Float64()*2 - 1) * max * s.roughness
}

// Line sketches the segment a-b as two slightly different passes.
// Roughness 0 yields the exact segment.
func (s *sketcher) Line(a, b Point) []Polyline {
	if a.Dist(b) < 1e-6 {
		return nil
	}
	if s.roughness == 0 {
		return []Polyline{{a, b}}
	}
	return []Polyline{s.linePass(a, b, 1), s.linePass(a, b, 0.5)}
}

func (s *sketcher) linePass(a, b Point, gain float64) Polyline {
	length := a.Dist(b)

	offset := maxRandomnessOffset * s.scale
	if offset*10 > length {
		offset = length / 10
	}
	offset *= gain

	// Bow the stroke sideways, proportional to its length
	nx, ny := -(b.Y-a.Y)/length, (b.X-a.X)/length
	bow := s.jitter(bowing*maxRandomnessOffset*s.scale*length/200) * gain

	diverge := 0.2 + s.rnd.Float64()*0.2
	m1 := a.Lerp(b, diverge)
	m2 := a.Lerp(b, 2*diverge)

	start := Point{a.X + s.jitter(offset), a.Y + s.jitter(offset)}
	c1 := Point{m1.X + nx*bow + s.jitter(offset), m1.Y + ny*bow + s.jitter(offset)}
	c2 := Point{m2.X + nx*bow + s.jitter(offset), m2.Y + ny*bow + s.jitter(offset)}
	end := Point{b.X + s.jitter(offset), b.Y + s.jitter(offset)}

	return cubicBezier(start, c1, c2, end, clampInt(int(length/8), 4, 24))
}

// Ellipse sketches a circle of diameter d around c.
func (s *sketcher) Ellipse(c Point, d float64) []Polyline {
	r := d / 2
	if r < 0.5 {
		return nil
	}
	steps := ringSteps(r)
	if s.roughness == 0 {
		return []Polyline{circlePolygon(c, r, steps, 0, 2*math.Pi)}
	}
	return []Polyline{s.ellipsePass(c, r, steps, 1), s.ellipsePass(c, r, steps, 1.5)}
}

func (s *sketcher) ellipsePass(c Point, r float64, steps int, gain float64) Polyline {
	start := s.rnd.Float64() * 2 * math.Pi
	overlap := 0.1 + s.rnd.Float64()*0.3
	radius := r + s.jitter(r*0.05)*gain
	wobble := maxRandomnessOffset * s.scale * 0.5 * gain

	pts := make(Polyline, 0, steps+2)
	sweep := 2*math.Pi + overlap
	for i := 0; i <= steps; i++ {
		a := start + sweep*float64(i)/float64(steps)
		rr := radius + s.jitter(wobble)
		pts = append(pts, Point{X: c.X + rr*math.Cos(a), Y: c.Y + rr*math.Sin(a)})
	}
	return pts
}

// Rect sketches an axis-aligned rectangle as four independent edges.
func (s *sketcher) Rect(min Point, w, h float64) []Polyline {
	if w < 1e-6 && h < 1e-6 {
		return nil
	}
	tl, tr := min, Point{min.X + w, min.Y}
	br, bl := Point{min.X + w, min.Y + h}, Point{min.X, min.Y + h}

	var out []Polyline
	for _, edge := range [][2]Point{{tl, tr}, {tr, br}, {br, bl}, {bl, tl}} {
		out = append(out, s.Line(edge[0], edge[1])...)
	}
	return out
}

func circlePolygon(c Point, r float64, steps int, from, sweep float64) Polyline {
	pts := make(Polyline, 0, steps+1)
	for i := 0; i <= steps; i++ {
		a := from + sweep*float64(i)/float64(steps)
		pts = append(pts, Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)})
	}
	return pts
}

func rectPolygon(min Point, w, h float64) Polyline {
	return Polyline{min, {min.X + w, min.Y}, {min.X + w, min.Y + h}, {min.X, min.Y + h}}
}

func ringSteps(r float64) int {
	return clampInt(int(2*math.Pi*r/6), 12, 90)
}

func cubicBezier(p0, p1, p2, p3 Point, n int) Polyline {
	pts := make(Polyline, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		u := 1 - t
		a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
		pts = append(pts, Point{
			X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
			Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
		})
	}
	return pts
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
