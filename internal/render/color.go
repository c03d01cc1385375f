package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Paint is a colour plus opacity. The zero Paint is fully transparent.
type Paint struct {
	Color colorful.Color
	Alpha float64
}

// Visible reports whether drawing with p changes any pixel.
func (p Paint) Visible() bool {
	return p.Alpha > 0
}

// WithAlpha scales the paint's opacity by a.
func (p Paint) WithAlpha(a float64) Paint {
	p.Alpha *= clamp01(a)
	return p
}

// NRGBA converts the paint into a non-premultiplied stdlib colour.
func (p Paint) NRGBA() color.NRGBA {
	r, g, b := p.Color.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(clamp01(p.Alpha)*255 + 0.5)}
}

var namedColors = map[string]string{
	"white":   "#ffffff",
	"black":   "#000000",
	"red":     "#ff0000",
	"green":   "#008000",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"orange":  "#ffa500",
	"pink":    "#ffc0cb",
	"purple":  "#800080",
	"gray":    "#808080",
	"grey":    "#808080",
}

// ParsePaint understands the colour syntaxes the script producer emits:
// #rgb, #rrggbb, #rrggbbaa, rgb(r,g,b), rgba(r,g,b,a), a few CSS names and
// "transparent"/"none" (which parse to an invisible Paint).
func ParsePaint(s string) (Paint, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "transparent" || s == "none" {
		return Paint{}, nil
	}
	if hex, ok := namedColors[s]; ok {
		s = hex
	}

	switch {
	case strings.HasPrefix(s, "#"):
		return parseHexPaint(s)
	case strings.HasPrefix(s, "rgba(") || strings.HasPrefix(s, "rgb("):
		return parseFuncPaint(s)
	}
	return Paint{}, fmt.Errorf("unsupported colour %q", s)
}

// MustPaint is ParsePaint for colour constants known to be valid.
func MustPaint(s string) Paint {
	p, err := ParsePaint(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseHexPaint(s string) (Paint, error) {
	alpha := 1.0
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return Paint{}, fmt.Errorf("bad alpha in %q: %w", s, err)
		}
		alpha = float64(a) / 255
		s = s[:7]
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return Paint{}, err
	}
	return Paint{Color: c, Alpha: alpha}, nil
}

func parseFuncPaint(s string) (Paint, error) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if end < open {
		return Paint{}, fmt.Errorf("unterminated colour %q", s)
	}

	parts := strings.Split(s[open+1:end], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Paint{}, fmt.Errorf("colour %q needs 3 or 4 components", s)
	}

	var v [4]float64
	v[3] = 1
	for i, part := range parts {
		part = strings.TrimSpace(part)
		pct := strings.HasSuffix(part, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(part, "%"), 64)
		if err != nil {
			return Paint{}, fmt.Errorf("bad component %q in %q", part, s)
		}
		switch {
		case pct:
			f /= 100
		case i < 3:
			f /= 255
		}
		v[i] = clamp01(f)
	}

	return Paint{Color: colorful.Color{R: v[0], G: v[1], B: v[2]}, Alpha: v[3]}, nil
}
