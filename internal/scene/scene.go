package scene

import "math"

// Kind is the primitive type of a canvas operation.
type Kind string

const (
	KindCircle Kind = "draw_circle"
	KindRect   Kind = "draw_rect"
	KindLine   Kind = "draw_line"
	KindArrow  Kind = "draw_arrow"
	KindLabel  Kind = "write_label"
	KindClear  Kind = "clear"
)

// Kinds lists every kind accepted by the validator.
var Kinds = []Kind{KindCircle, KindRect, KindLine, KindArrow, KindLabel, KindClear}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

const (
	LogicalWidth  = 177.0
	LogicalHeight = 100.0

	DefaultDurationMs = 800.0
	DefaultStroke     = "#4ADE80"
	DefaultFill       = "transparent"
	DefaultRoughness  = 0.5
)

// Scene is the complete script for one generated animation.
// A Scene is built once from producer output and never modified afterwards.
type Scene struct {
	Title         string      `json:"title" yaml:"title"`
	NarrationText string      `json:"narration_text" yaml:"narration_text"`
	Audio         string      `json:"audio,omitempty" yaml:"audio,omitempty"` // Opaque playable handle (URL or path)
	Operations    []Operation `json:"canvas_operations" yaml:"canvas_operations"`
}

// Operation is one timed drawing instruction.
//
// Fields that do not apply to the operation's kind are nil; an absent key
// and an explicit null decode to the same value.
type Operation struct {
	ID         string    `json:"id" yaml:"id"`
	DelayMs    float64   `json:"delay_ms" yaml:"delay_ms"`
	DurationMs *float64  `json:"duration_ms" yaml:"duration_ms"`
	Kind       Kind      `json:"type" yaml:"type"`
	X          *float64  `json:"x" yaml:"x"`
	Y          *float64  `json:"y" yaml:"y"`
	Width      *float64  `json:"width" yaml:"width"`
	Height     *float64  `json:"height" yaml:"height"`
	Points     []float64 `json:"points" yaml:"points"`
	Color      *string   `json:"color" yaml:"color"`
	Fill       *string   `json:"fill" yaml:"fill"`
	Roughness  *float64  `json:"roughness" yaml:"roughness"`
	Label      *string   `json:"label" yaml:"label"`
}

// Duration returns the animation span in milliseconds. Unset and zero
// durations fall back to DefaultDurationMs.
func (op Operation) Duration() float64 {
	if op.DurationMs == nil || *op.DurationMs == 0 {
		return DefaultDurationMs
	}
	return *op.DurationMs
}

// EndMs is the time at which the operation reaches full visual completion.
func (op Operation) EndMs() float64 {
	return op.DelayMs + op.Duration()
}

// StrokeColor returns the stroke colour, DefaultStroke when unset or empty.
func (op Operation) StrokeColor() string {
	if op.Color == nil || *op.Color == "" {
		return DefaultStroke
	}
	return *op.Color
}

// FillColor returns the fill colour, DefaultFill when unset or empty.
func (op Operation) FillColor() string {
	if op.Fill == nil || *op.Fill == "" {
		return DefaultFill
	}
	return *op.Fill
}

// RoughnessOrDefault keeps an explicit 0 (precise strokes) and only
// substitutes DefaultRoughness when the field is null.
func (op Operation) RoughnessOrDefault() float64 {
	if op.Roughness == nil {
		return DefaultRoughness
	}
	return *op.Roughness
}

// LabelText returns the label or an empty string.
func (op Operation) LabelText() string {
	if op.Label == nil {
		return ""
	}
	return *op.Label
}

// EndMs is the time at which the last operation finishes animating.
func (s *Scene) EndMs() float64 {
	end := 0.0
	for _, op := range s.Operations {
		end = math.Max(end, op.EndMs())
	}
	return end
}

// Float returns a pointer to v. Handy for building scenes in code.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
