package scene

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidScript is returned for scenes that fail structural validation.
// Playback must not start on such a scene.
var ErrInvalidScript = errors.New("invalid script")

// ValidationError lists every structural problem found in a scene.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid script: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidScript
}

// Validate checks the structural shape of the scene. Missing per-kind
// geometry is not checked here: the renderer skips such operations frame by
// frame instead of rejecting the whole script.
func Validate(s *Scene) error {
	if s == nil {
		return &ValidationError{Problems: []string{"scene is nil"}}
	}

	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if s.Operations == nil {
		addf("canvas_operations is missing")
	}

	seen := make(map[string]int, len(s.Operations))
	for i, op := range s.Operations {
		ref := fmt.Sprintf("operation %d (%q)", i, op.ID)

		if op.ID == "" {
			addf("operation %d: id is empty", i)
		} else if prev, dup := seen[op.ID]; dup {
			addf("%s: id duplicates operation %d", ref, prev)
		} else {
			seen[op.ID] = i
		}

		if !op.Kind.Valid() {
			addf("%s: unknown type %q", ref, op.Kind)
		}

		if !finite(op.DelayMs) || op.DelayMs < 0 {
			addf("%s: delay_ms must be a non-negative number, got %v", ref, op.DelayMs)
		}
		if op.DurationMs != nil && (!finite(*op.DurationMs) || *op.DurationMs < 0) {
			addf("%s: duration_ms must be a positive number, got %v", ref, *op.DurationMs)
		}
		if op.Roughness != nil && (!finite(*op.Roughness) || *op.Roughness < 0) {
			addf("%s: roughness must be a non-negative number, got %v", ref, *op.Roughness)
		}

		fields := []struct {
			name string
			v    *float64
		}{{"x", op.X}, {"y", op.Y}, {"width", op.Width}, {"height", op.Height}}
		for _, f := range fields {
			if f.v != nil && !finite(*f.v) {
				addf("%s: %s is not a finite number", ref, f.name)
			}
		}
		for j, p := range op.Points {
			if !finite(p) {
				addf("%s: points[%d] is not a finite number", ref, j)
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
