package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes and validates a scene. format is "json" or "yaml"; an empty
// format is treated as JSON, the producer's wire format.
func Parse(data []byte, format string) (*Scene, error) {
	var s Scene
	if err := decode(data, format, &s); err != nil {
		return nil, err
	}

	// The typed decode cannot tell an absent delay_ms from 0
	var keys sentKeys
	if err := decode(data, format, &keys); err != nil {
		return nil, err
	}
	var missing []string
	for i, op := range keys.Operations {
		if op.DelayMs == nil && i < len(s.Operations) {
			missing = append(missing, fmt.Sprintf("operation %d (%q): delay_ms is required", i, s.Operations[i].ID))
		}
	}

	err := Validate(&s)
	if len(missing) > 0 {
		var verr *ValidationError
		if errors.As(err, &verr) {
			missing = append(verr.Problems, missing...)
		}
		return nil, &ValidationError{Problems: missing}
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// sentKeys picks out required keys that have a usable zero value.
type sentKeys struct {
	Operations []struct {
		DelayMs *float64 `json:"delay_ms" yaml:"delay_ms"`
	} `json:"canvas_operations" yaml:"canvas_operations"`
}

func decode(data []byte, format string, v any) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%w: decode yaml: %v", ErrInvalidScript, err)
		}
	case "", "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("%w: decode json: %v", ErrInvalidScript, err)
		}
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrInvalidScript, format)
	}
	return nil
}

// ReadScene reads a scene file, picking the decoder from the extension.
func ReadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, formatOf(path))
}

// WriteScene writes a scene to a JSON or YAML file depending on the extension.
func WriteScene(s *Scene, path string) error {
	var (
		data []byte
		err  error
	)
	if formatOf(path) == "yaml" {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
