package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Canvas.Width != 1200 || cfg.Size().Height != 675 {
		t.Errorf("Expected 1200x675 canvas, got %+v", cfg.Size())
	}
	if cfg.Export.FPS != 30 || cfg.Export.Format != "mp4" || cfg.Export.OutputDir != "output" {
		t.Errorf("Unexpected export defaults: %+v", cfg.Export)
	}
	if cfg.Player.Skip != 5*time.Second {
		t.Errorf("Expected 5s skip, got %v", cfg.Player.Skip)
	}
	if cfg.Server.MaxSessions != 16 || cfg.Server.SessionTTL != 10*time.Minute {
		t.Errorf("Unexpected session limits: %+v", cfg.Server)
	}
	if cfg.Input.SceneDir != "input/scenes" {
		t.Errorf("Expected input/scenes, got %q", cfg.Input.SceneDir)
	}
	if r, g, b := cfg.Background().Color.RGB255(); r != 10 || g != 10 || b != 10 {
		t.Errorf("Expected #0a0a0a background, got %d,%d,%d", r, g, b)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	data := "canvas:\n  width: 640\nexport:\n  fps: 24\n  format: png\nplayer:\n  skip: 2s\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SKETCHCAST_EXPORT_FPS", "60")

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Canvas.Width != 640 || cfg.Export.Format != "png" {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if cfg.Export.FPS != 60 {
		t.Errorf("Environment should override the file, got fps %d", cfg.Export.FPS)
	}
	if cfg.Player.Skip != 2*time.Second {
		t.Errorf("Expected 2s skip, got %v", cfg.Player.Skip)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("An explicit config file that does not exist should fail")
	}

	tests := []struct {
		name string
		key  string
		val  interface{}
		want string
	}{
		{"zero fps", "export.fps", 0, "export.fps"},
		{"bad format", "export.format", "gif", "export.format"},
		{"bad background", "canvas.background", "chartreuse-ish", "canvas.background"},
		{"tiny canvas", "canvas.width", 1, "canvas.width"},
		{"bad log format", "log.format", "xml", "log.format"},
		{"no sessions", "server.max_sessions", 0, "server.max_sessions"},
		{"negative ttl", "server.session_ttl", "-1m", "server.session_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			v := New()
			v.Set(tt.key, tt.val)
			_, err := Load(v, "")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}
