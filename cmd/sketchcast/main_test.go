package main

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/sketchcast/internal/scene"
)

const sampleScene = `{
  "title": "centre",
  "narration_text": "A circle, then its name.",
  "audio": "narration.wav",
  "canvas_operations": [
    {"id": "c1", "type": "draw_circle", "delay_ms": 0, "duration_ms": 1000, "x": 88, "y": 50, "width": 20},
    {"id": "l1", "type": "write_label", "delay_ms": 1200, "duration_ms": 500, "x": 88, "y": 60, "label": "Center"},
    {"id": "bad", "type": "draw_line", "delay_ms": 0, "points": [1, 2]}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "scene.json", sampleScene)

	out, err := execute(t, "validate", path)
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "[+++]") || !strings.Contains(out, "3 operations") {
		t.Errorf("Unexpected output:\n%s", out)
	}
	if !strings.Contains(out, `"bad"`) {
		t.Errorf("Malformed operation should be reported:\n%s", out)
	}
}

func TestValidateCommandInvalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "broken.json", `{"canvas_operations": [{"id": "", "type": "draw_star"}]}`)

	out, err := execute(t, "validate", path)
	if !errors.Is(err, scene.ErrInvalidScript) {
		t.Fatalf("Expected ErrInvalidScript, got %v", err)
	}
	if !strings.Contains(out, "draw_star") || !strings.Contains(out, "id is empty") {
		t.Errorf("Every problem should be listed:\n%s", out)
	}
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "scene.json", sampleScene)

	out, err := execute(t, "inspect", "--at", "500", path)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	for _, id := range []string{"c1", "l1"} {
		if !strings.Contains(out, id) {
			t.Errorf("Timeline should list %s:\n%s", id, out)
		}
	}
}

func TestFrameCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "scene.json", sampleScene)
	target := filepath.Join(dir, "f.png")

	if out, err := execute(t, "frame", "--at", "1700", "--width", "320", "--out", target, path); err != nil {
		t.Fatalf("frame failed: %v\n%s", err, out)
	}

	f, err := os.Open(target)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 180 {
		t.Errorf("Expected 320x180, got %v", b)
	}
}

func TestLatestSceneFromConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	scenes := filepath.Join(dir, "scenes")
	if err := os.Mkdir(scenes, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, scenes, "lesson.json", sampleScene)
	writeFile(t, dir, "sketchcast.yaml", "input:\n  scene_dir: scenes\n")

	out, err := execute(t, "validate")
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "lesson.json") {
		t.Errorf("Newest scene should be selected:\n%s", out)
	}
}

func TestSceneAudio(t *testing.T) {
	tests := []struct {
		audio string
		want  string
	}{
		{"", ""},
		{"https://cdn.example.com/a.mp3", ""},
		{"narration.wav", filepath.Join("input", "scenes", "narration.wav")},
		{"/abs/a.wav", "/abs/a.wav"},
	}
	for _, tt := range tests {
		got := sceneAudio(filepath.Join("input", "scenes", "s.json"), &scene.Scene{Audio: tt.audio})
		if got != tt.want {
			t.Errorf("sceneAudio(%q) = %q, want %q", tt.audio, got, tt.want)
		}
	}
}

func TestFrameCommandQR(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "scene.json", sampleScene)
	target := filepath.Join(dir, "poster.png")

	if out, err := execute(t, "frame", "--at", "1700", "--qr", "--out", target, path); err != nil {
		t.Fatalf("frame --qr failed: %v\n%s", err, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatal(err)
	}

	silent := writeFile(t, dir, "silent.json", strings.Replace(sampleScene, `"audio": "narration.wav",`, "", 1))
	if _, err := execute(t, "frame", "--qr", "--out", target, silent); err == nil {
		t.Error("Expected an error for --qr without an audio handle")
	}
}
