package report

import (
	"strings"
	"testing"

	"github.com/ivlev/sketchcast/internal/render"
	"github.com/ivlev/sketchcast/internal/scene"
)

func timelineScene() *scene.Scene {
	return &scene.Scene{Operations: []scene.Operation{
		{ID: "c1", Kind: scene.KindCircle, DurationMs: scene.Float(1000), X: scene.Float(88), Y: scene.Float(50), Width: scene.Float(20)},
		{ID: "w2", Kind: scene.KindClear, DelayMs: 450},
		{ID: "bad3", Kind: scene.KindLine, Points: []float64{1, 2}},
		{ID: "l4", Kind: scene.KindLabel, DelayMs: 1200, DurationMs: scene.Float(500), X: scene.Float(88), Y: scene.Float(60), Label: scene.String("Center")},
	}}
}

func TestTimeline(t *testing.T) {
	entries := Timeline(timelineScene(), 500, render.SizeForWidth(1200))
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}

	want := []struct {
		status string
		seed   int64
	}{
		{StatusDrawing, 1},
		{StatusWiping, 2},
		{StatusSkipped, 3},
		{StatusPending, 4},
	}
	for i, w := range want {
		if entries[i].Status != w.status {
			t.Errorf("%s: status %q, want %q", entries[i].ID, entries[i].Status, w.status)
		}
		if entries[i].Seed != w.seed {
			t.Errorf("%s: seed %d, want %d", entries[i].ID, entries[i].Seed, w.seed)
		}
	}
	if entries[0].Eased != 0.875 {
		t.Errorf("Expected circle eased 0.875, got %v", entries[0].Eased)
	}
	if entries[2].Problem == "" {
		t.Error("Skipped entry should carry the reason")
	}
	if entries[3].EndMs != 1700 {
		t.Errorf("Expected label end 1700, got %v", entries[3].EndMs)
	}

	done := Timeline(timelineScene(), 2000, render.SizeForWidth(1200))
	if done[0].Status != StatusDone || done[3].Status != StatusDone {
		t.Errorf("Expected everything drawable done at 2000ms, got %+v", done)
	}

	if Timeline(nil, 0, render.SizeForWidth(1200)) != nil {
		t.Error("Expected no entries for a nil scene")
	}
}

func TestRenderTimeline(t *testing.T) {
	out := RenderTimeline(Timeline(timelineScene(), 500, render.SizeForWidth(1200)), 500)

	for _, want := range []string{"c1", "drawing  88%", "wiping", "skipped:", "pending", "1700ms", "4 operations", "At 500ms"} {
		// go-pretty upper-cases headers and footers
		if !strings.Contains(strings.ToLower(out), strings.ToLower(want)) {
			t.Errorf("Expected %q in table:\n%s", want, out)
		}
	}
}
