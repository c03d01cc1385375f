package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"testing"

	"github.com/ivlev/sketchcast/internal/render"
	"github.com/ivlev/sketchcast/internal/scene"
	"github.com/ivlev/sketchcast/internal/video"
)

func exportScene() *scene.Scene {
	return &scene.Scene{Operations: []scene.Operation{
		{ID: "c1", Kind: scene.KindCircle, DurationMs: scene.Float(300), X: scene.Float(88), Y: scene.Float(50), Width: scene.Float(30)},
		{ID: "a2", Kind: scene.KindArrow, DelayMs: 100, DurationMs: scene.Float(300), Points: []float64{20, 20, 60, 60}},
	}}
}

// memorySink keeps a copy of every frame it receives.
type memorySink struct {
	indices []int
	frames  [][]byte
	closed  bool
	failAt  int
}

func (m *memorySink) WriteFrame(i int, img *image.RGBA) error {
	if m.failAt > 0 && i == m.failAt {
		return errors.New("disk full")
	}
	m.indices = append(m.indices, i)
	m.frames = append(m.frames, append([]byte(nil), img.Pix...))
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func TestExporterFrameTimes(t *testing.T) {
	e, err := NewExporter(exportScene(), Options{Size: render.SizeForWidth(160), FPS: 30, Workers: 2})
	if err != nil {
		t.Fatal(err)
	}

	// 400ms scene + 1000ms tail at 30fps: frames at 0 .. 1400ms
	if got := e.FrameCount(); got != 43 {
		t.Errorf("Expected 43 frames, got %d", got)
	}
	if got := e.FrameTime(3); got != 100 {
		t.Errorf("Expected frame 3 at 100ms, got %v", got)
	}
}

func TestExporterRunOrderedAndDeterministic(t *testing.T) {
	sc := exportScene()
	size := render.SizeForWidth(160)

	var progress []int
	e, err := NewExporter(sc, Options{Size: size, FPS: 20, Workers: 3, DurationMs: 500,
		OnFrame: func(done, total int) { progress = append(progress, done) }})
	if err != nil {
		t.Fatal(err)
	}

	sink := &memorySink{}
	stats, err := e.Run(context.Background(), sink)
	if err != nil {
		t.Fatal(err)
	}
	if !sink.closed {
		t.Error("Run must close the sink")
	}
	if stats.Frames != 11 || len(sink.frames) != 11 || len(progress) != 11 {
		t.Fatalf("Expected 11 frames, got stats %d, sink %d, progress %d", stats.Frames, len(sink.frames), len(progress))
	}
	for i, idx := range sink.indices {
		if idx != i {
			t.Fatalf("Frames out of order: %v", sink.indices)
		}
	}

	// Every exported frame matches a direct render at the same instant
	r := render.NewRenderer()
	s, _ := r.NewSurface(size)
	for i, pix := range sink.frames {
		if _, err := r.RenderFrame(s, sc, e.FrameTime(i)); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(pix, s.Image().Pix) {
			t.Errorf("Frame %d differs from a direct render at %vms", i, e.FrameTime(i))
		}
	}
}

func TestExporterErrors(t *testing.T) {
	if _, err := NewExporter(nil, Options{Size: render.SizeForWidth(160), FPS: 30}); err == nil {
		t.Error("Expected an error without a scene")
	}
	if _, err := NewExporter(exportScene(), Options{Size: render.Size{Width: 160, Height: 100}, FPS: 30}); !errors.Is(err, render.ErrSurfaceUnavailable) {
		t.Errorf("Expected ErrSurfaceUnavailable, got %v", err)
	}
	if _, err := NewExporter(exportScene(), Options{Size: render.SizeForWidth(160)}); err == nil {
		t.Error("Expected an error for fps 0")
	}

	e, _ := NewExporter(exportScene(), Options{Size: render.SizeForWidth(160), FPS: 30, Workers: 2})
	sink := &memorySink{failAt: 5}
	if _, err := e.Run(context.Background(), sink); err == nil {
		t.Error("Expected the sink error to stop the export")
	}
	if !sink.closed || len(sink.frames) != 5 {
		t.Errorf("Expected 5 frames written before the failure, got %d", len(sink.frames))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Run(ctx, &memorySink{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestPNGSink(t *testing.T) {
	dir := t.TempDir() + "/frames"
	sink, err := NewPNGSink(dir)
	if err != nil {
		t.Fatal(err)
	}

	e, _ := NewExporter(exportScene(), Options{Size: render.SizeForWidth(160), FPS: 10, Workers: 2, DurationMs: 200})
	if _, err := e.Run(context.Background(), sink); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < e.FrameCount(); i++ {
		f, err := os.Open(sink.FramePath(i))
		if err != nil {
			t.Fatalf("Frame %d missing: %v", i, err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatal(err)
		}
		if img.Bounds().Dx() != 160 || img.Bounds().Dy() != 90 {
			t.Errorf("Frame %d has size %v", i, img.Bounds())
		}
	}
}

// recordingEncoder stands in for ffmpeg.
type recordingEncoder struct {
	params video.EncodeParams
	stream *recordingStream
}

type recordingStream struct {
	frames int
	closed bool
}

func (r *recordingEncoder) Open(_ context.Context, params video.EncodeParams) (video.Stream, error) {
	r.params = params
	r.stream = &recordingStream{}
	return r.stream, nil
}

func (s *recordingStream) WriteFrame(image.Image) error { s.frames++; return nil }
func (s *recordingStream) Close() error                 { s.closed = true; return nil }

func TestVideoSink(t *testing.T) {
	enc := &recordingEncoder{}
	params := video.EncodeParams{Width: 160, Height: 90, FPS: 10, Output: "out.mp4"}
	sink, err := NewVideoSink(context.Background(), enc, params)
	if err != nil {
		t.Fatal(err)
	}

	e, _ := NewExporter(exportScene(), Options{Size: render.SizeForWidth(160), FPS: 10, Workers: 1, DurationMs: 1000})
	if _, err := e.Run(context.Background(), sink); err != nil {
		t.Fatal(err)
	}
	if enc.stream.frames != 11 || !enc.stream.closed {
		t.Errorf("Expected 11 frames and a closed stream, got %d (closed %v)", enc.stream.frames, enc.stream.closed)
	}
}

func TestStampQR(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 360))

	if err := StampQR(img, "https://cdn.example.com/narration.mp3"); err != nil {
		t.Fatal(err)
	}

	side := 360 / 5
	margin := PosterMargin * 640 / 1200
	// The code keeps a white quiet zone, so its corner pixel is white
	corner := img.RGBAAt(640-margin-side, 360-margin-side)
	if corner.R != 255 || corner.G != 255 || corner.B != 255 {
		t.Errorf("Expected white quiet zone at the code corner, got %v", corner)
	}
	if px := img.RGBAAt(0, 0); px.A != 0 {
		t.Errorf("Pixels outside the code must stay untouched, got %v", px)
	}

	if err := StampQR(img, ""); err == nil {
		t.Error("Expected an error for empty content")
	}
	if err := StampQR(image.NewRGBA(image.Rect(0, 0, 32, 18)), "x"); err == nil {
		t.Error("Expected an error for a frame too small for a code")
	}
}
