package export

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/sketchcast/internal/logger"
	"github.com/ivlev/sketchcast/internal/render"
	"github.com/ivlev/sketchcast/internal/scene"
	"github.com/ivlev/sketchcast/internal/system"
)

// Sink receives rendered frames strictly in order. The image is only valid
// for the duration of the call.
type Sink interface {
	WriteFrame(index int, img *image.RGBA) error
	Close() error
}

type Options struct {
	Size       render.Size
	FPS        int
	Workers    int     // 0 asks system.SuggestWorkers
	DurationMs float64 // 0 renders to the scene end plus the playback tail
	Background render.Paint

	// OnFrame is called from the writing goroutine after each frame.
	OnFrame func(done, total int)
}

type Stats struct {
	Frames  int
	Workers int
	Render  time.Duration // time spent inside render workers, summed over batches
	Write   time.Duration
	Total   time.Duration
}

// EffectiveFPS is frames per wall-clock second.
func (s Stats) EffectiveFPS() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Total.Seconds()
}

// Exporter renders a scene frame by frame. Frames are pure functions of
// time, so a batch renders in parallel and is then written in order.
type Exporter struct {
	scene *scene.Scene
	opts  Options
	log   *logrus.Entry
}

func NewExporter(sc *scene.Scene, opts Options) (*Exporter, error) {
	if sc == nil {
		return nil, fmt.Errorf("export: no scene")
	}
	if err := opts.Size.Validate(); err != nil {
		return nil, err
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("export: fps must be positive, got %d", opts.FPS)
	}
	if opts.Workers <= 0 {
		opts.Workers = system.SuggestWorkers(opts.Size)
	}
	if opts.DurationMs <= 0 {
		opts.DurationMs = sc.EndMs() + 1000
	}
	if opts.Background == (render.Paint{}) {
		opts.Background = render.DefaultBackground
	}
	return &Exporter{
		scene: sc,
		opts:  opts,
		log:   logger.WithField("component", "export"),
	}, nil
}

// FrameCount is the number of frames covering [0, DurationMs].
func (e *Exporter) FrameCount() int {
	return int(math.Floor(e.opts.DurationMs*float64(e.opts.FPS)/1000)) + 1
}

// FrameTime is the scene time of frame i.
func (e *Exporter) FrameTime(i int) float64 {
	return float64(i) * 1000 / float64(e.opts.FPS)
}

// Run renders every frame into sink and closes it.
func (e *Exporter) Run(ctx context.Context, sink Sink) (stats Stats, err error) {
	start := time.Now()
	total := e.FrameCount()
	workers := e.opts.Workers
	if workers > total {
		workers = total
	}
	stats.Workers = workers

	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close sink: %w", cerr)
		}
		stats.Total = time.Since(start)
	}()

	e.log.WithFields(logrus.Fields{
		"frames":  total,
		"workers": workers,
		"size":    fmt.Sprintf("%dx%d", e.opts.Size.Width, e.opts.Size.Height),
		"fps":     e.opts.FPS,
	}).Info("export started")

	// One renderer per worker: renderers cache font faces and are not shared
	renderers := make(chan *render.Renderer, workers)
	for i := 0; i < workers; i++ {
		renderers <- render.NewRenderer(render.WithBackground(e.opts.Background), render.WithLogger(e.log))
	}

	batchSize := workers * 2
	batch := make([]*image.RGBA, batchSize)

	for first := 0; first < total; first += batchSize {
		n := batchSize
		if first+n > total {
			n = total - first
		}

		renderStart := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for j := 0; j < n; j++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				r := <-renderers
				defer func() { renderers <- r }()

				img, err := e.renderFrame(r, first+j)
				if err != nil {
					return err
				}
				batch[j] = img
				return nil
			})
		}
		err := g.Wait()
		stats.Render += time.Since(renderStart)
		if err != nil {
			releaseBatch(batch[:n])
			return stats, err
		}

		writeStart := time.Now()
		for j := 0; j < n; j++ {
			if err := sink.WriteFrame(first+j, batch[j]); err != nil {
				releaseBatch(batch[:n])
				return stats, fmt.Errorf("write frame %d: %w", first+j, err)
			}
			stats.Frames++
			if e.opts.OnFrame != nil {
				e.opts.OnFrame(stats.Frames, total)
			}
		}
		stats.Write += time.Since(writeStart)
		releaseBatch(batch[:n])
	}

	e.log.WithField("frames", stats.Frames).Info("export finished")
	return stats, nil
}

func (e *Exporter) renderFrame(r *render.Renderer, i int) (*image.RGBA, error) {
	img := system.GetImage(e.opts.Size)
	surface, err := render.NewSurfaceFrom(img, e.opts.Background)
	if err != nil {
		system.PutImage(img)
		return nil, err
	}
	if _, err := r.RenderFrame(surface, e.scene, e.FrameTime(i)); err != nil {
		system.PutImage(img)
		return nil, fmt.Errorf("render frame %d: %w", i, err)
	}
	return img, nil
}

func releaseBatch(batch []*image.RGBA) {
	for j, img := range batch {
		if img != nil {
			system.PutImage(img)
			batch[j] = nil
		}
	}
}
