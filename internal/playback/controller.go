package playback

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/sketchcast/internal/logger"
	"github.com/ivlev/sketchcast/internal/render"
	"github.com/ivlev/sketchcast/internal/scene"
)

// TailMs is added after the last operation when no audio sets the length.
const TailMs = 1000.0

// Controller owns the playback position and re-renders the scene every time
// it changes. It is not safe for concurrent use.
type Controller struct {
	scene    *scene.Scene
	renderer *render.Renderer
	surface  *render.Surface
	source   Source

	currentMs float64
	totalMs   float64
	playing   bool

	frame   render.Frame
	stale   bool // last render failed, retry on the next time update
	onFrame func(render.Frame)
	log     *logrus.Entry
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithFrameHook is called after every successful render.
func WithFrameHook(fn func(render.Frame)) ControllerOption {
	return func(c *Controller) { c.onFrame = fn }
}

// WithControllerLogger replaces the default logger.
func WithControllerLogger(l *logrus.Entry) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// NewController creates a paused controller at 0. Nothing is drawn until the
// first time change or an explicit Render.
func NewController(sc *scene.Scene, r *render.Renderer, s *render.Surface, src Source, opts ...ControllerOption) *Controller {
	if src == nil {
		src = NewWallSource()
	}
	if r == nil {
		r = render.NewRenderer()
	}
	c := &Controller{
		scene:    sc,
		renderer: r,
		surface:  s,
		source:   src,
		log:      logger.WithField("component", "playback"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.totalMs = TotalDuration(sc, src)
	return c
}

// TotalDuration is the audio length when the source has one, otherwise the
// scene's natural end plus TailMs.
func TotalDuration(sc *scene.Scene, src Source) float64 {
	if src != nil {
		if ms, ok := src.LengthMs(); ok && ms > 0 {
			return ms
		}
	}
	if sc == nil {
		return TailMs
	}
	return sc.EndMs() + TailMs
}

func (c *Controller) CurrentMs() float64       { return c.currentMs }
func (c *Controller) TotalMs() float64         { return c.totalMs }
func (c *Controller) Playing() bool            { return c.playing }
func (c *Controller) Scene() *scene.Scene      { return c.scene }
func (c *Controller) Source() Source           { return c.source }
func (c *Controller) Frame() render.Frame      { return c.frame }
func (c *Controller) Surface() *render.Surface { return c.surface }

// Ended reports whether the position reached the total duration.
func (c *Controller) Ended() bool { return c.currentMs >= c.totalMs }

// Play starts the clock. Playing from the end starts over.
func (c *Controller) Play() error {
	var err error
	if c.Ended() {
		err = c.Seek(0)
	}
	c.playing = true
	c.source.SetPlaying(true)
	return err
}

// Pause stops the clock. The position and the drawn frame stay as they are.
func (c *Controller) Pause() {
	c.playing = false
	c.source.SetPlaying(false)
}

// Toggle switches between playing and paused.
func (c *Controller) Toggle() error {
	if c.playing {
		c.Pause()
		return nil
	}
	return c.Play()
}

// Seek moves to ms, clamped to [0, total], and renders once.
func (c *Controller) Seek(ms float64) error {
	ms = c.clamp(ms)
	if err := c.source.SeekMs(ms); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return c.setTime(ms)
}

// Skip seeks relative to the live source position, which may be ahead of
// the last rendered frame while playing.
func (c *Controller) Skip(deltaMs float64) error {
	return c.Seek(c.clamp(c.source.PositionMs()) + deltaMs)
}

// Restart seeks to 0 and plays.
func (c *Controller) Restart() error {
	if err := c.Seek(0); err != nil {
		return err
	}
	return c.Play()
}

// Sync reacts to a time update: it reads the source and renders if the
// position moved (or the previous render failed). Reaching the end while
// playing pauses.
func (c *Controller) Sync() error {
	pos := c.clamp(c.source.PositionMs())

	var err error
	if pos != c.currentMs || c.stale {
		err = c.setTime(pos)
	}
	if c.playing && c.Ended() {
		c.log.WithField("t_ms", c.currentMs).Debug("playback ended")
		c.Pause()
	}
	return err
}

// Load replaces the scene, pauses and resets to 0.
func (c *Controller) Load(sc *scene.Scene) error {
	c.Pause()
	c.scene = sc
	c.totalMs = TotalDuration(sc, c.source)
	if err := c.source.SeekMs(0); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return c.setTime(0)
}

// SetSurface swaps the drawing target, e.g. after a terminal resize, and
// redraws the current position on it.
func (c *Controller) SetSurface(s *render.Surface) error {
	c.surface = s
	return c.Render()
}

// Render draws the current position again without moving it.
func (c *Controller) Render() error {
	return c.setTime(c.currentMs)
}

func (c *Controller) setTime(ms float64) error {
	c.currentMs = ms

	frame, err := c.renderer.RenderFrame(c.surface, c.scene, ms)
	if err != nil {
		c.stale = true
		c.log.WithField("t_ms", ms).Errorf("render failed: %v", err)
		return fmt.Errorf("render at %.0fms: %w", ms, err)
	}
	c.stale = false
	c.frame = frame
	if c.onFrame != nil {
		c.onFrame(frame)
	}
	return nil
}

func (c *Controller) clamp(ms float64) float64 {
	if math.IsNaN(ms) {
		return 0
	}
	return math.Max(0, math.Min(ms, c.totalMs))
}
