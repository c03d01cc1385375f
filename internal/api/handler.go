package api

import (
	"bytes"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ivlev/sketchcast/internal/logger"
	"github.com/ivlev/sketchcast/internal/playback"
	"github.com/ivlev/sketchcast/internal/render"
	"github.com/ivlev/sketchcast/internal/report"
	"github.com/ivlev/sketchcast/internal/scene"
)

// MinWidth is the narrowest frame the server renders.
const MinWidth = 16

const (
	DefaultMaxSessions = 16
	DefaultSessionTTL  = 10 * time.Minute
)

type Options struct {
	Width      int // default frame width
	MaxWidth   int
	Background render.Paint

	MaxSessions int           // live sessions; the least recently used is evicted past it
	SessionTTL  time.Duration // idle sessions older than this are dropped

	now func() time.Time
}

type sessionEntry struct {
	session  *playback.Session
	lastUsed time.Time
}

// Handler serves one scene: stateless frames by time, and playback sessions
// that keep their own clock.
type Handler struct {
	scene *scene.Scene
	opts  Options

	renderers sync.Pool

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionEntry
}

func NewHandler(sc *scene.Scene, opts Options) *Handler {
	if opts.Width <= 0 {
		opts.Width = render.ReferenceWidth
	}
	if opts.MaxWidth < opts.Width {
		opts.MaxWidth = opts.Width
	}
	if opts.Background == (render.Paint{}) {
		opts.Background = render.DefaultBackground
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.now == nil {
		opts.now = time.Now
	}

	h := &Handler{
		scene:    sc,
		opts:     opts,
		sessions: make(map[uuid.UUID]*sessionEntry),
	}
	h.renderers.New = func() interface{} {
		return render.NewRenderer(render.WithBackground(opts.Background))
	}
	return h
}

// GetScene returns the scene with its computed timing.
func (h *Handler) GetScene(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"scene":    h.scene,
		"end_ms":   h.scene.EndMs(),
		"total_ms": playback.TotalDuration(h.scene, nil),
	})
}

// GetFrame renders the scene at ?t= (ms) and ?width= as PNG.
func (h *Handler) GetFrame(c *gin.Context) {
	t, err := floatQuery(c, "t", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	size, err := h.sizeQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r := h.renderers.Get().(*render.Renderer)
	defer h.renderers.Put(r)

	surface, err := r.NewSurface(size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	frame, err := r.RenderFrame(surface, h.scene, t)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("X-Frame-Time-Ms", strconv.FormatFloat(t, 'f', -1, 64))
	c.Header("X-Frame-Shapes", strconv.Itoa(len(frame.Shapes)))
	writePNG(c, surface)
}

// GetTimeline reports every operation's state at ?t=.
func (h *Handler) GetTimeline(c *gin.Context) {
	t, err := floatQuery(c, "t", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	size, _ := h.sizeQuery(c)
	if size.Validate() != nil {
		size = render.SizeForWidth(h.opts.Width)
	}
	c.JSON(http.StatusOK, gin.H{
		"t_ms":       t,
		"operations": report.Timeline(h.scene, t, size),
	})
}

// CreateSession starts a paused playback session on the wall clock.
func (h *Handler) CreateSession(c *gin.Context) {
	size, err := h.sizeQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := playback.NewSession(h.scene, size, playback.NewWallSource(), render.WithBackground(h.opts.Background))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	h.evictLocked()
	h.sessions[s.ID] = &sessionEntry{session: s, lastUsed: h.opts.now()}
	h.mu.Unlock()

	logger.WithField("session", s.ID.String()).Infof("session created (%dx%d)", size.Width, size.Height)
	c.JSON(http.StatusCreated, sessionState(s))
}

// GetSession reports the session clock after a time update.
func (h *Handler) GetSession(c *gin.Context) {
	h.withSession(c, func(s *playback.Session) {
		if err := s.Sync(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sessionState(s))
	})
}

// ControlSession applies play, pause, toggle, restart, seek (?t=) or skip
// (?delta=).
func (h *Handler) ControlSession(c *gin.Context) {
	h.withSession(c, func(s *playback.Session) {
		if err := s.Sync(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var err error
		switch action := c.Param("action"); action {
		case "play":
			err = s.Play()
		case "pause":
			s.Pause()
		case "toggle":
			err = s.Toggle()
		case "restart":
			err = s.Restart()
		case "seek":
			if _, ok := c.GetQuery("t"); !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "seek needs ?t= in milliseconds"})
				return
			}
			var t float64
			if t, err = floatQuery(c, "t", 0); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			err = s.Seek(t)
		case "skip":
			var d float64
			if d, err = floatQuery(c, "delta", 0); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			err = s.Skip(d)
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown action %q", action)})
			return
		}

		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sessionState(s))
	})
}

// GetSessionFrame returns the session's current frame as PNG.
func (h *Handler) GetSessionFrame(c *gin.Context) {
	h.withSession(c, func(s *playback.Session) {
		if err := s.Sync(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("X-Frame-Time-Ms", strconv.FormatFloat(s.CurrentMs(), 'f', -1, 64))
		writePNG(c, s.Surface())
	})
}

// DeleteSession stops and forgets a session.
func (h *Handler) DeleteSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	h.mu.Lock()
	_, exists := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// withSession runs fn with the session locked. Sessions are not safe for
// concurrent use, so requests are serialised.
func (h *Handler) withSession(c *gin.Context, fn func(s *playback.Session)) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.expireLocked()
	entry, exists := h.sessions[id]
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	entry.lastUsed = h.opts.now()
	fn(entry.session)
}

// expireLocked drops sessions idle for longer than the TTL. h.mu must be held.
func (h *Handler) expireLocked() {
	now := h.opts.now()
	for id, entry := range h.sessions {
		if now.Sub(entry.lastUsed) > h.opts.SessionTTL {
			delete(h.sessions, id)
			logger.WithField("session", id.String()).Infof("session expired after %s idle", h.opts.SessionTTL)
		}
	}
}

// evictLocked makes room for one more session, dropping the least recently
// used ones once the table is full. h.mu must be held.
func (h *Handler) evictLocked() {
	h.expireLocked()
	for len(h.sessions) >= h.opts.MaxSessions {
		var (
			oldestID uuid.UUID
			oldest   *sessionEntry
		)
		for id, entry := range h.sessions {
			if oldest == nil || entry.lastUsed.Before(oldest.lastUsed) {
				oldestID, oldest = id, entry
			}
		}
		delete(h.sessions, oldestID)
		logger.WithField("session", oldestID.String()).Infof("session evicted, %d sessions open", h.opts.MaxSessions)
	}
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

func sessionState(s *playback.Session) gin.H {
	return gin.H{
		"id":         s.ID.String(),
		"current_ms": s.CurrentMs(),
		"total_ms":   s.TotalMs(),
		"playing":    s.Playing(),
		"width":      s.Surface().Size().Width,
		"height":     s.Surface().Size().Height,
	}
}

func (h *Handler) sizeQuery(c *gin.Context) (render.Size, error) {
	w := h.opts.Width
	if raw := c.Query("width"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return render.Size{}, fmt.Errorf("width %q is not an integer", raw)
		}
		w = v
	}
	if w < MinWidth || w > h.opts.MaxWidth {
		return render.Size{}, fmt.Errorf("width must be between %d and %d", MinWidth, h.opts.MaxWidth)
	}
	return render.SizeForWidth(w), nil
}

func floatQuery(c *gin.Context, key string, def float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", key, raw)
	}
	return v, nil
}

func writePNG(c *gin.Context, s *render.Surface) {
	var buf bytes.Buffer
	if err := (&png.Encoder{CompressionLevel: png.BestSpeed}).Encode(&buf, s.Image()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
