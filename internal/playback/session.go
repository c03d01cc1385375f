package playback

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/sketchcast/internal/logger"
	"github.com/ivlev/sketchcast/internal/render"
	"github.com/ivlev/sketchcast/internal/scene"
)

// Session is one viewer's playback of a scene: its own surface, renderer
// and controller, tagged with an id for logs and remote control.
type Session struct {
	ID      uuid.UUID
	Started time.Time

	*Controller
}

// NewSession allocates a surface of the given size and a paused controller,
// and draws the first frame.
func NewSession(sc *scene.Scene, size render.Size, src Source, opts ...render.Option) (*Session, error) {
	id := uuid.New()
	log := logger.WithFields(logrus.Fields{"component": "playback", "session": id.String()})

	r := render.NewRenderer(append([]render.Option{render.WithLogger(log)}, opts...)...)
	surface, err := r.NewSurface(size)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:         id,
		Started:    time.Now(),
		Controller: NewController(sc, r, surface, src, WithControllerLogger(log)),
	}
	if err := s.Render(); err != nil {
		return nil, err
	}
	log.WithField("total_ms", s.TotalMs()).Debug("session started")
	return s, nil
}
