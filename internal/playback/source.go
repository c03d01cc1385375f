package playback

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Source is the clock that drives playback. Positions are in milliseconds.
type Source interface {
	// PositionMs reports the current position.
	PositionMs() float64
	// SeekMs moves the position. Implementations clamp to their own range.
	SeekMs(ms float64) error
	// SetPlaying starts or stops the clock.
	SetPlaying(playing bool)
	// LengthMs reports the source length; ok is false for unbounded clocks.
	LengthMs() (ms float64, ok bool)
}

// WallSource is a monotonic wall clock for silent previews.
type WallSource struct {
	now     func() time.Time
	base    float64
	anchor  time.Time
	playing bool
}

// NewWallSource creates a paused clock at 0.
func NewWallSource() *WallSource {
	return NewWallSourceWithClock(time.Now)
}

// NewWallSourceWithClock uses now instead of time.Now.
func NewWallSourceWithClock(now func() time.Time) *WallSource {
	return &WallSource{now: now, anchor: now()}
}

func (w *WallSource) PositionMs() float64 {
	if !w.playing {
		return w.base
	}
	return w.base + float64(w.now().Sub(w.anchor))/float64(time.Millisecond)
}

func (w *WallSource) SeekMs(ms float64) error {
	if ms < 0 {
		ms = 0
	}
	w.base = ms
	w.anchor = w.now()
	return nil
}

func (w *WallSource) SetPlaying(playing bool) {
	if playing == w.playing {
		return
	}
	w.base = w.PositionMs()
	w.anchor = w.now()
	w.playing = playing
}

func (w *WallSource) LengthMs() (float64, bool) { return 0, false }

// StreamSource follows the position of an audio stream. Playback control goes
// through a beep.Ctrl, muting through an effects.Volume; hand Streamer() to
// the speaker.
type StreamSource struct {
	stream beep.StreamSeeker
	rate   beep.SampleRate
	ctrl   *beep.Ctrl
	volume *effects.Volume
	lock   func()
	unlock func()
}

// StreamOption configures a StreamSource.
type StreamOption func(*StreamSource)

// WithLock guards stream access, e.g. with speaker.Lock and speaker.Unlock
// while the speaker goroutine is pulling samples.
func WithLock(lock, unlock func()) StreamOption {
	return func(s *StreamSource) { s.lock, s.unlock = lock, unlock }
}

// NewStreamSource wraps stream, sampled at rate. The source starts paused.
func NewStreamSource(stream beep.StreamSeeker, rate beep.SampleRate, opts ...StreamOption) (*StreamSource, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream source: nil stream")
	}
	if rate <= 0 {
		return nil, fmt.Errorf("stream source: invalid sample rate %d", rate)
	}

	ctrl := &beep.Ctrl{Streamer: stream, Paused: true}
	s := &StreamSource{
		stream: stream,
		rate:   rate,
		ctrl:   ctrl,
		volume: &effects.Volume{Streamer: ctrl, Base: 2},
		lock:   func() {},
		unlock: func() {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Streamer is the sample stream to play.
func (s *StreamSource) Streamer() beep.Streamer { return s.volume }

func (s *StreamSource) PositionMs() float64 {
	s.lock()
	pos := s.stream.Position()
	s.unlock()
	return durationMs(s.rate.D(pos))
}

func (s *StreamSource) SeekMs(ms float64) error {
	s.lock()
	defer s.unlock()

	n := s.rate.N(time.Duration(ms * float64(time.Millisecond)))
	if n < 0 {
		n = 0
	}
	if l := s.stream.Len(); n > l {
		n = l
	}
	if err := s.stream.Seek(n); err != nil {
		return fmt.Errorf("seek audio to %.0fms: %w", ms, err)
	}
	return nil
}

func (s *StreamSource) SetPlaying(playing bool) {
	s.lock()
	s.ctrl.Paused = !playing
	s.unlock()
}

func (s *StreamSource) LengthMs() (float64, bool) {
	return durationMs(s.rate.D(s.stream.Len())), true
}

// SetMuted silences the output without stopping the clock.
func (s *StreamSource) SetMuted(muted bool) {
	s.lock()
	s.volume.Silent = muted
	s.unlock()
}

// Muted reports whether output is silenced.
func (s *StreamSource) Muted() bool {
	s.lock()
	defer s.unlock()
	return s.volume.Silent
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
