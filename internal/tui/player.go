package tui

import (
	"fmt"
	"image/color"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ivlev/sketchcast/internal/logger"
	"github.com/ivlev/sketchcast/internal/playback"
	"github.com/ivlev/sketchcast/internal/render"
	"github.com/ivlev/sketchcast/internal/scene"
)

type action int

const (
	actNone action = iota
	actToggle
	actSkipBack
	actSkipForward
	actRestart
	actMute
	actQuit
)

// Options configure a Player.
type Options struct {
	Skip       time.Duration // arrow key jump
	Tick       time.Duration // time update interval while playing
	Background render.Paint
	Audio      *playback.StreamSource // nil plays silently on the wall clock
	Title      string
}

// Player draws a scene into a terminal with half-block cells: every cell
// shows two vertically stacked pixels.
type Player struct {
	screen  tcell.Screen
	scene   *scene.Scene
	opts    Options
	session *playback.Session
	muted   bool
}

func NewPlayer(screen tcell.Screen, sc *scene.Scene, opts Options) (*Player, error) {
	if opts.Skip <= 0 {
		opts.Skip = 5 * time.Second
	}
	if opts.Tick <= 0 {
		opts.Tick = 33 * time.Millisecond
	}
	if opts.Background == (render.Paint{}) {
		opts.Background = render.DefaultBackground
	}

	p := &Player{screen: screen, scene: sc, opts: opts}

	var src playback.Source = playback.NewWallSource()
	if opts.Audio != nil {
		src = opts.Audio
	}

	w, h := screen.Size()
	session, err := playback.NewSession(sc, fitSize(w, h), src, render.WithBackground(opts.Background))
	if err != nil {
		return nil, err
	}
	p.session = session
	return p, nil
}

// Session exposes the underlying playback session.
func (p *Player) Session() *playback.Session { return p.session }

// Run plays until the user quits. The screen must already be initialised.
func (p *Player) Run() error {
	ticker := time.NewTicker(p.opts.Tick)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := p.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-quit:
				return
			}
		}
	}()

	if err := p.session.Play(); err != nil {
		logger.Warnf("start playback: %v", err)
	}
	p.Draw()

	for {
		select {
		case ev := <-eventChan:
			if !p.HandleEvent(ev) {
				p.session.Pause()
				return nil
			}
			p.Draw()

		case <-ticker.C:
			if !p.session.Playing() {
				continue
			}
			if err := p.session.Sync(); err != nil {
				logger.Warnf("time update: %v", err)
			}
			p.Draw()
		}
	}
}

// HandleEvent applies one terminal event. It returns false when the player
// should exit.
func (p *Player) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return p.apply(keyAction(ev))
	case *tcell.EventResize:
		p.screen.Sync()
		p.resize()
	}
	return true
}

func (p *Player) apply(a action) bool {
	var err error
	skip := float64(p.opts.Skip / time.Millisecond)

	switch a {
	case actQuit:
		return false
	case actToggle:
		err = p.session.Toggle()
	case actSkipBack:
		err = p.session.Skip(-skip)
	case actSkipForward:
		err = p.session.Skip(skip)
	case actRestart:
		err = p.session.Restart()
	case actMute:
		p.muted = !p.muted
		if p.opts.Audio != nil {
			p.opts.Audio.SetMuted(p.muted)
		}
	}
	if err != nil {
		logger.Warnf("player: %v", err)
	}
	return true
}

func keyAction(ev *tcell.EventKey) action {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return actQuit
	case tcell.KeyLeft:
		return actSkipBack
	case tcell.KeyRight:
		return actSkipForward
	case tcell.KeyRune:
		switch ev.Rune() {
		case ' ':
			return actToggle
		case 'q', 'Q':
			return actQuit
		case 'r', 'R':
			return actRestart
		case 'm', 'M':
			return actMute
		}
	}
	return actNone
}

func (p *Player) resize() {
	w, h := p.screen.Size()
	size := fitSize(w, h)
	if size == p.session.Surface().Size() {
		return
	}
	r := render.NewRenderer(render.WithBackground(p.opts.Background))
	surface, err := r.NewSurface(size)
	if err != nil {
		logger.Warnf("resize to %dx%d: %v", w, h, err)
		return
	}
	if err := p.session.SetSurface(surface); err != nil {
		logger.Warnf("redraw after resize: %v", err)
	}
}

// minWidth keeps the picture drawable on tiny terminals.
const minWidth = 16

// fitSize is the largest 16:9 pixel size that fits cols x (rows-1) cells,
// two pixels per cell vertically, keeping the last row for the status line.
func fitSize(cols, rows int) render.Size {
	maxH := (rows - 1) * 2
	w := cols
	if w*9/16 > maxH {
		w = maxH * 16 / 9
	}
	if w < minWidth {
		w = minWidth
	}
	return render.SizeForWidth(w)
}

// Draw copies the current frame to the screen and updates the status line.
func (p *Player) Draw() {
	p.screen.Clear()

	img := p.session.Surface().Image()
	size := p.session.Surface().Size()
	dim := 0.0
	if !p.session.Playing() {
		dim = 0.25
	}

	cols, rows := p.screen.Size()
	for y := 0; y*2 < size.Height && y < rows-1; y++ {
		for x := 0; x < size.Width && x < cols; x++ {
			top := cellColor(img.RGBAAt(x, y*2), dim)
			bottom := top
			if y*2+1 < size.Height {
				bottom = cellColor(img.RGBAAt(x, y*2+1), dim)
			}
			p.screen.SetContent(x, y, '▀', nil, tcell.StyleDefault.Foreground(top).Background(bottom))
		}
	}

	p.drawStatus(rows - 1)
	p.screen.Show()
}

var black = colorful.Color{}

// cellColor converts a pixel to a terminal colour, blended toward black by dim.
func cellColor(c color.RGBA, dim float64) tcell.Color {
	cf, _ := colorful.MakeColor(c)
	if dim > 0 {
		cf = cf.BlendRgb(black, dim)
	}
	r, g, b := cf.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func (p *Player) drawStatus(row int) {
	icon := "▶"
	if !p.session.Playing() {
		icon = "❚❚"
	}
	audio := "no audio"
	if p.opts.Audio != nil {
		audio = "audio"
		if p.muted {
			audio = "muted"
		}
	}

	status := fmt.Sprintf(" %s %s / %s  [%s]  space play/pause  ←/→ %s  r restart  m mute  q quit",
		icon, FormatTime(p.session.CurrentMs()), FormatTime(p.session.TotalMs()), audio, p.opts.Skip)
	if p.opts.Title != "" {
		status = " " + p.opts.Title + " |" + status
	}

	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDarkSlateGray)
	cols, _ := p.screen.Size()
	x := 0
	for _, r := range status {
		if x >= cols {
			break
		}
		p.screen.SetContent(x, row, r, nil, style)
		x++
	}
	for ; x < cols; x++ {
		p.screen.SetContent(x, row, ' ', nil, style)
	}
}

// FormatTime renders milliseconds as m:ss.
func FormatTime(ms float64) string {
	if ms < 0 {
		ms = 0
	}
	secs := int(ms / 1000)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
