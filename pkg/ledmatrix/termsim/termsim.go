// Package termsim is a ledmatrix.Backend that draws the panel in a
// terminal. Each character cell shows two vertically stacked pixels with
// the upper half block glyph.
package termsim

import (
	"errors"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
)

const halfBlock = '▀'

// Backend renders frames with tcell
type Backend struct {
	mu        sync.Mutex
	screen    tcell.Screen
	newScreen func() (tcell.Screen, error)
	cfg       ledmatrix.PanelConfig
	ready     bool
	quit      chan struct{}
	quitOnce  sync.Once
}

// Option configures a Backend
type Option func(*Backend)

// WithScreen uses an existing screen instead of opening the terminal
func WithScreen(s tcell.Screen) Option {
	return func(b *Backend) {
		b.newScreen = func() (tcell.Screen, error) { return s, nil }
	}
}

// New creates a terminal backend
func New(opts ...Option) *Backend {
	b := &Backend{
		newScreen: tcell.NewScreen,
		quit:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Initialize implements ledmatrix.Backend
func (b *Backend) Initialize(cfg ledmatrix.PanelConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		return errors.New("terminal backend already initialized")
	}

	screen, err := b.newScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	screen.HideCursor()
	screen.Clear()

	b.screen = screen
	b.cfg = cfg
	b.ready = true

	go b.pollEvents(screen)
	return nil
}

// Quit is closed when the user presses q, Escape or Ctrl-C. The terminal
// is in raw mode, so these never arrive as signals.
func (b *Backend) Quit() <-chan struct{} {
	return b.quit
}

func (b *Backend) pollEvents(screen tcell.Screen) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		switch e := ev.(type) {
		case *tcell.EventKey:
			if e.Key() == tcell.KeyEscape || e.Key() == tcell.KeyCtrlC || (e.Key() == tcell.KeyRune && e.Rune() == 'q') {
				b.quitOnce.Do(func() { close(b.quit) })
			}
		case *tcell.EventResize:
			screen.Sync()
		}
	}
}

// Present implements ledmatrix.Backend
func (b *Backend) Present(frame *ledmatrix.Canvas) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return errors.New("terminal backend not initialized")
	}

	for y := 0; y < frame.Height(); y += 2 {
		for x := 0; x < frame.Width(); x++ {
			upper := frame.Pixel(x, y)
			lower := ledmatrix.Black
			if y+1 < frame.Height() {
				lower = frame.Pixel(x, y+1)
			}
			b.screen.SetContent(x, y/2, halfBlock, nil, cellStyle(upper, lower))
		}
	}
	b.screen.Show()
	return nil
}

// Close implements ledmatrix.Backend and restores the terminal
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return nil
	}
	b.ready = false
	b.screen.Fini()
	return nil
}

func cellStyle(upper, lower ledmatrix.Color) tcell.Style {
	return tcell.StyleDefault.
		Foreground(tcellColor(upper)).
		Background(tcellColor(lower))
}

func tcellColor(c ledmatrix.Color) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

var _ ledmatrix.Backend = (*Backend)(nil)
