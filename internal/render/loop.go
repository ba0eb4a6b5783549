// Package render drives a Panel: every frame it draws the current content
// into the offscreen canvas and swaps it onto the display.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/fkcurrie/rpi-metro-display/internal/content"
	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
)

// State is the loop's lifecycle state
type State int32

const (
	Idle State = iota
	Rendering
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rendering:
		return "rendering"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// spriteGap is the space between an icon and the text after it
const spriteGap = 2

// Options controls layout and timing
type Options struct {
	// X and Y place the first glyph; Y is the baseline
	X, Y          int
	LetterSpacing int
	Kerning       bool
	FrameInterval time.Duration
	// Frames stops the loop after that many frames; 0 runs until cancelled
	Frames int
	// Scroll moves text wider than the panel ScrollStep pixels per frame
	Scroll     bool
	ScrollStep int
	// MaxPresentAttempts bounds how often one frame is retried when the
	// backend fails to present it
	MaxPresentAttempts int
	RetryBackoff       time.Duration
}

// DefaultOptions matches the sign's test pattern: text at (0, 7), one
// frame per second
func DefaultOptions() Options {
	return Options{
		X:                  0,
		Y:                  7,
		FrameInterval:      time.Second,
		ScrollStep:         1,
		MaxPresentAttempts: 3,
		RetryBackoff:       100 * time.Millisecond,
	}
}

// Loop renders content into a panel
type Loop struct {
	panel *ledmatrix.Panel
	font  *ledmatrix.Font
	slot  *content.Slot
	opts  Options
	log   zerolog.Logger

	state   atomic.Int32
	frames  atomic.Uint64
	running atomic.Bool

	scroll  int
	version uint64
}

// New creates a loop. The font must already be loaded: a loop never
// starts without one.
func New(panel *ledmatrix.Panel, font *ledmatrix.Font, slot *content.Slot, opts Options, log zerolog.Logger) (*Loop, error) {
	if panel == nil {
		return nil, errors.New("render: nil panel")
	}
	if font == nil {
		return nil, &ledmatrix.FontLoadError{Path: "", Err: errors.New("no font")}
	}
	if slot == nil {
		return nil, errors.New("render: nil content slot")
	}
	if opts.Frames < 0 {
		return nil, fmt.Errorf("render: frames must not be negative, got %d", opts.Frames)
	}
	if opts.FrameInterval < 0 {
		return nil, fmt.Errorf("render: frame interval must not be negative, got %s", opts.FrameInterval)
	}
	if opts.MaxPresentAttempts < 1 {
		opts.MaxPresentAttempts = 1
	}
	if opts.ScrollStep < 1 {
		opts.ScrollStep = 1
	}
	return &Loop{panel: panel, font: font, slot: slot, opts: opts, log: log}, nil
}

// State returns the current state
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Frames returns how many frames have been presented
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

// Run renders until ctx is cancelled or the configured number of frames
// has been presented. The state is Rendering from clearing the offscreen
// canvas until it has been swapped, Idle otherwise. Cancellation is
// observed between frames and while waiting, never in the middle of a
// frame. It returns ctx.Err() when cancelled, nil when the frame budget
// is spent, and an error wrapping ledmatrix.ErrBackend when a frame could
// not be presented.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("render: loop already running")
	}
	defer l.running.Store(false)
	defer l.state.Store(int32(Idle))

	l.log.Info().
		Int("width", l.panel.Config().Width()).
		Int("height", l.panel.Config().Height()).
		Str("font", l.font.Name()).
		Int("frames", l.opts.Frames).
		Dur("interval", l.opts.FrameInterval).
		Msg("Render loop started")

	canvas := l.panel.OffscreenCanvas()
	for n := 0; l.opts.Frames == 0 || n < l.opts.Frames; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, version := l.slot.Get()
		if version != l.version {
			l.version = version
			l.scroll = 0
			l.log.Debug().Str("text", item.Text).Uint64("version", version).Msg("Content changed")
		}

		l.state.Store(int32(Rendering))
		canvas.Clear()
		l.draw(canvas, item)

		next, err := l.present(canvas)
		if err != nil {
			return err
		}
		canvas = next
		l.frames.Add(1)
		l.state.Store(int32(Idle))

		if l.opts.Frames != 0 && n+1 == l.opts.Frames {
			break
		}
		if err := sleep(ctx, l.opts.FrameInterval); err != nil {
			return err
		}
	}

	l.log.Info().Uint64("frames", l.Frames()).Msg("Render loop finished")
	return nil
}

// draw lays out one item: the icon at the left edge, the text after it
func (l *Loop) draw(c *ledmatrix.Canvas, item content.Item) {
	x := l.opts.X
	if item.Sprite != nil {
		x += item.Sprite.Width() + spriteGap
	}

	textWidth := l.font.Measure(item.Text, l.opts.LetterSpacing, l.opts.Kerning)
	if l.opts.Scroll && textWidth > c.Width()-x {
		// enter from the right edge, leave past the left one, repeat
		span := textWidth + c.Width() - x
		pos := c.Width() - l.scroll%span
		l.scroll += l.opts.ScrollStep
		x = pos
	}
	c.DrawText(l.font, item.Text, x, l.opts.Y, item.Color, l.opts.LetterSpacing, l.opts.Kerning)

	if item.Sprite != nil {
		c.DrawSprite(item.Sprite, l.opts.X, (c.Height()-item.Sprite.Height())/2)
	}
}

// present swaps c onto the panel, retrying a failed present of the same
// frame up to MaxPresentAttempts times. A frame in progress is never
// abandoned: the backoff ignores cancellation, which Run observes once
// the frame is done.
func (l *Loop) present(c *ledmatrix.Canvas) (*ledmatrix.Canvas, error) {
	var err error
	for attempt := 1; attempt <= l.opts.MaxPresentAttempts; attempt++ {
		var next *ledmatrix.Canvas
		next, err = l.panel.Swap(c)
		if err == nil {
			return next, nil
		}
		l.log.Warn().Err(err).
			Uint64("frame", l.Frames()).
			Int("attempt", attempt).
			Msg("Failed to present frame")

		if attempt == l.opts.MaxPresentAttempts {
			break
		}
		time.Sleep(l.opts.RetryBackoff)
	}
	return nil, fmt.Errorf("frame %d not presented after %d attempts: %w",
		l.Frames(), l.opts.MaxPresentAttempts, err)
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
