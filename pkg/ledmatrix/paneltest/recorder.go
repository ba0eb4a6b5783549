// Package paneltest provides a recording ledmatrix.Backend for tests.
package paneltest

import (
	"errors"
	"sync"

	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
)

// ErrInjected is the default error returned by injected failures
var ErrInjected = errors.New("injected backend failure")

// Frame is a copy of a presented canvas
type Frame struct {
	Seq    int
	Width  int
	Height int
	Pixels []ledmatrix.Color
	// Source is the canvas that was presented, for identity checks only
	Source *ledmatrix.Canvas
}

// At returns the recorded color at (x, y)
func (f Frame) At(x, y int) ledmatrix.Color {
	return f.Pixels[y*f.Width+x]
}

// Lit counts pixels that are not black
func (f Frame) Lit() int {
	n := 0
	for _, p := range f.Pixels {
		if p != ledmatrix.Black {
			n++
		}
	}
	return n
}

// Recorder records every frame it is asked to present
type Recorder struct {
	// Keep limits how many frames are retained; 0 keeps all
	Keep int

	mu          sync.Mutex
	cfg         ledmatrix.PanelConfig
	initialized int
	presents    int
	frames      []Frame
	sources     map[*ledmatrix.Canvas]struct{}
	initErr     error
	failures    []error
	closed      bool
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{sources: make(map[*ledmatrix.Canvas]struct{})}
}

// FailInitialize makes the next Initialize return err
func (r *Recorder) FailInitialize(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initErr = err
}

// FailPresent makes the next n Present calls fail with err (ErrInjected
// when err is nil)
func (r *Recorder) FailPresent(n int, err error) {
	if err == nil {
		err = ErrInjected
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < n; i++ {
		r.failures = append(r.failures, err)
	}
}

// Initialize implements ledmatrix.Backend
func (r *Recorder) Initialize(cfg ledmatrix.PanelConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initErr != nil {
		err := r.initErr
		r.initErr = nil
		return err
	}
	r.cfg = cfg
	r.initialized++
	return nil
}

// Present implements ledmatrix.Backend
func (r *Recorder) Present(frame *ledmatrix.Canvas) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.presents++
	if len(r.failures) > 0 {
		err := r.failures[0]
		r.failures = r.failures[1:]
		return err
	}

	f := Frame{
		Seq:    r.presents,
		Width:  frame.Width(),
		Height: frame.Height(),
		Pixels: make([]ledmatrix.Color, 0, frame.Width()*frame.Height()),
		Source: frame,
	}
	for y := 0; y < frame.Height(); y++ {
		f.Pixels = append(f.Pixels, frame.Row(y)...)
	}
	if r.sources == nil {
		r.sources = make(map[*ledmatrix.Canvas]struct{})
	}
	r.sources[frame] = struct{}{}

	r.frames = append(r.frames, f)
	if r.Keep > 0 && len(r.frames) > r.Keep {
		r.frames = r.frames[len(r.frames)-r.Keep:]
	}
	return nil
}

// Close implements ledmatrix.Backend
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Config returns the configuration passed to Initialize
func (r *Recorder) Config() ledmatrix.PanelConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Initialized returns how many times Initialize succeeded
func (r *Recorder) Initialized() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// Presents returns how many times Present was called, failures included
func (r *Recorder) Presents() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presents
}

// Frames returns the retained frames, oldest first
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Last returns the most recent frame
func (r *Recorder) Last() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}

// Sources returns the distinct canvases that have been presented
func (r *Recorder) Sources() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}

// Closed reports whether Close was called
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
