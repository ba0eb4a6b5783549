package ledmatrix

import (
	"fmt"
	"sync"
)

// Panel is a chain of LED modules driven through a Backend. It owns two
// canvases: one is displayed, the other is handed out for drawing.
type Panel struct {
	cfg     PanelConfig
	backend Backend

	mu        sync.Mutex
	buffers   [2]*Canvas
	displayed *Canvas
	offscreen *Canvas
	closed    bool
}

// NewPanel validates cfg, initializes the backend and allocates the two
// frame buffers. An invalid config fails before the backend is touched.
func NewPanel(cfg PanelConfig, backend Backend) (*Panel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, &BackendError{Op: "initialize", Err: fmt.Errorf("no backend")}
	}

	if err := backend.Initialize(cfg); err != nil {
		return nil, &BackendError{Op: "initialize", Err: err}
	}

	p := &Panel{
		cfg:     cfg,
		backend: backend,
		buffers: [2]*Canvas{
			newCanvas(cfg.Width(), cfg.Height()),
			newCanvas(cfg.Width(), cfg.Height()),
		},
	}
	p.offscreen = p.buffers[0]
	return p, nil
}

// Config returns the validated configuration
func (p *Panel) Config() PanelConfig {
	return p.cfg
}

// OffscreenCanvas returns the buffer that is not being displayed
func (p *Panel) OffscreenCanvas() *Canvas {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offscreen
}

// Displayed returns the buffer shown by the last successful Swap, or nil
// before the first one
func (p *Panel) Displayed() *Canvas {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.displayed
}

// Swap presents drawn and returns the other buffer, which the caller may
// draw into next. The caller must stop using drawn.
//
// If the backend fails to present, nothing changes: drawn is returned
// along with a *BackendError and can be swapped again.
//
// Swapping a canvas that does not belong to the panel, or the one that is
// currently displayed, panics.
func (p *Panel) Swap(drawn *Canvas) (*Canvas, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if drawn != p.buffers[0] && drawn != p.buffers[1] {
		panic("ledmatrix: Swap called with a canvas not owned by this panel")
	}
	if drawn == p.displayed {
		panic("ledmatrix: Swap called with the displayed canvas")
	}
	if p.closed {
		return drawn, &BackendError{Op: "present", Err: fmt.Errorf("panel closed")}
	}

	if err := p.backend.Present(drawn); err != nil {
		return drawn, &BackendError{Op: "present", Err: err}
	}

	next := p.buffers[0]
	if drawn == p.buffers[0] {
		next = p.buffers[1]
	}
	p.displayed = drawn
	p.offscreen = next
	return next, nil
}

// Close shuts the backend down. Further swaps fail.
func (p *Panel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.backend.Close(); err != nil {
		return &BackendError{Op: "close", Err: err}
	}
	return nil
}
