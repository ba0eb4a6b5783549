// Package hub75 drives HUB75 LED panels by bit-banging GPIO lines on a
// Raspberry Pi. Present encodes a canvas into bit planes; a dedicated
// refresh goroutine scans the latest encoded frame continuously using
// binary code modulation.
package hub75

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
)

// ErrNotInitialized is returned by Present before Initialize succeeded or
// after Close
var ErrNotInitialized = errors.New("hub75 backend not initialized")

// Backend is a ledmatrix.Backend driving a HUB75 chain through GPIO
type Backend struct {
	chip   string
	driver Driver
	cpu    int
	open   OpenFunc
	wait   func(time.Duration)
	log    zerolog.Logger

	// manual disables the refresh goroutine; scans are driven by the caller
	manual bool

	mu      sync.Mutex
	cfg     ledmatrix.PanelConfig
	sig     signals
	enc     *encoder
	out     PinWriter
	write   func(set, clear uint32) error
	stop    chan struct{}
	done    chan struct{}
	ready   bool
	frame   atomic.Pointer[frame]
	scanErr atomic.Pointer[error]
	scans   atomic.Uint64
}

// Option configures a Backend
type Option func(*Backend)

// WithChip sets the GPIO chip name (default gpiochip0)
func WithChip(chip string) Option {
	return func(b *Backend) { b.chip = chip }
}

// WithDriver selects the GPIO driver (default DriverCdev)
func WithDriver(d Driver) Option {
	return func(b *Backend) { b.driver = d }
}

// WithCPU pins the refresh goroutine's thread to a CPU. Negative leaves
// scheduling to the kernel.
func WithCPU(cpu int) Option {
	return func(b *Backend) { b.cpu = cpu }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// WithOpener replaces the GPIO driver with a custom PinWriter factory
func WithOpener(open OpenFunc) Option {
	return func(b *Backend) { b.open = open }
}

// WithWait replaces the busy-wait used to time bit planes
func WithWait(wait func(time.Duration)) Option {
	return func(b *Backend) { b.wait = wait }
}

// New creates an uninitialized backend
func New(opts ...Option) *Backend {
	b := &Backend{
		chip:   "gpiochip0",
		driver: DriverCdev,
		cpu:    -1,
		wait:   spin,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Initialize implements ledmatrix.Backend. It claims the GPIO lines and
// starts the refresh goroutine.
func (b *Backend) Initialize(cfg ledmatrix.PanelConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		return errors.New("hub75 backend already initialized")
	}

	pinout, ok := cfg.HardwareMapping.Pinout()
	if !ok {
		return &ledmatrix.ConfigError{Field: "hardware_mapping", Value: cfg.HardwareMapping, Reason: "unknown mapping"}
	}
	if cfg.Rows%2 != 0 {
		return &ledmatrix.ConfigError{Field: "rows", Value: cfg.Rows, Reason: "must be even"}
	}
	if limit := 1 << uint(pinout.AddressLines()); cfg.Rows/2 > limit {
		return &ledmatrix.ConfigError{Field: "rows", Value: cfg.Rows,
			Reason: fmt.Sprintf("mapping %s addresses at most %d rows", cfg.HardwareMapping, 2*limit)}
	}

	open := b.open
	if open == nil {
		switch b.driver {
		case DriverCdev:
			open = OpenCdev
		case DriverGPIOMem:
			open = OpenGPIOMem
		default:
			return fmt.Errorf("unknown GPIO driver %q", b.driver)
		}
	}

	out, err := open(b.chip, pinList(pinout))
	if err != nil {
		return err
	}

	b.cfg = cfg
	b.sig = newSignals(pinout)
	b.enc = newEncoder(cfg, b.sig)
	b.out = out
	b.write = b.writer(cfg.GPIOSlowdown)
	b.frame.Store(nil)
	b.scanErr.Store(nil)
	b.ready = true

	b.log.Info().
		Str("mapping", string(cfg.HardwareMapping)).
		Str("driver", string(b.driver)).
		Int("width", cfg.Width()).
		Int("height", cfg.Height()).
		Int("pwm_bits", cfg.PWMBits).
		Msg("HUB75 backend initialized")

	if !b.manual {
		b.stop = make(chan struct{})
		b.done = make(chan struct{})
		go b.refresh(b.stop, b.done)
	}
	return nil
}

// writer returns a write function that repeats each write slowdown extra
// times to give slow panels time to settle
func (b *Backend) writer(slowdown int) func(set, clear uint32) error {
	out := b.out
	return func(set, clear uint32) error {
		for i := 0; i <= slowdown; i++ {
			if err := out.Write(set, clear); err != nil {
				return err
			}
		}
		return nil
	}
}

// Present implements ledmatrix.Backend. The canvas is encoded before
// Present returns and is not referenced afterwards.
func (b *Backend) Present(c *ledmatrix.Canvas) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return ErrNotInitialized
	}
	if errp := b.scanErr.Load(); errp != nil {
		return fmt.Errorf("refresh stopped: %w", *errp)
	}
	if c.Width() != b.cfg.Width() || c.Height() != b.cfg.Height() {
		return fmt.Errorf("canvas is %dx%d, panel is %dx%d",
			c.Width(), c.Height(), b.cfg.Width(), b.cfg.Height())
	}

	b.frame.Store(b.enc.encode(c))
	return nil
}

// Scans returns how many full frame scans have completed
func (b *Backend) Scans() uint64 {
	return b.scans.Load()
}

// Close implements ledmatrix.Backend. It stops the refresh goroutine,
// blanks the panel and releases the GPIO lines.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return nil
	}
	b.ready = false

	if b.stop != nil {
		close(b.stop)
		<-b.done
		b.stop, b.done = nil, nil
	}

	blankErr := b.write(b.sig.oe, b.sig.color|b.sig.clk|b.sig.lat)
	if err := b.out.Close(); err != nil {
		return err
	}
	return blankErr
}

func (b *Backend) refresh(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if b.cpu >= 0 {
		if err := pinToCPU(b.cpu); err != nil {
			b.log.Warn().Err(err).Int("cpu", b.cpu).Msg("Failed to pin refresh thread")
		} else {
			b.log.Debug().Int("cpu", b.cpu).Msg("Refresh thread pinned")
		}
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		f := b.frame.Load()
		if f == nil {
			time.Sleep(time.Millisecond)
			continue
		}
		if err := b.scanOnce(f); err != nil {
			b.log.Error().Err(err).Msg("Refresh failed, panel output stopped")
			b.scanErr.Store(&err)
			return
		}
	}
}

// scanOnce shifts out every scan row of every bit plane once. Plane p is
// lit for pwm_lsb_nanoseconds << p.
func (b *Backend) scanOnce(f *frame) error {
	s := b.sig
	lsb := time.Duration(b.cfg.PWMLSBNanoseconds)

	for row := 0; row < f.scanRows; row++ {
		addr := s.address(row)
		for p := 0; p < f.bits; p++ {
			for _, m := range f.plane(row, p) {
				if err := b.write(m, (s.color&^m)|s.clk); err != nil {
					return err
				}
				if err := b.write(s.clk, 0); err != nil {
					return err
				}
			}
			if err := b.write(s.oe, s.clk); err != nil {
				return err
			}
			if err := b.write(addr, s.addrMask&^addr); err != nil {
				return err
			}
			if err := b.write(s.lat, 0); err != nil {
				return err
			}
			if err := b.write(0, s.lat|s.oe); err != nil {
				return err
			}
			b.wait(lsb << uint(p))
		}
	}
	// blank before the next pass so the last plane is not overexposed
	if err := b.write(s.oe, 0); err != nil {
		return err
	}
	b.scans.Add(1)
	return nil
}

// spin busy-waits for d
func spin(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

var _ ledmatrix.Backend = (*Backend)(nil)
