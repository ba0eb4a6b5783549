package ledmatrix_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix/paneltest"
)

func newTestPanel(t *testing.T, cfg ledmatrix.PanelConfig) (*ledmatrix.Panel, *paneltest.Recorder) {
	t.Helper()
	rec := paneltest.NewRecorder()
	p, err := ledmatrix.NewPanel(cfg, rec)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, rec
}

func TestNewPanel(t *testing.T) {
	tests := []struct {
		name          string
		modify        func(*ledmatrix.PanelConfig)
		width, height int
	}{
		{name: "default sign", modify: func(c *ledmatrix.PanelConfig) {}, width: 128, height: 32},
		{name: "single module", modify: func(c *ledmatrix.PanelConfig) { c.ChainLength = 1 }, width: 32, height: 32},
		{name: "16 rows", modify: func(c *ledmatrix.PanelConfig) { c.Rows = 16; c.ChainLength = 2 }, width: 64, height: 16},
		{name: "64 wide modules", modify: func(c *ledmatrix.PanelConfig) { c.Cols = 64; c.Rows = 64 }, width: 256, height: 64},
		{name: "regular mapping", modify: func(c *ledmatrix.PanelConfig) { c.HardwareMapping = ledmatrix.MappingRegular }, width: 128, height: 32},
		{name: "max pwm bits", modify: func(c *ledmatrix.PanelConfig) { c.PWMBits = ledmatrix.MaxPWMBits }, width: 128, height: 32},
		{name: "no slowdown", modify: func(c *ledmatrix.PanelConfig) { c.GPIOSlowdown = 0 }, width: 128, height: 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ledmatrix.DefaultPanelConfig()
			tt.modify(&cfg)

			p, rec := newTestPanel(t, cfg)
			assert.Equal(t, 1, rec.Initialized())
			assert.Equal(t, cfg, rec.Config())
			assert.Equal(t, cfg, p.Config())

			c := p.OffscreenCanvas()
			require.NotNil(t, c)
			assert.Equal(t, tt.width, c.Width())
			assert.Equal(t, tt.height, c.Height())
			assert.Nil(t, p.Displayed())
		})
	}
}

func TestNewPanelInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		modify func(*ledmatrix.PanelConfig)
	}{
		{"unknown mapping", "hardware_mapping", func(c *ledmatrix.PanelConfig) { c.HardwareMapping = "pi5-pio" }},
		{"empty mapping", "hardware_mapping", func(c *ledmatrix.PanelConfig) { c.HardwareMapping = "" }},
		{"zero rows", "rows", func(c *ledmatrix.PanelConfig) { c.Rows = 0 }},
		{"zero cols", "cols", func(c *ledmatrix.PanelConfig) { c.Cols = 0 }},
		{"zero chain", "chain_length", func(c *ledmatrix.PanelConfig) { c.ChainLength = 0 }},
		{"negative chain", "chain_length", func(c *ledmatrix.PanelConfig) { c.ChainLength = -2 }},
		{"zero pwm bits", "pwm_bits", func(c *ledmatrix.PanelConfig) { c.PWMBits = 0 }},
		{"too many pwm bits", "pwm_bits", func(c *ledmatrix.PanelConfig) { c.PWMBits = 12 }},
		{"zero lsb", "pwm_lsb_nanoseconds", func(c *ledmatrix.PanelConfig) { c.PWMLSBNanoseconds = 0 }},
		{"negative slowdown", "gpio_slowdown", func(c *ledmatrix.PanelConfig) { c.GPIOSlowdown = -1 }},
		{"zero brightness", "brightness", func(c *ledmatrix.PanelConfig) { c.Brightness = 0 }},
		{"brightness over 100", "brightness", func(c *ledmatrix.PanelConfig) { c.Brightness = 101 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ledmatrix.DefaultPanelConfig()
			tt.modify(&cfg)

			rec := paneltest.NewRecorder()
			p, err := ledmatrix.NewPanel(cfg, rec)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, ledmatrix.ErrInvalidConfig))

			var ce *ledmatrix.ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)

			// the backend is never touched for a bad config
			assert.Equal(t, 0, rec.Initialized())
		})
	}
}

func TestNewPanelBackendFailure(t *testing.T) {
	rec := paneltest.NewRecorder()
	rec.FailInitialize(errors.New("gpio chip busy"))

	p, err := ledmatrix.NewPanel(ledmatrix.DefaultPanelConfig(), rec)
	require.Error(t, err)
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, ledmatrix.ErrBackend))
	assert.False(t, errors.Is(err, ledmatrix.ErrInvalidConfig))

	var be *ledmatrix.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "initialize", be.Op)

	_, err = ledmatrix.NewPanel(ledmatrix.DefaultPanelConfig(), nil)
	assert.True(t, errors.Is(err, ledmatrix.ErrBackend))
}

func TestSwap(t *testing.T) {
	p, rec := newTestPanel(t, ledmatrix.DefaultPanelConfig())

	a := p.OffscreenCanvas()
	a.SetPixel(3, 4, ledmatrix.Red)

	b, err := p.Swap(a)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.NotSame(t, a, b, "swap must return the other buffer")
	assert.Same(t, a, p.Displayed())
	assert.Same(t, b, p.OffscreenCanvas())

	frame, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, ledmatrix.Red, frame.At(3, 4))
	assert.Equal(t, 1, frame.Lit())
	assert.Same(t, a, frame.Source)

	// drawing into the returned buffer does not alter what was presented
	b.Fill(ledmatrix.Green)
	frame, _ = rec.Last()
	assert.Equal(t, ledmatrix.Black, frame.At(0, 0))

	c, err := p.Swap(b)
	require.NoError(t, err)
	assert.Same(t, a, c, "buffers alternate")
	assert.Same(t, b, p.Displayed())
	assert.Equal(t, 2, rec.Presents())
}

func TestSwapPresentFailure(t *testing.T) {
	p, rec := newTestPanel(t, ledmatrix.DefaultPanelConfig())

	a := p.OffscreenCanvas()
	b, err := p.Swap(a)
	require.NoError(t, err)

	rec.FailPresent(1, nil)
	b.SetPixel(0, 0, ledmatrix.White)

	got, err := p.Swap(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledmatrix.ErrBackend))
	assert.True(t, errors.Is(err, paneltest.ErrInjected))
	assert.Same(t, b, got, "failed swap hands the drawn canvas back")
	assert.Same(t, a, p.Displayed(), "failed swap keeps the displayed buffer")
	assert.Same(t, b, p.OffscreenCanvas())
	assert.Equal(t, ledmatrix.White, b.Pixel(0, 0), "failed swap keeps the drawn pixels")

	// retrying the same canvas succeeds
	next, err := p.Swap(got)
	require.NoError(t, err)
	assert.Same(t, a, next)

	frame, _ := rec.Last()
	assert.Equal(t, ledmatrix.White, frame.At(0, 0))
}

func TestSwapPanics(t *testing.T) {
	p, _ := newTestPanel(t, ledmatrix.DefaultPanelConfig())
	other, _ := newTestPanel(t, ledmatrix.DefaultPanelConfig())

	assert.Panics(t, func() { p.Swap(other.OffscreenCanvas()) }, "foreign canvas")
	assert.Panics(t, func() { p.Swap(nil) }, "nil canvas")

	a := p.OffscreenCanvas()
	_, err := p.Swap(a)
	require.NoError(t, err)
	assert.Panics(t, func() { p.Swap(a) }, "displayed canvas")
}

func TestSwapLoopUsesTwoBuffers(t *testing.T) {
	f, err := ledmatrix.LoadFont("testdata/test5x7.bdf")
	require.NoError(t, err)

	p, rec := newTestPanel(t, ledmatrix.DefaultPanelConfig())
	rec.Keep = 1

	c := p.OffscreenCanvas()
	for i := 0; i < 255; i++ {
		c.Clear()
		c.DrawText(f, "TEST", 10, 20, ledmatrix.Blue, 0, false)
		c, err = p.Swap(c)
		require.NoError(t, err)
	}

	assert.Equal(t, 255, rec.Presents())
	assert.Equal(t, 2, rec.Sources(), "no third buffer is ever presented")

	frame, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, 55, frame.Lit())
	assert.Equal(t, 128, frame.Width)
	assert.Equal(t, 32, frame.Height)
}

func TestPanelClose(t *testing.T) {
	rec := paneltest.NewRecorder()
	p, err := ledmatrix.NewPanel(ledmatrix.DefaultPanelConfig(), rec)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.True(t, rec.Closed())
	require.NoError(t, p.Close(), "close is idempotent")

	c := p.OffscreenCanvas()
	got, err := p.Swap(c)
	assert.True(t, errors.Is(err, ledmatrix.ErrBackend))
	assert.Same(t, c, got)
	assert.Equal(t, 0, rec.Presents())
}
