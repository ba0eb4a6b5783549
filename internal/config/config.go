// Package config loads the sign's YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/fkcurrie/rpi-metro-display/internal/render"
	"github.com/fkcurrie/rpi-metro-display/internal/wmata"
	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
)

// Backend names
const (
	BackendHUB75    = "hub75"
	BackendTerminal = "terminal"
	BackendPreview  = "preview"
)

// BuiltinFont selects the compiled-in font instead of a BDF file
const BuiltinFont = "builtin"

// Config represents the application configuration
type Config struct {
	APIKey  string                `yaml:"apikey"`
	Panel   ledmatrix.PanelConfig `yaml:"panel"`
	Backend string                `yaml:"backend"`
	GPIO    GPIOConfig            `yaml:"gpio"`
	Preview PreviewConfig         `yaml:"preview"`
	Font    string                `yaml:"font"`
	Render  RenderConfig          `yaml:"render"`
	Poll    PollConfig            `yaml:"poll"`
	Log     LogConfig             `yaml:"log"`
}

// GPIOConfig configures the hub75 backend's pin access
type GPIOConfig struct {
	Chip   string `yaml:"chip"`
	Driver string `yaml:"driver"` // cdev | gpiomem
	// CPU the refresh thread is pinned to; -1 disables pinning
	CPU int `yaml:"cpu"`
}

// PreviewConfig configures the browser preview backend
type PreviewConfig struct {
	Addr string `yaml:"addr"`
}

// RenderConfig configures what is drawn and how often
type RenderConfig struct {
	Text               string        `yaml:"text"`
	Color              string        `yaml:"color"`
	X                  int           `yaml:"x"`
	Y                  int           `yaml:"y"`
	LetterSpacing      int           `yaml:"letter_spacing"`
	Kerning            bool          `yaml:"kerning"`
	FrameInterval      time.Duration `yaml:"frame_interval"`
	Frames             int           `yaml:"frames"`
	Scroll             bool          `yaml:"scroll"`
	ScrollStep         int           `yaml:"scroll_step"`
	MaxPresentAttempts int           `yaml:"max_present_attempts"`
	RetryBackoff       time.Duration `yaml:"retry_backoff"`
	// Icon is an optional SVG drawn left of the text
	Icon string `yaml:"icon"`
}

// PollConfig configures the WMATA status poller
type PollConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"`
	// Dir receives daily JSON log files; empty disables file logging
	Dir string `yaml:"dir"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	opts := render.DefaultOptions()
	return &Config{
		Panel:   ledmatrix.DefaultPanelConfig(),
		Backend: BackendHUB75,
		GPIO: GPIOConfig{
			Chip:   "gpiochip0",
			Driver: "cdev",
			CPU:    3,
		},
		Preview: PreviewConfig{Addr: "127.0.0.1:8080"},
		Font:    BuiltinFont,
		Render: RenderConfig{
			Text:               "TEST 1 2 3 4 5",
			Color:              "#0000ff",
			X:                  opts.X,
			Y:                  opts.Y,
			FrameInterval:      opts.FrameInterval,
			ScrollStep:         opts.ScrollStep,
			MaxPresentAttempts: opts.MaxPresentAttempts,
			RetryBackoff:       opts.RetryBackoff,
		},
		Poll: PollConfig{
			Interval: time.Minute,
			BaseURL:  wmata.DefaultBaseURL,
			Timeout:  10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
		},
	}
}

// LoadConfig loads the configuration from a file. Missing fields keep
// their defaults; unknown fields are an error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of the defaults
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the application settings. Panel settings are checked
// by ledmatrix.NewPanel.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendHUB75, BackendTerminal, BackendPreview:
	default:
		return fmt.Errorf("backend must be one of %s, %s, %s; got %q",
			BackendHUB75, BackendTerminal, BackendPreview, c.Backend)
	}
	switch c.GPIO.Driver {
	case "cdev", "gpiomem":
	default:
		return fmt.Errorf("gpio.driver must be cdev or gpiomem, got %q", c.GPIO.Driver)
	}
	if c.Backend == BackendPreview && c.Preview.Addr == "" {
		return errors.New("preview.addr is required for the preview backend")
	}
	if c.Font == "" {
		return errors.New("font is required (a BDF path or \"builtin\")")
	}
	if _, err := ledmatrix.ParseColor(c.Render.Color); err != nil {
		return fmt.Errorf("render.color: %w", err)
	}
	if c.Render.Frames < 0 {
		return fmt.Errorf("render.frames must not be negative, got %d", c.Render.Frames)
	}
	if c.Render.FrameInterval < 0 {
		return fmt.Errorf("render.frame_interval must not be negative, got %s", c.Render.FrameInterval)
	}
	if c.Render.MaxPresentAttempts < 1 {
		return fmt.Errorf("render.max_present_attempts must be at least 1, got %d", c.Render.MaxPresentAttempts)
	}
	if c.Poll.Enabled {
		if c.APIKey == "" {
			return errors.New("apikey is required when polling is enabled")
		}
		if c.Poll.Interval <= 0 {
			return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
		}
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// RenderOptions converts the render section into loop options
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		X:                  c.Render.X,
		Y:                  c.Render.Y,
		LetterSpacing:      c.Render.LetterSpacing,
		Kerning:            c.Render.Kerning,
		FrameInterval:      c.Render.FrameInterval,
		Frames:             c.Render.Frames,
		Scroll:             c.Render.Scroll,
		ScrollStep:         c.Render.ScrollStep,
		MaxPresentAttempts: c.Render.MaxPresentAttempts,
		RetryBackoff:       c.Render.RetryBackoff,
	}
}

// TextColor returns the parsed render color
func (c *Config) TextColor() (ledmatrix.Color, error) {
	return ledmatrix.ParseColor(c.Render.Color)
}
