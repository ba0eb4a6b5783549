package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/fkcurrie/rpi-metro-display/internal/config"
	"github.com/fkcurrie/rpi-metro-display/internal/content"
	"github.com/fkcurrie/rpi-metro-display/internal/logging"
	"github.com/fkcurrie/rpi-metro-display/internal/render"
	"github.com/fkcurrie/rpi-metro-display/internal/wmata"
	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix/hub75"
	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix/termsim"
	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix/wspreview"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
	backend    = flag.String("backend", "", "Override backend: hub75, terminal or preview")
	text       = flag.String("text", "", "Override the displayed text")
	fontPath   = flag.String("font", "", "Override the BDF font path (\"builtin\" for the compiled-in font)")
	frames     = flag.Int("frames", -1, "Override the number of frames to render (0 runs until interrupted)")
	addr       = flag.String("addr", "", "Override the preview listen address")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, closer, err := logging.Setup(cfg.Log.Level, cfg.Log.Dir, cfg.Backend == config.BackendTerminal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("Exiting")
		closer.Close()
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist, and applies command line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(*configPath)
	if errors.Is(err, os.ErrNotExist) && !flagSet("config") {
		cfg, err = config.DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	if *backend != "" {
		cfg.Backend = *backend
	}
	if *text != "" {
		cfg.Render.Text = *text
	}
	if *fontPath != "" {
		cfg.Font = *fontPath
	}
	if *frames >= 0 {
		cfg.Render.Frames = *frames
	}
	if *addr != "" {
		cfg.Preview.Addr = *addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Font and icon load before the panel is initialized
	font, err := loadFont(cfg.Font)
	if err != nil {
		return err
	}
	log.Info().Str("font", font.Name()).Int("glyphs", font.Len()).Msg("Font loaded")

	col, err := cfg.TextColor()
	if err != nil {
		return err
	}
	item := content.Item{Text: cfg.Render.Text, Color: col}
	if cfg.Render.Icon != "" {
		if item.Sprite, err = loadIcon(cfg.Render.Icon, cfg.Panel.Height()); err != nil {
			return err
		}
	}
	slot := content.NewSlot(item)

	dev, quit := newBackend(cfg, log)
	panel, err := ledmatrix.NewPanel(cfg.Panel, dev)
	if err != nil {
		return fmt.Errorf("failed to create panel: %w", err)
	}
	defer panel.Close()

	log.Info().
		Str("backend", cfg.Backend).
		Str("mapping", string(cfg.Panel.HardwareMapping)).
		Int("width", cfg.Panel.Width()).
		Int("height", cfg.Panel.Height()).
		Msg("Panel initialized")

	if quit != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-quit:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if cfg.Poll.Enabled {
		client := wmata.NewClient(cfg.APIKey,
			wmata.WithBaseURL(cfg.Poll.BaseURL),
			wmata.WithTimeout(cfg.Poll.Timeout),
		)
		poller := wmata.NewPoller(client, slot, cfg.Poll.Interval, col, log)
		go poller.Run(ctx)
		log.Info().Dur("interval", cfg.Poll.Interval).Msg("Rail status polling enabled")
	}

	loop, err := render.New(panel, font, slot, cfg.RenderOptions(), log)
	if err != nil {
		return err
	}

	err = loop.Run(ctx)
	log.Info().Uint64("frames", loop.Frames()).Msg("Display stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func loadFont(path string) (*ledmatrix.Font, error) {
	if path == config.BuiltinFont {
		return ledmatrix.BuiltinFont(), nil
	}
	return ledmatrix.LoadFont(path)
}

func loadIcon(path string, size int) (*ledmatrix.Sprite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open icon: %w", err)
	}
	defer f.Close()
	return ledmatrix.RasterizeSVG(f, size, size)
}

// newBackend builds the configured backend. The returned channel, when
// not nil, is closed when the user asks the display to quit.
func newBackend(cfg *config.Config, log zerolog.Logger) (ledmatrix.Backend, <-chan struct{}) {
	switch cfg.Backend {
	case config.BackendTerminal:
		b := termsim.New()
		return b, b.Quit()
	case config.BackendPreview:
		log.Info().Str("addr", cfg.Preview.Addr).Msg("Serving preview")
		return wspreview.New(
			wspreview.WithAddr(cfg.Preview.Addr),
			wspreview.WithLogger(log),
		), nil
	default:
		return hub75.New(
			hub75.WithChip(cfg.GPIO.Chip),
			hub75.WithDriver(hub75.Driver(cfg.GPIO.Driver)),
			hub75.WithCPU(cfg.GPIO.CPU),
			hub75.WithLogger(log),
		), nil
	}
}
