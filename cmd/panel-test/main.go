package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fkcurrie/rpi-metro-display/internal/config"
	"github.com/fkcurrie/rpi-metro-display/internal/logging"
	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix/hub75"
	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix/termsim"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file (panel and gpio sections are used)")
	patternName := flag.String("pattern", "cycle", fmt.Sprintf("Test pattern, one of %v", patternNames()))
	text := flag.String("text", "HELLO WORLD", "Text for the scroll pattern")
	terminal := flag.Bool("terminal", false, "Draw in the terminal instead of on the panel")
	interval := flag.Duration("interval", 50*time.Millisecond, "Time between frames")
	frames := flag.Int("frames", 0, "Stop after this many frames (0 runs until interrupted)")
	flag.Parse()

	log, _, err := logging.Setup("info", "", *terminal)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", *configPath).Msg("Config not found; using defaults")
		cfg, err = config.DefaultConfig(), nil
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	draw, err := lookupPattern(*patternName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid pattern")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	dev, quit := newBackend(cfg, *terminal, log)

	log.Info().
		Str("pattern", *patternName).
		Str("mapping", string(cfg.Panel.HardwareMapping)).
		Int("width", cfg.Panel.Width()).
		Int("height", cfg.Panel.Height()).
		Msg("Starting panel test")

	n, err := runTest(ctx, cfg.Panel, dev, quit, session{
		draw:     draw,
		text:     *text,
		interval: *interval,
		frames:   *frames,
	})
	stop()
	if err != nil {
		log.Error().Err(err).Int("frames", n).Msg("Panel test failed")
		os.Exit(1)
	}
	log.Info().Int("frames", n).Msg("Panel test stopped")
}

func newBackend(cfg *config.Config, terminal bool, log zerolog.Logger) (ledmatrix.Backend, <-chan struct{}) {
	if terminal {
		t := termsim.New()
		return t, t.Quit()
	}
	return hub75.New(
		hub75.WithChip(cfg.GPIO.Chip),
		hub75.WithDriver(hub75.Driver(cfg.GPIO.Driver)),
		hub75.WithCPU(cfg.GPIO.CPU),
		hub75.WithLogger(log),
	), nil
}

// session is one run of a test pattern
type session struct {
	draw     pattern
	text     string
	interval time.Duration
	// frames stops the run after that many frames; 0 runs until cancelled
	frames int
}

// runTest initializes a panel on dev, shows the pattern and closes the
// panel again. Cancelling ctx or closing quit ends the run without error.
func runTest(ctx context.Context, cfg ledmatrix.PanelConfig, dev ledmatrix.Backend, quit <-chan struct{}, s session) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if quit != nil {
		go func() {
			select {
			case <-quit:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	panel, err := ledmatrix.NewPanel(cfg, dev)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize panel: %w", err)
	}
	defer panel.Close()

	n, err := runPattern(ctx, panel, ledmatrix.BuiltinFont(), s.draw, s.text, s.interval, s.frames)
	if errors.Is(err, context.Canceled) {
		return n, nil
	}
	return n, err
}

// runPattern presents frames of draw until ctx is done or limit frames
// have been shown
func runPattern(ctx context.Context, panel *ledmatrix.Panel, f *ledmatrix.Font, draw pattern, text string, interval time.Duration, limit int) (int, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	canvas := panel.OffscreenCanvas()
	for n := 0; limit == 0 || n < limit; n++ {
		draw(canvas, f, text, n)
		next, err := panel.Swap(canvas)
		if err != nil {
			return n, err
		}
		canvas = next

		select {
		case <-ctx.Done():
			return n + 1, ctx.Err()
		case <-ticker.C:
		}
	}
	return limit, nil
}
