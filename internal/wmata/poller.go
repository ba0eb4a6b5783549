package wmata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fkcurrie/rpi-metro-display/internal/content"
	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
)

// lineColors are the official line colors
var lineColors = map[string]ledmatrix.Color{
	"RD": ledmatrix.RGB(0xbf, 0x0d, 0x3e),
	"OR": ledmatrix.RGB(0xed, 0x8b, 0x00),
	"SV": ledmatrix.RGB(0x91, 0x9d, 0x9d),
	"BL": ledmatrix.RGB(0x00, 0x9c, 0xde),
	"YL": ledmatrix.RGB(0xff, 0xd1, 0x00),
	"GR": ledmatrix.RGB(0x00, 0xb1, 0x40),
}

// LineColor returns the color of a line code
func LineColor(code string) (ledmatrix.Color, bool) {
	c, ok := lineColors[code]
	return c, ok
}

// Source is what the poller needs from a Client
type Source interface {
	Lines(ctx context.Context) ([]Line, error)
	Incidents(ctx context.Context) ([]Incident, error)
}

// Poller periodically fetches rail status and publishes it into a content
// slot. Failed polls are logged and the previous content stays up.
type Poller struct {
	src      Source
	slot     *content.Slot
	interval time.Duration
	normal   ledmatrix.Color
	log      zerolog.Logger
}

// NewPoller creates a poller. normal is the text color used when there
// are no incidents.
func NewPoller(src Source, slot *content.Slot, interval time.Duration, normal ledmatrix.Color, log zerolog.Logger) *Poller {
	return &Poller{
		src:      src,
		slot:     slot,
		interval: interval,
		normal:   normal,
		log:      log.With().Str("component", "wmata").Logger(),
	}
}

// Run polls immediately and then every interval until ctx is cancelled
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll fetches once and publishes the result
func (p *Poller) poll(ctx context.Context) {
	text, col, err := p.Status(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error().Err(err).Msg("Failed to fetch rail status")
		}
		return
	}
	p.log.Debug().Str("text", text).Msg("Rail status updated")
	p.slot.Update(text, col)
}

// Status fetches lines and incidents and formats them into one line of
// text and its color
func (p *Poller) Status(ctx context.Context) (string, ledmatrix.Color, error) {
	lines, err := p.src.Lines(ctx)
	if err != nil {
		return "", ledmatrix.Color{}, fmt.Errorf("failed to fetch lines: %w", err)
	}
	incidents, err := p.src.Incidents(ctx)
	if err != nil {
		return "", ledmatrix.Color{}, fmt.Errorf("failed to fetch incidents: %w", err)
	}

	text, code := FormatStatus(lines, incidents)
	col := p.normal
	if c, ok := LineColor(code); ok {
		col = c
	}
	return text, col, nil
}

// FormatStatus builds the sign text. It returns the code of the first
// affected line, or "" when service is normal.
func FormatStatus(lines []Line, incidents []Incident) (string, string) {
	if len(incidents) == 0 {
		codes := make([]string, 0, len(lines))
		for _, l := range lines {
			codes = append(codes, l.Code)
		}
		if len(codes) == 0 {
			return "normal service", ""
		}
		return strings.Join(codes, " ") + ": normal service", ""
	}

	parts := make([]string, 0, len(incidents))
	first := ""
	for _, inc := range incidents {
		if first == "" && len(inc.LinesAffected) > 0 {
			first = inc.LinesAffected[0]
		}
		prefix := strings.Join(inc.LinesAffected, " ")
		if prefix != "" {
			prefix += ": "
		}
		parts = append(parts, prefix+inc.Description)
	}
	return strings.Join(parts, " | "), first
}
