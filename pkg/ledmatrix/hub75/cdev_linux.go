package hub75

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// lineWriter drives pins through a single gpiocdev line request so that
// every write changes all lines at once
type lineWriter struct {
	lines  *gpiocdev.Lines
	pins   []int
	values []int
}

// OpenCdev requests pins as outputs, initially low, on the named chip
func OpenCdev(chip string, pins []int) (PinWriter, error) {
	for _, p := range pins {
		if p < 0 || p > 31 {
			return nil, fmt.Errorf("GPIO %d is outside the first bank", p)
		}
	}
	lines, err := gpiocdev.RequestLines(chip, pins,
		gpiocdev.AsOutput(),
		gpiocdev.WithConsumer("rpi-metro-display"))
	if err != nil {
		return nil, fmt.Errorf("failed to request GPIO lines on %s: %w", chip, err)
	}
	return &lineWriter{
		lines:  lines,
		pins:   pins,
		values: make([]int, len(pins)),
	}, nil
}

func (w *lineWriter) Write(set, clear uint32) error {
	for i, p := range w.pins {
		m := bit(p)
		switch {
		case set&m != 0:
			w.values[i] = 1
		case clear&m != 0:
			w.values[i] = 0
		}
	}
	return w.lines.SetValues(w.values)
}

func (w *lineWriter) Close() error {
	return w.lines.Close()
}
