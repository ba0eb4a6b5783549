package main

import (
	"fmt"
	"sort"

	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
)

// cellSize is the edge of one checkerboard square in pixels
const cellSize = 4

// pattern draws frame n of a test pattern
type pattern func(c *ledmatrix.Canvas, f *ledmatrix.Font, text string, n int)

var patterns = map[string]pattern{
	"red":          solid(ledmatrix.Red),
	"green":        solid(ledmatrix.Green),
	"blue":         solid(ledmatrix.Blue),
	"white":        solid(ledmatrix.White),
	"checkerboard": checkerboard,
	"gradient":     gradient,
	"rows":         rows,
	"scroll":       scroll,
	"cycle":        cycle,
}

func patternNames() []string {
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupPattern(name string) (pattern, error) {
	p, ok := patterns[name]
	if !ok {
		return nil, fmt.Errorf("unknown pattern %q (want one of %v)", name, patternNames())
	}
	return p, nil
}

func solid(col ledmatrix.Color) pattern {
	return func(c *ledmatrix.Canvas, _ *ledmatrix.Font, _ string, _ int) {
		c.Fill(col)
	}
}

// checkerboard moves one cell every 8 frames
func checkerboard(c *ledmatrix.Canvas, _ *ledmatrix.Font, _ string, n int) {
	yellow := ledmatrix.RGB(255, 255, 0)
	c.Clear()
	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			if (y/cellSize+x/cellSize+n/8)%2 == 0 {
				c.SetPixel(x, y, yellow)
			}
		}
	}
}

// gradient sweeps red to blue across the chain; it shows PWM depth and
// the brightness curve
func gradient(c *ledmatrix.Canvas, _ *ledmatrix.Font, _ string, _ int) {
	w := c.Width()
	for x := 0; x < w; x++ {
		t := 0.0
		if w > 1 {
			t = float64(x) / float64(w-1)
		}
		col := ledmatrix.Red.Blend(ledmatrix.Blue, t)
		for y := 0; y < c.Height(); y++ {
			c.SetPixel(x, y, col)
		}
	}
}

// rows lights a single row, walking down the panel; a stuck address line
// shows up as a row that lights twice
func rows(c *ledmatrix.Canvas, _ *ledmatrix.Font, _ string, n int) {
	c.Clear()
	y := n % c.Height()
	c.DrawLine(0, y, c.Width()-1, y, ledmatrix.White)
}

func scroll(c *ledmatrix.Canvas, f *ledmatrix.Font, text string, n int) {
	c.Clear()
	span := f.Measure(text, 1, false) + c.Width()
	x := c.Width() - n%span
	c.DrawText(f, text, x, f.Ascent(), ledmatrix.Red, 1, false)
}

// cycle shows red, green, blue and the checkerboard for 20 frames each
func cycle(c *ledmatrix.Canvas, f *ledmatrix.Font, text string, n int) {
	steps := []pattern{solid(ledmatrix.Red), solid(ledmatrix.Green), solid(ledmatrix.Blue), checkerboard}
	steps[(n/20)%len(steps)](c, f, text, n)
}
