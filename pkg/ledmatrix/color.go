package ledmatrix

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is an opaque 8-bit RGB value. Two colors are equal when all
// three channels are equal, so Color can be compared with ==.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// Common colors
var (
	Black = Color{0, 0, 0}
	White = Color{255, 255, 255}
	Red   = Color{255, 0, 0}
	Green = Color{0, 255, 0}
	Blue  = Color{0, 0, 255}
)

// NewColor creates a color from integer channels. Any channel outside
// [0,255] is rejected with ErrInvalidChannel rather than clamped.
func NewColor(r, g, b int) (Color, error) {
	for _, v := range [3]int{r, g, b} {
		if v < 0 || v > 255 {
			return Color{}, fmt.Errorf("%w: (%d, %d, %d)", ErrInvalidChannel, r, g, b)
		}
	}
	return Color{uint8(r), uint8(g), uint8(b)}, nil
}

// RGB creates a color from 8-bit channels
func RGB(r, g, b uint8) Color {
	return Color{r, g, b}
}

// ParseColor parses a "#rrggbb" hex string
func ParseColor(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return fromColorful(c), nil
}

// RGBA implements image/color.Color. Colors are always fully opaque.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	return r, g, b, 0xffff
}

// Blend interpolates between c (t=0) and other (t=1) in RGB space.
// t is clamped to [0,1].
func (c Color) Blend(other Color, t float64) Color {
	if t <= 0 {
		return c
	}
	if t >= 1 {
		return other
	}
	return fromColorful(c.colorful().BlendRgb(other.colorful(), t))
}

// Scale dims the color to percent of its intensity (0-100)
func (c Color) Scale(percent int) Color {
	if percent >= 100 {
		return c
	}
	if percent <= 0 {
		return Black
	}
	return Color{
		R: uint8(uint32(c.R) * uint32(percent) / 100),
		G: uint8(uint32(c.G) * uint32(percent) / 100),
		B: uint8(uint32(c.B) * uint32(percent) / 100),
	}
}

// Hex formats the color as "#rrggbb"
func (c Color) Hex() string {
	return c.colorful().Hex()
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

func fromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return Color{r, g, b}
}
