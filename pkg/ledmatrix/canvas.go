package ledmatrix

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/text/unicode/norm"
)

// Canvas is an off-screen pixel buffer. A Canvas is owned by exactly one
// party at a time (the render loop or the Panel) and is not safe for
// concurrent use.
//
// Canvas also implements draw.Image so it can be handed to image/draw
// and image encoders.
type Canvas struct {
	width      int
	height     int
	pixels     []Color
	background Color
}

// newCanvas allocates a width x height canvas. Non-positive dimensions
// are a programming error.
func newCanvas(width, height int) *Canvas {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("ledmatrix: invalid canvas dimensions %dx%d", width, height))
	}
	return &Canvas{
		width:  width,
		height: height,
		pixels: make([]Color, width*height),
	}
}

// Width returns the canvas width in pixels
func (c *Canvas) Width() int { return c.width }

// Height returns the canvas height in pixels
func (c *Canvas) Height() int { return c.height }

// Background returns the color Clear fills with
func (c *Canvas) Background() Color { return c.background }

// SetBackground changes the color Clear fills with
func (c *Canvas) SetBackground(bg Color) { c.background = bg }

// Clear sets every pixel to the background color
func (c *Canvas) Clear() {
	c.Fill(c.background)
}

// Fill sets every pixel to col
func (c *Canvas) Fill(col Color) {
	for i := range c.pixels {
		c.pixels[i] = col
	}
}

// SetPixel sets a pixel's color. Coordinates outside the canvas are
// ignored.
func (c *Canvas) SetPixel(x, y int, col Color) {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	c.pixels[y*c.width+x] = col
}

// Pixel returns a pixel's color, or the background for coordinates
// outside the canvas
func (c *Canvas) Pixel(x, y int) Color {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return c.background
	}
	return c.pixels[y*c.width+x]
}

// Row returns the pixels of row y. The slice aliases the canvas and is
// only valid while the caller owns the canvas.
func (c *Canvas) Row(y int) []Color {
	if y < 0 || y >= c.height {
		return nil
	}
	return c.pixels[y*c.width : (y+1)*c.width]
}

// CopyFrom copies the pixels of src, which must have the same dimensions
func (c *Canvas) CopyFrom(src *Canvas) error {
	if src.width != c.width || src.height != c.height {
		return fmt.Errorf("canvas dimensions (%dx%d) do not match (%dx%d)",
			src.width, src.height, c.width, c.height)
	}
	copy(c.pixels, src.pixels)
	return nil
}

// DrawText draws text with its first glyph origin at (x, y), y being the
// baseline. Runes the font lacks are skipped and advance the cursor by
// the font's fallback advance. Pixels outside the canvas are clipped.
// It returns the cursor x position after the last rune.
func (c *Canvas) DrawText(f *Font, text string, x, y int, col Color, letterSpacing int, kerning bool) int {
	cursor := x
	prev := rune(-1)
	for _, r := range norm.NFC.String(text) {
		cursor += f.kerning(prev, r, kerning)
		prev = r

		g, ok := f.Glyph(r)
		if !ok {
			cursor += f.fallback + letterSpacing
			continue
		}
		c.blit(g, cursor, y, col)
		cursor += g.Advance + letterSpacing
	}
	return cursor
}

// DrawVerticalText draws text top to bottom, one glyph per line,
// starting with the baseline of the first glyph at y. It returns the
// baseline y after the last rune.
func (c *Canvas) DrawVerticalText(f *Font, text string, x, y int, col Color, lineSpacing int) int {
	cursor := y
	for _, r := range norm.NFC.String(text) {
		if g, ok := f.Glyph(r); ok {
			c.blit(g, x, cursor, col)
		}
		cursor += f.height + lineSpacing
	}
	return cursor
}

func (c *Canvas) blit(g Glyph, x, y int, col Color) {
	for _, p := range g.Pixels {
		c.SetPixel(x+p.X, y+p.Y, col)
	}
}

// DrawLine draws a line from (x0, y0) to (x1, y1) inclusive
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, col Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.SetPixel(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// DrawCircle draws the outline of a circle centred on (cx, cy)
func (c *Canvas) DrawCircle(cx, cy, radius int, col Color) {
	x, y := radius, 0
	e := 0
	for x >= y {
		c.SetPixel(cx+x, cy+y, col)
		c.SetPixel(cx+y, cy+x, col)
		c.SetPixel(cx-y, cy+x, col)
		c.SetPixel(cx-x, cy+y, col)
		c.SetPixel(cx-x, cy-y, col)
		c.SetPixel(cx-y, cy-x, col)
		c.SetPixel(cx+y, cy-x, col)
		c.SetPixel(cx+x, cy-y, col)
		y++
		if e <= 0 {
			e += 2*y + 1
		}
		if e > 0 {
			x--
			e -= 2*x + 1
		}
	}
}

// ColorModel implements image.Image
func (c *Canvas) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image
func (c *Canvas) Bounds() image.Rectangle { return image.Rect(0, 0, c.width, c.height) }

// At implements image.Image
func (c *Canvas) At(x, y int) color.Color { return c.Pixel(x, y) }

// Set implements draw.Image. Translucent colors are stored premultiplied.
func (c *Canvas) Set(x, y int, col color.Color) {
	r, g, b, _ := col.RGBA()
	c.SetPixel(x, y, Color{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
