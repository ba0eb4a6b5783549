package ledmatrix

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lit counts pixels that differ from the background
func lit(c *Canvas) int {
	n := 0
	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			if c.Pixel(x, y) != c.Background() {
				n++
			}
		}
	}
	return n
}

func TestNewCanvasPanicsOnBadDimensions(t *testing.T) {
	assert.Panics(t, func() { newCanvas(0, 8) })
	assert.Panics(t, func() { newCanvas(8, -1) })
	assert.NotPanics(t, func() { newCanvas(1, 1) })
}

func TestCanvasClear(t *testing.T) {
	c := newCanvas(128, 32)
	c.Fill(Red)
	c.Clear()
	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			require.Equal(t, Black, c.Pixel(x, y), "pixel (%d, %d)", x, y)
		}
	}

	c.SetBackground(Blue)
	c.Clear()
	assert.Equal(t, Blue, c.Pixel(0, 0))
	assert.Equal(t, Blue, c.Pixel(127, 31))
}

func TestCanvasSetPixel(t *testing.T) {
	c := newCanvas(32, 8)

	tests := []struct {
		x, y int
	}{
		{0, 0}, {31, 0}, {0, 7}, {31, 7}, {15, 3},
	}
	for _, tt := range tests {
		c.SetPixel(tt.x, tt.y, Green)
		assert.Equal(t, Green, c.Pixel(tt.x, tt.y))
	}
}

func TestCanvasSetPixelOutOfBounds(t *testing.T) {
	c := newCanvas(32, 8)
	c.Fill(White)

	for _, p := range [][2]int{{-1, 0}, {0, -1}, {32, 0}, {0, 8}, {32, 8}, {-100, 100}, {1 << 20, 3}} {
		c.SetPixel(p[0], p[1], Red)
	}

	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			require.Equal(t, White, c.Pixel(x, y), "pixel (%d, %d) was corrupted", x, y)
		}
	}
	assert.Equal(t, Black, c.Pixel(-1, 0), "out of bounds reads return the background")
}

func TestDrawTextEmpty(t *testing.T) {
	f := loadTestFont(t)
	c := newCanvas(64, 16)

	end := c.DrawText(f, "", 5, 10, Blue, 0, false)
	assert.Equal(t, 5, end)
	assert.Equal(t, 0, lit(c))
}

func TestDrawText(t *testing.T) {
	f := loadTestFont(t)
	c := newCanvas(64, 16)

	end := c.DrawText(f, "TEST", 0, 10, Blue, 0, false)
	assert.Equal(t, 24, end)
	assert.Equal(t, 11+18+15+11, lit(c))

	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			if p := c.Pixel(x, y); p != Black {
				assert.Equal(t, Blue, p)
			}
		}
	}
}

func TestDrawTextLetterSpacing(t *testing.T) {
	f := loadTestFont(t)
	c := newCanvas(64, 16)

	end := c.DrawText(f, "TEST 1 2", 3, 10, Blue, 2, false)
	// every rune advances by 6 + 2, missing digits use the fallback
	assert.Equal(t, 3+8*8, end)
}

func TestDrawTextClipping(t *testing.T) {
	f := loadTestFont(t)

	t.Run("beyond right edge", func(t *testing.T) {
		c := newCanvas(32, 16)
		end := c.DrawText(f, "TEST", 32, 10, Red, 0, false)
		assert.Equal(t, 56, end)
		assert.Equal(t, 0, lit(c))
	})

	t.Run("beyond left edge", func(t *testing.T) {
		c := newCanvas(32, 16)
		end := c.DrawText(f, "TEST", -24, 10, Red, 0, false)
		assert.Equal(t, 0, end)
		assert.Equal(t, 0, lit(c))
	})

	t.Run("partially visible", func(t *testing.T) {
		c := newCanvas(8, 16)
		c.DrawText(f, "TT", 0, 10, Red, 0, false)
		// first T fully visible, second T only its first two columns
		assert.Greater(t, lit(c), 11)
		assert.Less(t, lit(c), 22)
	})

	t.Run("below bottom edge", func(t *testing.T) {
		c := newCanvas(32, 16)
		c.DrawText(f, "TEST", 0, 100, Red, 0, false)
		assert.Equal(t, 0, lit(c))
	})
}

func TestDrawTextUnmappedRunes(t *testing.T) {
	f := loadTestFont(t)
	c := newCanvas(64, 16)

	end := c.DrawText(f, "?T?", 0, 10, Green, 0, false)
	assert.Equal(t, 18, end)
	assert.Equal(t, 11, lit(c))
}

func TestDrawVerticalText(t *testing.T) {
	f := loadTestFont(t)
	c := newCanvas(8, 64)

	end := c.DrawVerticalText(f, "TE", 0, 8, Red, 1)
	assert.Equal(t, 8+2*(f.Height()+1), end)
	assert.Equal(t, 11+18, lit(c))
}

func TestDrawLine(t *testing.T) {
	c := newCanvas(16, 16)

	c.DrawLine(0, 0, 15, 15, Red)
	for i := 0; i < 16; i++ {
		assert.Equal(t, Red, c.Pixel(i, i))
	}
	assert.Equal(t, 16, lit(c))

	c.Clear()
	c.DrawLine(10, 3, 2, 3, Green)
	assert.Equal(t, 9, lit(c))
}

func TestDrawCircle(t *testing.T) {
	c := newCanvas(16, 16)
	c.DrawCircle(8, 8, 4, White)

	assert.Equal(t, White, c.Pixel(12, 8))
	assert.Equal(t, White, c.Pixel(4, 8))
	assert.Equal(t, White, c.Pixel(8, 12))
	assert.Equal(t, White, c.Pixel(8, 4))
	assert.Equal(t, Black, c.Pixel(8, 8))
}

func TestCanvasImageInterface(t *testing.T) {
	c := newCanvas(4, 2)
	c.Set(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	assert.Equal(t, RGB(10, 20, 30), c.Pixel(1, 1))
	assert.Equal(t, 4, c.Bounds().Dx())
	assert.Equal(t, 2, c.Bounds().Dy())

	r, g, b, _ := c.At(1, 1).RGBA()
	assert.Equal(t, uint32(10), r>>8)
	assert.Equal(t, uint32(20), g>>8)
	assert.Equal(t, uint32(30), b>>8)
}

func TestCanvasCopyFrom(t *testing.T) {
	a := newCanvas(4, 4)
	b := newCanvas(4, 4)
	a.SetPixel(2, 2, Red)

	require.NoError(t, b.CopyFrom(a))
	assert.Equal(t, Red, b.Pixel(2, 2))

	assert.Error(t, b.CopyFrom(newCanvas(2, 2)))
}
