package ledmatrix

import (
	"fmt"
	"image"
	"io"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Sprite is a small pre-rasterized image with per-pixel coverage, used
// for status icons next to the scrolling text
type Sprite struct {
	width  int
	height int
	pixels []Color
	alpha  []uint8
}

// RasterizeSVG renders an SVG document into a width x height sprite
func RasterizeSVG(r io.Reader, width, height int) (*Sprite, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid sprite dimensions: %dx%d", width, height)
	}

	icon, err := oksvg.ReadIconStream(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)

	return spriteFromRGBA(img), nil
}

// SpriteFromImage converts any image into a sprite, keeping its alpha
func SpriteFromImage(src image.Image) *Sprite {
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			img.Set(x, y, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return spriteFromRGBA(img)
}

func spriteFromRGBA(img *image.RGBA) *Sprite {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	s := &Sprite{
		width:  w,
		height: h,
		pixels: make([]Color, w*h),
		alpha:  make([]uint8, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := img.RGBAAt(x, y)
			i := y*w + x
			s.alpha[i] = p.A
			if p.A == 0 {
				continue
			}
			// un-premultiply
			s.pixels[i] = Color{
				R: uint8(uint32(p.R) * 255 / uint32(p.A)),
				G: uint8(uint32(p.G) * 255 / uint32(p.A)),
				B: uint8(uint32(p.B) * 255 / uint32(p.A)),
			}
		}
	}
	return s
}

// Width returns the sprite width
func (s *Sprite) Width() int { return s.width }

// Height returns the sprite height
func (s *Sprite) Height() int { return s.height }

// At returns the color and coverage at (x, y)
func (s *Sprite) At(x, y int) (Color, uint8) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return Color{}, 0
	}
	i := y*s.width + x
	return s.pixels[i], s.alpha[i]
}

// DrawSprite composites s with its top-left corner at (x, y). Partially
// covered pixels are blended with what is already on the canvas.
func (c *Canvas) DrawSprite(s *Sprite, x, y int) {
	for sy := 0; sy < s.height; sy++ {
		for sx := 0; sx < s.width; sx++ {
			col, a := s.At(sx, sy)
			switch a {
			case 0:
				continue
			case 255:
				c.SetPixel(x+sx, y+sy, col)
			default:
				dst := c.Pixel(x+sx, y+sy)
				c.SetPixel(x+sx, y+sy, dst.Blend(col, float64(a)/255))
			}
		}
	}
}
