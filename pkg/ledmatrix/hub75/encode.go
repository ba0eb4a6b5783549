package hub75

import (
	"math"

	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
)

// frame is a canvas encoded into bit planes, ready to be shifted out.
// Rows y and y+scanRows share a scan row: the upper one on R1/G1/B1, the
// lower one on R2/G2/B2.
type frame struct {
	width    int
	scanRows int
	bits     int
	// data[(row*bits+plane)*width+x] is the color pin mask of column x
	data []uint32
}

func (f *frame) plane(row, plane int) []uint32 {
	i := (row*f.bits + plane) * f.width
	return f.data[i : i+f.width]
}

// cie1931 maps an 8-bit channel to a bits-deep PWM level, applying
// brightness (percent) and perceptual lightness correction
func cie1931(v uint8, brightness, bits int) uint16 {
	l := float64(v) * float64(brightness) / 255
	var y float64
	if l <= 8 {
		y = l / 902.3
	} else {
		y = math.Pow((l+16)/116, 3)
	}
	max := float64(int(1)<<uint(bits) - 1)
	return uint16(math.Round(y * max))
}

func newLUT(brightness, bits int) *[256]uint16 {
	var lut [256]uint16
	for i := range lut {
		lut[i] = cie1931(uint8(i), brightness, bits)
	}
	return &lut
}

// encoder turns canvases into frames for one panel configuration
type encoder struct {
	sig      signals
	lut      *[256]uint16
	width    int
	scanRows int
	bits     int
}

func newEncoder(cfg ledmatrix.PanelConfig, sig signals) *encoder {
	return &encoder{
		sig:      sig,
		lut:      newLUT(cfg.Brightness, cfg.PWMBits),
		width:    cfg.Width(),
		scanRows: cfg.Rows / 2,
		bits:     cfg.PWMBits,
	}
}

func (e *encoder) encode(c *ledmatrix.Canvas) *frame {
	f := &frame{
		width:    e.width,
		scanRows: e.scanRows,
		bits:     e.bits,
		data:     make([]uint32, e.width*e.scanRows*e.bits),
	}

	for row := 0; row < e.scanRows; row++ {
		top := c.Row(row)
		bottom := c.Row(row + e.scanRows)
		for x := 0; x < e.width; x++ {
			r1, g1, b1 := e.lut[top[x].R], e.lut[top[x].G], e.lut[top[x].B]
			r2, g2, b2 := e.lut[bottom[x].R], e.lut[bottom[x].G], e.lut[bottom[x].B]
			for p := 0; p < e.bits; p++ {
				mask := uint16(1) << uint(p)
				var m uint32
				if r1&mask != 0 {
					m |= e.sig.r1
				}
				if g1&mask != 0 {
					m |= e.sig.g1
				}
				if b1&mask != 0 {
					m |= e.sig.b1
				}
				if r2&mask != 0 {
					m |= e.sig.r2
				}
				if g2&mask != 0 {
					m |= e.sig.g2
				}
				if b2&mask != 0 {
					m |= e.sig.b2
				}
				f.data[(row*e.bits+p)*e.width+x] = m
			}
		}
	}
	return f
}
