package hub75

import "github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"

// Driver selects how GPIO lines are driven
type Driver string

const (
	// DriverCdev uses the GPIO character device (works on every Pi, Pi 5 included)
	DriverCdev Driver = "cdev"
	// DriverGPIOMem writes the BCM283x/BCM2711 set/clear registers through /dev/gpiomem
	DriverGPIOMem Driver = "gpiomem"
)

// PinWriter drives a set of GPIO lines. set and clear are bitmasks indexed
// by BCM GPIO number; a pin never appears in both.
type PinWriter interface {
	Write(set, clear uint32) error
	Close() error
}

// OpenFunc opens a PinWriter for the given GPIO numbers on a chip
type OpenFunc func(chip string, pins []int) (PinWriter, error)

// signals holds the GPIO bitmasks of a pinout
type signals struct {
	r1, g1, b1 uint32
	r2, g2, b2 uint32
	clk, lat   uint32
	oe         uint32
	addr       []uint32 // A, B, C, D[, E]
	color      uint32
	addrMask   uint32
}

func bit(pin int) uint32 {
	if pin < 0 {
		return 0
	}
	return 1 << uint(pin)
}

func newSignals(p ledmatrix.Pinout) signals {
	s := signals{
		r1: bit(p.R1), g1: bit(p.G1), b1: bit(p.B1),
		r2: bit(p.R2), g2: bit(p.G2), b2: bit(p.B2),
		clk: bit(p.CLK), lat: bit(p.LAT), oe: bit(p.OE),
		addr: []uint32{bit(p.A), bit(p.B), bit(p.C), bit(p.D)},
	}
	if p.E >= 0 {
		s.addr = append(s.addr, bit(p.E))
	}
	s.color = s.r1 | s.g1 | s.b1 | s.r2 | s.g2 | s.b2
	for _, a := range s.addr {
		s.addrMask |= a
	}
	return s
}

// address returns the set mask selecting scan row row
func (s signals) address(row int) uint32 {
	var m uint32
	for i, a := range s.addr {
		if row&(1<<uint(i)) != 0 {
			m |= a
		}
	}
	return m
}

// pinList returns the wired GPIO numbers of a pinout
func pinList(p ledmatrix.Pinout) []int {
	pins := []int{p.R1, p.G1, p.B1, p.R2, p.G2, p.B2, p.A, p.B, p.C, p.D}
	if p.E >= 0 {
		pins = append(pins, p.E)
	}
	return append(pins, p.CLK, p.LAT, p.OE)
}
