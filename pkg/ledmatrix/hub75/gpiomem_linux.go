package hub75

import (
	"fmt"

	"github.com/fkcurrie/rpi-metro-display/pkg/mmap"
)

// BCM283x/BCM2711 GPIO register offsets
const (
	regGPFSEL0 = 0x00
	regGPSET0  = 0x1c
	regGPCLR0  = 0x28
)

type memWriter struct {
	m *mmap.MemoryMap
}

// OpenGPIOMem maps the GPIO registers and switches pins to outputs. The
// chip name is ignored. Not available on the Pi 5, whose GPIOs sit
// behind the RP1.
func OpenGPIOMem(_ string, pins []int) (PinWriter, error) {
	m, err := mmap.OpenGPIOMem()
	if err != nil {
		return nil, err
	}

	var all uint32
	for _, p := range pins {
		if p < 0 || p > 31 {
			m.Close()
			return nil, fmt.Errorf("GPIO %d is outside the first bank", p)
		}
		reg := uintptr(regGPFSEL0 + 4*(p/10))
		shift := uint(3 * (p % 10))
		v := m.Read32(reg)
		v = v&^(7<<shift) | 1<<shift
		m.Write32(reg, v)
		all |= bit(p)
	}
	m.Write32(regGPCLR0, all)

	return &memWriter{m: m}, nil
}

func (w *memWriter) Write(set, clear uint32) error {
	if set != 0 {
		w.m.Write32(regGPSET0, set)
	}
	if clear != 0 {
		w.m.Write32(regGPCLR0, clear)
	}
	return nil
}

func (w *memWriter) Close() error {
	return w.m.Close()
}
