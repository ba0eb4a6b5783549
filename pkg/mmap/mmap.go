//go:build linux

// Package mmap maps peripheral register windows into the process.
package mmap

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// GPIOMemPath is the unprivileged GPIO register window on Raspberry Pi OS
const GPIOMemPath = "/dev/gpiomem"

// GPIOMemSize is the size of the BCM283x/BCM2711 GPIO register block
const GPIOMemSize = 4096

// MemoryMap represents a memory mapped register window
type MemoryMap struct {
	path   string
	region []byte
}

// Open maps size bytes of the device at path, starting at offset
func Open(path string, offset int64, size int) (*MemoryMap, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	region, err := unix.Mmap(int(f.Fd()), offset, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap %s: %w", path, err)
	}

	return &MemoryMap{path: path, region: region}, nil
}

// OpenGPIOMem maps the GPIO register block through /dev/gpiomem
func OpenGPIOMem() (*MemoryMap, error) {
	return Open(GPIOMemPath, 0, GPIOMemSize)
}

// Close unmaps the region
func (m *MemoryMap) Close() error {
	if m.region == nil {
		return nil
	}
	err := unix.Munmap(m.region)
	m.region = nil
	return err
}

// Size returns the mapped size in bytes
func (m *MemoryMap) Size() int {
	return len(m.region)
}

// Read32 reads a 32-bit register at a byte offset
func (m *MemoryMap) Read32(offset uintptr) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&m.region[offset])))
}

// Write32 writes a 32-bit register at a byte offset
func (m *MemoryMap) Write32(offset uintptr, value uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&m.region[offset])), value)
}
