//go:build !linux

package hub75

import "errors"

// OpenCdev is only available on Linux
func OpenCdev(_ string, _ []int) (PinWriter, error) {
	return nil, errors.New("cdev driver requires linux")
}
