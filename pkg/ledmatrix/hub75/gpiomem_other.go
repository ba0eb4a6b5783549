//go:build !linux

package hub75

import "errors"

// OpenGPIOMem is only available on Linux
func OpenGPIOMem(_ string, _ []int) (PinWriter, error) {
	return nil, errors.New("gpiomem driver requires linux")
}
