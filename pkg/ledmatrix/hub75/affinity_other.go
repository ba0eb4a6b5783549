//go:build !linux

package hub75

import "errors"

func pinToCPU(int) error {
	return errors.New("CPU affinity requires linux")
}
