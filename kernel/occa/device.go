package occa

import (
	"fmt"

	"github.com/notargets/gocca"
	"github.com/sirupsen/logrus"
)

// fallbackDevices are tried in order when no device properties are given
var fallbackDevices = []string{
	`{"mode": "OpenMP"}`,
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "Serial"}`,
}

// NewDevice opens the device described by props, or the first available
// parallel backend when props is empty
func NewDevice(props string, log logrus.FieldLogger) (*gocca.OCCADevice, error) {
	candidates := fallbackDevices
	if props != "" {
		candidates = []string{props}
	}
	var lastErr error
	for _, p := range candidates {
		device, err := gocca.NewDevice(p)
		if err != nil {
			lastErr = err
			continue
		}
		log.Debugf("created %s device", device.Mode())
		return device, nil
	}
	return nil, fmt.Errorf("no OCCA device available: %w", lastErr)
}

func buildKernel(device *gocca.OCCADevice, source, name string) (*gocca.OCCAKernel, error) {
	var (
		kernel *gocca.OCCAKernel
		err    error
	)
	if device.Mode() == "OpenMP" {
		// OpenMP builds do not get -O3 by default
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = device.BuildKernelFromString(source, name, props)
	} else {
		kernel, err = device.BuildKernelFromString(source, name, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", name, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", name)
	}
	return kernel, nil
}
