// Package occa runs the diffusion update on an OCCA device. It needs the
// OCCA runtime at build time and registers itself as the "occa" kernel
// backend through Register.
package occa

import (
	"fmt"
	"io"
	"unsafe"

	"github.com/notargets/gocca"
	"github.com/sirupsen/logrus"

	"github.com/notargets/halogrid/kernel"
	"github.com/notargets/halogrid/mesh"
)

const diffusionSource = `
@kernel void diffuse(const int coreRows,
                     const int coreCols,
                     const int augCols,
                     const double rx,
                     const double ry,
                     const double *u0,
                     double *u1) {
  for (int i = 1; i < coreRows + 1; ++i; @outer) {
    for (int j = 1; j < coreCols + 1; ++j; @inner) {
      const int k = i*augCols + j;
      u1[k] = (1.0 - 2.0*rx - 2.0*ry)*u0[k]
            + rx*(u0[k - 1] + u0[k + 1])
            + ry*(u0[k - augCols] + u0[k + augCols]);
    }
  }
}
`

// Diffusion is kernel.Diffusion compiled for an OCCA device
type Diffusion struct {
	host   *kernel.Diffusion
	device *gocca.OCCADevice
	kernel *gocca.OCCAKernel
	log    logrus.FieldLogger

	u0, u1 *gocca.OCCAMemory
	cells  int // Capacity of u0 and u1
}

func NewDiffusion(opts kernel.Options) (*Diffusion, error) {
	host, err := kernel.NewDiffusion(opts.Dt)
	if err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	device, err := NewDevice(opts.Device, log)
	if err != nil {
		return nil, err
	}
	k, err := buildKernel(device, diffusionSource, "diffuse")
	if err != nil {
		device.Free()
		return nil, err
	}
	return &Diffusion{host: host, device: device, kernel: k, log: log}, nil
}

// Register makes the backend available to kernel.New as "occa"
func Register() {
	kernel.Register("occa", func(opts kernel.Options) (kernel.Kernel, error) {
		return NewDiffusion(opts)
	})
}

// Mode reports the device backend in use
func (d *Diffusion) Mode() string { return d.device.Mode() }

// reserve reallocates device memory when the augmented extent changes
func (d *Diffusion) reserve(cells int) {
	if cells == d.cells {
		return
	}
	d.freeMemory()
	bytes := int64(cells * 8)
	d.u0 = d.device.Malloc(bytes, nil, nil)
	d.u1 = d.device.Malloc(bytes, nil, nil)
	d.cells = cells
	d.log.Debugf("device buffers sized to %d cells", cells)
}

func (d *Diffusion) Step(tile *mesh.Tile, u0, u1 []float64) error {
	n := tile.AugmentedCells()
	if len(u0) != n || len(u1) != n {
		return fmt.Errorf("fields of %d and %d cells do not match %dx%d tile",
			len(u0), len(u1), tile.AugRows, tile.AugCols)
	}
	d.reserve(n)
	bytes := int64(n * 8)
	d.u0.CopyFrom(unsafe.Pointer(&u0[0]), bytes)
	// Ghost cells of u1 are not written by the kernel, copy them through
	d.u1.CopyFrom(unsafe.Pointer(&u1[0]), bytes)

	rx, ry := d.host.Coefficients(tile)
	err := d.kernel.RunWithArgs(int32(tile.CoreRows), int32(tile.CoreCols), int32(tile.AugCols),
		rx, ry, d.u0, d.u1)
	if err != nil {
		return fmt.Errorf("diffuse on %s: %w", d.device.Mode(), err)
	}
	d.device.Finish()
	d.u1.CopyTo(unsafe.Pointer(&u1[0]), bytes)
	return nil
}

func (d *Diffusion) freeMemory() {
	if d.u0 != nil {
		d.u0.Free()
		d.u1.Free()
		d.u0, d.u1 = nil, nil
	}
	d.cells = 0
}

func (d *Diffusion) Close() error {
	d.freeMemory()
	if d.kernel != nil {
		d.kernel.Free()
		d.kernel = nil
	}
	if d.device != nil {
		d.device.Free()
		d.device = nil
	}
	return nil
}
