package kernel

import (
	"fmt"

	"github.com/notargets/halogrid/mesh"
)

// Diffusion is the explicit five point heat update
//
//	u1 = (1 - 2rx - 2ry) u0 + rx (uL + uR) + ry (uT + uB)
//
// with rx = dt/dx² and ry = dt/dy².
type Diffusion struct {
	Dt float64
}

func NewDiffusion(dt float64) (*Diffusion, error) {
	if !(dt > 0) {
		return nil, fmt.Errorf("diffusion timestep must be positive, got %g", dt)
	}
	return &Diffusion{Dt: dt}, nil
}

// Coefficients returns rx and ry for the tile's spacing
func (d *Diffusion) Coefficients(tile *mesh.Tile) (rx, ry float64) {
	dx, dy := tile.Domain.DelX(), tile.Domain.DelY()
	return d.Dt / (dx * dx), d.Dt / (dy * dy)
}

func (d *Diffusion) Step(tile *mesh.Tile, u0, u1 []float64) error {
	n := tile.AugmentedCells()
	if len(u0) != n || len(u1) != n {
		return fmt.Errorf("fields of %d and %d cells do not match %dx%d tile",
			len(u0), len(u1), tile.AugRows, tile.AugCols)
	}
	rx, ry := d.Coefficients(tile)
	rc := 1 - 2*rx - 2*ry
	w := tile.AugCols
	for i := mesh.Padding; i <= tile.CoreRows; i++ {
		for j := mesh.Padding; j <= tile.CoreCols; j++ {
			k := tile.Index(i, j)
			u1[k] = rc*u0[k] + rx*(u0[k-1]+u0[k+1]) + ry*(u0[k-w]+u0[k+w])
		}
	}
	return nil
}

func (d *Diffusion) Close() error { return nil }
