// Package mesh holds the per-process view of the distributed structured grid:
// the tile geometry derived from the process grid, the double-buffered field,
// the reflective boundary condition and the step sequence that ties them to
// a halo exchanger.
package mesh

import (
	"fmt"

	"github.com/notargets/halogrid/partitions"
)

// GlobalDomain is the simulated rectangle, identical on every process
type GlobalDomain struct {
	Rows, Cols    int     // Logical cell counts
	Height, Width float64 // Physical extents, Height spans Rows
}

// Validate rejects empty or inverted domains
func (gd GlobalDomain) Validate() error {
	if gd.Rows <= 0 || gd.Cols <= 0 {
		return fmt.Errorf("%w: logical dimensions %dx%d", partitions.ErrLayout, gd.Rows, gd.Cols)
	}
	if !(gd.Height > 0) || !(gd.Width > 0) {
		return fmt.Errorf("%w: physical dimensions %gx%g", partitions.ErrLayout, gd.Height, gd.Width)
	}
	return nil
}

// DelY is the cell spacing along rows
func (gd GlobalDomain) DelY() float64 { return gd.Height / float64(gd.Rows) }

// DelX is the cell spacing along columns
func (gd GlobalDomain) DelX() float64 { return gd.Width / float64(gd.Cols) }
