// Package output serializes the core of each rank's tile at output steps
package output

import (
	"github.com/notargets/halogrid/mesh"
)

// Writer records one rank's field at a step
type Writer interface {
	Write(step int, time float64, tile *mesh.Tile, field []float64) error
}

// Writers fans a step out to several writers, stopping at the first error
type Writers []Writer

func (ws Writers) Write(step int, time float64, tile *mesh.Tile, field []float64) error {
	for _, w := range ws {
		if err := w.Write(step, time, tile, field); err != nil {
			return err
		}
	}
	return nil
}
