package mesh

import (
	"fmt"

	"github.com/notargets/halogrid/partitions"
)

// Reflect copies the core row or column adjacent to face into that face's
// padding layer, a zero-gradient boundary. Faces with a neighbor are left to
// the exchange and not touched. Corners are left untouched.
func Reflect(field []float64, t *Tile, face partitions.Direction) error {
	if err := face.Validate(); err != nil {
		return err
	}
	if t.Grid.HasNeighbor(face) {
		return nil
	}
	if len(field) != t.AugmentedCells() {
		return fmt.Errorf("field of %d cells does not match %dx%d tile",
			len(field), t.AugRows, t.AugCols)
	}
	first, lastRow, lastCol := Padding, t.CoreRows, t.CoreCols
	switch face {
	case partitions.Top:
		for j := first; j <= lastCol; j++ {
			field[t.Index(0, j)] = field[t.Index(first, j)]
		}
	case partitions.Bottom:
		for j := first; j <= lastCol; j++ {
			field[t.Index(lastRow+1, j)] = field[t.Index(lastRow, j)]
		}
	case partitions.Left:
		for i := first; i <= lastRow; i++ {
			field[t.Index(i, 0)] = field[t.Index(i, first)]
		}
	case partitions.Right:
		for i := first; i <= lastRow; i++ {
			field[t.Index(i, lastCol+1)] = field[t.Index(i, lastCol)]
		}
	}
	return nil
}

// ReflectUnpaired applies Reflect to every face on the global domain edge
func ReflectUnpaired(field []float64, t *Tile) error {
	for _, face := range partitions.Directions {
		if err := Reflect(field, t, face); err != nil {
			return err
		}
	}
	return nil
}
