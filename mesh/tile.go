package mesh

import (
	"fmt"

	"github.com/notargets/halogrid/partitions"
)

// Padding is the width of the layer reserved on every face of a tile. The
// layer holds either a neighbor's boundary values or the reflected value.
const Padding = 1

// Tile is the geometry of the sub-rectangle owned by one process. Local
// indices address the augmented extent; core cells start at Padding.
type Tile struct {
	Domain GlobalDomain
	Grid   *partitions.ProcessGrid

	// Orientation of the row and column splits. They differ only on the
	// intermediate tile of a dynamic shift.
	RowOrientation, ColOrientation partitions.Orientation

	CoreRows, CoreCols int // Cells this process is authoritative for
	AugRows, AugCols   int // Core plus one padding layer per face

	RowOffset, ColOffset int     // Global index of the first core cell
	OriginY, OriginX     float64 // Physical coordinate of the first core cell
}

// NewTile derives this process's tile from the process grid and domain
func NewTile(domain GlobalDomain, grid *partitions.ProcessGrid, o partitions.Orientation) (*Tile, error) {
	return newTile(domain, grid, o, o)
}

func newTile(domain GlobalDomain, grid *partitions.ProcessGrid, ro, co partitions.Orientation) (*Tile, error) {
	if err := domain.Validate(); err != nil {
		return nil, err
	}
	if grid == nil {
		return nil, fmt.Errorf("%w: nil process grid", partitions.ErrTopology)
	}
	row, col := grid.Coord.Row, grid.Coord.Col
	t := &Tile{
		Domain:         domain,
		Grid:           grid,
		RowOrientation: ro,
		ColOrientation: co,
		CoreRows:       partitions.DirectionalSpan(row, grid.Rows, domain.Rows, ro),
		CoreCols:       partitions.DirectionalSpan(col, grid.Cols, domain.Cols, co),
		RowOffset:      partitions.DirectionalOffset(row, grid.Rows, domain.Rows, ro),
		ColOffset:      partitions.DirectionalOffset(col, grid.Cols, domain.Cols, co),
	}
	if t.CoreRows < 1 || t.CoreCols < 1 {
		return nil, fmt.Errorf("%w: rank %d at (%d,%d) gets an empty %dx%d tile of a %dx%d domain",
			partitions.ErrLayout, grid.Rank, row, col, t.CoreRows, t.CoreCols, domain.Rows, domain.Cols)
	}
	t.AugRows = t.CoreRows + 2*Padding
	t.AugCols = t.CoreCols + 2*Padding
	t.OriginY = float64(t.RowOffset) * domain.DelY()
	t.OriginX = float64(t.ColOffset) * domain.DelX()
	return t, nil
}

// CoreCells is the number of cells this process is authoritative for
func (t *Tile) CoreCells() int { return t.CoreRows * t.CoreCols }

// AugmentedCells is the buffer length needed for the tile
func (t *Tile) AugmentedCells() int { return t.AugRows * t.AugCols }

// Index maps an augmented (row, col) to the flat row-major position
func (t *Tile) Index(row, col int) int { return row*t.AugCols + col }

// RowY returns the physical y of augmented row i. Valid for ghost rows too.
// Computed from the global row so every decomposition rounds alike.
func (t *Tile) RowY(i int) float64 {
	return float64(t.GlobalRow(i)) * t.Domain.DelY()
}

// ColX returns the physical x of augmented column j
func (t *Tile) ColX(j int) float64 {
	return float64(t.GlobalCol(j)) * t.Domain.DelX()
}

// GlobalRow maps an augmented row to its global logical row
func (t *Tile) GlobalRow(i int) int { return t.RowOffset + i - Padding }

// GlobalCol maps an augmented column to its global logical column
func (t *Tile) GlobalCol(j int) int { return t.ColOffset + j - Padding }

// SameShape reports whether both tiles need buffers of the same extent
func (t *Tile) SameShape(o *Tile) bool {
	return t.AugRows == o.AugRows && t.AugCols == o.AugCols
}

// Contains reports whether the global cell (row, col) is in the core
func (t *Tile) Contains(row, col int) bool {
	return row >= t.RowOffset && row < t.RowOffset+t.CoreRows &&
		col >= t.ColOffset && col < t.ColOffset+t.CoreCols
}

func (t *Tile) String() string {
	return fmt.Sprintf("rank %d (%d,%d) core %dx%d at [%d,%d] augmented %dx%d %v/%v",
		t.Grid.Rank, t.Grid.Coord.Row, t.Grid.Coord.Col, t.CoreRows, t.CoreCols,
		t.RowOffset, t.ColOffset, t.AugRows, t.AugCols, t.RowOrientation, t.ColOrientation)
}
