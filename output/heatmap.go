package output

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/notargets/halogrid/mesh"
)

// coreGrid adapts a tile's core cells to plotter.GridXYZ. Coordinates are
// cell centers.
type coreGrid struct {
	tile  *mesh.Tile
	field []float64
}

func (g coreGrid) Dims() (c, r int) { return g.tile.CoreCols, g.tile.CoreRows }

func (g coreGrid) Z(c, r int) float64 {
	return g.field[g.tile.Index(r+mesh.Padding, c+mesh.Padding)]
}

func (g coreGrid) X(c int) float64 {
	return g.tile.ColX(c+mesh.Padding) + g.tile.Domain.DelX()/2
}

func (g coreGrid) Y(r int) float64 {
	return g.tile.RowY(r+mesh.Padding) + g.tile.Domain.DelY()/2
}

// Heatmap renders each rank's core field to <name>.<step>.<rank>.png
type Heatmap struct {
	Dir, Name string
	Rank      int
	Size      vg.Length // Edge length of the square image
}

func NewHeatmap(dir, name string, rank int) (*Heatmap, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Heatmap{Dir: dir, Name: name, Rank: rank, Size: 4 * vg.Inch}, nil
}

func (h *Heatmap) Path(step int) string {
	return filepath.Join(h.Dir, fmt.Sprintf("%s.%d.%d.png", h.Name, step, h.Rank))
}

func (h *Heatmap) Write(step int, time float64, tile *mesh.Tile, field []float64) error {
	if len(field) != tile.AugmentedCells() {
		return fmt.Errorf("field of %d cells does not match %dx%d tile", len(field), tile.AugRows, tile.AugCols)
	}
	hm := plotter.NewHeatMap(coreGrid{tile: tile, field: field}, palette.Heat(12, 1))
	if hm.Max == hm.Min {
		// A uniform field still needs a non-empty color range
		hm.Max = hm.Min + 1
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s rank %d step %d t=%.4f", h.Name, h.Rank, step, time)
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(hm)
	if err := p.Save(h.Size, h.Size, h.Path(step)); err != nil {
		return fmt.Errorf("heatmap for step %d: %w", step, err)
	}
	return nil
}
