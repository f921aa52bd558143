package driver

import (
	"github.com/notargets/halogrid/config"
	"github.com/notargets/halogrid/mesh"
)

// SeedValue is assigned to every cell inside a subregion
const SeedValue = 10.0

// Source seeds the initial field from configured subregions
type Source struct {
	Subregions []config.Subregion
}

// Populate zeroes both buffers, then sets SeedValue on every augmented cell
// of the current buffer whose coordinates fall in a subregion
func (s Source) Populate(m *mesh.Mesh) {
	u0, u1 := m.Current(), m.Next()
	clear(u0)
	clear(u1)
	t := m.Tile()
	for _, r := range s.Subregions {
		for i := 0; i < t.AugRows; i++ {
			y := t.RowY(i)
			if y < r.YMin || y >= r.YMax {
				continue
			}
			for j := 0; j < t.AugCols; j++ {
				if r.Contains(y, t.ColX(j)) {
					u0[t.Index(i, j)] = SeedValue
				}
			}
		}
	}
}
