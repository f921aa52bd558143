package occa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/halogrid/kernel"
	"github.com/notargets/halogrid/mesh"
	"github.com/notargets/halogrid/partitions"
)

// TestDiffusion_MatchesHost runs the device kernel against the host kernel
// on every backend that can be opened here
func TestDiffusion_MatchesHost(t *testing.T) {
	grid, err := partitions.NewProcessGrid(1, 0, [2]int{0, 0})
	require.NoError(t, err)

	for _, props := range fallbackDevices {
		d, err := NewDiffusion(kernel.Options{Dt: 0.0005, Device: props})
		if err != nil {
			t.Logf("Skipping %s: %v", props, err)
			continue
		}
		t.Run(d.Mode(), func(t *testing.T) {
			defer d.Close()
			host, err := kernel.NewDiffusion(0.0005)
			require.NoError(t, err)

			// Two extents exercise the device reallocation path
			for _, shape := range [][2]int{{6, 9}, {7, 9}} {
				tile, err := mesh.NewTile(mesh.GlobalDomain{Rows: shape[0], Cols: shape[1], Height: 1, Width: 2},
					grid, partitions.Prograde)
				require.NoError(t, err)
				n := tile.AugmentedCells()
				u0 := make([]float64, n)
				for i := range u0 {
					u0[i] = float64(i%7) * 0.5
				}
				want, got := make([]float64, n), make([]float64, n)
				for i := range want {
					want[i], got[i] = -1, -1
				}
				require.NoError(t, host.Step(tile, u0, want))
				require.NoError(t, d.Step(tile, u0, got))
				assert.InDeltaSlice(t, want, got, 1e-12)
			}
		})
	}
}
