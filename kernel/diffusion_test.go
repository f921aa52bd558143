package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/halogrid/mesh"
	"github.com/notargets/halogrid/partitions"
)

func singleTile(t *testing.T, rows, cols int, height, width float64) *mesh.Tile {
	t.Helper()
	grid, err := partitions.NewProcessGrid(1, 0, [2]int{0, 0})
	require.NoError(t, err)
	tile, err := mesh.NewTile(mesh.GlobalDomain{Rows: rows, Cols: cols, Height: height, Width: width},
		grid, partitions.Prograde)
	require.NoError(t, err)
	return tile
}

func TestDiffusion_ConstantFieldIsSteady(t *testing.T) {
	tile := singleTile(t, 4, 5, 1, 1)
	d, err := NewDiffusion(0.001)
	require.NoError(t, err)
	u0 := make([]float64, tile.AugmentedCells())
	u1 := make([]float64, tile.AugmentedCells())
	for i := range u0 {
		u0[i] = 3.5
	}
	require.NoError(t, d.Step(tile, u0, u1))
	for i := 1; i <= tile.CoreRows; i++ {
		for j := 1; j <= tile.CoreCols; j++ {
			assert.InDelta(t, 3.5, u1[tile.Index(i, j)], 1e-12)
		}
	}
}

func TestDiffusion_Stencil(t *testing.T) {
	tile := singleTile(t, 3, 3, 3, 6) // dy = 1, dx = 2
	d, err := NewDiffusion(0.1)
	require.NoError(t, err)
	rx, ry := d.Coefficients(tile)
	assert.InDelta(t, 0.025, rx, 1e-15)
	assert.InDelta(t, 0.1, ry, 1e-15)

	u0 := make([]float64, tile.AugmentedCells())
	u1 := make([]float64, tile.AugmentedCells())
	for i := range u0 {
		u0[i] = float64(i * i)
		u1[i] = math.NaN()
	}
	require.NoError(t, d.Step(tile, u0, u1))

	c := tile.Index(2, 2)
	want := (1-2*rx-2*ry)*u0[c] + rx*(u0[c-1]+u0[c+1]) + ry*(u0[c-tile.AugCols]+u0[c+tile.AugCols])
	assert.InDelta(t, want, u1[c], 1e-9)

	// Padding of the output is left alone
	for j := 0; j < tile.AugCols; j++ {
		assert.True(t, math.IsNaN(u1[tile.Index(0, j)]))
		assert.True(t, math.IsNaN(u1[tile.Index(tile.AugRows-1, j)]))
	}
	for i := 1; i <= tile.CoreRows; i++ {
		assert.True(t, math.IsNaN(u1[tile.Index(i, 0)]))
		assert.False(t, math.IsNaN(u1[tile.Index(i, 1)]))
	}
}

func TestDiffusion_Errors(t *testing.T) {
	_, err := NewDiffusion(0)
	assert.Error(t, err)
	tile := singleTile(t, 2, 2, 1, 1)
	d, err := NewDiffusion(0.01)
	require.NoError(t, err)
	assert.Error(t, d.Step(tile, make([]float64, 3), make([]float64, tile.AugmentedCells())))
}

func TestBackends(t *testing.T) {
	assert.Contains(t, Backends(), "host")
	k, err := New("host", Options{Dt: 0.01})
	require.NoError(t, err)
	assert.IsType(t, &Diffusion{}, k)
	assert.NoError(t, k.Close())

	_, err = New("fpga", Options{Dt: 0.01})
	assert.Error(t, err)
	assert.Panics(t, func() { Register("host", nil) })
}
