package partitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDims(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		hints [2]int
		want  [2]int
	}{
		{"Single", 1, [2]int{0, 0}, [2]int{1, 1}},
		{"Square", 4, [2]int{0, 0}, [2]int{2, 2}},
		{"Six", 6, [2]int{0, 0}, [2]int{3, 2}},
		{"Twelve", 12, [2]int{0, 0}, [2]int{4, 3}},
		{"Prime", 7, [2]int{0, 0}, [2]int{7, 1}},
		{"FixedRows", 6, [2]int{1, 0}, [2]int{1, 6}},
		{"FixedCols", 6, [2]int{0, 3}, [2]int{2, 3}},
		{"FullyFixed", 8, [2]int{2, 4}, [2]int{2, 4}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Dims(tc.n, tc.hints)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("Errors", func(t *testing.T) {
		for _, bad := range []struct {
			n     int
			hints [2]int
		}{
			{0, [2]int{0, 0}},
			{6, [2]int{4, 0}},
			{8, [2]int{2, 3}},
			{4, [2]int{-1, 0}},
		} {
			_, err := Dims(bad.n, bad.hints)
			assert.ErrorIs(t, err, ErrTopology, "n=%d hints=%v", bad.n, bad.hints)
		}
	})
}

// TestProcessGrid_CoordsCoverGrid checks unique coordinates covering [0,R)x[0,C)
func TestProcessGrid_CoordsCoverGrid(t *testing.T) {
	for _, shape := range [][2]int{{1, 1}, {2, 2}, {3, 2}, {1, 5}, {4, 3}} {
		size := shape[0] * shape[1]
		seen := make(map[Coord]int)
		for rank := 0; rank < size; rank++ {
			pg, err := NewProcessGrid(size, rank, shape)
			require.NoError(t, err)
			if prev, dup := seen[pg.Coord]; dup {
				t.Fatalf("shape %v: ranks %d and %d share %v", shape, prev, rank, pg.Coord)
			}
			seen[pg.Coord] = rank
			back, err := pg.RankOf(pg.Coord)
			require.NoError(t, err)
			assert.Equal(t, rank, back)
		}
		assert.Len(t, seen, size)
		for r := 0; r < shape[0]; r++ {
			for c := 0; c < shape[1]; c++ {
				assert.Contains(t, seen, Coord{r, c})
			}
		}
		assert.Equal(t, 0, seen[Coord{0, 0}])
	}
}

func TestProcessGrid_Neighbors(t *testing.T) {
	// 3x3 grid, rank 4 is the center
	center, err := NewProcessGrid(9, 4, [2]int{3, 3})
	require.NoError(t, err)
	want := map[Direction]int{Top: 1, Bottom: 7, Left: 3, Right: 5}
	for d, rank := range want {
		assert.True(t, center.HasNeighbor(d), d.String())
		got, err := center.Neighbor(d)
		require.NoError(t, err)
		assert.Equal(t, rank, got, d.String())
	}

	corner, err := NewProcessGrid(9, 0, [2]int{3, 3})
	require.NoError(t, err)
	assert.False(t, corner.HasNeighbor(Top))
	assert.False(t, corner.HasNeighbor(Left))
	assert.True(t, corner.HasNeighbor(Bottom))
	assert.True(t, corner.HasNeighbor(Right))
	got, err := corner.Neighbor(Top)
	require.NoError(t, err)
	assert.Equal(t, NoNeighbor, got)

	single, err := NewProcessGrid(1, 0, [2]int{0, 0})
	require.NoError(t, err)
	for _, d := range Directions {
		assert.False(t, single.HasNeighbor(d))
	}
}

func TestProcessGrid_Errors(t *testing.T) {
	_, err := NewProcessGrid(4, 4, [2]int{2, 2})
	assert.ErrorIs(t, err, ErrTopology)

	_, err = NewProcessGrid(5, 0, [2]int{2, 2})
	assert.ErrorIs(t, err, ErrTopology)

	pg, err := NewProcessGrid(4, 0, [2]int{2, 2})
	require.NoError(t, err)
	_, err = pg.RankOf(Coord{2, 0})
	assert.ErrorIs(t, err, ErrTopology)

	_, err = pg.Neighbor(Direction(9))
	assert.ErrorIs(t, err, ErrUnknownFace)
	assert.False(t, pg.HasNeighbor(Direction(9)))
}

func TestDirection(t *testing.T) {
	for _, d := range Directions {
		assert.NoError(t, d.Validate())
		assert.Equal(t, d, d.Opposite().Opposite())
	}
	assert.Equal(t, Bottom, Top.Opposite())
	assert.Equal(t, Left, Right.Opposite())
	assert.True(t, Top.Vertical())
	assert.False(t, Left.Vertical())
	assert.ErrorIs(t, Direction(4).Validate(), ErrUnknownFace)
	assert.Panics(t, func() { Direction(4).Opposite() })
}
