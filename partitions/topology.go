package partitions

import (
	"fmt"
	"math"
)

// Direction identifies one of the four faces of a tile
type Direction uint8

const (
	Top    Direction = iota // Toward process-grid row 0
	Bottom                  // Toward the last process-grid row
	Left                    // Toward process-grid column 0
	Right                   // Toward the last process-grid column
)

// Directions lists the four faces in exchange order
var Directions = [4]Direction{Top, Bottom, Left, Right}

// NoNeighbor is the rank reported for a face on the global domain edge
const NoNeighbor = -1

func (d Direction) String() string {
	switch d {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Validate returns ErrUnknownFace for identifiers outside the four faces
func (d Direction) Validate() error {
	if d > Right {
		return fmt.Errorf("%w: %d", ErrUnknownFace, uint8(d))
	}
	return nil
}

// Opposite returns the face a neighbor sees across d
func (d Direction) Opposite() Direction {
	switch d {
	case Top:
		return Bottom
	case Bottom:
		return Top
	case Left:
		return Right
	case Right:
		return Left
	}
	panic(fmt.Sprintf("opposite of %v", d))
}

// Vertical is true for faces that exchange rows
func (d Direction) Vertical() bool {
	return d == Top || d == Bottom
}

// Coord is a position in the process grid
type Coord struct {
	Row, Col int
}

func (c Coord) step(d Direction) Coord {
	switch d {
	case Top:
		c.Row--
	case Bottom:
		c.Row++
	case Left:
		c.Col--
	case Right:
		c.Col++
	}
	return c
}

// Dims factors n processes into a rows x cols grid. Non-zero hints are kept
// as given; zero hints are filled with the most balanced factorization, the
// larger factor first.
func Dims(n int, hints [2]int) ([2]int, error) {
	if n <= 0 {
		return hints, fmt.Errorf("%w: %d processes", ErrTopology, n)
	}
	fixed, free := 1, 0
	for _, h := range hints {
		switch {
		case h < 0:
			return hints, fmt.Errorf("%w: negative dimension hint %v", ErrTopology, hints)
		case h == 0:
			free++
		default:
			fixed *= h
		}
	}
	if n%fixed != 0 {
		return hints, fmt.Errorf("%w: %d processes cannot fill a grid with dimensions %v",
			ErrTopology, n, hints)
	}
	remaining := n / fixed
	dims := hints

	switch free {
	case 0:
		if remaining != 1 {
			return hints, fmt.Errorf("%w: grid %dx%d does not match %d processes",
				ErrTopology, hints[0], hints[1], n)
		}
	case 1:
		if dims[0] == 0 {
			dims[0] = remaining
		} else {
			dims[1] = remaining
		}
	case 2:
		small := int(math.Sqrt(float64(remaining)))
		for ; small > 1; small-- {
			if remaining%small == 0 {
				break
			}
		}
		dims = [2]int{remaining / small, small}
	}
	return dims, nil
}

// ProcessGrid embeds one process into the logical 2D process grid. Ranks are
// laid out row-major. Neighbor ranks are resolved once at construction.
type ProcessGrid struct {
	Rows, Cols int
	Rank       int
	Coord      Coord

	neighbors [4]int
}

// NewProcessGrid places rank into a grid of size processes shaped by hints
func NewProcessGrid(size, rank int, hints [2]int) (*ProcessGrid, error) {
	dims, err := Dims(size, hints)
	if err != nil {
		return nil, err
	}
	pg := &ProcessGrid{
		Rows: dims[0],
		Cols: dims[1],
		Rank: rank,
	}
	if pg.Coord, err = pg.CoordOf(rank); err != nil {
		return nil, err
	}
	for _, d := range Directions {
		pg.neighbors[d] = NoNeighbor
		if c := pg.Coord.step(d); pg.Contains(c) {
			if pg.neighbors[d], err = pg.RankOf(c); err != nil {
				return nil, err
			}
		}
	}
	return pg, nil
}

// Size is the total number of processes in the grid
func (pg *ProcessGrid) Size() int {
	return pg.Rows * pg.Cols
}

// Contains reports whether c lies inside the grid
func (pg *ProcessGrid) Contains(c Coord) bool {
	return c.Row >= 0 && c.Row < pg.Rows && c.Col >= 0 && c.Col < pg.Cols
}

// RankOf maps a grid coordinate back to a process rank
func (pg *ProcessGrid) RankOf(c Coord) (int, error) {
	if !pg.Contains(c) {
		return NoNeighbor, fmt.Errorf("%w: coordinate (%d,%d) outside %dx%d grid",
			ErrTopology, c.Row, c.Col, pg.Rows, pg.Cols)
	}
	return c.Row*pg.Cols + c.Col, nil
}

// CoordOf maps a process rank to its grid coordinate
func (pg *ProcessGrid) CoordOf(rank int) (Coord, error) {
	if rank < 0 || rank >= pg.Size() {
		return Coord{}, fmt.Errorf("%w: rank %d outside %dx%d grid",
			ErrTopology, rank, pg.Rows, pg.Cols)
	}
	return Coord{Row: rank / pg.Cols, Col: rank % pg.Cols}, nil
}

// HasNeighbor is false exactly when the tile sits on the global edge facing d
func (pg *ProcessGrid) HasNeighbor(d Direction) bool {
	return d.Validate() == nil && pg.neighbors[d] != NoNeighbor
}

// Neighbor returns the rank across face d, or NoNeighbor
func (pg *ProcessGrid) Neighbor(d Direction) (int, error) {
	if err := d.Validate(); err != nil {
		return NoNeighbor, err
	}
	return pg.neighbors[d], nil
}

// RowLayout returns the split of globalRows across the grid's process rows
func (pg *ProcessGrid) RowLayout(globalRows int, o Orientation) (*AxisLayout, error) {
	return NewAxisLayout(pg.Rows, globalRows, o)
}

// ColLayout returns the split of globalCols across the grid's process columns
func (pg *ProcessGrid) ColLayout(globalCols int, o Orientation) (*AxisLayout, error) {
	return NewAxisLayout(pg.Cols, globalCols, o)
}
