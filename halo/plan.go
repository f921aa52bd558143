package halo

import (
	"fmt"

	"github.com/notargets/halogrid/mesh"
	"github.com/notargets/halogrid/partitions"
)

// FaceExchange holds the pick and place indices for one paired face
type FaceExchange struct {
	Face     partitions.Direction
	Neighbor int   // Rank across Face
	Pick     []int // Core cells sent to Neighbor
	Place    []int // Ghost cells filled from Neighbor

	send, recv []float64 // Staging, same length as Pick
}

// SendTag labels messages this rank sends across the face
func (fe *FaceExchange) SendTag() int { return int(fe.Face) }

// RecvTag labels messages the neighbor sends back; it sees this face as the
// opposite one
func (fe *FaceExchange) RecvTag() int { return int(fe.Face.Opposite()) }

func (fe *FaceExchange) gather(field []float64) []float64 {
	for i, idx := range fe.Pick {
		fe.send[i] = field[idx]
	}
	return fe.send
}

func (fe *FaceExchange) scatter(field []float64) {
	for i, idx := range fe.Place {
		field[idx] = fe.recv[i]
	}
}

// Plan is the set of face exchanges for one tile geometry. Faces without a
// neighbor are absent.
type Plan struct {
	CoreRows, CoreCols int
	AugRows, AugCols   int
	Faces              []*FaceExchange
}

// NewPlan builds the pick and place indices of every paired face of tile
func NewPlan(tile *mesh.Tile) (*Plan, error) {
	p := &Plan{
		CoreRows: tile.CoreRows,
		CoreCols: tile.CoreCols,
		AugRows:  tile.AugRows,
		AugCols:  tile.AugCols,
	}
	for _, face := range partitions.Directions {
		nbr, err := tile.Grid.Neighbor(face)
		if err != nil {
			return nil, err
		}
		if nbr == partitions.NoNeighbor {
			continue
		}
		pick, place := faceIndices(tile, face)
		p.Faces = append(p.Faces, &FaceExchange{
			Face:     face,
			Neighbor: nbr,
			Pick:     pick,
			Place:    place,
			send:     make([]float64, len(pick)),
			recv:     make([]float64, len(pick)),
		})
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return p, nil
}

// faceIndices returns the boundary core row or column next to face and the
// padding layer it fills on the neighbor side
func faceIndices(t *mesh.Tile, face partitions.Direction) (pick, place []int) {
	var (
		n                    int
		pickAt, placeAt      func(k int) int
		lastRow, lastCol, p0 = t.CoreRows, t.CoreCols, mesh.Padding
	)
	switch face {
	case partitions.Top:
		n = t.CoreCols
		pickAt = func(k int) int { return t.Index(p0, p0+k) }
		placeAt = func(k int) int { return t.Index(0, p0+k) }
	case partitions.Bottom:
		n = t.CoreCols
		pickAt = func(k int) int { return t.Index(lastRow, p0+k) }
		placeAt = func(k int) int { return t.Index(lastRow+1, p0+k) }
	case partitions.Left:
		n = t.CoreRows
		pickAt = func(k int) int { return t.Index(p0+k, p0) }
		placeAt = func(k int) int { return t.Index(p0+k, 0) }
	case partitions.Right:
		n = t.CoreRows
		pickAt = func(k int) int { return t.Index(p0+k, lastCol) }
		placeAt = func(k int) int { return t.Index(p0+k, lastCol+1) }
	}
	pick, place = make([]int, n), make([]int, n)
	for k := 0; k < n; k++ {
		pick[k], place[k] = pickAt(k), placeAt(k)
	}
	return pick, place
}

// Face returns the exchange for face, or nil when the face is unpaired
func (p *Plan) Face(face partitions.Direction) *FaceExchange {
	for _, fe := range p.Faces {
		if fe.Face == face {
			return fe
		}
	}
	return nil
}

// Verify checks that picks read core cells, places write padding cells and
// that every face moves a whole row or column
func (p *Plan) Verify() error {
	inCore := func(idx int) bool {
		i, j := idx/p.AugCols, idx%p.AugCols
		return i >= mesh.Padding && i <= p.CoreRows && j >= mesh.Padding && j <= p.CoreCols
	}
	size := p.AugRows * p.AugCols
	for _, fe := range p.Faces {
		if len(fe.Pick) != len(fe.Place) {
			return fmt.Errorf("%v face: %d picks for %d places", fe.Face, len(fe.Pick), len(fe.Place))
		}
		want := p.CoreCols
		if !fe.Face.Vertical() {
			want = p.CoreRows
		}
		if len(fe.Pick) != want {
			return fmt.Errorf("%v face: moves %d cells, expected %d", fe.Face, len(fe.Pick), want)
		}
		for k := range fe.Pick {
			if idx := fe.Pick[k]; idx < 0 || idx >= size || !inCore(idx) {
				return fmt.Errorf("%v face: pick index %d is not a core cell", fe.Face, idx)
			}
			if idx := fe.Place[k]; idx < 0 || idx >= size || inCore(idx) {
				return fmt.Errorf("%v face: place index %d is not a padding cell", fe.Face, idx)
			}
		}
	}
	return nil
}
