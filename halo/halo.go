// Package halo fills the ghost layers of a tile with the boundary cells of
// its neighbors. Two protocols are provided: Async posts every send and
// receive at once, Ordered runs a fixed four phase schedule colored by
// process-grid parity.
package halo

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/notargets/halogrid/comm"
	"github.com/notargets/halogrid/mesh"
	"github.com/notargets/halogrid/partitions"
)

type Strategy uint8

const (
	Async   Strategy = iota // Concurrent sends and receives on every face
	Ordered                 // Parity ordered combined send/receive, four phases
)

func (s Strategy) String() string {
	switch s {
	case Async:
		return "async"
	case Ordered:
		return "ordered"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// ParseStrategy maps a configuration name to a Strategy
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range []Strategy{Async, Ordered} {
		if s.String() == name {
			return s, nil
		}
	}
	return Async, fmt.Errorf("unknown exchange strategy %q", name)
}

// DefaultStrategy is the protocol each decomposition ran with historically
func DefaultStrategy(d mesh.Decomposition) Strategy {
	if d == mesh.StaticBlocking {
		return Ordered
	}
	return Async
}

type planKey struct {
	grid               *partitions.ProcessGrid
	coreRows, coreCols int
}

// Exchanger implements mesh.Exchanger over a Communicator
type Exchanger struct {
	Strategy Strategy

	comm  comm.Communicator
	log   logrus.FieldLogger
	plans map[planKey]*Plan
}

var _ mesh.Exchanger = (*Exchanger)(nil)

// New returns an exchanger for this rank. log may be nil.
func New(c comm.Communicator, s Strategy, log logrus.FieldLogger) (*Exchanger, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil communicator", partitions.ErrTopology)
	}
	if s != Async && s != Ordered {
		return nil, fmt.Errorf("unknown exchange strategy %v", s)
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Exchanger{
		Strategy: s,
		comm:     c,
		log:      log,
		plans:    make(map[planKey]*Plan),
	}, nil
}

// Plan returns the cached plan for tile's geometry, building it on first use
func (e *Exchanger) Plan(tile *mesh.Tile) (*Plan, error) {
	if tile.Grid.Rank != e.comm.Rank() || tile.Grid.Size() != e.comm.Size() {
		return nil, fmt.Errorf("%w: tile of rank %d/%d on communicator rank %d/%d",
			partitions.ErrTopology, tile.Grid.Rank, tile.Grid.Size(), e.comm.Rank(), e.comm.Size())
	}
	key := planKey{tile.Grid, tile.CoreRows, tile.CoreCols}
	if p, ok := e.plans[key]; ok {
		return p, nil
	}
	p, err := NewPlan(tile)
	if err != nil {
		return nil, err
	}
	e.plans[key] = p
	e.log.Debugf("halo plan for %dx%d core, %d paired faces", tile.CoreRows, tile.CoreCols, len(p.Faces))
	return p, nil
}

// Exchange fills every paired ghost layer of field with the neighbor's
// adjacent core cells. It returns once all of this rank's sends and
// receives have completed.
func (e *Exchanger) Exchange(field []float64, tile *mesh.Tile) error {
	if len(field) != tile.AugmentedCells() {
		return fmt.Errorf("field of %d cells does not match %dx%d tile",
			len(field), tile.AugRows, tile.AugCols)
	}
	plan, err := e.Plan(tile)
	if err != nil {
		return err
	}
	switch e.Strategy {
	case Ordered:
		err = e.exchangeOrdered(field, tile.Grid.Coord, plan)
	default:
		err = e.exchangeAsync(field, plan)
	}
	if err != nil {
		return fmt.Errorf("%v halo exchange on rank %d: %w", e.Strategy, e.comm.Rank(), err)
	}
	return nil
}

// exchangeAsync posts every send and receive concurrently and waits on all
// of them. Waiting on sends keeps the staging buffers and {dest, tag} pairs
// free for the next call.
func (e *Exchanger) exchangeAsync(field []float64, plan *Plan) error {
	var wg sync.WaitGroup
	errs := make([]error, 2*len(plan.Faces))
	for i, fe := range plan.Faces {
		data := fe.gather(field)
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs[2*i] = e.comm.Send(data, fe.Neighbor, fe.SendTag())
		}()
		go func() {
			defer wg.Done()
			errs[2*i+1] = e.comm.Receive(fe.recv, fe.Neighbor, fe.RecvTag())
		}()
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return err
	}
	for _, fe := range plan.Faces {
		fe.scatter(field)
	}
	return nil
}

// exchangeOrdered runs the row phases then the column phases. In the first
// phase of each pair odd rows (columns) face toward the origin and even rows
// (columns) away from it; the second phase reverses this, so both sides of
// every pair are in the same phase.
func (e *Exchanger) exchangeOrdered(field []float64, at partitions.Coord, plan *Plan) error {
	phases := [4]partitions.Direction{partitions.Bottom, partitions.Top, partitions.Right, partitions.Left}
	if at.Row%2 == 1 {
		phases[0], phases[1] = partitions.Top, partitions.Bottom
	}
	if at.Col%2 == 1 {
		phases[2], phases[3] = partitions.Left, partitions.Right
	}
	for _, face := range phases {
		fe := plan.Face(face)
		if fe == nil {
			continue
		}
		if err := e.sendRecv(fe, field); err != nil {
			return fmt.Errorf("%v face: %w", face, err)
		}
		fe.scatter(field)
	}
	return nil
}

// sendRecv is a combined send and receive with one peer
func (e *Exchanger) sendRecv(fe *FaceExchange, field []float64) error {
	data := fe.gather(field)
	done := make(chan error, 1)
	go func() { done <- e.comm.Send(data, fe.Neighbor, fe.SendTag()) }()
	recvErr := e.comm.Receive(fe.recv, fe.Neighbor, fe.RecvTag())
	return errors.Join(<-done, recvErr)
}
