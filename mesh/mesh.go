package mesh

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/halogrid/partitions"
)

// Decomposition selects how the domain is split and how ghosts are filled
type Decomposition uint8

const (
	Static         Decomposition = iota // Fixed tiles, asynchronous exchange
	StaticBlocking                      // Fixed tiles, parity ordered exchange
	Dynamic                             // Partition boundary shifts every step
)

func (d Decomposition) String() string {
	switch d {
	case Static:
		return "static"
	case StaticBlocking:
		return "static_blocking"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("Decomposition(%d)", uint8(d))
	}
}

// ParseDecomposition maps a configuration name to a Decomposition
func ParseDecomposition(name string) (Decomposition, error) {
	for _, d := range []Decomposition{Static, StaticBlocking, Dynamic} {
		if d.String() == name {
			return d, nil
		}
	}
	return Static, fmt.Errorf("unknown decomposition %q", name)
}

// Exchanger fills the ghost cells of field on every face that has a
// neighbor. It is called identically on every process.
type Exchanger interface {
	Exchange(field []float64, tile *Tile) error
}

// Config selects the domain and decomposition of a Mesh. Log may be nil.
type Config struct {
	Domain        GlobalDomain
	Decomposition Decomposition
	Log           logrus.FieldLogger
}

// Mesh is one process's tile of the distributed field
type Mesh struct {
	Domain        GlobalDomain
	Grid          *partitions.ProcessGrid
	Decomposition Decomposition

	tile      *Tile
	buffers   *Buffers
	exchanger Exchanger
	log       logrus.FieldLogger
	steps     int
}

// New builds the tile and buffers for this process. exchanger may be nil
// only when the grid holds a single process.
func New(grid *partitions.ProcessGrid, cfg Config, exchanger Exchanger) (*Mesh, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil process grid", partitions.ErrTopology)
	}
	if exchanger == nil && grid.Size() > 1 {
		return nil, fmt.Errorf("%w: %d processes need an exchanger", partitions.ErrTopology, grid.Size())
	}
	if err := cfg.Domain.Validate(); err != nil {
		return nil, err
	}
	// Checked on the global layouts so every process reaches the same verdict
	orientations := []partitions.Orientation{partitions.Prograde}
	if cfg.Decomposition == Dynamic {
		orientations = append(orientations, partitions.Retrograde)
	}
	for _, o := range orientations {
		if err := checkLayouts(cfg.Domain, grid, o); err != nil {
			return nil, err
		}
	}

	tile, err := NewTile(cfg.Domain, grid, partitions.Prograde)
	if err != nil {
		return nil, err
	}
	log := cfg.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	m := &Mesh{
		Domain:        cfg.Domain,
		Grid:          grid,
		Decomposition: cfg.Decomposition,
		tile:          tile,
		buffers:       NewBuffers(tile.AugRows, tile.AugCols),
		exchanger:     exchanger,
		log:           log,
	}
	m.log.WithField("decomposition", cfg.Decomposition).Debugf("tile %v", tile)
	return m, nil
}

func checkLayouts(domain GlobalDomain, grid *partitions.ProcessGrid, o partitions.Orientation) error {
	rows, err := grid.RowLayout(domain.Rows, o)
	if err != nil {
		return err
	}
	cols, err := grid.ColLayout(domain.Cols, o)
	if err != nil {
		return err
	}
	if rows.MinSpan() < 1 || cols.MinSpan() < 1 {
		return fmt.Errorf("%w: %dx%d domain leaves an empty %v tile on a %dx%d process grid",
			partitions.ErrLayout, domain.Rows, domain.Cols, o, grid.Rows, grid.Cols)
	}
	return nil
}

// Tile is the current geometry. It changes every step under Dynamic.
func (m *Mesh) Tile() *Tile { return m.tile }

// Buffers holds the current and next field of the current tile
func (m *Mesh) Buffers() *Buffers { return m.buffers }

// Current is the field the next kernel invocation reads
func (m *Mesh) Current() []float64 { return m.buffers.Current() }

// Next is the field the next kernel invocation writes
func (m *Mesh) Next() []float64 { return m.buffers.Next() }

// Steps counts completed calls to Advance
func (m *Mesh) Steps() int { return m.steps }

// Refresh fills every ghost layer of the current field. Call once after
// seeding initial conditions so the first kernel invocation reads valid
// ghosts.
func (m *Mesh) Refresh() error {
	return m.fillGhosts(m.buffers.Current())
}

// Advance completes a step after the kernel has written Next: ghosts of
// Next are filled, the buffers swap and, under Dynamic, the partition
// boundary moves.
func (m *Mesh) Advance() error {
	if err := m.fillGhosts(m.buffers.Next()); err != nil {
		return fmt.Errorf("step %d: %w", m.steps, err)
	}
	m.buffers.Swap()
	m.steps++
	if m.Decomposition == Dynamic {
		if err := m.shift(); err != nil {
			return fmt.Errorf("step %d: %w", m.steps, err)
		}
	}
	return nil
}

func (m *Mesh) fillGhosts(field []float64) error {
	if err := ReflectUnpaired(field, m.tile); err != nil {
		return err
	}
	if m.exchanger == nil {
		return nil
	}
	return m.exchanger.Exchange(field, m.tile)
}

// shift flips the orientation one axis at a time. Moving rows first and
// refreshing ghosts before moving columns keeps every cell a tile gains
// inside its face ghost layers; corners are never exchanged.
func (m *Mesh) shift() error {
	from := m.tile
	ro, co := from.RowOrientation.Flip(), from.ColOrientation.Flip()

	mid, err := newTile(m.Domain, m.Grid, ro, from.ColOrientation)
	if err != nil {
		return err
	}
	if err = m.retile(mid); err != nil {
		return err
	}
	to, err := newTile(m.Domain, m.Grid, ro, co)
	if err != nil {
		return err
	}
	if err = m.retile(to); err != nil {
		return err
	}
	m.log.WithField("orientation", ro).Debugf("shifted to %v", to)
	return nil
}

func (m *Mesh) retile(to *Tile) error {
	from := m.tile
	if m.buffers.Reshape(to.AugRows, to.AugCols, func(src, dst []float64) {
		remap(from, to, src, dst)
	}) {
		m.log.Debugf("reallocated buffers to %dx%d", to.AugRows, to.AugCols)
	}
	m.tile = to
	return m.fillGhosts(m.buffers.Current())
}

// remap copies every cell of to that from covers, core or ghost, by global
// index. Cells outside from are zeroed.
func remap(from, to *Tile, src, dst []float64) {
	clear(dst)
	for i := 0; i < to.AugRows; i++ {
		si := to.GlobalRow(i) - from.RowOffset + Padding
		if si < 0 || si >= from.AugRows {
			continue
		}
		for j := 0; j < to.AugCols; j++ {
			sj := to.GlobalCol(j) - from.ColOffset + Padding
			if sj < 0 || sj >= from.AugCols {
				continue
			}
			dst[to.Index(i, j)] = src[from.Index(si, sj)]
		}
	}
}

// CoreDense copies the core of the current field into a CoreRows x CoreCols
// matrix
func (m *Mesh) CoreDense() *mat.Dense {
	t := m.tile
	cur := m.buffers.Current()
	core := mat.NewDense(t.CoreRows, t.CoreCols, nil)
	for i := 0; i < t.CoreRows; i++ {
		start := t.Index(i+Padding, Padding)
		core.SetRow(i, cur[start:start+t.CoreCols])
	}
	return core
}

// CoreSum is the total of the current field over core cells
func (m *Mesh) CoreSum() float64 {
	t := m.tile
	cur := m.buffers.Current()
	var total float64
	for i := Padding; i <= t.CoreRows; i++ {
		start := t.Index(i, Padding)
		total += floats.Sum(cur[start : start+t.CoreCols])
	}
	return total
}
