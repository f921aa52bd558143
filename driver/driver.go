// Package driver runs the time loop of one rank: seed the field, then
// alternate kernel updates and halo refreshes, writing output at the
// configured rate.
package driver

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/halogrid/comm"
	"github.com/notargets/halogrid/config"
	"github.com/notargets/halogrid/halo"
	"github.com/notargets/halogrid/kernel"
	"github.com/notargets/halogrid/mesh"
	"github.com/notargets/halogrid/output"
	"github.com/notargets/halogrid/partitions"
)

// Driver owns one rank's mesh, kernel and writers
type Driver struct {
	Settings *config.Settings
	Grid     *partitions.ProcessGrid
	Mesh     *mesh.Mesh
	Kernel   kernel.Kernel
	Output   output.Writers

	log logrus.FieldLogger
}

// Result summarizes a finished run on one rank
type Result struct {
	Rank      int
	Steps     int
	Time      float64
	Total     float64    // Sum of the core field
	RowOffset int        // Global row of Field's first row
	ColOffset int        // Global column of Field's first column
	Field     *mat.Dense // Final core field
}

// New sets up the rank behind c and seeds its field. log may be nil.
func New(s *config.Settings, c comm.Communicator, log logrus.FieldLogger) (*Driver, error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	grid, err := partitions.NewProcessGrid(c.Size(), c.Rank(), s.DimNodes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrSetup, err)
	}
	log = log.WithFields(logrus.Fields{
		"rank": grid.Rank,
		"row":  grid.Coord.Row,
		"col":  grid.Coord.Col,
	})

	ex, err := halo.New(c, s.Exchange, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrSetup, err)
	}
	m, err := mesh.New(grid, mesh.Config{Domain: s.Domain, Decomposition: s.Decomposition, Log: log}, ex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrSetup, err)
	}
	k, err := kernel.New(s.Kernel, kernel.Options{Dt: s.Timestep, Device: s.OccaDevice, Log: log})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrSetup, err)
	}
	d := &Driver{Settings: s, Grid: grid, Mesh: m, Kernel: k, log: log}

	if s.VTK {
		w, err := output.NewVTKWriter(s.OutputDir, s.Name, grid.Rank, grid.Size())
		if err != nil {
			k.Close()
			return nil, err
		}
		d.Output = append(d.Output, w)
	}
	if s.Heatmap {
		h, err := output.NewHeatmap(s.OutputDir, s.Name, grid.Rank)
		if err != nil {
			k.Close()
			return nil, err
		}
		d.Output = append(d.Output, h)
	}

	Source{Subregions: s.Subregions}.Populate(m)
	if err = m.Refresh(); err != nil {
		k.Close()
		return nil, err
	}
	log.Debugf("initialized %v", m.Tile())
	return d, nil
}

// Run advances from start_time while t < end_time
func (d *Driver) Run() (*Result, error) {
	s := d.Settings
	d.log.Debug("run beginning")
	step, now := 0, s.StartTime
	for now < s.EndTime {
		if step%s.VisualizationRate == 0 {
			if err := d.write(step, now); err != nil {
				return nil, err
			}
		}
		if err := d.Kernel.Step(d.Mesh.Tile(), d.Mesh.Current(), d.Mesh.Next()); err != nil {
			return nil, fmt.Errorf("kernel at step %d: %w", step, err)
		}
		if err := d.Mesh.Advance(); err != nil {
			return nil, err
		}
		step++
		now += s.Timestep
	}
	if err := d.write(step, now); err != nil {
		return nil, err
	}
	d.log.Debug("run finishing")

	tile := d.Mesh.Tile()
	return &Result{
		Rank:      d.Grid.Rank,
		Steps:     step,
		Time:      now,
		Total:     d.Mesh.CoreSum(),
		RowOffset: tile.RowOffset,
		ColOffset: tile.ColOffset,
		Field:     d.Mesh.CoreDense(),
	}, nil
}

func (d *Driver) write(step int, now float64) error {
	d.log.WithFields(logrus.Fields{
		"step":       step,
		"time":       now,
		"total_temp": d.Mesh.CoreSum(),
	}).Debug("output")
	if err := d.Output.Write(step, now, d.Mesh.Tile(), d.Mesh.Current()); err != nil {
		return fmt.Errorf("output at step %d: %w", step, err)
	}
	return nil
}

// Close releases the kernel backend
func (d *Driver) Close() error {
	return d.Kernel.Close()
}
