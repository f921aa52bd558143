package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/notargets/halogrid/halo"
	"github.com/notargets/halogrid/mesh"
)

// Subregion is a rectangle seeded with the initial value, half open on the
// max side
type Subregion struct {
	YMin, XMin, YMax, XMax float64
}

// Contains reports whether (y, x) lies in [YMin, YMax) x [XMin, XMax)
func (s Subregion) Contains(y, x float64) bool {
	return s.YMin <= y && y < s.YMax && s.XMin <= x && x < s.XMax
}

// Settings is the validated run configuration
type Settings struct {
	Name              string
	Debug             bool
	VisualizationRate int
	StartTime         float64
	EndTime           float64
	Timestep          float64

	DimNodes      [2]int // Process grid hints, zero is free
	Domain        mesh.GlobalDomain
	Subregions    []Subregion
	Decomposition mesh.Decomposition
	Exchange      halo.Strategy

	Kernel     string
	OccaDevice string

	OutputDir string
	VTK       bool
	Heatmap   bool

	// Keys present in the file that are not part of the settings
	Ignored []string
}

// keys read only for compatibility with older run files
var compatibilityKeys = []string{"mpi_reorder"}

// NewSettings decodes and validates f
func NewSettings(f *File) (*Settings, error) {
	s := &Settings{}
	var err error
	defName := "gridsim"
	if f.Name != "" {
		base := filepath.Base(f.Name)
		defName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	s.Name = f.String("name", defName)
	if s.Debug, err = f.Bool("debug", false); err != nil {
		return nil, err
	}
	if s.VisualizationRate, err = f.Int("visualization_rate", 1); err != nil {
		return nil, err
	}
	if s.StartTime, err = f.Float("start_time", 0); err != nil {
		return nil, err
	}
	if s.EndTime, err = f.Float("end_time", 2.0); err != nil {
		return nil, err
	}
	if s.Timestep, err = f.Float("timestep", 0.02); err != nil {
		return nil, err
	}

	nodes, err := f.Ints("dim_nodes")
	if err != nil {
		return nil, err
	}
	if len(nodes) > 2 {
		return nil, fmt.Errorf("%w: dim_nodes has %d entries, at most 2", ErrSetup, len(nodes))
	}
	copy(s.DimNodes[:], nodes)

	periods, err := f.Ints("dim_periods")
	if err != nil {
		return nil, err
	}
	for _, p := range periods {
		if p != 0 {
			return nil, fmt.Errorf("%w: periodic dimensions are not supported, dim_periods %v", ErrSetup, periods)
		}
	}

	logical, err := f.Ints("logical_dimensions")
	if err != nil {
		return nil, err
	}
	if len(logical) != 2 {
		return nil, fmt.Errorf("%w: logical_dimensions needs rows and cols, got %v", ErrSetup, logical)
	}
	physical, err := f.Floats("physical_dimensions")
	if err != nil {
		return nil, err
	}
	if len(physical) != 2 {
		return nil, fmt.Errorf("%w: physical_dimensions needs height and width, got %v", ErrSetup, physical)
	}
	s.Domain = mesh.GlobalDomain{Rows: logical[0], Cols: logical[1], Height: physical[0], Width: physical[1]}

	bounds, err := f.Floats("subregions")
	if err != nil {
		return nil, err
	}
	if len(bounds)%4 != 0 {
		return nil, fmt.Errorf("%w: subregions needs groups of y_min x_min y_max x_max, got %d values",
			ErrSetup, len(bounds))
	}
	for i := 0; i < len(bounds); i += 4 {
		s.Subregions = append(s.Subregions, Subregion{
			YMin: bounds[i], XMin: bounds[i+1], YMax: bounds[i+2], XMax: bounds[i+3],
		})
	}

	if s.Decomposition, err = mesh.ParseDecomposition(f.String("decomposition", mesh.Static.String())); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSetup, err)
	}
	exchange := f.String("exchange", halo.DefaultStrategy(s.Decomposition).String())
	if s.Exchange, err = halo.ParseStrategy(exchange); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSetup, err)
	}

	s.Kernel = f.String("kernel", "host")
	s.OccaDevice = f.String("occa_device", "")
	s.OutputDir = f.String("output_dir", ".")
	if s.VTK, err = f.Bool("vtk", true); err != nil {
		return nil, err
	}
	if s.Heatmap, err = f.Bool("heatmap", false); err != nil {
		return nil, err
	}
	for _, k := range compatibilityKeys {
		f.lookup(k)
	}
	s.Ignored = f.Unused()

	if err = s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the values that do not depend on the process count
func (s *Settings) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrSetup)
	}
	if s.VisualizationRate < 1 {
		return fmt.Errorf("%w: visualization_rate %d must be at least 1", ErrSetup, s.VisualizationRate)
	}
	if !(s.Timestep > 0) {
		return fmt.Errorf("%w: timestep %g must be positive", ErrSetup, s.Timestep)
	}
	if s.EndTime < s.StartTime {
		return fmt.Errorf("%w: end_time %g before start_time %g", ErrSetup, s.EndTime, s.StartTime)
	}
	for _, n := range s.DimNodes {
		if n < 0 {
			return fmt.Errorf("%w: negative dim_nodes %v", ErrSetup, s.DimNodes)
		}
	}
	if err := s.Domain.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrSetup, err)
	}
	for i, r := range s.Subregions {
		if r.YMin > r.YMax || r.XMin > r.XMax {
			return fmt.Errorf("%w: subregion %d has min above max: %+v", ErrSetup, i, r)
		}
	}
	return nil
}
