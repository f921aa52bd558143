package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/halogrid/halo"
	"github.com/notargets/halogrid/mesh"
)

const heatDeqn = `# two hot squares
name heat
debug true
visualization_rate 5
end_time 1.0   # short run
timestep 0.001
dim_nodes 2 0
dim_periods 0 0
logical_dimensions 40 60
physical_dimensions 1.0 1.5
subregions 0.1 0.1 0.3 0.3  0.5 0.5 0.7 0.9
decomposition static_blocking
mpi_reorder true
`

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(heatDeqn), "runs/heat.deqn")
	require.NoError(t, err)
	assert.True(t, f.Has("logical_dimensions"))
	assert.False(t, f.Has("output_dir"))
	assert.Equal(t, "1.0", f.String("end_time", ""))

	s, err := NewSettings(f)
	require.NoError(t, err)
	assert.Equal(t, "heat", s.Name)
	assert.True(t, s.Debug)
	assert.Equal(t, 5, s.VisualizationRate)
	assert.Equal(t, 0.0, s.StartTime)
	assert.Equal(t, 1.0, s.EndTime)
	assert.Equal(t, 0.001, s.Timestep)
	assert.Equal(t, [2]int{2, 0}, s.DimNodes)
	assert.Equal(t, mesh.GlobalDomain{Rows: 40, Cols: 60, Height: 1, Width: 1.5}, s.Domain)
	require.Len(t, s.Subregions, 2)
	assert.Equal(t, Subregion{0.5, 0.5, 0.7, 0.9}, s.Subregions[1])
	assert.Equal(t, mesh.StaticBlocking, s.Decomposition)
	assert.Equal(t, halo.Ordered, s.Exchange)
	assert.Equal(t, "host", s.Kernel)
	assert.Equal(t, ".", s.OutputDir)
	assert.True(t, s.VTK)
	assert.False(t, s.Heatmap)
	assert.Empty(t, s.Ignored)
}

func TestNewSettings_Defaults(t *testing.T) {
	f, err := Parse(strings.NewReader("logical_dimensions 4 4\nphysical_dimensions 1 1\n"), "/tmp/plate.cfg")
	require.NoError(t, err)
	f.Set("colour", "blue")
	s, err := NewSettings(f)
	require.NoError(t, err)
	assert.Equal(t, "plate", s.Name)
	assert.Equal(t, 1, s.VisualizationRate)
	assert.Equal(t, 2.0, s.EndTime)
	assert.Equal(t, 0.02, s.Timestep)
	assert.Equal(t, [2]int{0, 0}, s.DimNodes)
	assert.Equal(t, mesh.Static, s.Decomposition)
	assert.Equal(t, halo.Async, s.Exchange)
	assert.Empty(t, s.Subregions)
	assert.Equal(t, []string{"colour"}, s.Ignored)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"MissingValue", "name\n"},
		{"ValueIsComment", "name # nothing\n"},
		{"DuplicateKey", "name a\nname b\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.text), "bad")
			assert.ErrorIs(t, err, ErrSetup)
		})
	}
}

func TestNewSettings_Errors(t *testing.T) {
	base := "logical_dimensions 4 4\nphysical_dimensions 1 1\n"
	tests := []struct {
		name string
		text string
	}{
		{"MissingLogical", "physical_dimensions 1 1\n"},
		{"MissingPhysical", "logical_dimensions 4 4\n"},
		{"ShortLogical", "logical_dimensions 4\nphysical_dimensions 1 1\n"},
		{"ZeroRows", "logical_dimensions 0 4\nphysical_dimensions 1 1\n"},
		{"NegativeWidth", "logical_dimensions 4 4\nphysical_dimensions 1 -1\n"},
		{"NotANumber", base + "timestep fast\n"},
		{"ZeroTimestep", base + "timestep 0\n"},
		{"BackwardsTime", base + "start_time 3\nend_time 1\n"},
		{"ZeroRate", base + "visualization_rate 0\n"},
		{"Periodic", base + "dim_periods 1 0\n"},
		{"ThreeDims", base + "dim_nodes 1 2 3\n"},
		{"NegativeDims", base + "dim_nodes -1 2\n"},
		{"SubregionArity", base + "subregions 0 0 1\n"},
		{"SubregionInverted", base + "subregions 0.5 0 0.1 1\n"},
		{"Decomposition", base + "decomposition diagonal\n"},
		{"Exchange", base + "exchange eventually\n"},
		{"Bool", base + "vtk maybe\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Parse(strings.NewReader(tc.text), "bad")
			require.NoError(t, err)
			_, err = NewSettings(f)
			assert.ErrorIs(t, err, ErrSetup)
		})
	}
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plate.toml")
	doc := `
logical_dimensions = [8, 12]
physical_dimensions = [2.0, 3.0]
subregions = [0.0, 0.0, 1.0, 1.5]
decomposition = "dynamic"
exchange = "ordered"
heatmap = true
end_time = 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	f, err := Load(path)
	require.NoError(t, err)
	s, err := NewSettings(f)
	require.NoError(t, err)
	assert.Equal(t, "plate", s.Name)
	assert.Equal(t, mesh.GlobalDomain{Rows: 8, Cols: 12, Height: 2, Width: 3}, s.Domain)
	assert.Equal(t, []Subregion{{0, 0, 1, 1.5}}, s.Subregions)
	assert.Equal(t, mesh.Dynamic, s.Decomposition)
	assert.Equal(t, halo.Ordered, s.Exchange)
	assert.True(t, s.Heatmap)
	assert.Equal(t, 0.5, s.EndTime)

	require.NoError(t, os.WriteFile(path, []byte("[table]\nkey = 1\n"), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrSetup)

	_, err = Load(filepath.Join(dir, "missing.deqn"))
	assert.ErrorIs(t, err, ErrSetup)
}

func TestSubregion_Contains(t *testing.T) {
	r := Subregion{YMin: 0, XMin: 1, YMax: 1, XMax: 2}
	assert.True(t, r.Contains(0, 1))
	assert.True(t, r.Contains(0.5, 1.5))
	assert.False(t, r.Contains(1, 1.5))
	assert.False(t, r.Contains(0.5, 2))
}
