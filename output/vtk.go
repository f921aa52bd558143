package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/notargets/halogrid/mesh"
)

const vtkHeader = "# vtk DataFile Version 3.0\nvtk output\nASCII\n"

// VTKWriter writes one legacy ASCII rectilinear grid per rank per step,
// named <name>.<step>.<rank>.vtk. Rank 0 also keeps <name>.visit, the
// index that groups the per-rank files of each step.
type VTKWriter struct {
	Dir, Name  string
	Rank, Size int
}

// NewVTKWriter creates dir if needed; rank 0 starts a fresh index
func NewVTKWriter(dir, name string, rank, size int) (*VTKWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	w := &VTKWriter{Dir: dir, Name: name, Rank: rank, Size: size}
	if rank == 0 {
		if err := os.WriteFile(w.IndexPath(), []byte(fmt.Sprintf("!NBLOCKS %d\n", size)), 0o644); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// IndexPath is the location of the .visit index
func (w *VTKWriter) IndexPath() string {
	return filepath.Join(w.Dir, w.Name+".visit")
}

// FileName is the base name of the grid file of rank at step
func (w *VTKWriter) FileName(step, rank int) string {
	return fmt.Sprintf("%s.%d.%d.vtk", w.Name, step, rank)
}

func (w *VTKWriter) Write(step int, time float64, tile *mesh.Tile, field []float64) error {
	if len(field) != tile.AugmentedCells() {
		return fmt.Errorf("field of %d cells does not match %dx%d tile", len(field), tile.AugRows, tile.AugCols)
	}
	if w.Rank == 0 {
		if err := w.appendIndex(step); err != nil {
			return err
		}
	}
	path := filepath.Join(w.Dir, w.FileName(step, w.Rank))
	fd, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(fd)
	writeGrid(bw, step, time, tile, field)
	if err = bw.Flush(); err != nil {
		fd.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return fd.Close()
}

func (w *VTKWriter) appendIndex(step int) error {
	fd, err := os.OpenFile(w.IndexPath(), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(fd)
	for rank := 0; rank < w.Size; rank++ {
		fmt.Fprintln(bw, w.FileName(step, rank))
	}
	if err = bw.Flush(); err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}

// writeGrid emits the grid. Points are cell edges, so each axis has one
// more point than core cells; the field is cell data over the core.
func writeGrid(bw *bufio.Writer, step int, time float64, tile *mesh.Tile, field []float64) {
	cols, rows := tile.CoreCols+1, tile.CoreRows+1
	dx, dy := tile.Domain.DelX(), tile.Domain.DelY()

	bw.WriteString(vtkHeader)
	fmt.Fprintln(bw, "DATASET RECTILINEAR_GRID")
	fmt.Fprintln(bw, "FIELD FieldData 2")
	fmt.Fprintln(bw, "TIME 1 1 double")
	fmt.Fprintf(bw, "%.8f\n", time)
	fmt.Fprintln(bw, "CYCLE 1 1 int")
	fmt.Fprintf(bw, "%d\n", step)
	fmt.Fprintf(bw, "DIMENSIONS %d %d 1\n", cols, rows)

	fmt.Fprintf(bw, "X_COORDINATES %d float\n", cols)
	for j := 0; j < cols; j++ {
		fmt.Fprintf(bw, "%.8f ", float64(tile.ColOffset+j)*dx)
	}
	bw.WriteByte('\n')
	fmt.Fprintf(bw, "Y_COORDINATES %d float\n", rows)
	for i := 0; i < rows; i++ {
		fmt.Fprintf(bw, "%.8f ", float64(tile.RowOffset+i)*dy)
	}
	bw.WriteByte('\n')
	fmt.Fprintln(bw, "Z_COORDINATES 1 float")
	fmt.Fprintln(bw, "0.0000")

	cells := tile.CoreCells()
	fmt.Fprintf(bw, "CELL_DATA %d\n", cells)
	fmt.Fprintln(bw, "FIELD FieldData 1")
	fmt.Fprintf(bw, "u 1 %d double\n", cells)
	for i := mesh.Padding; i <= tile.CoreRows; i++ {
		for j := mesh.Padding; j <= tile.CoreCols; j++ {
			fmt.Fprintf(bw, "%.8f ", field[tile.Index(i, j)])
		}
		bw.WriteByte('\n')
	}
}
