package mesh

// Buffers owns the current/next field arrays. Swap exchanges the roles of
// the two arrays without copying.
type Buffers struct {
	rows, cols int
	data       [2][]float64
	current    int
}

// NewBuffers allocates two zeroed rows x cols arrays
func NewBuffers(rows, cols int) *Buffers {
	if rows <= 0 || cols <= 0 {
		panic("buffers need a positive extent")
	}
	return &Buffers{
		rows: rows,
		cols: cols,
		data: [2][]float64{make([]float64, rows*cols), make([]float64, rows*cols)},
	}
}

// Current is the read-only input of the running step
func (b *Buffers) Current() []float64 { return b.data[b.current] }

// Next is the write-only output of the running step
func (b *Buffers) Next() []float64 { return b.data[1-b.current] }

// Rows and Cols are the augmented extent both arrays are laid out with
func (b *Buffers) Rows() int { return b.rows }
func (b *Buffers) Cols() int { return b.cols }

// Len is the cell count of each array
func (b *Buffers) Len() int { return b.rows * b.cols }

// Index maps (row, col) to the flat row-major position
func (b *Buffers) Index(row, col int) int { return row*b.cols + col }

// Swap makes next the current buffer
func (b *Buffers) Swap() { b.current = 1 - b.current }

// Reshape moves the current field into a rows x cols layout. remap reads the
// old current array and writes the new one. When the extent is unchanged the
// next array is used as the destination and the roles are swapped; otherwise
// both arrays are reallocated.
func (b *Buffers) Reshape(rows, cols int, remap func(src, dst []float64)) (reallocated bool) {
	src := b.Current()
	if rows == b.rows && cols == b.cols {
		remap(src, b.Next())
		b.Swap()
		return false
	}
	if rows <= 0 || cols <= 0 {
		panic("buffers need a positive extent")
	}
	cur := make([]float64, rows*cols)
	remap(src, cur)
	b.rows, b.cols = rows, cols
	b.data = [2][]float64{cur, make([]float64, rows*cols)}
	b.current = 0
	return true
}
