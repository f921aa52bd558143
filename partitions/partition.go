package partitions

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrLayout reports a decomposition that cannot cover its extent
	ErrLayout = errors.New("invalid partition layout")
	// ErrTopology reports a process grid that cannot embed the process count,
	// or a coordinate that falls outside the grid
	ErrTopology = errors.New("invalid process topology")
	// ErrUnknownFace reports a face identifier outside Top, Bottom, Left, Right
	ErrUnknownFace = errors.New("unknown face")
)

// Orientation selects where the partition boundary sits for the dynamic
// decomposition. Prograde is the classic split.
type Orientation uint8

const (
	Prograde   Orientation = iota // Balanced split, extra cells on the lowest slots
	Retrograde                    // Boundary pulled one cell toward the origin
)

func (o Orientation) String() string {
	switch o {
	case Prograde:
		return "prograde"
	case Retrograde:
		return "retrograde"
	default:
		return fmt.Sprintf("Orientation(%d)", uint8(o))
	}
}

// Flip returns the opposite orientation
func (o Orientation) Flip() Orientation {
	if o == Prograde {
		return Retrograde
	}
	return Prograde
}

// LocalSpan returns the number of cells slot index owns when globalExtent
// cells are split across count slots. The first globalExtent%count slots
// carry one extra cell.
func LocalSpan(index, count, globalExtent int) int {
	checkSlot(index, count, false)
	span := globalExtent / count
	if index < globalExtent%count {
		span++
	}
	return span
}

// LocalOffset returns the first global cell owned by slot index. index may
// equal count, in which case the result is globalExtent.
func LocalOffset(index, count, globalExtent int) int {
	checkSlot(index, count, true)
	base := globalExtent / count
	return index*base + min(index, globalExtent%count)
}

// DirectionalSpan is LocalSpan with the dynamic boundary shift applied. In
// the retrograde orientation the first slot gives up one cell and the last
// slot takes it. With a single slot there is no boundary to move.
func DirectionalSpan(index, count, globalExtent int, o Orientation) int {
	span := LocalSpan(index, count, globalExtent)
	if o != Retrograde || count < 2 {
		return span
	}
	switch index {
	case 0:
		span--
	case count - 1:
		span++
	}
	return span
}

// DirectionalOffset is the prefix sum of DirectionalSpan
func DirectionalOffset(index, count, globalExtent int, o Orientation) int {
	offset := LocalOffset(index, count, globalExtent)
	if o == Retrograde && count > 1 && index > 0 && index < count {
		offset--
	}
	return offset
}

func checkSlot(index, count int, allowEnd bool) {
	limit := count - 1
	if allowEnd {
		limit = count
	}
	if count <= 0 || index < 0 || index > limit {
		panic(fmt.Sprintf("partition slot %d out of range for %d slots", index, count))
	}
}

// AxisLayout is the split of one axis of the global domain across a row or
// column of the process grid. Every process computes the same layout.
type AxisLayout struct {
	Count        int // Number of slots (processes along this axis)
	GlobalExtent int // Logical cells along this axis
	Orientation  Orientation

	Spans   []int // Length Count
	Offsets []int // Length Count+1, Offsets[Count] == GlobalExtent
}

// NewAxisLayout computes and validates the split of globalExtent cells
func NewAxisLayout(count, globalExtent int, o Orientation) (*AxisLayout, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d slots", ErrLayout, count)
	}
	if globalExtent < 0 {
		return nil, fmt.Errorf("%w: negative extent %d", ErrLayout, globalExtent)
	}
	al := &AxisLayout{
		Count:        count,
		GlobalExtent: globalExtent,
		Orientation:  o,
		Spans:        make([]int, count),
		Offsets:      make([]int, count+1),
	}
	for i := 0; i < count; i++ {
		al.Spans[i] = DirectionalSpan(i, count, globalExtent, o)
		al.Offsets[i] = DirectionalOffset(i, count, globalExtent, o)
	}
	al.Offsets[count] = DirectionalOffset(count, count, globalExtent, o)

	if err := al.ValidateLayout(); err != nil {
		return nil, err
	}
	return al, nil
}

// ValidateLayout checks exact coverage and span/offset consistency
func (al *AxisLayout) ValidateLayout() error {
	total := 0
	for i, span := range al.Spans {
		if span < 0 {
			return fmt.Errorf("%w: slot %d has negative span %d", ErrLayout, i, span)
		}
		if al.Offsets[i+1]-al.Offsets[i] != span {
			return fmt.Errorf("%w: slot %d offsets [%d,%d) disagree with span %d",
				ErrLayout, i, al.Offsets[i], al.Offsets[i+1], span)
		}
		total += span
	}
	if total != al.GlobalExtent {
		return fmt.Errorf("%w: spans cover %d cells, extent is %d", ErrLayout, total, al.GlobalExtent)
	}
	return nil
}

// MinSpan returns the smallest span in the layout
func (al *AxisLayout) MinSpan() int {
	m := math.MaxInt
	for _, s := range al.Spans {
		m = min(m, s)
	}
	return m
}

// PartitionStatistics computes load balance metrics
func (al *AxisLayout) PartitionStatistics() PartitionStats {
	spans := make([]float64, len(al.Spans))
	for i, s := range al.Spans {
		spans[i] = float64(s)
	}
	stats := PartitionStats{
		NumPartitions: al.Count,
		MinSpan:       int(floats.Min(spans)),
		MaxSpan:       int(floats.Max(spans)),
		AvgSpan:       floats.Sum(spans) / float64(al.Count),
	}
	if stats.AvgSpan > 0 {
		stats.Imbalance = float64(stats.MaxSpan) / stats.AvgSpan
	}
	return stats
}

type PartitionStats struct {
	NumPartitions int
	MinSpan       int
	MaxSpan       int
	AvgSpan       float64
	Imbalance     float64 // MaxSpan / AvgSpan
}
