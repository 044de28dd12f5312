package binning

import (
	"fmt"
	"math"
)

// CellKind discriminates the result of Mapper.Locate.
type CellKind int

const (
	// CellValid is an in-range cell with a zero-based flattened index.
	CellValid CellKind = iota
	// CellUnderflow means some coordinate was below its axis minimum.
	CellUnderflow
	// CellOverflow means some coordinate was above its axis maximum.
	CellOverflow
)

// Cell is the discriminated form of a mapped coordinate tuple.
type Cell struct {
	Kind  CellKind
	Index int
}

// UnderflowValue is the encoded result for an underflowing tuple.
const UnderflowValue = -1.0

// Mapper flattens 2 or 3 coordinates into one linear bin index. It holds
// copies of its binnings and no other state.
type Mapper struct {
	axes []Binning
}

// NewMapper joins 2 or 3 binnings, first axis outermost.
func NewMapper(axes ...Binning) (*Mapper, error) {
	if len(axes) < 2 || len(axes) > 3 {
		return nil, fmt.Errorf("mapper: %w: need 2 or 3 axes, got %d", ErrInvalidArgument, len(axes))
	}
	for i, a := range axes {
		if len(a.edges) < 2 {
			return nil, fmt.Errorf("mapper: %w: axis %d is not a constructed binning", ErrInvalidArgument, i)
		}
	}
	own := make([]Binning, len(axes))
	copy(own, axes)
	return &Mapper{axes: own}, nil
}

// Axes returns the joined binnings in order.
func (m *Mapper) Axes() []Binning {
	out := make([]Binning, len(m.axes))
	copy(out, m.axes)
	return out
}

// NBins returns the product of the axis bin counts. It is also the encoded
// overflow value.
func (m *Mapper) NBins() int {
	n := 1
	for _, a := range m.axes {
		n *= a.NBins()
	}
	return n
}

// Locate classifies a coordinate tuple. Underflow on any axis wins over
// overflow on another. NaN counts as underflow, and a coordinate equal to
// its axis maximum overflows as it does in FindBin.
//
// Panics if len(vals) differs from the number of axes.
func (m *Mapper) Locate(vals ...float64) Cell {
	if len(vals) != len(m.axes) {
		panic(fmt.Sprintf("binning: Mapper.Locate got %d values for %d axes", len(vals), len(m.axes)))
	}

	for i, v := range vals {
		if math.IsNaN(v) || v < m.axes[i].Min() {
			return Cell{Kind: CellUnderflow}
		}
	}
	for i, v := range vals {
		if v >= m.axes[i].Max() {
			return Cell{Kind: CellOverflow}
		}
	}

	idx := 0
	for i, v := range vals {
		// FindBin is 1-based
		idx = idx*m.axes[i].NBins() + m.axes[i].FindBin(v) - 1
	}
	return Cell{Kind: CellValid, Index: idx}
}

// Map returns the encoded flattened index: -1 for underflow, NBins() for
// overflow, index+0.5 otherwise. A coordinate equal to its axis maximum
// overflows.
func (m *Mapper) Map(vals ...float64) float64 {
	return m.Encode(m.Locate(vals...))
}

// Encode converts a cell to the half-offset encoding used by Map.
func (m *Mapper) Encode(c Cell) float64 {
	switch c.Kind {
	case CellUnderflow:
		return UnderflowValue
	case CellOverflow:
		return float64(m.NBins())
	default:
		return float64(c.Index) + 0.5
	}
}

// MapBatch maps equal-length coordinate columns element-wise.
func (m *Mapper) MapBatch(cols ...[]float64) ([]float64, error) {
	if len(cols) != len(m.axes) {
		return nil, fmt.Errorf("mapper: %w: got %d columns for %d axes", ErrInvalidArgument, len(cols), len(m.axes))
	}
	n := len(cols[0])
	for i, c := range cols[1:] {
		if len(c) != n {
			return nil, fmt.Errorf("mapper: %w: column %d has length %d, want %d", ErrInvalidArgument, i+1, len(c), n)
		}
	}

	out := make([]float64, n)
	vals := make([]float64, len(cols))
	for i := 0; i < n; i++ {
		for j := range cols {
			vals[j] = cols[j][i]
		}
		out[i] = m.Map(vals...)
	}
	return out, nil
}

// IndexBinning returns the one-dimensional binning that buckets Map output:
// NBins() unit-width bins over [0, NBins()], so -1 underflows and NBins()
// overflows.
func (m *Mapper) IndexBinning(r *Registry) (Binning, error) {
	n := m.NBins()
	return r.Simple(n, 0, float64(n))
}
