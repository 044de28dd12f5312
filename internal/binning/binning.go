package binning

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidArgument reports a malformed binning or mapping request.
var ErrInvalidArgument = errors.New("invalid argument")

// Kind records how a Binning was built. Only KindSimple is "simple" in the
// IsSimple sense; the kind never takes part in identity.
type Kind int

const (
	// KindCustom is an arbitrary strictly increasing edge list.
	KindCustom Kind = iota
	// KindSimple is n equal-width bins.
	KindSimple
	// KindLog is n bins equally spaced in log space.
	KindLog
)

// String returns the config spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindLog:
		return "log"
	case KindCustom:
		return "custom"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Binning describes one histogram axis. The zero value is not a valid
// binning; use one of the factories.
type Binning struct {
	edges  []float64
	labels []string
	kind   Kind
	id     int
}

// NBins returns the number of bins.
func (b Binning) NBins() int { return len(b.edges) - 1 }

// Min returns the lower edge of the first bin.
func (b Binning) Min() float64 { return b.edges[0] }

// Max returns the upper edge of the last bin.
func (b Binning) Max() float64 { return b.edges[len(b.edges)-1] }

// IsSimple reports whether the bins are equally spaced.
func (b Binning) IsSimple() bool { return b.kind == KindSimple }

// Kind returns how the binning was built.
func (b Binning) Kind() Kind { return b.kind }

// ID returns the interned identity of this binning.
func (b Binning) ID() int { return b.id }

// Edges returns a copy of the bin edges.
func (b Binning) Edges() []float64 {
	out := make([]float64, len(b.edges))
	copy(out, b.edges)
	return out
}

// Labels returns a copy of the bin labels, or nil if the bins are unlabeled.
func (b Binning) Labels() []string {
	if len(b.labels) == 0 {
		return nil
	}
	out := make([]string, len(b.labels))
	copy(out, b.labels)
	return out
}

// Label returns the label of the 1-based bin i, or "" if there is none.
func (b Binning) Label(i int) string {
	if i < 1 || i > len(b.labels) {
		return ""
	}
	return b.labels[i-1]
}

// FindBin returns the 1-based bin containing x. 0 is underflow and
// NBins()+1 is overflow. NaN is reported as underflow.
func (b Binning) FindBin(x float64) int {
	n := b.NBins()
	if math.IsNaN(x) || x < b.Min() {
		return 0
	}
	if x >= b.Max() {
		return n + 1
	}

	switch b.kind {
	case KindSimple:
		return b.settle(int((x-b.Min())/(b.Max()-b.Min())*float64(n)), x)
	case KindLog:
		return b.settle(int(math.Log(x/b.Min())/math.Log(b.Max()/b.Min())*float64(n)), x)
	default:
		// First edge strictly above x closes the bin.
		return sort.Search(len(b.edges), func(i int) bool { return b.edges[i] > x })
	}
}

// settle corrects an arithmetic zero-based guess against the stored edges
// and returns the 1-based bin. Rounding can put x one bin off near an edge.
func (b Binning) settle(i int, x float64) int {
	n := b.NBins()
	if i < 0 {
		i = 0
	}
	if i > n-1 {
		i = n - 1
	}
	for i > 0 && x < b.edges[i] {
		i--
	}
	for i < n-1 && x >= b.edges[i+1] {
		i++
	}
	return i + 1
}

// Equal reports whether b and o have identical edges and labels.
func (b Binning) Equal(o Binning) bool {
	return compareContent(b.edges, b.labels, o.edges, o.labels) == 0
}

// Less orders binnings lexicographically by edges, then by labels.
func (b Binning) Less(o Binning) bool {
	return compareContent(b.edges, b.labels, o.edges, o.labels) < 0
}

// Compare returns -1, 0 or +1 following Less and Equal.
func (b Binning) Compare(o Binning) int {
	return compareContent(b.edges, b.labels, o.edges, o.labels)
}

// String renders the binning for diagnostics.
func (b Binning) String() string {
	if len(b.edges) == 0 {
		return "binning(invalid)"
	}
	return fmt.Sprintf("binning#%d(%s, %d bins, [%g, %g])", b.id, b.kind, b.NBins(), b.Min(), b.Max())
}

func compareContent(ea []float64, la []string, eb []float64, lb []string) int {
	for i := 0; i < len(ea) && i < len(eb); i++ {
		switch {
		case ea[i] < eb[i]:
			return -1
		case ea[i] > eb[i]:
			return 1
		}
	}
	switch {
	case len(ea) < len(eb):
		return -1
	case len(ea) > len(eb):
		return 1
	}
	for i := 0; i < len(la) && i < len(lb); i++ {
		if c := strings.Compare(la[i], lb[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(la) < len(lb):
		return -1
	case len(la) > len(lb):
		return 1
	}
	return 0
}

// simpleEdges returns n+1 evenly spaced edges. The last edge is hi exactly.
func simpleEdges(n int, lo, hi float64) []float64 {
	edges := make([]float64, n+1)
	for i := 0; i < n; i++ {
		edges[i] = lo + float64(i)*(hi-lo)/float64(n)
	}
	edges[n] = hi
	return edges
}

// logEdges returns n+1 edges equally spaced in log(x).
func logEdges(n int, lo, hi float64) []float64 {
	edges := make([]float64, n+1)
	llo, lhi := math.Log(lo), math.Log(hi)
	for i := 0; i < n; i++ {
		edges[i] = math.Exp(llo + float64(i)*(lhi-llo)/float64(n))
	}
	edges[0] = lo
	edges[n] = hi
	return edges
}

func checkRange(n int, lo, hi float64) error {
	if n <= 0 {
		return fmt.Errorf("%w: bin count must be positive, got %d", ErrInvalidArgument, n)
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return fmt.Errorf("%w: range must be finite, got [%g, %g]", ErrInvalidArgument, lo, hi)
	}
	if lo >= hi {
		return fmt.Errorf("%w: lower bound %g must be below upper bound %g", ErrInvalidArgument, lo, hi)
	}
	if math.IsInf(hi-lo, 0) {
		return fmt.Errorf("%w: width of [%g, %g] overflows", ErrInvalidArgument, lo, hi)
	}
	return nil
}

func checkEdges(edges []float64) error {
	if len(edges) < 2 {
		return fmt.Errorf("%w: need at least 2 edges, got %d", ErrInvalidArgument, len(edges))
	}
	for i, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return fmt.Errorf("%w: edge %d is not finite", ErrInvalidArgument, i)
		}
		if i > 0 && e <= edges[i-1] {
			return fmt.Errorf("%w: edges not strictly increasing at index %d (%g <= %g)",
				ErrInvalidArgument, i, e, edges[i-1])
		}
	}
	return nil
}

func normalizeLabels(n int, labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	if len(labels) != n {
		return nil, fmt.Errorf("%w: got %d labels for %d bins", ErrInvalidArgument, len(labels), n)
	}
	out := make([]string, n)
	for i, l := range labels {
		out[i] = norm.NFC.String(l)
	}
	return out, nil
}
