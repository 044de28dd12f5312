package binning

import (
	"fmt"
	"sync"

	"github.com/dchest/siphash"
)

// siphash keys for intern buckets. Fixed so bucket layout is reproducible.
const (
	internK0 = 0x63757466_6c6f7721
	internK1 = 0x62696e6e_696e6773
)

// Registry interns binnings. Each distinct (edges, labels) pair gets the next
// ID on first construction; later constructions of an equal binning get the
// same ID back.
//
// Thread-safety: Registry is safe for concurrent use. The engine itself is
// single-threaded, the mutex only keeps separate pipelines from corrupting a
// shared registry.
type Registry struct {
	mu      sync.Mutex
	next    int
	buckets map[uint64][]int
	byID    []Binning
}

// NewRegistry creates an empty registry. The first interned binning gets ID 0.
func NewRegistry() *Registry {
	return &Registry{buckets: make(map[uint64][]int)}
}

// DefaultRegistry backs the package-level factories. It lives for the whole
// process and is never reset.
var DefaultRegistry = NewRegistry()

// MaxID returns the largest ID handed out so far, or -1 if none.
func (r *Registry) MaxID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next - 1
}

// Len returns the number of distinct binnings interned.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Lookup returns the first-constructed binning with the given ID.
func (r *Registry) Lookup(id int) (Binning, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.byID) {
		return Binning{}, false
	}
	return r.byID[id], true
}

// All returns every interned binning in ID order.
func (r *Registry) All() []Binning {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Binning, len(r.byID))
	copy(out, r.byID)
	return out
}

// intern assigns b its canonical ID. The returned binning keeps b's own kind
// so FindBin can still use arithmetic lookup.
func (r *Registry) intern(b Binning) Binning {
	key := siphash.Hash(internK0, internK1, canonicalBytes(b.edges, b.labels))

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.buckets[key] {
		if r.byID[id].Equal(b) {
			b.id = id
			return b
		}
	}

	b.id = r.next
	r.next++
	r.byID = append(r.byID, b)
	r.buckets[key] = append(r.buckets[key], b.id)
	return b
}

// Simple builds n equal-width bins spanning [lo, hi].
func (r *Registry) Simple(n int, lo, hi float64, labels ...string) (Binning, error) {
	if err := checkRange(n, lo, hi); err != nil {
		return Binning{}, fmt.Errorf("simple binning: %w", err)
	}
	ls, err := normalizeLabels(n, labels)
	if err != nil {
		return Binning{}, fmt.Errorf("simple binning: %w", err)
	}
	edges := simpleEdges(n, lo, hi)
	// Too many bins for the precision of the range collapses edges.
	if err := checkEdges(edges); err != nil {
		return Binning{}, fmt.Errorf("simple binning: %w", err)
	}
	return r.intern(Binning{edges: edges, labels: ls, kind: KindSimple}), nil
}

// LogUniform builds n bins equally spaced in log(x) spanning [lo, hi].
// lo must be positive.
func (r *Registry) LogUniform(n int, lo, hi float64) (Binning, error) {
	if err := checkRange(n, lo, hi); err != nil {
		return Binning{}, fmt.Errorf("log binning: %w", err)
	}
	if lo <= 0 {
		return Binning{}, fmt.Errorf("log binning: %w: lower bound must be positive, got %g", ErrInvalidArgument, lo)
	}
	edges := logEdges(n, lo, hi)
	if err := checkEdges(edges); err != nil {
		return Binning{}, fmt.Errorf("log binning: %w", err)
	}
	return r.intern(Binning{edges: edges, kind: KindLog}), nil
}

// Custom builds bins from an explicit strictly increasing edge list.
func (r *Registry) Custom(edges []float64) (Binning, error) {
	return r.custom(edges, nil)
}

func (r *Registry) custom(edges []float64, labels []string) (Binning, error) {
	if err := checkEdges(edges); err != nil {
		return Binning{}, fmt.Errorf("custom binning: %w", err)
	}
	ls, err := normalizeLabels(len(edges)-1, labels)
	if err != nil {
		return Binning{}, fmt.Errorf("custom binning: %w", err)
	}
	own := make([]float64, len(edges))
	copy(own, edges)
	return r.intern(Binning{edges: own, labels: ls, kind: KindCustom}), nil
}

// Simple builds n equal-width bins in DefaultRegistry.
func Simple(n int, lo, hi float64, labels ...string) (Binning, error) {
	return DefaultRegistry.Simple(n, lo, hi, labels...)
}

// LogUniform builds n log-spaced bins in DefaultRegistry.
func LogUniform(n int, lo, hi float64) (Binning, error) {
	return DefaultRegistry.LogUniform(n, lo, hi)
}

// Custom builds bins from explicit edges in DefaultRegistry.
func Custom(edges []float64) (Binning, error) {
	return DefaultRegistry.Custom(edges)
}

// MustSimple is like Simple but panics on error.
// Use only for package-level definitions with constant arguments.
func MustSimple(n int, lo, hi float64, labels ...string) Binning {
	b, err := Simple(n, lo, hi, labels...)
	if err != nil {
		panic(err)
	}
	return b
}

// MustCustom is like Custom but panics on error.
// Use only for package-level definitions with constant arguments.
func MustCustom(edges []float64) Binning {
	b, err := Custom(edges)
	if err != nil {
		panic(err)
	}
	return b
}
