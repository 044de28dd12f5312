package binning

import (
	"context"
	"fmt"
)

// Record is the serialized form of a Binning handed to a Directory.
type Record struct {
	NBins    int       `json:"nbins"`
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	IsSimple bool      `json:"is_simple"`
	Edges    []float64 `json:"edges"`
	Labels   []string  `json:"labels,omitempty"`
}

// Directory is the storage collaborator for SaveTo and LoadFrom. Names are
// slash-separated paths relative to the directory.
type Directory interface {
	WriteBinning(ctx context.Context, name string, rec Record) error
	ReadBinning(ctx context.Context, name string) (Record, error)
}

// Record returns the serialized form of b.
func (b Binning) Record() Record {
	return Record{
		NBins:    b.NBins(),
		Min:      b.Min(),
		Max:      b.Max(),
		IsSimple: b.IsSimple(),
		Edges:    b.Edges(),
		Labels:   b.Labels(),
	}
}

// SaveTo writes b into dir under name.
func (b Binning) SaveTo(ctx context.Context, dir Directory, name string) error {
	if err := dir.WriteBinning(ctx, name, b.Record()); err != nil {
		return fmt.Errorf("save binning %q: %w", name, err)
	}
	return nil
}

// LoadFrom reads a binning from dir and interns it in r. The result compares
// Equal to the saved binning; its ID is whatever r assigns, which is the
// original ID when saved and loaded through the same registry.
func (r *Registry) LoadFrom(ctx context.Context, dir Directory, name string) (Binning, error) {
	rec, err := dir.ReadBinning(ctx, name)
	if err != nil {
		return Binning{}, fmt.Errorf("load binning %q: %w", name, err)
	}
	return r.FromRecord(rec)
}

// FromRecord rebuilds and interns a binning from its serialized form.
// The stored edges are authoritative; NBins, Min and Max must agree with them.
func (r *Registry) FromRecord(rec Record) (Binning, error) {
	if err := checkEdges(rec.Edges); err != nil {
		return Binning{}, fmt.Errorf("binning record: %w", err)
	}
	n := len(rec.Edges) - 1
	if rec.NBins != n || rec.Min != rec.Edges[0] || rec.Max != rec.Edges[n] {
		return Binning{}, fmt.Errorf("binning record: %w: header (%d, %g, %g) disagrees with edges",
			ErrInvalidArgument, rec.NBins, rec.Min, rec.Max)
	}
	ls, err := normalizeLabels(n, rec.Labels)
	if err != nil {
		return Binning{}, fmt.Errorf("binning record: %w", err)
	}

	kind := KindCustom
	if rec.IsSimple {
		kind = KindSimple
	}
	edges := make([]float64, len(rec.Edges))
	copy(edges, rec.Edges)
	return r.intern(Binning{edges: edges, labels: ls, kind: kind}), nil
}

// LoadFrom reads a binning from dir into DefaultRegistry.
func LoadFrom(ctx context.Context, dir Directory, name string) (Binning, error) {
	return DefaultRegistry.LoadFrom(ctx, dir, name)
}
