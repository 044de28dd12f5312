package binning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_IdenticalBinningsShareID(t *testing.T) {
	r := NewRegistry()

	a, err := r.Simple(10, 0, 5)
	require.NoError(t, err)
	b, err := r.Simple(10, 0, 5)
	require.NoError(t, err)
	c, err := r.Custom(a.Edges())
	require.NoError(t, err)

	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, a.ID(), c.ID(), "edges decide identity, not the factory")
	assert.True(t, c.Equal(a))
	assert.False(t, c.IsSimple(), "kind stays with the constructed value")
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_DifferentEdgesGetDifferentIDs(t *testing.T) {
	r := NewRegistry()

	a, _ := r.Custom([]float64{0, 1, 2})
	b, _ := r.Custom([]float64{0, 1, 2.0000001})
	c, _ := r.Simple(2, 0, 2, "low", "high")

	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
	assert.NotEqual(t, b.ID(), c.ID())
}

func TestRegistry_IDsFollowDiscoveryOrder(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, -1, r.MaxID())

	for i := 0; i < 5; i++ {
		b, err := r.Simple(i+1, 0, 1)
		require.NoError(t, err)
		assert.Equal(t, i, b.ID())
	}
	// Re-interning does not advance the counter.
	_, _ = r.Simple(1, 0, 1)
	assert.Equal(t, 4, r.MaxID())

	got, ok := r.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, 3, got.NBins())
	_, ok = r.Lookup(5)
	assert.False(t, ok)

	all := r.All()
	require.Len(t, all, 5)
	for i, b := range all {
		assert.Equal(t, i, b.ID())
	}
}

func TestRegistry_ConcurrentIntern(t *testing.T) {
	r := NewRegistry()
	const goroutines = 16

	ids := make(chan int, goroutines*10)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 1; n <= 10; n++ {
				b, err := r.Simple(n, 0, 1)
				if err == nil {
					ids <- b.ID()
				}
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]int)
	for id := range ids {
		seen[id]++
	}
	assert.Len(t, seen, 10)
	for id, n := range seen {
		assert.Equal(t, goroutines, n, "id %d", id)
	}
}

func TestDefaultRegistryFactories(t *testing.T) {
	a := MustSimple(3, -1, 1)
	b, err := Simple(3, -1, 1)
	require.NoError(t, err)
	assert.Equal(t, a.ID(), b.ID())

	c := MustCustom([]float64{-1, 0, 1})
	d, err := Custom([]float64{-1, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, c.ID(), d.ID())

	assert.Panics(t, func() { MustSimple(0, 0, 1) })
}

// memDir is an in-memory Directory for persistence tests.
type memDir struct {
	recs map[string]Record
}

func (d *memDir) WriteBinning(_ context.Context, name string, rec Record) error {
	d.recs[name] = rec
	return nil
}

func (d *memDir) ReadBinning(_ context.Context, name string) (Record, error) {
	rec, ok := d.recs[name]
	if !ok {
		return Record{}, fmt.Errorf("no binning at %q", name)
	}
	return rec, nil
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	dir := &memDir{recs: make(map[string]Record)}

	orig := []Binning{}
	for _, mk := range []func() (Binning, error){
		func() (Binning, error) { return r.Simple(4, 0, 2, "a", "b", "c", "d") },
		func() (Binning, error) { return r.LogUniform(5, 0.1, 100) },
		func() (Binning, error) { return r.Custom([]float64{-3, 0, 0.25, 9}) },
	} {
		b, err := mk()
		require.NoError(t, err)
		orig = append(orig, b)
	}

	for i, b := range orig {
		require.NoError(t, b.SaveTo(ctx, dir, fmt.Sprintf("axes/%d", i)))
	}

	for i, b := range orig {
		got, err := r.LoadFrom(ctx, dir, fmt.Sprintf("axes/%d", i))
		require.NoError(t, err)
		assert.True(t, b.Equal(got))
		assert.Equal(t, b.Edges(), got.Edges())
		assert.Equal(t, b.Labels(), got.Labels())
		assert.Equal(t, b.IsSimple(), got.IsSimple())
		assert.Equal(t, b.ID(), got.ID(), "same registry re-derives the same ID")
	}

	// A fresh registry re-derives its own IDs.
	fresh := NewRegistry()
	got, err := fresh.LoadFrom(ctx, dir, "axes/2")
	require.NoError(t, err)
	assert.Equal(t, 0, got.ID())
	assert.True(t, orig[2].Equal(got))

	_, err = r.LoadFrom(ctx, dir, "missing")
	assert.Error(t, err)
}

func TestFromRecord_Rejects(t *testing.T) {
	r := NewRegistry()

	_, err := r.FromRecord(Record{NBins: 2, Min: 0, Max: 2, Edges: []float64{0, 1}})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = r.FromRecord(Record{NBins: 1, Min: 0, Max: 1, Edges: []float64{1, 0}})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}
