package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cutflow/internal/binning"
	"github.com/roach88/cutflow/internal/hist"
)

func TestPackContents(t *testing.T) {
	in := []float64{0, 1.5, math.Inf(1), -2, math.NaN()}
	out, err := unpackContents(packContents(in))
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, math.Float64bits(in[i]), math.Float64bits(out[i]), i)
	}

	_, err = unpackContents([]byte("not zstd"))
	assert.Error(t, err)
}

func TestSaveRun_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("run-1", "run-2")))
	reg := binning.NewRegistry()

	b, err := reg.Simple(3, 0, 3)
	require.NoError(t, err)
	h := hist.New("x", b)
	h.Fill(-1, 1)
	h.Fill(0.5, 2)
	h.Fill(2.5, 0.25)
	h.Fill(7, 1)

	run, err := s.SaveRun(ctx, "demo", 4, []*hist.Histogram{h})
	require.NoError(t, err)
	assert.Equal(t, Run{ID: "run-1", Seq: 1, Analysis: "demo", Records: 4}, run)

	got, err := s.LoadHistogram(ctx, reg, "run-1", "x")
	require.NoError(t, err)
	assert.Equal(t, h.Contents(), got.Contents())
	assert.Equal(t, h.Entries(), got.Entries())
	assert.Equal(t, b.ID(), got.Binning().ID())

	run2, err := s.SaveRun(ctx, "demo", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), run2.Seq)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Run{run, run2}, runs)

	latest, err := s.GetRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.ID)

	names, err := s.HistogramNames(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, names)

	entries, err := s.Dir("run-1").List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-1/x/binning", entries[0].Path)
}

func TestGetRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetRun(context.Background(), "")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.GetRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.LoadHistogram(context.Background(), binning.NewRegistry(), "missing", "x")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveHistogram_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	h := hist.New("x", binning.MustSimple(1, 0, 1))
	// foreign_keys=ON rejects a histogram for a run that was never saved.
	assert.Error(t, s.SaveHistogram(context.Background(), "ghost", h))
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "7", a[14:15], "version nibble")
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
