package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cutflow/internal/expr"
)

type rec struct {
	n int
	x float64
}

// recorder is a ValueSink that keeps everything it is handed.
type recorder struct {
	values  []float64
	weights []float64
}

func (r *recorder) HandleValue(v, w float64) {
	r.values = append(r.values, v)
	r.weights = append(r.weights, w)
}

// orderSink records the order in which sinks see records.
type orderSink struct {
	name string
	log  *[]string
}

func (s orderSink) HandleRecord(r rec) error {
	*s.log = append(*s.log, s.name)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func records(n int) []rec {
	out := make([]rec, n)
	for i := range out {
		out[i] = rec{n: i, x: float64(i) * 1.5}
	}
	return out
}

func TestTwoSinksSameNode(t *testing.T) {
	st := expr.NewState()
	x := expr.NewVar(st, func(r rec) float64 { return r.x })

	src := NewSource[rec]()
	a := src.GetVar(x)
	b := src.GetVar(x)
	require.NotSame(t, a, b, "no deduplication by default")
	assert.Equal(t, 2, src.Len())

	ra, rb := &recorder{}, &recorder{}
	a.Attach(ra)
	b.Attach(rb)

	stats, err := Loop(context.Background(), NewSliceReader(records(5)...), src, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Records)

	assert.Equal(t, int64(5), a.Calls())
	assert.Equal(t, int64(5), b.Calls())
	assert.Len(t, ra.values, 5)
	assert.Equal(t, ra.values, rb.values)
	assert.Equal(t, []float64{0, 1.5, 3, 4.5, 6}, ra.values)
	assert.Equal(t, []float64{1, 1, 1, 1, 1}, ra.weights)
}

func TestSinkCache(t *testing.T) {
	st := expr.NewState()
	x := expr.NewVar(st, func(r rec) float64 { return r.x })
	c := expr.Compare(x, expr.Greater, 2.0)

	src := NewSource[rec](WithSinkCache())
	a := src.GetVar(x)
	assert.Same(t, a, src.GetVar(expr.Copy(x)), "same node ID returns the same applier")
	assert.Same(t, src.GetCut(c), src.GetCut(c))
	assert.NotSame(t, a, src.GetWeightedVar(x, x))
	assert.Equal(t, 3, src.Len())

	// Pending nodes are never cached.
	p := expr.Declare[rec, float64](st)
	assert.NotSame(t, src.GetVar(p), src.GetVar(p))
}

func TestSinkCache_InheritedByCut(t *testing.T) {
	st := expr.NewState()
	x := expr.NewVar(st, func(r rec) float64 { return r.x })
	c := expr.Compare(x, expr.Greater, 2.0)

	src := NewSource[rec](WithSinkCache())
	cut := src.GetCut(c)
	assert.Same(t, cut.GetVar(x), cut.GetVar(x), "appliers under a cut are shared too")
	assert.Equal(t, 1, cut.Len())

	plain := NewSource[rec]().GetCut(c)
	assert.NotSame(t, plain.GetVar(x), plain.GetVar(x))
	assert.Equal(t, 2, plain.Len())
}

func TestDeliveryOrder(t *testing.T) {
	var log []string
	src := NewSource[rec]()
	src.Register(orderSink{"first", &log})
	src.Register(orderSink{"second", &log})
	src.Register(orderSink{"third", &log})

	_, err := Loop(context.Background(), NewSliceReader(records(2)...), src, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third", "first", "second", "third"}, log)
}

func TestCutApplierForwardsPassingRecords(t *testing.T) {
	st := expr.NewState()
	x := expr.NewVar(st, func(r rec) float64 { return r.x })
	sel := expr.Compare(x, expr.GreaterEqual, 3.0)

	src := NewSource[rec]()
	cut := src.GetCut(sel)
	flags := &recorder{}
	cut.Attach(flags)

	selected := &recorder{}
	cut.GetVar(x).Attach(selected)

	_, err := Loop(context.Background(), NewSliceReader(records(5)...), src, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 1, 1, 1}, flags.values)
	assert.Equal(t, []float64{3, 4.5, 6}, selected.values)
	assert.Equal(t, int64(5), cut.Calls())
	assert.Equal(t, int64(3), cut.Passed())
}

func TestWeightedVar(t *testing.T) {
	st := expr.NewState()
	x := expr.NewVar(st, func(r rec) float64 { return r.x })
	w := expr.NewVar(st, func(r rec) float64 { return float64(r.n) * 10 })

	src := NewSource[rec]()
	out := &recorder{}
	src.GetWeightedVar(x, w).Attach(out)

	_, err := Loop(context.Background(), NewSliceReader(records(3)...), src, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 20}, out.weights)
}

func TestPendingNodeFailsPass(t *testing.T) {
	st := expr.NewState()
	p := expr.Declare[rec, float64](st)

	src := NewSource[rec]()
	a := src.GetVar(p)

	stats, err := Loop(context.Background(), NewSliceReader(records(3)...), src, WithLogger(quietLogger()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, expr.ErrUnresolvedNode))
	assert.Equal(t, int64(0), stats.Records)

	// Resolving the source later is picked up by the applier's copy.
	require.NoError(t, p.Resolve(func(r rec) float64 { return r.x }, -1))
	out := &recorder{}
	a.Attach(out)
	_, err = Loop(context.Background(), NewSliceReader(records(2)...), src, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1.5}, out.values)
}

func TestLoop_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewSource[rec]()
	stats, err := Loop(ctx, NewSliceReader(records(3)...), src, WithLogger(quietLogger()))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), stats.Records)
}

func TestLoop_Limit(t *testing.T) {
	src := NewSource[rec]()
	stats, err := Loop(context.Background(), NewSliceReader(records(10)...), src,
		WithLogger(quietLogger()), WithLimit(4))
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Records)
}

type failingReader struct{}

func (failingReader) Next(context.Context) (rec, error) {
	return rec{}, errors.New("disk on fire")
}

func TestLoop_ReaderError(t *testing.T) {
	_, err := Loop[rec](context.Background(), failingReader{}, NewSource[rec](), WithLogger(quietLogger()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}
