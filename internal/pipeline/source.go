package pipeline

import (
	"fmt"

	"github.com/roach88/cutflow/internal/expr"
)

// RecordSink consumes records. Sinks must not mutate the record.
type RecordSink[R any] interface {
	HandleRecord(rec R) error
}

// ValueSink consumes weighted values, typically a histogram.
type ValueSink interface {
	HandleValue(v, weight float64)
}

// ValueSource is anything ValueSinks can attach to.
type ValueSource interface {
	Attach(sink ValueSink)
}

// SourceOption configures a Source.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	cache bool
}

// WithSinkCache makes GetVar and GetCut return the applier already
// registered for a node ID instead of registering a second one. Pending
// nodes are never cached.
func WithSinkCache() SourceOption {
	return func(c *sourceConfig) {
		c.cache = true
	}
}

type sinkKey struct {
	cut      bool
	nodeID   int
	weightID int
}

// Source is an ordered registry of record sinks.
type Source[R any] struct {
	sinks []RecordSink[R]
	cfg   sourceConfig
	cache map[sinkKey]RecordSink[R]
}

// NewSource creates an empty source.
func NewSource[R any](opts ...SourceOption) *Source[R] {
	var cfg sourceConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return newSource[R](cfg)
}

func newSource[R any](cfg sourceConfig) *Source[R] {
	s := &Source[R]{cfg: cfg}
	if cfg.cache {
		s.cache = make(map[sinkKey]RecordSink[R])
	}
	return s
}

// Register appends sink. No deduplication is performed.
func (s *Source[R]) Register(sink RecordSink[R]) {
	s.sinks = append(s.sinks, sink)
}

// Len returns the number of registered sinks.
func (s *Source[R]) Len() int {
	return len(s.sinks)
}

// HandleRecord delivers rec to every sink in registration order. The first
// sink error stops delivery of this record and is returned.
func (s *Source[R]) HandleRecord(rec R) error {
	for i, sink := range s.sinks {
		if err := sink.HandleRecord(rec); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}

// GetVar registers an applier evaluating v for every record and returns it.
func (s *Source[R]) GetVar(v *expr.Var[R]) *VarApplier[R] {
	return s.GetWeightedVar(v, nil)
}

// GetWeightedVar is GetVar with a per-record weight. A nil weight means 1.
func (s *Source[R]) GetWeightedVar(v, weight *expr.Var[R]) *VarApplier[R] {
	key := sinkKey{cut: false, nodeID: v.ID(), weightID: -1}
	if weight != nil {
		key.weightID = weight.ID()
	}
	cacheable := v.Resolved() && (weight == nil || weight.Resolved())
	if a, ok := s.cached(key, cacheable); ok {
		return a.(*VarApplier[R])
	}

	a := newVarApplier(v, weight)
	s.Register(a)
	s.remember(key, a, cacheable)
	return a
}

// GetCut registers an applier evaluating c for every record and returns it.
// The applier is itself a Source, configured like s: sinks registered on it
// only see records that pass c.
func (s *Source[R]) GetCut(c *expr.Cut[R]) *CutApplier[R] {
	key := sinkKey{cut: true, nodeID: c.ID(), weightID: -1}
	if a, ok := s.cached(key, c.Resolved()); ok {
		return a.(*CutApplier[R])
	}

	a := newCutApplier(c, s.cfg)
	s.Register(a)
	s.remember(key, a, c.Resolved())
	return a
}

func (s *Source[R]) cached(key sinkKey, cacheable bool) (RecordSink[R], bool) {
	if s.cache == nil || !cacheable {
		return nil, false
	}
	a, ok := s.cache[key]
	return a, ok
}

func (s *Source[R]) remember(key sinkKey, a RecordSink[R], cacheable bool) {
	if s.cache == nil || !cacheable {
		return
	}
	s.cache[key] = a
}
