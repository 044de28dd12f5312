package pipeline

import (
	"fmt"

	"github.com/roach88/cutflow/internal/expr"
)

// VarApplier evaluates a Var for every record and forwards the value, with
// its weight, to attached ValueSinks.
type VarApplier[R any] struct {
	v      *expr.Var[R]
	weight *expr.Var[R]
	sinks  []ValueSink
	calls  int64
}

func newVarApplier[R any](v, weight *expr.Var[R]) *VarApplier[R] {
	a := &VarApplier[R]{v: expr.Copy(v)}
	if weight != nil {
		a.weight = expr.Copy(weight)
	}
	return a
}

// Attach adds a downstream value sink.
func (a *VarApplier[R]) Attach(sink ValueSink) {
	a.sinks = append(a.sinks, sink)
}

// Var returns the applier's node.
func (a *VarApplier[R]) Var() *expr.Var[R] { return a.v }

// Calls returns how many records the applier has evaluated.
func (a *VarApplier[R]) Calls() int64 { return a.calls }

// HandleRecord implements RecordSink.
func (a *VarApplier[R]) HandleRecord(rec R) error {
	a.calls++
	v, err := a.v.Eval(rec)
	if err != nil {
		return fmt.Errorf("var %d: %w", a.v.ID(), err)
	}
	w := 1.0
	if a.weight != nil {
		if w, err = a.weight.Eval(rec); err != nil {
			return fmt.Errorf("weight %d: %w", a.weight.ID(), err)
		}
	}
	for _, s := range a.sinks {
		s.HandleValue(v, w)
	}
	return nil
}

// CutApplier evaluates a Cut for every record. Attached ValueSinks receive
// 1 or 0; record sinks registered on the embedded Source receive only the
// records that pass.
type CutApplier[R any] struct {
	*Source[R]
	c      *expr.Cut[R]
	sinks  []ValueSink
	calls  int64
	passed int64
}

func newCutApplier[R any](c *expr.Cut[R], cfg sourceConfig) *CutApplier[R] {
	return &CutApplier[R]{Source: newSource[R](cfg), c: expr.Copy(c)}
}

// Attach adds a downstream value sink.
func (a *CutApplier[R]) Attach(sink ValueSink) {
	a.sinks = append(a.sinks, sink)
}

// Cut returns the applier's node.
func (a *CutApplier[R]) Cut() *expr.Cut[R] { return a.c }

// Calls returns how many records the applier has evaluated.
func (a *CutApplier[R]) Calls() int64 { return a.calls }

// Passed returns how many records passed the cut.
func (a *CutApplier[R]) Passed() int64 { return a.passed }

// HandleRecord implements RecordSink.
func (a *CutApplier[R]) HandleRecord(rec R) error {
	a.calls++
	pass, err := a.c.Eval(rec)
	if err != nil {
		return fmt.Errorf("cut %d: %w", a.c.ID(), err)
	}
	v := 0.0
	if pass {
		v = 1
	}
	for _, s := range a.sinks {
		s.HandleValue(v, 1)
	}
	if !pass {
		return nil
	}
	a.passed++
	return a.Source.HandleRecord(rec)
}
