package config

import (
	"fmt"

	"github.com/roach88/cutflow/internal/binning"
	"github.com/roach88/cutflow/internal/expr"
	"github.com/roach88/cutflow/internal/hist"
	"github.com/roach88/cutflow/internal/pipeline"
	"github.com/roach88/cutflow/internal/record"
)

// Event is the record type configured analyses run over.
type Event = *record.Event

// Built is an analysis turned into live objects.
type Built struct {
	Name       string
	State      *expr.State
	Registry   *binning.Registry
	Binnings   map[string]binning.Binning
	Vars       map[string]*expr.Var[Event]
	Cuts       map[string]*expr.Cut[Event]
	Histograms []HistogramSpec

	binningOrder []string
	varOrder     []string
	cutOrder     []string
}

// HistogramSpec is a histogram ready to be wired to a source. Var is the
// axis var for one axis or the joined var for two or three; Binning is the
// axis binning or the mapper's index binning respectively.
type HistogramSpec struct {
	Name    string
	Cut     *expr.Cut[Event]
	Weight  *expr.Var[Event]
	Var     *expr.Var[Event]
	Binning binning.Binning
	Axes    []binning.Binning
}

// NodeInfo describes one named var or cut.
type NodeInfo struct {
	Section  string `json:"section"`
	Name     string `json:"name"`
	ID       int    `json:"id"`
	Origin   string `json:"origin"`
	Resolved bool   `json:"resolved"`
}

// Build validates a and builds it with st and reg. Vars and cuts may refer
// to definitions that come later in the file: every name is declared
// before any is defined, and the dependency manager resolves copies taken
// of a declaration once it is bound.
func Build(a *Analysis, st *expr.State, reg *binning.Registry) (*Built, error) {
	if err := Validate(a); err != nil {
		return nil, fmt.Errorf("invalid analysis: %w", err)
	}

	b := &Built{
		Name:     a.Name,
		State:    st,
		Registry: reg,
		Binnings: make(map[string]binning.Binning, len(a.Binnings)),
		Vars:     make(map[string]*expr.Var[Event], len(a.Vars)),
		Cuts:     make(map[string]*expr.Cut[Event], len(a.Cuts)),
	}

	for _, d := range a.Binnings {
		bn, err := buildBinning(reg, d)
		if err != nil {
			return nil, &DefError{Section: "binnings", Name: d.Name, Message: err.Error()}
		}
		b.Binnings[d.Name] = bn
		b.binningOrder = append(b.binningOrder, d.Name)
	}

	for _, d := range a.Vars {
		b.Vars[d.Name] = expr.Declare[Event, float64](st)
		b.varOrder = append(b.varOrder, d.Name)
	}
	for _, d := range a.Vars {
		if err := b.Vars[d.Name].Bind(b.buildVar(d)); err != nil {
			return nil, &DefError{Section: "vars", Name: d.Name, Message: err.Error()}
		}
	}

	for _, d := range a.Cuts {
		b.Cuts[d.Name] = expr.Declare[Event, bool](st)
		b.cutOrder = append(b.cutOrder, d.Name)
	}
	for _, d := range a.Cuts {
		if err := b.Cuts[d.Name].Bind(b.buildCut(d)); err != nil {
			return nil, &DefError{Section: "cuts", Name: d.Name, Message: err.Error()}
		}
	}

	for _, d := range a.Histograms {
		spec, err := b.buildHistogram(d)
		if err != nil {
			return nil, &DefError{Section: "histograms", Name: d.Name, Message: err.Error()}
		}
		b.Histograms = append(b.Histograms, spec)
	}
	return b, nil
}

func buildBinning(reg *binning.Registry, d BinningDef) (binning.Binning, error) {
	switch d.Kind {
	case BinningSimple:
		return reg.Simple(d.N, d.Lo, d.Hi, d.Labels...)
	case BinningLog:
		return reg.LogUniform(d.N, d.Lo, d.Hi)
	default:
		return reg.Custom(d.Edges)
	}
}

func (b *Built) buildVar(d VarDef) *expr.Var[Event] {
	switch {
	case d.Field != "":
		return record.Field(b.State, d.Field)
	case d.Const != nil:
		return expr.Const[Event](b.State, *d.Const)
	}

	l, r := b.Vars[d.Left], b.Vars[d.Right]
	switch d.Op {
	case OpAdd:
		return expr.Add(l, r)
	case OpSub:
		return expr.Sub(l, r)
	case OpMul:
		return expr.Mul(l, r)
	default:
		return expr.Div(l, r)
	}
}

func (b *Built) buildCut(d CutDef) *expr.Cut[Event] {
	switch {
	case d.Var != "":
		op, _ := expr.ParseCmpOp(d.Cmp)
		if d.Value != nil {
			return expr.Compare(b.Vars[d.Var], op, *d.Value)
		}
		return expr.CompareVars(b.Vars[d.Var], op, b.Vars[d.Var2])
	case len(d.AllOf) > 0:
		return b.fold(d.AllOf, expr.And[Event])
	case len(d.AnyOf) > 0:
		return b.fold(d.AnyOf, expr.Or[Event])
	default:
		return expr.Not(b.Cuts[d.Not])
	}
}

func (b *Built) fold(names []string, op func(a, c *expr.Cut[Event]) *expr.Cut[Event]) *expr.Cut[Event] {
	acc := expr.Copy(b.Cuts[names[0]])
	for _, n := range names[1:] {
		acc = op(acc, b.Cuts[n])
	}
	return acc
}

func (b *Built) buildHistogram(d HistogramDef) (HistogramSpec, error) {
	spec := HistogramSpec{Name: d.Name}
	if d.Cut != "" {
		spec.Cut = b.Cuts[d.Cut]
	}
	if d.Weight != "" {
		spec.Weight = b.Vars[d.Weight]
	}

	vars := make([]*expr.Var[Event], len(d.Axes))
	for i, ax := range d.Axes {
		vars[i] = b.Vars[ax.Var]
		spec.Axes = append(spec.Axes, b.Binnings[ax.Binning])
	}
	if len(vars) == 1 {
		spec.Var = vars[0]
		spec.Binning = spec.Axes[0]
		return spec, nil
	}

	var err error
	if len(vars) == 2 {
		spec.Var, err = expr.Join2D(vars[0], spec.Axes[0], vars[1], spec.Axes[1])
	} else {
		spec.Var, err = expr.Join3D(vars[0], spec.Axes[0], vars[1], spec.Axes[1], vars[2], spec.Axes[2])
	}
	if err != nil {
		return spec, err
	}
	m, err := binning.NewMapper(spec.Axes...)
	if err != nil {
		return spec, err
	}
	spec.Binning, err = m.IndexBinning(b.Registry)
	return spec, err
}

// Wire requests an applier for every histogram from src and attaches a
// fresh hist.Histogram to it. Histograms with a cut hang off that cut's
// applier so they only see passing records.
func (b *Built) Wire(src *pipeline.Source[Event]) []*hist.Histogram {
	out := make([]*hist.Histogram, 0, len(b.Histograms))
	for _, spec := range b.Histograms {
		h := hist.New(spec.Name, spec.Binning)
		target := src
		if spec.Cut != nil {
			target = src.GetCut(spec.Cut).Source
		}
		target.GetWeightedVar(spec.Var, spec.Weight).Attach(h)
		out = append(out, h)
	}
	return out
}

// BinningNames returns binning names in definition order.
func (b *Built) BinningNames() []string {
	return append([]string(nil), b.binningOrder...)
}

// Nodes describes every named var and cut in definition order.
func (b *Built) Nodes() []NodeInfo {
	out := make([]NodeInfo, 0, len(b.varOrder)+len(b.cutOrder))
	for _, n := range b.varOrder {
		v := b.Vars[n]
		out = append(out, NodeInfo{Section: "vars", Name: n, ID: v.ID(), Origin: v.Origin().String(), Resolved: v.Resolved()})
	}
	for _, n := range b.cutOrder {
		c := b.Cuts[n]
		out = append(out, NodeInfo{Section: "cuts", Name: n, ID: c.ID(), Origin: c.Origin().String(), Resolved: c.Resolved()})
	}
	return out
}

// Pending returns the names of vars and cuts that are still unresolved.
func (b *Built) Pending() []string {
	var out []string
	for _, n := range b.Nodes() {
		if !n.Resolved {
			out = append(out, n.Section+"."+n.Name)
		}
	}
	return out
}
