// Package config loads analysis definitions (binnings, vars, cuts and
// histograms) from YAML or CUE and builds them into interned binnings and
// expression nodes over record.Event.
package config

// Analysis is the root of an analysis file.
type Analysis struct {
	Name       string         `yaml:"name" json:"name,omitempty"`
	Binnings   []BinningDef   `yaml:"binnings" json:"binnings"`
	Vars       []VarDef       `yaml:"vars" json:"vars"`
	Cuts       []CutDef       `yaml:"cuts,omitempty" json:"cuts,omitempty"`
	Histograms []HistogramDef `yaml:"histograms,omitempty" json:"histograms,omitempty"`
}

// Binning kinds.
const (
	BinningSimple = "simple"
	BinningLog    = "log"
	BinningCustom = "custom"
)

// BinningDef describes one binning. Simple and log binnings use N, Lo and
// Hi; custom binnings use Edges. Labels are optional and only valid on
// simple binnings.
type BinningDef struct {
	Name   string    `yaml:"name" json:"name"`
	Kind   string    `yaml:"kind" json:"kind"`
	N      int       `yaml:"n,omitempty" json:"n,omitempty"`
	Lo     float64   `yaml:"lo,omitempty" json:"lo,omitempty"`
	Hi     float64   `yaml:"hi,omitempty" json:"hi,omitempty"`
	Edges  []float64 `yaml:"edges,omitempty" json:"edges,omitempty"`
	Labels []string  `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// Var operators.
const (
	OpAdd = "add"
	OpSub = "sub"
	OpMul = "mul"
	OpDiv = "div"
)

// VarDef describes one Var. Exactly one of Field, Const or Op is set. Op
// combines the vars named by Left and Right, which may be defined later in
// the file.
type VarDef struct {
	Name  string   `yaml:"name" json:"name"`
	Field string   `yaml:"field,omitempty" json:"field,omitempty"`
	Const *float64 `yaml:"const,omitempty" json:"const,omitempty"`
	Op    string   `yaml:"op,omitempty" json:"op,omitempty"`
	Left  string   `yaml:"left,omitempty" json:"left,omitempty"`
	Right string   `yaml:"right,omitempty" json:"right,omitempty"`
}

// CutDef describes one Cut. Exactly one form is used:
//   - Var Cmp Value: compare a var against a constant
//   - Var Cmp Var2: compare two vars
//   - AllOf / AnyOf: conjunction or disjunction of other cuts
//   - Not: negation of another cut
type CutDef struct {
	Name  string   `yaml:"name" json:"name"`
	Var   string   `yaml:"var,omitempty" json:"var,omitempty"`
	Cmp   string   `yaml:"cmp,omitempty" json:"cmp,omitempty"`
	Value *float64 `yaml:"value,omitempty" json:"value,omitempty"`
	Var2  string   `yaml:"var2,omitempty" json:"var2,omitempty"`
	AllOf []string `yaml:"all_of,omitempty" json:"all_of,omitempty"`
	AnyOf []string `yaml:"any_of,omitempty" json:"any_of,omitempty"`
	Not   string   `yaml:"not,omitempty" json:"not,omitempty"`
}

// HistogramDef describes one histogram. With one axis the var is filled
// directly; with two or three the vars are joined through a mapper and the
// histogram is filled over the flattened index.
type HistogramDef struct {
	Name   string    `yaml:"name" json:"name"`
	Cut    string    `yaml:"cut,omitempty" json:"cut,omitempty"`
	Weight string    `yaml:"weight,omitempty" json:"weight,omitempty"`
	Axes   []AxisDef `yaml:"axes" json:"axes"`
}

// AxisDef pairs a var with a binning.
type AxisDef struct {
	Var     string `yaml:"var" json:"var"`
	Binning string `yaml:"binning" json:"binning"`
}
