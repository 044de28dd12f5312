package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/cutflow/internal/expr"
)

// ErrInvalid is wrapped by every DefError.
var ErrInvalid = errors.New("invalid definition")

// DefError reports a problem with one named definition.
type DefError struct {
	Section string // "binnings", "vars", "cuts" or "histograms"
	Name    string
	Message string
}

func (e *DefError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %s", e.Section, e.Message)
	}
	return fmt.Sprintf("%s %q: %s", e.Section, e.Name, e.Message)
}

func (e *DefError) Unwrap() error { return ErrInvalid }

// Validate checks names, references and shapes, and rejects reference
// cycles among vars and among cuts. All problems are reported, joined.
func Validate(a *Analysis) error {
	v := &validator{}
	binnings := v.names("binnings", len(a.Binnings), func(i int) string { return a.Binnings[i].Name })
	vars := v.names("vars", len(a.Vars), func(i int) string { return a.Vars[i].Name })
	cuts := v.names("cuts", len(a.Cuts), func(i int) string { return a.Cuts[i].Name })
	v.names("histograms", len(a.Histograms), func(i int) string { return a.Histograms[i].Name })

	for _, b := range a.Binnings {
		v.binning(b)
	}

	varGraph := make(refGraph)
	for _, d := range a.Vars {
		varGraph[d.Name] = v.varDef(d, vars)
	}
	for _, c := range varGraph.cycles() {
		v.fail("vars", c[0], "reference cycle: "+strings.Join(c, " -> "))
	}

	cutGraph := make(refGraph)
	for _, d := range a.Cuts {
		cutGraph[d.Name] = v.cutDef(d, vars, cuts)
	}
	for _, c := range cutGraph.cycles() {
		v.fail("cuts", c[0], "reference cycle: "+strings.Join(c, " -> "))
	}

	for _, h := range a.Histograms {
		v.histogram(h, binnings, vars, cuts)
	}
	return errors.Join(v.errs...)
}

type validator struct {
	errs []error
}

func (v *validator) fail(section, name, format string, args ...any) {
	v.errs = append(v.errs, &DefError{Section: section, Name: name, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) names(section string, n int, name func(int) string) map[string]bool {
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		nm := name(i)
		switch {
		case nm == "":
			v.fail(section, "", "entry %d: name is required", i)
		case seen[nm]:
			v.fail(section, nm, "defined more than once")
		}
		seen[nm] = true
	}
	return seen
}

func (v *validator) binning(b BinningDef) {
	const section = "binnings"
	switch b.Kind {
	case BinningSimple, BinningLog:
		if b.N <= 0 {
			v.fail(section, b.Name, "n must be positive, got %d", b.N)
		}
		if !(b.Lo < b.Hi) || math.IsInf(b.Lo, 0) || math.IsInf(b.Hi, 0) {
			v.fail(section, b.Name, "need finite lo < hi, got [%g, %g]", b.Lo, b.Hi)
		}
		if b.Kind == BinningLog && b.Lo <= 0 {
			v.fail(section, b.Name, "log binning needs lo > 0, got %g", b.Lo)
		}
		if len(b.Edges) > 0 {
			v.fail(section, b.Name, "edges are only valid on custom binnings")
		}
		if b.Kind == BinningLog && len(b.Labels) > 0 {
			v.fail(section, b.Name, "labels are only valid on simple binnings")
		}
		if len(b.Labels) > 0 && len(b.Labels) != b.N {
			v.fail(section, b.Name, "%d labels for %d bins", len(b.Labels), b.N)
		}
	case BinningCustom:
		if len(b.Edges) < 2 {
			v.fail(section, b.Name, "custom binning needs at least 2 edges")
		}
		if len(b.Labels) > 0 {
			v.fail(section, b.Name, "labels are only valid on simple binnings")
		}
	default:
		v.fail(section, b.Name, "unknown kind %q", b.Kind)
	}
}

// varDef checks one var and returns the vars it references.
func (v *validator) varDef(d VarDef, vars map[string]bool) []string {
	const section = "vars"
	forms := 0
	if d.Field != "" {
		forms++
	}
	if d.Const != nil {
		forms++
	}
	if d.Op != "" {
		forms++
	}
	if forms != 1 {
		v.fail(section, d.Name, "exactly one of field, const or op is required")
		return nil
	}
	if d.Op == "" {
		if d.Left != "" || d.Right != "" {
			v.fail(section, d.Name, "left/right are only valid with op")
		}
		return nil
	}

	switch d.Op {
	case OpAdd, OpSub, OpMul, OpDiv:
	default:
		v.fail(section, d.Name, "unknown op %q", d.Op)
	}
	var refs []string
	for _, ref := range []string{d.Left, d.Right} {
		switch {
		case ref == "":
			v.fail(section, d.Name, "op %s needs left and right", d.Op)
		case !vars[ref]:
			v.fail(section, d.Name, "references undefined var %q", ref)
		default:
			refs = append(refs, ref)
		}
	}
	return refs
}

// cutDef checks one cut and returns the cuts it references.
func (v *validator) cutDef(d CutDef, vars, cuts map[string]bool) []string {
	const section = "cuts"
	forms := 0
	if d.Var != "" {
		forms++
	}
	if len(d.AllOf) > 0 {
		forms++
	}
	if len(d.AnyOf) > 0 {
		forms++
	}
	if d.Not != "" {
		forms++
	}
	if forms != 1 {
		v.fail(section, d.Name, "exactly one of var, all_of, any_of or not is required")
		return nil
	}

	if d.Var != "" {
		if !vars[d.Var] {
			v.fail(section, d.Name, "references undefined var %q", d.Var)
		}
		if _, err := expr.ParseCmpOp(d.Cmp); err != nil {
			v.fail(section, d.Name, "%v", err)
		}
		switch {
		case (d.Value == nil) == (d.Var2 == ""):
			v.fail(section, d.Name, "exactly one of value or var2 is required")
		case d.Var2 != "" && !vars[d.Var2]:
			v.fail(section, d.Name, "references undefined var %q", d.Var2)
		}
		return nil
	}
	if d.Cmp != "" || d.Value != nil || d.Var2 != "" {
		v.fail(section, d.Name, "cmp, value and var2 are only valid with var")
	}

	refs := append(append([]string{}, d.AllOf...), d.AnyOf...)
	if d.Not != "" {
		refs = append(refs, d.Not)
	}
	var known []string
	for _, ref := range refs {
		if !cuts[ref] {
			v.fail(section, d.Name, "references undefined cut %q", ref)
			continue
		}
		known = append(known, ref)
	}
	return known
}

func (v *validator) histogram(h HistogramDef, binnings, vars, cuts map[string]bool) {
	const section = "histograms"
	if n := len(h.Axes); n < 1 || n > 3 {
		v.fail(section, h.Name, "needs 1 to 3 axes, got %d", n)
	}
	for i, ax := range h.Axes {
		if !vars[ax.Var] {
			v.fail(section, h.Name, "axis %d references undefined var %q", i, ax.Var)
		}
		if !binnings[ax.Binning] {
			v.fail(section, h.Name, "axis %d references undefined binning %q", i, ax.Binning)
		}
	}
	if h.Cut != "" && !cuts[h.Cut] {
		v.fail(section, h.Name, "references undefined cut %q", h.Cut)
	}
	if h.Weight != "" && !vars[h.Weight] {
		v.fail(section, h.Name, "references undefined weight var %q", h.Weight)
	}
}
