// Package record supplies a concrete record type for analyses defined in
// configuration, and readers that stream it from JSON-lines files.
package record

import (
	"math"
	"sort"

	"github.com/roach88/cutflow/internal/expr"
)

// Event is one record: a sequence number and named numeric fields.
type Event struct {
	Seq    int64
	Fields map[string]float64
}

// Get returns the named field, or NaN if the event does not carry it.
func (e *Event) Get(name string) float64 {
	v, ok := e.Fields[name]
	if !ok {
		return math.NaN()
	}
	return v
}

// Names returns the event's field names in sorted order.
func (e *Event) Names() []string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Field returns a Var reading the named field.
func Field(st *expr.State, name string) *expr.Var[*Event] {
	return expr.NewVar(st, func(e *Event) float64 { return e.Get(name) })
}
