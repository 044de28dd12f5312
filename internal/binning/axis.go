package binning

import "fmt"

// Axis is an axis description imported from an external histogramming
// package. When Edges is empty the axis is taken to be uniform over
// [Min, Max] with NBins bins.
type Axis struct {
	NBins  int
	Min    float64
	Max    float64
	Edges  []float64
	Labels []string
}

// FromAxis builds a binning matching an external axis.
func (r *Registry) FromAxis(ax Axis) (Binning, error) {
	if len(ax.Edges) == 0 {
		return r.Simple(ax.NBins, ax.Min, ax.Max, ax.Labels...)
	}
	if ax.NBins != 0 && len(ax.Edges) != ax.NBins+1 {
		return Binning{}, fmt.Errorf("axis: %w: %d edges for %d bins", ErrInvalidArgument, len(ax.Edges), ax.NBins)
	}
	return r.custom(ax.Edges, ax.Labels)
}

// FromAxis builds a binning matching an external axis in DefaultRegistry.
func FromAxis(ax Axis) (Binning, error) {
	return DefaultRegistry.FromAxis(ax)
}

// Axis exports b in the external axis form.
func (b Binning) Axis() Axis {
	ax := Axis{
		NBins:  b.NBins(),
		Min:    b.Min(),
		Max:    b.Max(),
		Labels: b.Labels(),
	}
	if !b.IsSimple() {
		ax.Edges = b.Edges()
	}
	return ax
}
