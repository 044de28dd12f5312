// Package hist provides a minimal filled histogram that can be attached to a
// pipeline applier as a value sink.
package hist

import (
	"fmt"

	"github.com/roach88/cutflow/internal/binning"
)

// Histogram accumulates weighted values over one Binning. Slot 0 holds
// underflow and slot NBins()+1 holds overflow, so slot i is the binning's
// 1-based bin i.
type Histogram struct {
	name     string
	bins     binning.Binning
	contents []float64
	entries  int64
}

// New creates an empty histogram.
func New(name string, b binning.Binning) *Histogram {
	return &Histogram{
		name:     name,
		bins:     b,
		contents: make([]float64, b.NBins()+2),
	}
}

// FromContents rebuilds a histogram from stored slot contents, including the
// underflow and overflow slots.
func FromContents(name string, b binning.Binning, contents []float64, entries int64) (*Histogram, error) {
	if len(contents) != b.NBins()+2 {
		return nil, fmt.Errorf("histogram %q: %d slots for %d bins", name, len(contents), b.NBins())
	}
	h := New(name, b)
	copy(h.contents, contents)
	h.entries = entries
	return h, nil
}

// Fill adds weight to the bin containing x.
func (h *Histogram) Fill(x, weight float64) {
	h.contents[h.bins.FindBin(x)] += weight
	h.entries++
}

// HandleValue implements pipeline.ValueSink.
func (h *Histogram) HandleValue(v, weight float64) {
	h.Fill(v, weight)
}

// Name returns the histogram's name.
func (h *Histogram) Name() string { return h.name }

// Binning returns the histogram's binning.
func (h *Histogram) Binning() binning.Binning { return h.bins }

// Content returns the sum of weights in 1-based bin i. 0 and NBins()+1 give
// underflow and overflow; anything else out of range gives 0.
func (h *Histogram) Content(i int) float64 {
	if i < 0 || i >= len(h.contents) {
		return 0
	}
	return h.contents[i]
}

// Contents returns a copy of all slots, underflow and overflow included.
func (h *Histogram) Contents() []float64 {
	out := make([]float64, len(h.contents))
	copy(out, h.contents)
	return out
}

// Underflow returns the weight filled below Min or at NaN.
func (h *Histogram) Underflow() float64 { return h.contents[0] }

// Overflow returns the weight filled at or above Max.
func (h *Histogram) Overflow() float64 { return h.contents[len(h.contents)-1] }

// Entries returns the number of Fill calls.
func (h *Histogram) Entries() int64 { return h.entries }

// Integral returns the sum of weights inside the range, excluding underflow
// and overflow.
func (h *Histogram) Integral() float64 {
	var sum float64
	for _, c := range h.contents[1 : len(h.contents)-1] {
		sum += c
	}
	return sum
}

// Reset clears contents and entries.
func (h *Histogram) Reset() {
	clear(h.contents)
	h.entries = 0
}
