package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/roach88/cutflow/internal/binning"
	"github.com/roach88/cutflow/internal/config"
	"github.com/roach88/cutflow/internal/expr"
	"github.com/roach88/cutflow/internal/hist"
)

// HistogramResult is the output form of a filled histogram. Contents holds
// the in-range bins only.
type HistogramResult struct {
	Name      string    `json:"name"`
	BinningID int       `json:"binning_id"`
	Edges     []float64 `json:"edges"`
	Labels    []string  `json:"labels,omitempty"`
	Contents  []float64 `json:"contents"`
	Underflow float64   `json:"underflow"`
	Overflow  float64   `json:"overflow"`
	Entries   int64     `json:"entries"`
	Integral  float64   `json:"integral"`
}

func histogramResult(h *hist.Histogram) HistogramResult {
	all := h.Contents()
	return HistogramResult{
		Name:      h.Name(),
		BinningID: h.Binning().ID(),
		Edges:     h.Binning().Edges(),
		Labels:    h.Binning().Labels(),
		Contents:  all[1 : len(all)-1],
		Underflow: h.Underflow(),
		Overflow:  h.Overflow(),
		Entries:   h.Entries(),
		Integral:  h.Integral(),
	}
}

// writeHistogram renders one histogram as text, one bin per line.
func writeHistogram(w io.Writer, h HistogramResult) {
	fmt.Fprintf(w, "histogram %s (binning %d, %d bins)\n", h.Name, h.BinningID, len(h.Contents))
	fmt.Fprintf(w, "  underflow %g\n", h.Underflow)
	for i, c := range h.Contents {
		label := ""
		if i < len(h.Labels) && h.Labels[i] != "" {
			label = " " + h.Labels[i]
		}
		fmt.Fprintf(w, "  bin %d [%g, %g)%s %g\n", i+1, h.Edges[i], h.Edges[i+1], label, c)
	}
	fmt.Fprintf(w, "  overflow %g\n", h.Overflow)
	fmt.Fprintf(w, "  entries %d, integral %g\n", h.Entries, h.Integral)
}

func writeBinning(w io.Writer, name string, b binning.Binning) {
	labels := ""
	if ls := b.Labels(); len(ls) > 0 {
		labels = " labels=" + strings.Join(ls, ",")
	}
	fmt.Fprintf(w, "%d %s %s %d [%g, %g)%s\n", b.ID(), name, b.Kind(), b.NBins(), b.Min(), b.Max(), labels)
}

// loadAnalysis loads and builds an analysis file into a fresh State and
// Registry. Failures are reported through f.
func loadAnalysis(f *OutputFormatter, path string, logger *slog.Logger) (*config.Built, error) {
	a, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrInvalid) {
			return nil, f.Fail(ExitCommandError, ErrCodeInvalid, "invalid analysis", err)
		}
		return nil, f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load analysis", err)
	}
	if a.Name == "" {
		a.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	f.VerboseLog("loaded %s: %d binnings, %d vars, %d cuts, %d histograms",
		path, len(a.Binnings), len(a.Vars), len(a.Cuts), len(a.Histograms))

	st := expr.NewState(expr.WithLogger(logger))
	built, err := config.Build(a, st, binning.NewRegistry())
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeInvalid, "invalid analysis", err)
	}
	return built, nil
}
