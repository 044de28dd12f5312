package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cutflow/internal/binning"
	"github.com/roach88/cutflow/internal/config"
)

// BinningResult describes one interned binning.
type BinningResult struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	NBins       int       `json:"nbins"`
	Edges       []float64 `json:"edges"`
	Labels      []string  `json:"labels,omitempty"`
	Fingerprint string    `json:"fingerprint"`
}

type namedBinning struct {
	name string
	b    binning.Binning
}

// NewBinsCommand creates the bins command.
func NewBinsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bins <analysis>",
		Short: "List the binnings an analysis interns",
		Long: `Build the analysis and list every binning it defines, followed by the
index binnings of its 2D and 3D histograms. Equal binnings share an ID.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBins(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runBins(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	built, err := loadAnalysis(f, path, opts.logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	list := analysisBinnings(built)
	results := make([]BinningResult, 0, len(list))
	for _, nb := range list {
		results = append(results, BinningResult{
			ID:          nb.b.ID(),
			Name:        nb.name,
			Kind:        nb.b.Kind().String(),
			NBins:       nb.b.NBins(),
			Edges:       nb.b.Edges(),
			Labels:      nb.b.Labels(),
			Fingerprint: nb.b.Fingerprint(),
		})
	}

	return f.Success(results, func(w io.Writer) {
		for _, nb := range list {
			writeBinning(w, nb.name, nb.b)
		}
	})
}

// analysisBinnings lists defined binnings in file order, then the index
// binning of every multi-axis histogram as "<histogram>/index".
func analysisBinnings(built *config.Built) []namedBinning {
	var out []namedBinning
	for _, name := range built.BinningNames() {
		out = append(out, namedBinning{name, built.Binnings[name]})
	}
	for _, h := range built.Histograms {
		if len(h.Axes) > 1 {
			out = append(out, namedBinning{h.Name + "/index", h.Binning})
		}
	}
	return out
}
