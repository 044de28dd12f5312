package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cutflow/internal/binning"
	"github.com/roach88/cutflow/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	RunID string
	List  bool
}

// ShowResult is the output of the show command.
type ShowResult struct {
	Run        store.Run         `json:"run"`
	Histograms []HistogramResult `json:"histograms"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <db>",
		Short: "Print a saved run",
		Long: `Load a run saved by "cutflow run --db" and print its histograms.
Without --run the latest run is shown; --list prints every run instead.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to show (default: latest)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list runs instead of showing one")

	return cmd
}

func runShow(opts *ShowOptions, dbPath string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	// store.Open would create a missing database.
	if _, err := os.Stat(dbPath); err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "database not found", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		runs, err := st.Runs(ctx)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		return f.Success(runs, func(w io.Writer) {
			for _, r := range runs {
				writeRun(w, r)
			}
		})
	}

	run, err := st.GetRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "run not found", err)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}

	names, err := st.HistogramNames(ctx, run.ID)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to list histograms", err)
	}

	reg := binning.NewRegistry()
	result := ShowResult{Run: run, Histograms: []HistogramResult{}}
	for _, name := range names {
		h, err := st.LoadHistogram(ctx, reg, run.ID, name)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to load histogram "+name, err)
		}
		result.Histograms = append(result.Histograms, histogramResult(h))
	}

	return f.Success(result, func(w io.Writer) {
		writeRun(w, result.Run)
		for _, h := range result.Histograms {
			fmt.Fprintln(w)
			writeHistogram(w, h)
		}
	})
}

func writeRun(w io.Writer, r store.Run) {
	fmt.Fprintf(w, "run %s (seq %d): analysis %s, %d records\n", r.ID, r.Seq, r.Analysis, r.Records)
}
