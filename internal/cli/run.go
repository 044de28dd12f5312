package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cutflow/internal/config"
	"github.com/roach88/cutflow/internal/expr"
	"github.com/roach88/cutflow/internal/hist"
	"github.com/roach88/cutflow/internal/pipeline"
	"github.com/roach88/cutflow/internal/record"
	"github.com/roach88/cutflow/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Limit     int64
	SinkCache bool

	// IDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// RunResult is the output of the run command.
type RunResult struct {
	Analysis    string            `json:"analysis"`
	Records     int64             `json:"records"`
	RunID       string            `json:"run_id,omitempty"`
	NaNWarnings int64             `json:"nan_warnings"`
	Histograms  []HistogramResult `json:"histograms"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <analysis> <records>",
		Short: "Fill an analysis's histograms from a record file",
		Long: `Build the analysis and make one pass over a JSON-lines record file,
filling every histogram. Files ending in .zst or .gz are decompressed.

With --db the binnings and filled histograms are saved under a new run ID.

Example:
  cutflow run analysis.yaml events.jsonl
  cutflow run --db runs.db analysis.cue events.jsonl.zst`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "save the run to this SQLite database")
	cmd.Flags().Int64Var(&opts.Limit, "limit", 0, "stop after this many records (0 = all)")
	cmd.Flags().BoolVar(&opts.SinkCache, "sink-cache", false, "share one applier per node instead of one per request")

	return cmd
}

func runAnalysis(opts *RunOptions, analysisPath, recordsPath string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	built, err := loadAnalysis(f, analysisPath, logger)
	if err != nil {
		return err
	}

	fr, err := record.Open(recordsPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeRecords, "failed to open records", err)
	}
	defer fr.Close()

	var srcOpts []pipeline.SourceOption
	if opts.SinkCache {
		srcOpts = append(srcOpts, pipeline.WithSinkCache())
	}
	src := pipeline.NewSource[config.Event](srcOpts...)
	hs := built.Wire(src)
	f.VerboseLog("wired %d histograms onto %d appliers", len(hs), src.Len())

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := pipeline.Loop(ctx, fr, src, pipeline.WithLogger(logger), pipeline.WithLimit(opts.Limit))
	if err != nil {
		return failPass(f, err)
	}

	result := RunResult{
		Analysis:    built.Name,
		Records:     stats.Records,
		NaNWarnings: built.State.NaNWarnings(),
	}
	for _, h := range hs {
		result.Histograms = append(result.Histograms, histogramResult(h))
	}

	if opts.Database != "" {
		run, err := saveRun(ctx, opts, built.Name, stats.Records, hs, logger)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to save run", err)
		}
		result.RunID = run.ID
	}

	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "analysis %s: %d records\n", result.Analysis, result.Records)
		if result.RunID != "" {
			fmt.Fprintf(w, "saved run %s\n", result.RunID)
		}
		if result.NaNWarnings > 0 {
			fmt.Fprintf(w, "%d comparisons saw NaN\n", result.NaNWarnings)
		}
		for _, h := range result.Histograms {
			fmt.Fprintln(w)
			writeHistogram(w, h)
		}
	})
}

func failPass(f *OutputFormatter, err error) error {
	switch {
	case expr.IsUnresolved(err):
		return f.Fail(ExitFailure, ErrCodeUnresolved, "pass hit an unresolved definition", err)
	case errors.Is(err, record.ErrMalformed):
		return f.Fail(ExitFailure, ErrCodeRecords, "malformed record", err)
	case errors.Is(err, context.Canceled):
		return f.Fail(ExitFailure, ErrCodeGeneric, "pass interrupted", err)
	default:
		return f.Fail(ExitFailure, ErrCodeEvalFailed, "pass failed", err)
	}
}

func saveRun(ctx context.Context, opts *RunOptions, analysis string, records int64, hs []*hist.Histogram, logger *slog.Logger) (store.Run, error) {
	gen := opts.IDGenerator
	if gen == nil {
		gen = store.UUIDv7Generator{}
	}
	st, err := store.Open(opts.Database, store.WithIDGenerator(gen))
	if err != nil {
		return store.Run{}, err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	run, err := st.SaveRun(ctx, analysis, records, hs)
	if err != nil {
		return store.Run{}, err
	}
	logger.Info("run saved", "id", run.ID, "seq", run.Seq, "db", opts.Database)
	return run, nil
}
