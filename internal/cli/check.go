package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cutflow/internal/config"
)

// CheckResult is the output of the check command.
type CheckResult struct {
	Analysis string            `json:"analysis"`
	Nodes    []config.NodeInfo `json:"nodes"`
	Pending  []string          `json:"pending"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <analysis>",
		Short: "Build an analysis and report its node IDs",
		Long: `Build the analysis without reading records. Prints every var and cut
with its node ID and how it was composed, then any definition still
unresolved. Exits 1 if anything is left pending.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	built, err := loadAnalysis(f, path, opts.logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	result := CheckResult{
		Analysis: built.Name,
		Nodes:    built.Nodes(),
		Pending:  built.Pending(),
	}
	if result.Pending == nil {
		result.Pending = []string{}
	}
	deps := built.State.Deps()
	f.VerboseLog("%d nodes, %d copies waiting on %d pending sources", len(result.Nodes), deps.Waiting(), deps.Pending())

	if len(result.Pending) > 0 {
		return f.Fail(ExitFailure, ErrCodeUnresolved,
			"unresolved definitions: "+strings.Join(result.Pending, ", "), nil)
	}

	return f.Success(result, func(w io.Writer) {
		section := ""
		for _, n := range result.Nodes {
			if n.Section != section {
				section = n.Section
				fmt.Fprintln(w, section)
			}
			fmt.Fprintf(w, "  %d %s %s\n", n.ID, n.Name, n.Origin)
		}
		fmt.Fprintf(w, "analysis %s: all %d definitions resolved\n", result.Analysis, len(result.Nodes))
	})
}
