package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/causelog/internal/lineage"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database    string
	Correlation string
	Tree        bool
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a report for one correlation",
		Long: `Summarize one correlation: command distribution, time span, depth,
branch points, leaves and the critical path.

The default output is sectioned text. --tree renders the causation forest
as a box-drawing tree instead; --format json emits the structured report.

Examples:
  causelog report --db ./events.db --correlation txn-0001
  causelog report --db ./events.db --correlation txn-0001 --tree
  causelog report --db ./events.db --correlation txn-0001 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Correlation, "correlation", "", "correlation id to report on (required)")
	_ = cmd.MarkFlagRequired("correlation")
	cmd.Flags().BoolVar(&opts.Tree, "tree", false, "render the causation tree instead of the report")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	if opts.Tree && opts.Format == "json" {
		return NewExitError(ExitCommandError, "--tree is text-only; drop --format json")
	}

	ctx := context.Background()
	st, err := openStore(opts.Database, true)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := lineage.New(st)

	if opts.Tree {
		if err := engine.RenderTree(ctx, cmd.OutOrStdout(), opts.Correlation); err != nil {
			return WrapExitError(ExitCommandError, "failed to render tree", err)
		}
		return nil
	}

	report, err := engine.BuildReport(ctx, opts.Correlation)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build report", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd, report)
	}
	return lineage.RenderText(cmd.OutOrStdout(), report)
}
