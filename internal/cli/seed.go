package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/causelog/internal/scenario"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string
	File     string
}

// SeedStepResult is one seeded step in the JSON payload.
type SeedStepResult struct {
	Alias         string `json:"alias"`
	EventID       int64  `json:"event_id"`
	Command       string `json:"command"`
	CorrelationID string `json:"correlation_id"`
}

// SeedSummary is the JSON payload for the seed command.
type SeedSummary struct {
	Scenario string           `json:"scenario"`
	Steps    []SeedStepResult `json:"steps"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the log from a scenario file",
		Long: `Load a YAML scenario, validate it, and append its events in order.

Scenario steps reference each other by alias, so causation chains written
in the file become causation chains in the log.

Examples:
  causelog seed --db ./events.db --file ./scenarios/orders.yaml
  causelog seed --db ./events.db --file ./scenarios/orders.yaml --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.File, "file", "", "path to scenario YAML (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	sc, err := scenario.LoadFile(opts.File)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	st, err := openStore(opts.Database, false)
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := scenario.Seed(ctx, st, nil, nil, sc)
	if err != nil {
		if opts.Format == "json" {
			_ = writeErrorJSON(cmd, "seed failed", err.Error())
		}
		return WrapExitError(ExitFailure, "seed failed", err)
	}

	if opts.Format == "json" {
		summary := SeedSummary{Scenario: sc.Name, Steps: make([]SeedStepResult, 0, len(results))}
		for _, res := range results {
			summary.Steps = append(summary.Steps, SeedStepResult{
				Alias:         res.Alias,
				EventID:       res.Event.ID,
				Command:       res.Event.Command,
				CorrelationID: res.Event.CorrelationID,
			})
		}
		return writeJSON(cmd, summary)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Seeded scenario: %s (%d events)\n", sc.Name, len(results))
	for _, res := range results {
		fmt.Fprintf(w, "  [%d] %s: %s (correlation: %s)\n", res.Event.ID, res.Alias, res.Event.Command, res.Event.CorrelationID)
	}
	return nil
}
