package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/causelog/internal/dispatch"
	"github.com/roach88/causelog/internal/event"
	"github.com/roach88/causelog/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Start    int64
	Stop     int64
}

// ReplayCommandCount holds per-command dispatch counts.
type ReplayCommandCount struct {
	Command    string `json:"command"`
	Dispatched int    `json:"dispatched"`
	Failed     int    `json:"failed"`
}

// ReplayResult is the JSON payload for the replay command.
type ReplayResult struct {
	Total      int                  `json:"total"`
	Dispatched int                  `json:"dispatched"`
	Failed     int                  `json:"failed"`
	Commands   []ReplayCommandCount `json:"commands"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the log through a counting projection",
		Long: `Re-dispatch stored events in id order and report per-command counts.

Replay walks the log page by page, so it works on logs larger than memory.
--start is the first id dispatched, --stop the first id excluded.

Examples:
  causelog replay --db ./events.db
  causelog replay --db ./events.db --start 100 --stop 200
  causelog replay --db ./events.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.Start, "start", 0, "first event id to dispatch")
	cmd.Flags().Int64Var(&opts.Stop, "stop", 0, "first event id to exclude")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.Database, true)
	if err != nil {
		return err
	}
	defer st.Close()

	dispatched := make(map[string]int)
	failed := make(map[string]int)
	projection := &dispatch.MapProjection{
		Fallback: func(payload map[string]any, meta event.Meta) (any, error) {
			dispatched[meta.Command]++
			return nil, nil
		},
		OnFailure: func(herr *event.HandlerError) {
			failed[herr.Command]++
		},
	}

	err = st.CycleThrough(ctx, projection, nil, nil, store.CycleOptions{
		StartID: opts.Start,
		StopID:  opts.Stop,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := buildReplayResult(dispatched, failed)

	if opts.Format == "json" {
		return writeJSON(cmd, result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Replayed %d events (%d dispatched, %d failed)\n", result.Total, result.Dispatched, result.Failed)
	if len(result.Commands) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Commands ===")
		for _, count := range result.Commands {
			fmt.Fprintf(w, "  %s: %d dispatched, %d failed\n", count.Command, count.Dispatched, count.Failed)
		}
	}
	return nil
}

// buildReplayResult merges the per-command counters into a sorted result.
func buildReplayResult(dispatched, failed map[string]int) ReplayResult {
	commands := make(map[string]bool, len(dispatched)+len(failed))
	for command := range dispatched {
		commands[command] = true
	}
	for command := range failed {
		commands[command] = true
	}

	names := make([]string, 0, len(commands))
	for command := range commands {
		names = append(names, command)
	}
	sort.Strings(names)

	result := ReplayResult{Commands: make([]ReplayCommandCount, 0, len(names))}
	for _, name := range names {
		count := ReplayCommandCount{Command: name, Dispatched: dispatched[name], Failed: failed[name]}
		result.Dispatched += count.Dispatched
		result.Failed += count.Failed
		result.Commands = append(result.Commands, count)
	}
	result.Total = result.Dispatched + result.Failed
	return result
}
