package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type OutboxOptions struct {
	*RootOptions
	Limit int
}

// NewOutboxCommand groups the outbox maintenance subcommands.
func NewOutboxCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OutboxOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay outbox events",
	}

	replay := &cobra.Command{
		Use:   "replay <event-id>",
		Short: "Reset one outbox event to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			return opts.withBackend(cmd.Context(), func(b Backend) error {
				if err := b.ReplayOutboxEvent(cmd.Context(), id); err != nil {
					return fmt.Errorf("replay event %d: %w", id, err)
				}
				return opts.print(cmd.OutOrStdout(), fmt.Sprintf("event %d queued for replay", id),
					map[string]int64{"replayed": id})
			})
		},
	}

	replayFailed := &cobra.Command{
		Use:   "replay-failed",
		Short: "Reset failed outbox events to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return opts.withBackend(cmd.Context(), func(b Backend) error {
				n, err := b.ReplayFailedOutbox(cmd.Context(), opts.Limit)
				if err != nil {
					return fmt.Errorf("replay failed events: %w", err)
				}
				return opts.print(cmd.OutOrStdout(), fmt.Sprintf("%d failed events queued for replay", n),
					map[string]int{"replayed": n})
			})
		},
	}
	replayFailed.Flags().IntVar(&opts.Limit, "limit", 100, "maximum events to replay")

	cmd.AddCommand(replay, replayFailed)
	return cmd
}
