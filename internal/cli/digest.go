package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type DigestOptions struct {
	*RootOptions
	Period string
	At     string
	UserID string
}

type digestRunResult struct {
	Period string `json:"period"`
	At     string `json:"at"`
	Users  int    `json:"users"`
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
}

// NewDigestCommand groups the digest subcommands.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Run or preview email digests",
	}
	cmd.AddCommand(newDigestRunCommand(rootOpts))
	cmd.AddCommand(newDigestTestCommand(rootOpts))
	return cmd
}

func newDigestRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DigestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send one digest batch now",
		Long: `Send the digest batch for a period immediately, outside the scheduler.

The scheduler's boundary state is not touched, so a batch sent here may be
sent again at the next boundary.

Examples:
  nestoctl digest run --period daily
  nestoctl digest run --period weekly --at 2026-03-01T18:00`,
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := parsePeriod(opts.Period)
			if err != nil {
				return err
			}
			now, err := opts.now(opts.At)
			if err != nil {
				return err
			}
			return opts.withBackend(cmd.Context(), func(b Backend) error {
				stats, err := b.RunDigest(cmd.Context(), period, now)
				if err != nil {
					return fmt.Errorf("digest run: %w", err)
				}
				res := digestRunResult{
					Period: string(period),
					At:     now.Format("2006-01-02T15:04"),
					Users:  stats.Users,
					Sent:   stats.Sent,
					Failed: stats.Failed,
				}
				text := fmt.Sprintf("%s digest: %d users, %d sent, %d failed", period, stats.Users, stats.Sent, stats.Failed)
				return opts.print(cmd.OutOrStdout(), text, res)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Period, "period", "daily", "digest period (daily|weekly)")
	cmd.Flags().StringVar(&opts.At, "at", "", "reference time YYYY-MM-DDTHH:MM in the configured timezone (default now)")

	return cmd
}

func newDigestTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DigestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test digest to one user",
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := parsePeriod(opts.Period)
			if err != nil {
				return err
			}
			now, err := opts.now(opts.At)
			if err != nil {
				return err
			}
			return opts.withBackend(cmd.Context(), func(b Backend) error {
				if err := b.SendTestDigest(cmd.Context(), opts.UserID, period, now); err != nil {
					return fmt.Errorf("test digest: %w", err)
				}
				text := fmt.Sprintf("test %s digest sent to user %s", period, opts.UserID)
				return opts.print(cmd.OutOrStdout(), text, map[string]string{
					"user_id": opts.UserID,
					"period":  string(period),
					"status":  "sent",
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "recipient user id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&opts.Period, "period", "daily", "digest period (daily|weekly)")
	cmd.Flags().StringVar(&opts.At, "at", "", "reference time YYYY-MM-DDTHH:MM (default now)")

	return cmd
}
