package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"nesto/internal/digest"
	"nesto/internal/model"
)

// Backend is what the operator commands act on. cmd/nestoctl backs it with
// the database, the mailer and the outbox.
type Backend interface {
	RunDigest(ctx context.Context, period model.DigestPeriod, now time.Time) (digest.RunStats, error)
	SendTestDigest(ctx context.Context, userID string, period model.DigestPeriod, now time.Time) error
	ReplayOutboxEvent(ctx context.Context, eventID int64) error
	ReplayFailedOutbox(ctx context.Context, limit int) (int, error)
	Close()
}

// Opener connects a Backend. It is called once per command invocation.
type Opener func(ctx context.Context) (Backend, error)

// RootOptions holds global flags and collaborators for all commands.
type RootOptions struct {
	Format   string // "json" | "text"
	Open     Opener
	Location *time.Location
	Now      func() time.Time
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the nestoctl root command.
func NewRootCommand(open Opener, loc *time.Location) *cobra.Command {
	opts := &RootOptions{Open: open, Location: loc, Now: time.Now}

	cmd := &cobra.Command{
		Use:   "nestoctl",
		Short: "Operator tooling for the Nesto planner",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewDigestCommand(opts))
	cmd.AddCommand(NewOutboxCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// withBackend opens the backend for the duration of fn.
func (o *RootOptions) withBackend(ctx context.Context, fn func(Backend) error) error {
	b, err := o.Open(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer b.Close()
	return fn(b)
}

// now returns the reference time in the configured location, or the
// parsed --at value when given.
func (o *RootOptions) now(at string) (time.Time, error) {
	if at == "" {
		return o.Now().In(o.Location), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", at, o.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want YYYY-MM-DDTHH:MM", at)
	}
	return t, nil
}

func (o *RootOptions) print(w io.Writer, text string, v any) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func parsePeriod(s string) (model.DigestPeriod, error) {
	p := model.DigestPeriod(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid period %q: must be daily or weekly", s)
	}
	return p, nil
}
