package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"nesto/internal/recurrence"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx, so reads and writes
// can run inside a caller's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// dateIn re-anchors a DATE column (scanned as UTC midnight) at midnight
// in loc.
func dateIn(d *time.Time, loc *time.Location) *time.Time {
	if d == nil {
		return nil
	}
	v := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return &v
}

func timeIn(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	v := t.In(loc)
	return &v
}

// ruleFromColumns builds a rule from the recurrence_* columns. Unknown
// rule names are kept as-is; the expander stops on them.
func ruleFromColumns(name *string, interval int, end *time.Time, loc *time.Location) recurrence.Rule {
	rule := recurrence.Rule{Kind: recurrence.KindNone, Interval: interval, End: dateIn(end, loc)}
	if name == nil {
		return rule
	}
	kind, err := recurrence.ParseKind(*name)
	if err != nil {
		kind = recurrence.Kind(strings.ToLower(*name))
	}
	rule.Kind = kind
	return rule
}

func ruleName(r recurrence.Rule) *string {
	if !r.IsRecurring() {
		return nil
	}
	s := string(r.Kind)
	return &s
}

// dateArg strips the location so pgx writes the calendar date as-is.
func dateArg(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	v := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &v
}
