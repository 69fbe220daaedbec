package digest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nesto/internal/event"
	"nesto/internal/model"
	"nesto/internal/recurrence"
	"nesto/internal/repository"
	"nesto/pkg/logger"
	"nesto/pkg/metrics"
)

// weeklySpanDays is how far past today the weekly digest looks.
const weeklySpanDays = 7

// EventOccurrence is one concrete instance of an event inside the digest window.
type EventOccurrence = event.Occurrence

// HouseholdDigest is the content of one household's section.
// Completed is only filled for the daily digest.
type HouseholdDigest struct {
	Household   model.Household
	Occurrences []EventOccurrence
	TasksDue    []model.Task
	Completed   []model.Task
}

func (d HouseholdDigest) Empty() bool {
	return len(d.Occurrences) == 0 && len(d.TasksDue) == 0 && len(d.Completed) == 0
}

// Window is the closed time range a digest covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFor returns the digest window of period for the day containing now.
func WindowFor(period model.DigestPeriod, now time.Time) Window {
	today := recurrence.StartOfDay(now)
	if period == model.PeriodWeekly {
		return Window{Start: today, End: recurrence.EndOfDay(today.AddDate(0, 0, weeklySpanDays))}
	}
	return Window{Start: today, End: recurrence.EndOfDay(today)}
}

type Gatherer struct {
	store  Store
	loc    *time.Location
	logger *zap.Logger
}

func NewGatherer(store Store, loc *time.Location, logger *zap.Logger) *Gatherer {
	if loc == nil {
		loc = time.Local
	}
	return &Gatherer{store: store, loc: loc, logger: logger}
}

// Gather collects the user's digest content for period, one entry per
// household that has anything to report.
func (g *Gatherer) Gather(ctx context.Context, user model.User, period model.DigestPeriod, now time.Time) ([]HouseholdDigest, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
	now = now.In(g.loc)
	window := WindowFor(period, now)

	households, err := g.store.ListHouseholdsForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list households for user %s: %w", user.ID, err)
	}

	var out []HouseholdDigest
	for _, hh := range households {
		d, err := g.gatherHousehold(ctx, hh, period, window)
		if err != nil {
			return nil, err
		}
		if !d.Empty() {
			out = append(out, d)
		}
	}
	return out, nil
}

func (g *Gatherer) gatherHousehold(ctx context.Context, hh model.Household, period model.DigestPeriod, w Window) (HouseholdDigest, error) {
	d := HouseholdDigest{Household: hh}

	events, err := g.store.ListEventDefinitions(ctx, hh.ID, w.Start, w.End)
	if err != nil {
		return d, fmt.Errorf("list events of household %s: %w", hh.ID, err)
	}
	d.Occurrences = g.expand(ctx, hh.ID, events, w)

	dueFrom := recurrence.DateOf(w.Start)
	dueTo := recurrence.DateOf(w.End)
	d.TasksDue, err = g.store.ListTasks(ctx, hh.ID, repository.TaskFilter{
		DueFrom:     &dueFrom,
		DueTo:       &dueTo,
		ExcludeDone: true,
	})
	if err != nil {
		return d, fmt.Errorf("list due tasks of household %s: %w", hh.ID, err)
	}

	if period == model.PeriodDaily {
		yesterday := w.Start.AddDate(0, 0, -1)
		today := w.Start
		d.Completed, err = g.store.ListTasks(ctx, hh.ID, repository.TaskFilter{
			CompletedFrom: &yesterday,
			CompletedTo:   &today,
		})
		if err != nil {
			return d, fmt.Errorf("list completed tasks of household %s: %w", hh.ID, err)
		}
	}
	return d, nil
}

func (g *Gatherer) expand(ctx context.Context, householdID string, events []model.Event, w Window) []EventOccurrence {
	occ, truncated := event.Expand(events, w.Start, w.End)
	if len(truncated) > 0 {
		logger.WithTrace(ctx, g.logger).Warn("recurrence expansion truncated",
			zap.String("household_id", householdID),
			zap.Strings("event_ids", truncated),
		)
		metrics.IncrementRecurrenceTruncated("digest", len(truncated))
	}
	return occ
}
