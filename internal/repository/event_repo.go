package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nesto/internal/model"
)

const eventColumns = `
	id, household_id, title, description, start_time, end_time, all_day,
	assigned_to, created_by, recurrence_rule, recurrence_interval, recurrence_end,
	created_at, updated_at`

type EventRepository struct {
	db  *pgxpool.Pool
	loc *time.Location
}

func NewEventRepository(db *pgxpool.Pool, loc *time.Location) *EventRepository {
	return &EventRepository{db: db, loc: loc}
}

func (r *EventRepository) scan(row pgx.Row) (model.Event, error) {
	var (
		e        model.Event
		rule     *string
		interval int
		end      *time.Time
	)
	if err := row.Scan(
		&e.ID, &e.HouseholdID, &e.Title, &e.Description, &e.StartTime, &e.EndTime, &e.AllDay,
		&e.AssignedTo, &e.CreatedBy, &rule, &interval, &end,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return e, err
	}
	e.StartTime = e.StartTime.In(r.loc)
	e.EndTime = e.EndTime.In(r.loc)
	e.Recurrence = ruleFromColumns(rule, interval, end, r.loc)
	return e, nil
}

// GetForUpdate loads one event and locks its row until tx ends.
func (r *EventRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, householdID, eventID string) (model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND household_id = $2 FOR UPDATE`
	e, err := r.scan(tx.QueryRow(ctx, query, eventID, householdID))
	if errors.Is(err, pgx.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, fmt.Errorf("failed to load event: %w", err)
	}
	return e, nil
}

// Update writes every mutable column of e and refreshes e.UpdatedAt.
func (r *EventRepository) Update(ctx context.Context, q Querier, e *model.Event) error {
	query := `
		UPDATE events
		SET title = $3, description = $4, start_time = $5, end_time = $6, all_day = $7,
		    assigned_to = $8, recurrence_rule = $9, recurrence_interval = $10, recurrence_end = $11,
		    updated_at = NOW()
		WHERE id = $1 AND household_id = $2
		RETURNING updated_at`
	err := q.QueryRow(ctx, query,
		e.ID, e.HouseholdID, e.Title, e.Description, e.StartTime, e.EndTime, e.AllDay,
		e.AssignedTo, ruleName(e.Recurrence), e.Recurrence.Interval, dateArg(e.Recurrence.End),
	).Scan(&e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

// ListDefinitions returns the definitions that can produce an occurrence
// in [from, to]: every recurring definition that started by to and has
// not ended before from, plus one-shot events overlapping the window.
func (r *EventRepository) ListDefinitions(ctx context.Context, householdID string, from, to time.Time) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE household_id = $1
		  AND (
		        (recurrence_rule IS NOT NULL AND start_time <= $3
		         AND (recurrence_end IS NULL OR recurrence_end >= $4))
		     OR (recurrence_rule IS NULL AND end_time >= $2 AND start_time <= $3)
		  )
		ORDER BY start_time ASC`

	fromDate := dateArg(&from)
	rows, err := r.db.Query(ctx, query, householdID, from, to, *fromDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
