package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nesto/internal/model"
)

const taskColumns = `
	id, household_id, title, description, status, priority, assigned_to,
	created_by, due_date, completed_at, last_completed_at, category,
	recurrence_rule, recurrence_interval, recurrence_end, created_at, updated_at`

type TaskRepository struct {
	db  *pgxpool.Pool
	loc *time.Location
}

func NewTaskRepository(db *pgxpool.Pool, loc *time.Location) *TaskRepository {
	return &TaskRepository{db: db, loc: loc}
}

func (r *TaskRepository) scan(row pgx.Row) (model.Task, error) {
	var (
		t        model.Task
		status   string
		rule     *string
		interval int
		due      *time.Time
		end      *time.Time
		done     *time.Time
		lastDone *time.Time
	)
	err := row.Scan(
		&t.ID, &t.HouseholdID, &t.Title, &t.Description, &status, &t.Priority, &t.AssignedTo,
		&t.CreatedBy, &due, &done, &lastDone, &t.Category,
		&rule, &interval, &end, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return model.Task{}, err
	}
	t.Status = model.TaskStatus(status)
	t.DueDate = dateIn(due, r.loc)
	t.CompletedAt = timeIn(done, r.loc)
	t.LastCompletedAt = timeIn(lastDone, r.loc)
	t.Recurrence = ruleFromColumns(rule, interval, end, r.loc)
	return t, nil
}

// GetForUpdate loads a task inside tx and locks the row.
func (r *TaskRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, householdID, taskID string) (model.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND household_id = $2
		FOR UPDATE`
	t, err := r.scan(tx.QueryRow(ctx, query, taskID, householdID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to load task: %w", err)
	}
	return t, nil
}

// Update writes every mutable column of t.
func (r *TaskRepository) Update(ctx context.Context, q Querier, t *model.Task) error {
	query := `
		UPDATE tasks
		SET title = $3, description = $4, status = $5, priority = $6, assigned_to = $7,
		    due_date = $8, completed_at = $9, last_completed_at = $10, category = $11,
		    recurrence_rule = $12, recurrence_interval = $13, recurrence_end = $14,
		    updated_at = NOW()
		WHERE id = $1 AND household_id = $2
		RETURNING updated_at`
	err := q.QueryRow(ctx, query,
		t.ID, t.HouseholdID, t.Title, t.Description, string(t.Status), t.Priority, t.AssignedTo,
		dateArg(t.DueDate), t.CompletedAt, t.LastCompletedAt, t.Category,
		ruleName(t.Recurrence), t.Recurrence.Interval, dateArg(t.Recurrence.End),
	).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// List returns the household's tasks matching f, most urgent first.
func (r *TaskRepository) List(ctx context.Context, householdID string, f TaskFilter) ([]model.Task, error) {
	conds := []string{"household_id = $1"}
	args := []any{householdID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.DueFrom != nil {
		conds = append(conds, "due_date >= "+arg(dateArg(f.DueFrom)))
	}
	if f.DueTo != nil {
		conds = append(conds, "due_date <= "+arg(dateArg(f.DueTo)))
	}
	if f.ExcludeDone {
		conds = append(conds, "status <> "+arg(string(model.TaskDone)))
	}
	if f.CompletedFrom != nil && f.CompletedTo != nil {
		from, to := arg(*f.CompletedFrom), arg(*f.CompletedTo)
		conds = append(conds, fmt.Sprintf(
			"((completed_at >= %[1]s AND completed_at < %[2]s) OR (last_completed_at >= %[1]s AND last_completed_at < %[2]s))",
			from, to))
	}

	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY priority ASC, due_date ASC NULLS LAST, created_at DESC`
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
