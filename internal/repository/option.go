package repository

import "time"

// TaskFilter selects tasks of one household. Zero fields are not applied.
type TaskFilter struct {
	// DueFrom and DueTo bound due_date, inclusive.
	DueFrom *time.Time
	DueTo   *time.Time
	// ExcludeDone drops tasks whose status is done.
	ExcludeDone bool
	// CompletedFrom and CompletedTo match tasks whose completed_at or
	// last_completed_at falls in [CompletedFrom, CompletedTo).
	CompletedFrom *time.Time
	CompletedTo   *time.Time
	Limit         int
}
