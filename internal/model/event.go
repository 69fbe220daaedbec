package model

import (
	"time"

	"nesto/internal/recurrence"
)

// Event is a stored event definition. A recurring definition stands for
// all of its occurrences; those are computed on read.
type Event struct {
	ID          string
	HouseholdID string
	Title       string
	Description *string
	StartTime   time.Time
	EndTime     time.Time
	AllDay      bool
	AssignedTo  *string
	CreatedBy   string
	Recurrence  recurrence.Rule
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e Event) Definition() recurrence.Definition {
	return recurrence.Definition{
		ID:    e.ID,
		Start: e.StartTime,
		End:   e.EndTime,
		Rule:  e.Recurrence,
	}
}
