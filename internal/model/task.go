package model

import (
	"time"

	"nesto/internal/recurrence"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskDone:
		return true
	}
	return false
}

const (
	PriorityUrgent = 1
	PriorityHigh   = 2
	PriorityNormal = 3
	PriorityLow    = 4
)

// PriorityLabel returns the human label for a priority, "" if unknown.
func PriorityLabel(p int) string {
	switch p {
	case PriorityUrgent:
		return "Urgent"
	case PriorityHigh:
		return "High"
	case PriorityNormal:
		return "Normal"
	case PriorityLow:
		return "Low"
	}
	return ""
}

// Task is a household to-do. DueDate is a calendar date (midnight in the
// configured location). Recurring tasks are a single row that moves
// forward on completion.
type Task struct {
	ID              string
	HouseholdID     string
	Title           string
	Description     *string
	Status          TaskStatus
	Priority        int
	AssignedTo      *string
	CreatedBy       string
	DueDate         *time.Time
	CompletedAt     *time.Time
	LastCompletedAt *time.Time
	Category        *string
	Recurrence      recurrence.Rule
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
