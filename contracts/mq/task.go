package mq

import "time"

// Routing keys on the "events" exchange.
const (
	RoutingTaskUpdated   = "task.updated"
	RoutingTaskCompleted = "task.completed"
	RoutingTaskRecurred  = "task.recurred"
)

type TaskUpdatedPayload struct {
	TaskID      string    `json:"task_id"`
	HouseholdID string    `json:"household_id"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TaskCompletedPayload struct {
	TaskID      string    `json:"task_id"`
	HouseholdID string    `json:"household_id"`
	Title       string    `json:"title"`
	AssignedTo  string    `json:"assigned_to,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// A recurring task was completed and moved to its next due date.
type TaskRecurredPayload struct {
	TaskID      string    `json:"task_id"`
	HouseholdID string    `json:"household_id"`
	Title       string    `json:"title"`
	PreviousDue string    `json:"previous_due"` // YYYY-MM-DD
	NextDue     string    `json:"next_due"`     // YYYY-MM-DD
	CompletedAt time.Time `json:"completed_at"`
}
