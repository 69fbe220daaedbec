package db

import (
	"time"

	"nesto/internal/model"
)

// Task 表示 tasks 表的 JSON 结构（API 响应）
type Task struct {
	ID                 string     `json:"id"`
	HouseholdID        string     `json:"household_id"`
	Title              string     `json:"title"`
	Description        *string    `json:"description"`
	Status             string     `json:"status"`
	Priority           int        `json:"priority"`
	AssignedTo         *string    `json:"assigned_to"`
	CreatedBy          string     `json:"created_by"`
	DueDate            *string    `json:"due_date"` // YYYY-MM-DD
	CompletedAt        *time.Time `json:"completed_at"`
	LastCompletedAt    *time.Time `json:"last_completed_at"`
	Category           *string    `json:"category"`
	RecurrenceRule     *string    `json:"recurrence_rule"`
	RecurrenceInterval int        `json:"recurrence_interval"`
	RecurrenceEnd      *string    `json:"recurrence_end"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func FromTask(t model.Task) Task {
	out := Task{
		ID:                 t.ID,
		HouseholdID:        t.HouseholdID,
		Title:              t.Title,
		Description:        t.Description,
		Status:             string(t.Status),
		Priority:           t.Priority,
		AssignedTo:         t.AssignedTo,
		CreatedBy:          t.CreatedBy,
		DueDate:            formatDate(t.DueDate),
		CompletedAt:        t.CompletedAt,
		LastCompletedAt:    t.LastCompletedAt,
		Category:           t.Category,
		RecurrenceInterval: t.Recurrence.Interval,
		RecurrenceEnd:      formatDate(t.Recurrence.End),
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
	if t.Recurrence.IsRecurring() {
		rule := string(t.Recurrence.Kind)
		out.RecurrenceRule = &rule
	}
	return out
}

func formatDate(d *time.Time) *string {
	if d == nil {
		return nil
	}
	s := d.Format("2006-01-02")
	return &s
}
