package db

import (
	"time"

	"nesto/internal/model"
)

// Event 表示 events 表的 JSON 结构
type Event struct {
	ID                 string    `json:"id"`
	HouseholdID        string    `json:"household_id"`
	Title              string    `json:"title"`
	Description        *string   `json:"description"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	AllDay             bool      `json:"all_day"`
	AssignedTo         *string   `json:"assigned_to"`
	CreatedBy          string    `json:"created_by"`
	RecurrenceRule     *string   `json:"recurrence_rule"`
	RecurrenceInterval int       `json:"recurrence_interval"`
	RecurrenceEnd      *string   `json:"recurrence_end"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Occurrence 是展开后的一次事件实例，不落库
type Occurrence struct {
	EventID     string    `json:"event_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	AllDay      bool      `json:"all_day"`
	AssignedTo  *string   `json:"assigned_to"`
	Recurring   bool      `json:"is_recurring"`
}

func FromEvent(e model.Event) Event {
	out := Event{
		ID:                 e.ID,
		HouseholdID:        e.HouseholdID,
		Title:              e.Title,
		Description:        e.Description,
		StartTime:          e.StartTime,
		EndTime:            e.EndTime,
		AllDay:             e.AllDay,
		AssignedTo:         e.AssignedTo,
		CreatedBy:          e.CreatedBy,
		RecurrenceInterval: e.Recurrence.Interval,
		RecurrenceEnd:      formatDate(e.Recurrence.End),
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
	if e.Recurrence.IsRecurring() {
		rule := string(e.Recurrence.Kind)
		out.RecurrenceRule = &rule
	}
	return out
}

func FromOccurrence(e model.Event, start, end time.Time) Occurrence {
	return Occurrence{
		EventID:     e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartTime:   start,
		EndTime:     end,
		AllDay:      e.AllDay,
		AssignedTo:  e.AssignedTo,
		Recurring:   e.Recurrence.IsRecurring(),
	}
}
