package mq

import "time"

const RoutingEventUpdated = "event.updated"

type EventUpdatedPayload struct {
	EventID     string    `json:"event_id"`
	HouseholdID string    `json:"household_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Recurrence  string    `json:"recurrence"`
	UpdatedAt   time.Time `json:"updated_at"`
}
