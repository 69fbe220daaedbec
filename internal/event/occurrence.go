package event

import (
	"time"

	"nesto/internal/model"
	"nesto/internal/recurrence"
)

// Occurrence is one computed instance of a stored event.
type Occurrence struct {
	Event model.Event
	Start time.Time
	End   time.Time
}

// Expand materialises the occurrences of events overlapping [from, to],
// ordered by start. truncated lists the event IDs whose expansion stopped
// early.
func Expand(events []model.Event, from, to time.Time) (occ []Occurrence, truncated []string) {
	if len(events) == 0 {
		return nil, nil
	}
	byID := make(map[string]model.Event, len(events))
	defs := make([]recurrence.Definition, 0, len(events))
	for _, e := range events {
		byID[e.ID] = e
		defs = append(defs, e.Definition())
	}

	res := recurrence.Expand(defs, from, to)
	occ = make([]Occurrence, 0, len(res.Occurrences))
	for _, o := range res.Occurrences {
		occ = append(occ, Occurrence{Event: byID[o.SourceID], Start: o.Start, End: o.End})
	}
	return occ, res.Truncated
}
