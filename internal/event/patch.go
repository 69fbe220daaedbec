package event

import (
	"strings"
	"time"

	"github.com/samber/mo"

	"nesto/internal/model"
	"nesto/internal/patch"
	"nesto/internal/recurrence"
)

// Patch is a partial event update; see task.Patch for the Option rules.
type Patch struct {
	Title              mo.Option[string]
	Description        mo.Option[*string]
	StartTime          mo.Option[time.Time]
	EndTime            mo.Option[time.Time]
	AllDay             mo.Option[bool]
	AssignedTo         mo.Option[*string]
	RecurrenceRule     mo.Option[recurrence.Kind]
	RecurrenceInterval mo.Option[int]
	RecurrenceEnd      mo.Option[*time.Time]
}

func DecodePatch(body patch.Body, loc *time.Location) (Patch, error) {
	var (
		p   Patch
		err error
	)
	if p.Title, err = patch.Field[string](body, "title"); err != nil {
		return Patch{}, err
	}
	if p.Description, err = patch.Nullable[string](body, "description"); err != nil {
		return Patch{}, err
	}
	if p.StartTime, err = patch.Time(body, "start_time", loc); err != nil {
		return Patch{}, err
	}
	if p.EndTime, err = patch.Time(body, "end_time", loc); err != nil {
		return Patch{}, err
	}
	if p.AllDay, err = patch.Field[bool](body, "all_day"); err != nil {
		return Patch{}, err
	}
	if p.AssignedTo, err = patch.Nullable[string](body, "assigned_to"); err != nil {
		return Patch{}, err
	}
	if p.RecurrenceInterval, err = patch.Field[int](body, "recurrence_interval"); err != nil {
		return Patch{}, err
	}
	if p.RecurrenceEnd, err = patch.NullableDate(body, "recurrence_end", loc); err != nil {
		return Patch{}, err
	}

	rule, err := patch.Nullable[string](body, "recurrence_rule")
	if err != nil {
		return Patch{}, err
	}
	if r, ok := rule.Get(); ok {
		kind := recurrence.KindNone
		if r != nil {
			if kind, err = recurrence.ParseKind(*r); err != nil {
				return Patch{}, err
			}
		}
		p.RecurrenceRule = mo.Some(kind)
	}
	return p, nil
}

// Apply returns e with the patch applied, checking the resulting time
// range and rule.
func Apply(e model.Event, p Patch) (model.Event, error) {
	if title, ok := p.Title.Get(); ok {
		if strings.TrimSpace(title) == "" {
			return e, ErrEmptyTitle
		}
		e.Title = title
	}
	if v, ok := p.Description.Get(); ok {
		e.Description = v
	}
	if v, ok := p.StartTime.Get(); ok {
		e.StartTime = v
	}
	if v, ok := p.EndTime.Get(); ok {
		e.EndTime = v
	}
	if v, ok := p.AllDay.Get(); ok {
		e.AllDay = v
	}
	if v, ok := p.AssignedTo.Get(); ok {
		e.AssignedTo = v
	}
	if v, ok := p.RecurrenceRule.Get(); ok {
		e.Recurrence.Kind = v
	}
	if v, ok := p.RecurrenceInterval.Get(); ok {
		e.Recurrence.Interval = v
	}
	if v, ok := p.RecurrenceEnd.Get(); ok {
		e.Recurrence.End = v
	}

	if !e.EndTime.After(e.StartTime) {
		return e, ErrInvalidTimeRange
	}
	if err := e.Recurrence.Validate(); err != nil {
		return e, err
	}
	return e, nil
}
