package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"

	"nesto/internal/model"
	"nesto/internal/patch"
	"nesto/internal/recurrence"
)

// Patch is a partial task update. Only present fields are applied.
// Nullable columns are mo.Option[*T]: Some(nil) clears them.
type Patch struct {
	Title              mo.Option[string]
	Description        mo.Option[*string]
	Status             mo.Option[model.TaskStatus]
	Priority           mo.Option[int]
	AssignedTo         mo.Option[*string]
	DueDate            mo.Option[*time.Time]
	Category           mo.Option[*string]
	RecurrenceRule     mo.Option[recurrence.Kind]
	RecurrenceInterval mo.Option[int]
	RecurrenceEnd      mo.Option[*time.Time]
}

// DecodePatch reads the allow-listed keys of a JSON body; anything else
// is ignored. Dates are YYYY-MM-DD, interpreted in loc. A null
// recurrence_rule turns recurrence off.
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
	if p.Priority, err = patch.Field[int](body, "priority"); err != nil {
		return Patch{}, err
	}
	if p.AssignedTo, err = patch.Nullable[string](body, "assigned_to"); err != nil {
		return Patch{}, err
	}
	if p.DueDate, err = patch.NullableDate(body, "due_date", loc); err != nil {
		return Patch{}, err
	}
	if p.Category, err = patch.Nullable[string](body, "category"); err != nil {
		return Patch{}, err
	}
	if p.RecurrenceInterval, err = patch.Field[int](body, "recurrence_interval"); err != nil {
		return Patch{}, err
	}
	if p.RecurrenceEnd, err = patch.NullableDate(body, "recurrence_end", loc); err != nil {
		return Patch{}, err
	}

	status, err := patch.Field[string](body, "status")
	if err != nil {
		return Patch{}, err
	}
	if s, ok := status.Get(); ok {
		p.Status = mo.Some(model.TaskStatus(s))
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

// Validate checks field values on their own; cross-field rules are
// checked by Apply on the resulting task.
func (p Patch) Validate() error {
	if title, ok := p.Title.Get(); ok && strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if s, ok := p.Status.Get(); ok && !s.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	if pr, ok := p.Priority.Get(); ok && (pr < model.PriorityUrgent || pr > model.PriorityLow) {
		return ErrInvalidPriority
	}
	return nil
}

// StatusChanged reports whether the patch carries a status.
func (p Patch) StatusChanged() bool {
	return p.Status.IsPresent()
}

// Apply returns t with the patch applied. The status transition runs last,
// after any due date or recurrence change in the same patch.
func Apply(t model.Task, p Patch, now time.Time) (model.Task, error) {
	if err := p.Validate(); err != nil {
		return t, err
	}

	if v, ok := p.Title.Get(); ok {
		t.Title = v
	}
	if v, ok := p.Description.Get(); ok {
		t.Description = v
	}
	if v, ok := p.Priority.Get(); ok {
		t.Priority = v
	}
	if v, ok := p.AssignedTo.Get(); ok {
		t.AssignedTo = v
	}
	if v, ok := p.DueDate.Get(); ok {
		t.DueDate = v
	}
	if v, ok := p.Category.Get(); ok {
		t.Category = v
	}
	if v, ok := p.RecurrenceRule.Get(); ok {
		t.Recurrence.Kind = v
	}
	if v, ok := p.RecurrenceInterval.Get(); ok {
		t.Recurrence.Interval = v
	}
	if v, ok := p.RecurrenceEnd.Get(); ok {
		t.Recurrence.End = v
	}
	if err := t.Recurrence.Validate(); err != nil {
		return t, err
	}

	if s, ok := p.Status.Get(); ok {
		t = Transition(t, s, now)
	}
	return t, nil
}
