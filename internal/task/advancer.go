package task

import (
	"time"

	"nesto/internal/model"
	"nesto/internal/recurrence"
)

// Complete marks t done at now. A recurring task with a due date is not
// closed: it moves to its next due date and goes back to pending, unless
// the next date is past the series end, in which case it is done for good
// and keeps its last due date.
func Complete(t model.Task, now time.Time) model.Task {
	if !t.Recurrence.IsRecurring() || t.DueDate == nil {
		t.Status = model.TaskDone
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		return t
	}

	next := recurrence.AdvanceDate(*t.DueDate, t.Recurrence.Kind, t.Recurrence.Interval)
	if end := t.Recurrence.End; end != nil && next.After(recurrence.DateOf(*end)) {
		t.Status = model.TaskDone
		t.CompletedAt = &now
		return t
	}

	t.DueDate = &next
	t.LastCompletedAt = &now
	t.Status = model.TaskPending
	t.CompletedAt = nil
	return t
}

// Transition applies a status change. Leaving done, or moving between
// open states, always clears the completion timestamp.
func Transition(t model.Task, status model.TaskStatus, now time.Time) model.Task {
	if status == model.TaskDone {
		return Complete(t, now)
	}
	t.Status = status
	t.CompletedAt = nil
	return t
}
