package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nesto/internal/model"
	"nesto/internal/patch"
	"nesto/internal/recurrence"
)

func body(t *testing.T, s string) patch.Body {
	t.Helper()
	var b patch.Body
	require.NoError(t, json.Unmarshal([]byte(s), &b))
	return b
}

func TestDecodePatch(t *testing.T) {
	p, err := DecodePatch(body(t, `{
		"title": "Bins",
		"description": null,
		"priority": 2,
		"due_date": "2026-03-02",
		"recurrence_rule": "Weekly",
		"recurrence_interval": 2,
		"status": "in_progress",
		"household_id": "other",
		"created_by": "mallory"
	}`), time.UTC)
	require.NoError(t, err)

	assert.Equal(t, mo.Some("Bins"), p.Title)
	desc, ok := p.Description.Get()
	assert.True(t, ok)
	assert.Nil(t, desc)
	assert.Equal(t, mo.Some(2), p.Priority)
	due, ok := p.DueDate.Get()
	require.True(t, ok)
	assert.Equal(t, *date(2026, 3, 2), *due)
	assert.Equal(t, mo.Some(recurrence.KindWeekly), p.RecurrenceRule)
	assert.Equal(t, mo.Some(2), p.RecurrenceInterval)
	assert.Equal(t, mo.Some(model.TaskInProgress), p.Status)
	assert.True(t, p.AssignedTo.IsAbsent())
	assert.True(t, p.Category.IsAbsent())
	assert.True(t, p.RecurrenceEnd.IsAbsent())
}

func TestDecodePatchNullRecurrenceTurnsItOff(t *testing.T) {
	p, err := DecodePatch(body(t, `{"recurrence_rule": null}`), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, mo.Some(recurrence.KindNone), p.RecurrenceRule)

	p, err = DecodePatch(body(t, `{"recurrence_rule": "none"}`), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, mo.Some(recurrence.KindNone), p.RecurrenceRule)
}

func TestDecodePatchErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"null title", `{"title": null}`, patch.ErrNullField},
		{"null status", `{"status": null}`, patch.ErrNullField},
		{"wrong type", `{"priority": "high"}`, patch.ErrInvalidField},
		{"bad date", `{"due_date": "03/02/2026"}`, patch.ErrInvalidField},
		{"unknown rule", `{"recurrence_rule": "hourly"}`, recurrence.ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePatch(body(t, tt.body), time.UTC)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestApplyValidation(t *testing.T) {
	base := model.Task{Title: "Bins", Status: model.TaskPending, Priority: 3, Recurrence: recurrence.None()}

	tests := []struct {
		name  string
		patch Patch
		want  error
	}{
		{"blank title", Patch{Title: mo.Some("  ")}, ErrEmptyTitle},
		{"bad status", Patch{Status: mo.Some(model.TaskStatus("archived"))}, ErrInvalidStatus},
		{"priority too low", Patch{Priority: mo.Some(0)}, ErrInvalidPriority},
		{"priority too high", Patch{Priority: mo.Some(5)}, ErrInvalidPriority},
		{"interval", Patch{RecurrenceRule: mo.Some(recurrence.KindDaily), RecurrenceInterval: mo.Some(0)}, recurrence.ErrInvalidInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(base, tt.patch, completedAt)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestApplyStatusRunsAfterFieldChanges(t *testing.T) {
	task := model.Task{Title: "Bins", Status: model.TaskPending, Priority: 3, Recurrence: recurrence.None()}
	p := Patch{
		DueDate:            mo.Some(date(2026, 1, 31)),
		RecurrenceRule:     mo.Some(recurrence.KindMonthly),
		RecurrenceInterval: mo.Some(1),
		Status:             mo.Some(model.TaskDone),
	}

	got, err := Apply(task, p, completedAt)
	require.NoError(t, err)

	// completion sees the new rule and due date
	assert.Equal(t, model.TaskPending, got.Status)
	assert.Equal(t, *date(2026, 2, 28), *got.DueDate)
	assert.Equal(t, completedAt, *got.LastCompletedAt)
}

func TestApplyClearsNullableFields(t *testing.T) {
	who := "u1"
	cat := "chores"
	task := model.Task{Title: "Bins", Status: model.TaskPending, Priority: 3, AssignedTo: &who, Category: &cat, Recurrence: recurrence.None()}

	got, err := Apply(task, Patch{AssignedTo: mo.Some[*string](nil), Priority: mo.Some(1)}, completedAt)
	require.NoError(t, err)

	assert.Nil(t, got.AssignedTo)
	assert.Equal(t, &cat, got.Category)
	assert.Equal(t, 1, got.Priority)
	assert.Equal(t, model.TaskPending, got.Status)
}
