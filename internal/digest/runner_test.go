package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nesto/internal/model"
)

func newTestRunner(t *testing.T, s *memStore, sender Sender) *Runner {
	t.Helper()
	log := zap.NewNop()
	return NewRunner(s, NewGatherer(s, time.UTC, log), newTestRenderer(t), sender, time.UTC, log)
}

func TestRunSendsToOptedInUsers(t *testing.T) {
	s := seedStore()
	s.users = append(s.users,
		model.User{ID: "u2", Email: "bob@example.com", DisplayName: "Bob", DigestDaily: true},
		model.User{ID: "u3", Email: "eve@example.com", DigestWeekly: true},
	)
	sender := &fakeSender{}
	r := newTestRunner(t, s, sender)

	stats, err := r.Run(context.Background(), model.PeriodDaily, at(2026, 3, 2, 6, 0))
	require.NoError(t, err)
	assert.Equal(t, RunStats{Users: 2, Sent: 2}, stats)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "ada@example.com", sender.sent[0].To)
	assert.Equal(t, "Nesto daily digest - Monday, Mar 02", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Doc.HTML, "Bins")
	// u2 belongs to no household and still gets the empty digest
	assert.Equal(t, "bob@example.com", sender.sent[1].To)
	assert.Contains(t, sender.sent[1].Doc.Text, emptyMessage)
}

func TestRunIsolatesUserFailures(t *testing.T) {
	s := seedStore()
	s.users = []model.User{
		{ID: "u1", Email: "ada@example.com", DigestDaily: true},
		{ID: "u2", Email: "bob@example.com", DigestDaily: true},
		{ID: "u3", Email: "eve@example.com", DigestDaily: true},
	}
	sender := &fakeSender{failTo: map[string]error{"bob@example.com": errors.New("mailbox full")}}
	r := newTestRunner(t, s, sender)

	stats, err := r.Run(context.Background(), model.PeriodDaily, at(2026, 3, 2, 6, 0))
	require.NoError(t, err)
	assert.Equal(t, RunStats{Users: 3, Sent: 2, Failed: 1}, stats)

	var to []string
	for _, m := range sender.sent {
		to = append(to, m.To)
	}
	assert.Equal(t, []string{"ada@example.com", "eve@example.com"}, to)
}

func TestRunListingFailure(t *testing.T) {
	s := seedStore()
	s.listUsersErr = errStore
	sender := &fakeSender{}
	r := newTestRunner(t, s, sender)

	_, err := r.Run(context.Background(), model.PeriodWeekly, at(2026, 3, 1, 18, 0))
	assert.ErrorIs(t, err, errStore)
	assert.Empty(t, sender.sent)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := seedStore()
	sender := &fakeSender{}
	r := newTestRunner(t, s, sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx, model.PeriodDaily, at(2026, 3, 2, 6, 0))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.sent)
}

func TestSendTest(t *testing.T) {
	s := seedStore()
	// opted out of everything; a test send ignores preferences
	s.users[0].DigestDaily = false
	s.users[0].DigestWeekly = false
	sender := &fakeSender{}
	r := newTestRunner(t, s, sender)

	require.NoError(t, r.SendTest(context.Background(), "u1", model.PeriodWeekly, at(2026, 3, 1, 12, 0)))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "[TEST] Nesto weekly digest", sender.sent[0].Subject)
	assert.Equal(t, "[TEST] Nesto weekly digest", sender.sent[0].Doc.Subject)
	assert.Contains(t, sender.sent[0].Doc.HTML, "Reminders due this week")
}

func TestSendTestErrors(t *testing.T) {
	s := seedStore()
	sender := &fakeSender{failTo: map[string]error{"ada@example.com": ErrMailDisabled}}
	r := newTestRunner(t, s, sender)
	ctx := context.Background()
	now := at(2026, 3, 2, 6, 0)

	assert.ErrorIs(t, r.SendTest(ctx, "nobody", model.PeriodDaily, now), ErrUserNotFound)
	assert.ErrorIs(t, r.SendTest(ctx, "u1", "hourly", now), ErrUnknownPeriod)
	assert.ErrorIs(t, r.SendTest(ctx, "u1", model.PeriodDaily, now), ErrMailDisabled)
}
