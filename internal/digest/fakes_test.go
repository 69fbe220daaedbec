package digest

import (
	"context"
	"errors"
	"sync"
	"time"

	"nesto/internal/model"
	"nesto/internal/repository"
)

var errStore = errors.New("store unavailable")

// memStore is an in-memory Store applying the same filter semantics as
// the SQL repository.
type memStore struct {
	households map[string][]model.Household // by user id
	events     map[string][]model.Event     // by household id
	tasks      map[string][]model.Task      // by household id
	users      []model.User

	listUsersErr error
	tasksErr     error
	filters      []repository.TaskFilter
}

func newMemStore() *memStore {
	return &memStore{
		households: map[string][]model.Household{},
		events:     map[string][]model.Event{},
		tasks:      map[string][]model.Task{},
	}
}

func (m *memStore) ListHouseholdsForUser(_ context.Context, userID string) ([]model.Household, error) {
	return m.households[userID], nil
}

func (m *memStore) ListEventDefinitions(_ context.Context, householdID string, _, _ time.Time) ([]model.Event, error) {
	return m.events[householdID], nil
}

func (m *memStore) ListTasks(_ context.Context, householdID string, f repository.TaskFilter) ([]model.Task, error) {
	if m.tasksErr != nil {
		return nil, m.tasksErr
	}
	m.filters = append(m.filters, f)
	var out []model.Task
	for _, t := range m.tasks[householdID] {
		if f.ExcludeDone && t.Status == model.TaskDone {
			continue
		}
		if f.DueFrom != nil && (t.DueDate == nil || t.DueDate.Before(*f.DueFrom)) {
			continue
		}
		if f.DueTo != nil && (t.DueDate == nil || t.DueDate.After(*f.DueTo)) {
			continue
		}
		if f.CompletedFrom != nil && !completedIn(t, *f.CompletedFrom, *f.CompletedTo) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func completedIn(t model.Task, from, to time.Time) bool {
	in := func(ts *time.Time) bool {
		return ts != nil && !ts.Before(from) && ts.Before(to)
	}
	return in(t.CompletedAt) || in(t.LastCompletedAt)
}

func (m *memStore) ListUsersOptedIntoDigest(_ context.Context, period model.DigestPeriod) ([]model.User, error) {
	if m.listUsersErr != nil {
		return nil, m.listUsersErr
	}
	var out []model.User
	for _, u := range m.users {
		if u.WantsDigest(period) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

type sentMail struct {
	To      string
	Subject string
	Doc     Document
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]error
}

func (s *fakeSender) Send(_ context.Context, to, subject string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failTo[to]; err != nil {
		return err
	}
	s.sent = append(s.sent, sentMail{To: to, Subject: subject, Doc: doc})
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type runCall struct {
	Period model.DigestPeriod
	Now    time.Time
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	err   error
}

func (r *fakeRunner) Run(_ context.Context, period model.DigestPeriod, now time.Time) (RunStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, runCall{Period: period, Now: now})
	if r.err != nil {
		return RunStats{}, r.err
	}
	return RunStats{Users: 1, Sent: 1}, nil
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeGuard struct {
	seen map[string]bool
	err  error
}

func (g *fakeGuard) Acquire(_ context.Context, period model.DigestPeriod, day time.Time) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	key := BoundaryKey(period, day)
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func ptr[T any](v T) *T { return &v }
