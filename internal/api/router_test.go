package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "nesto/contracts/mq"
	"nesto/internal/event"
	"nesto/internal/model"
	"nesto/internal/patch"
	"nesto/internal/recurrence"
	"nesto/internal/repository"
	"nesto/internal/task"
	"nesto/pkg/outbox"
	"nesto/pkg/rbac"
	"nesto/pkg/trace"
	"nesto/pkg/util"
)

const (
	testSecret = "test-secret"
	testIssuer = "nesto-test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockTasks struct{ mock.Mock }

func (m *mockTasks) Update(ctx context.Context, hid, id string, p task.Patch) (model.Task, error) {
	args := m.Called(ctx, hid, id, p)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *mockTasks) Complete(ctx context.Context, hid, id string) (model.Task, error) {
	args := m.Called(ctx, hid, id)
	return args.Get(0).(model.Task), args.Error(1)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) Occurrences(ctx context.Context, hid string, from, to time.Time) ([]event.Occurrence, error) {
	args := m.Called(ctx, hid, from, to)
	return args.Get(0).([]event.Occurrence), args.Error(1)
}

func (m *mockEvents) Update(ctx context.Context, hid, id string, p event.Patch) (model.Event, error) {
	args := m.Called(ctx, hid, id, p)
	return args.Get(0).(model.Event), args.Error(1)
}

type fakePublisher struct {
	routingKey string
	payload    any
	traceID    string
	err        error
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	p.routingKey, p.payload, p.traceID = routingKey, payload, trace.FromContext(ctx)
	return p.err
}

type fakeReplayer struct {
	replayed []int64
	err      error
}

func (r *fakeReplayer) ReplayEvent(_ context.Context, id int64) error {
	r.replayed = append(r.replayed, id)
	return r.err
}

func (r *fakeReplayer) ReplayFailedEvents(_ context.Context, limit int) (int, error) {
	return limit / 10, r.err
}

type fakeMembers map[string]bool

func (f fakeMembers) IsMember(_ context.Context, hid, uid string) (bool, error) {
	if hid == "broken" {
		return false, errors.New("db down")
	}
	return f[hid+"/"+uid], nil
}

type okPinger struct{ err error }

func (p okPinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	router    *Router
	tasks     *mockTasks
	events    *mockEvents
	publisher *fakePublisher
	replayer  *fakeReplayer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	env := &testEnv{
		tasks:     &mockTasks{},
		events:    &mockEvents{},
		publisher: &fakePublisher{},
		replayer:  &fakeReplayer{},
	}
	eh := NewEventHandler(env.events, time.UTC, log)
	eh.now = func() time.Time { return time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC) }
	env.router = NewRouter(RouterConfig{
		JWTIssuer:         testIssuer,
		JWTSecret:         testSecret,
		TestDigestPerHour: 1,
		TestDigestBurst:   2,
	}, Handlers{
		Tasks:   NewTaskHandler(env.tasks, time.UTC, log),
		Events:  eh,
		Digest:  NewDigestHandler(env.publisher, log),
		Admin:   NewAdminHandler(env.replayer, log),
		Members: fakeMembers{"h1/u1": true, "h1/admin": true},
		DB:      okPinger{},
	}, log)
	return env
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := util.GenerateJWT(userID, role, testIssuer, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (env *testEnv) do(t *testing.T, method, path, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	env.router.Engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(trace.HeaderName))

	w = env.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/households/h1/tasks/t1/complete", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/households/h1/tasks/t1/complete", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := util.GenerateJWT("u1", "", "someone-else", testSecret, time.Hour)
	require.NoError(t, err)
	w = env.do(t, http.MethodPost, "/api/households/h1/tasks/t1/complete", other, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMembership(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/households/h2/tasks/t1/complete", token(t, "u1", ""), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/households/broken/tasks/t1/complete", token(t, "u1", ""), "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env.tasks.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteTask(t *testing.T) {
	env := newTestEnv(t)
	due := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	env.tasks.On("Complete", mock.Anything, "h1", "t1").Return(model.Task{
		ID: "t1", HouseholdID: "h1", Title: "Bins", Status: model.TaskPending, Priority: 2,
		DueDate: &due, LastCompletedAt: &last,
		Recurrence: recurrence.Rule{Kind: recurrence.KindWeekly, Interval: 1},
	}, nil)

	w := env.do(t, http.MethodPost, "/api/households/h1/tasks/t1/complete", token(t, "u1", ""), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "2026-03-04", body["due_date"])
	assert.Equal(t, "weekly", body["recurrence_rule"])
	assert.Nil(t, body["completed_at"])
	env.tasks.AssertExpectations(t)
}

func TestUpdateTask(t *testing.T) {
	env := newTestEnv(t)
	env.tasks.On("Update", mock.Anything, "h1", "t1", mock.MatchedBy(func(p task.Patch) bool {
		return p.Title.OrEmpty() == "Bins" && p.Status.IsAbsent()
	})).Return(model.Task{ID: "t1", Title: "Bins", Status: model.TaskPending}, nil)
	tok := token(t, "u1", rbac.RoleMember)

	w := env.do(t, http.MethodPatch, "/api/households/h1/tasks/t1", tok, `{"title":"Bins","created_by":"x"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPatch, "/api/households/h1/tasks/t1", tok, `{"recurrence_rule":"hourly"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodPatch, "/api/households/h1/tasks/t1", tok, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.tasks.On("Update", mock.Anything, "h1", "missing", mock.Anything).Return(model.Task{}, repository.ErrNotFound)
	w = env.do(t, http.MethodPatch, "/api/households/h1/tasks/missing", tok, `{"priority":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.tasks.On("Update", mock.Anything, "h1", "t2", mock.Anything).Return(model.Task{}, task.ErrInvalidPriority)
	w = env.do(t, http.MethodPatch, "/api/households/h1/tasks/t2", tok, `{"priority":9}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListOccurrences(t *testing.T) {
	env := newTestEnv(t)
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	yoga := model.Event{ID: "e1", Title: "Yoga", Recurrence: recurrence.Rule{Kind: recurrence.KindWeekly, Interval: 1}}
	env.events.On("Occurrences", mock.Anything, "h1", from, to).Return([]event.Occurrence{
		{Event: yoga, Start: time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 3, 19, 0, 0, 0, time.UTC)},
	}, nil)

	// defaults to today + 7 days
	w := env.do(t, http.MethodGet, "/api/households/h1/occurrences", token(t, "u1", ""), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	occ := decode(t, w)["occurrences"].([]any)
	require.Len(t, occ, 1)
	first := occ[0].(map[string]any)
	assert.Equal(t, "e1", first["event_id"])
	assert.Equal(t, "2026-03-03T18:00:00Z", first["start_time"])
	assert.Equal(t, true, first["is_recurring"])

	w = env.do(t, http.MethodGet, "/api/households/h1/occurrences?start=03/02/2026", token(t, "u1", ""), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/households/h1/occurrences?start=2026-01-01&end=2028-01-01", token(t, "u1", ""), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateEvent(t *testing.T) {
	env := newTestEnv(t)
	env.events.On("Update", mock.Anything, "h1", "e1", mock.Anything).Return(model.Event{}, event.ErrInvalidTimeRange)

	w := env.do(t, http.MethodPatch, "/api/households/h1/events/e1", token(t, "u1", ""), `{"end_time":"2026-03-03T17:00:00Z"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpdateAssigneeOutsideHousehold(t *testing.T) {
	env := newTestEnv(t)
	notMember := fmt.Errorf("assigned_to u9: %w", patch.ErrAssigneeNotMember)
	env.tasks.On("Update", mock.Anything, "h1", "t1", mock.MatchedBy(func(p task.Patch) bool {
		v, ok := p.AssignedTo.Get()
		return ok && v != nil && *v == "u9"
	})).Return(model.Task{}, notMember)
	env.events.On("Update", mock.Anything, "h1", "e1", mock.Anything).Return(model.Event{}, notMember)
	tok := token(t, "u1", "")

	w := env.do(t, http.MethodPatch, "/api/households/h1/tasks/t1", tok, `{"assigned_to":"u9"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "assigned user is not a member of this household", decode(t, w)["error"])

	w = env.do(t, http.MethodPatch, "/api/households/h1/events/e1", tok, `{"assigned_to":"u9"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestTestDigest(t *testing.T) {
	env := newTestEnv(t)
	tok := token(t, "u1", "")

	req := httptest.NewRequest(http.MethodPost, "/api/digest/test", strings.NewReader(`{"period":"weekly"}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(trace.HeaderName, "trace-123")
	w := httptest.NewRecorder()
	env.router.Engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, mqcontracts.RoutingDigestTestRequested, env.publisher.routingKey)
	assert.Equal(t, "trace-123", env.publisher.traceID)
	payload := env.publisher.payload.(mqcontracts.DigestTestRequestedPayload)
	assert.Equal(t, "u1", payload.UserID)
	assert.Equal(t, "weekly", payload.Period)
	assert.Equal(t, payload.RequestID, decode(t, w)["request_id"])
}

func TestRequestTestDigestValidationAndRateLimit(t *testing.T) {
	env := newTestEnv(t)
	tok := token(t, "u9", "")

	w := env.do(t, http.MethodPost, "/api/digest/test", tok, `{"period":"monthly"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// burst of 2: the second request still passes, the third is limited
	w = env.do(t, http.MethodPost, "/api/digest/test", tok, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "daily", env.publisher.payload.(mqcontracts.DigestTestRequestedPayload).Period)

	w = env.do(t, http.MethodPost, "/api/digest/test", tok, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// limits are per user
	w = env.do(t, http.MethodPost, "/api/digest/test", token(t, "u1", ""), "")
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRequestTestDigestPublishFailure(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("channel closed")

	w := env.do(t, http.MethodPost, "/api/digest/test", token(t, "u1", ""), `{"period":"daily"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminReplay(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/admin/outbox/42/replay", token(t, "u1", rbac.RoleMember), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, env.replayer.replayed)

	admin := token(t, "admin", rbac.RoleAdmin)
	w = env.do(t, http.MethodPost, "/api/admin/outbox/42/replay", admin, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{42}, env.replayer.replayed)

	w = env.do(t, http.MethodPost, "/api/admin/outbox/abc/replay", admin, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/admin/outbox/replay-failed?limit=50", admin, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(5), decode(t, w)["success_count"])

	env.replayer.err = outbox.ErrEventNotFound
	w = env.do(t, http.MethodPost, "/api/admin/outbox/7/replay", admin, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type countingMembers struct {
	calls  int
	member bool
}

func (c *countingMembers) IsMember(context.Context, string, string) (bool, error) {
	c.calls++
	return c.member, nil
}

func TestCachedMembership(t *testing.T) {
	next := &countingMembers{}
	m := NewCachedMembership(next, 10, time.Minute)
	ctx := context.Background()

	ok, err := m.IsMember(ctx, "h1", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, _ = m.IsMember(ctx, "h1", "u1")
	assert.Equal(t, 2, next.calls, "negative answers are not cached")

	next.member = true
	ok, _ = m.IsMember(ctx, "h1", "u1")
	assert.True(t, ok)
	ok, _ = m.IsMember(ctx, "h1", "u1")
	assert.True(t, ok)
	assert.Equal(t, 3, next.calls)
}
