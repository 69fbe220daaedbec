package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nesto/pkg/trace"
)

type memStore struct {
	pending  []*Event
	failed   []*Event
	sent     []int64
	marked   []int64
	reset    []int64
	resetErr map[int64]error
}

func (m *memStore) GetPendingEvents(context.Context, int) ([]*Event, error) { return m.pending, nil }
func (m *memStore) GetFailedEvents(context.Context, int) ([]*Event, error) { return m.failed, nil }

func (m *memStore) MarkAsSent(_ context.Context, id int64) error {
	m.sent = append(m.sent, id)
	return nil
}

func (m *memStore) MarkAsFailed(_ context.Context, id int64, _ int) error {
	m.marked = append(m.marked, id)
	return nil
}

func (m *memStore) ResetForReplay(_ context.Context, id int64) error {
	if err := m.resetErr[id]; err != nil {
		return err
	}
	m.reset = append(m.reset, id)
	return nil
}

type fakePublisher struct {
	disconnected bool
	failKeys     map[string]bool
	published    []string
	traces       []string
}

func (p *fakePublisher) IsConnected() bool { return !p.disconnected }

func (p *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	if p.failKeys[routingKey] {
		return errors.New("channel closed")
	}
	if _, ok := payload.(json.RawMessage); !ok {
		return errors.New("payload must be forwarded as raw JSON")
	}
	p.published = append(p.published, routingKey)
	p.traces = append(p.traces, trace.FromContext(ctx))
	return nil
}

func ev(id int64, aggregateID, key, traceID string) *Event {
	return &Event{ID: id, AggregateType: "task", AggregateID: aggregateID, RoutingKey: key, Payload: json.RawMessage(`{}`), TraceID: traceID}
}

func TestDispatchBatch_PublishesInOrderWithTrace(t *testing.T) {
	store := &memStore{pending: []*Event{
		ev(1, "t1", "task.completed", "tr-1"),
		ev(2, "t2", "task.updated", ""),
	}}
	pub := &fakePublisher{}
	d := newDispatcher(store, pub, zap.NewNop())

	res := d.dispatchBatch(context.Background())

	assert.Equal(t, batchResult{published: 2}, res)
	assert.Equal(t, []string{"task.completed", "task.updated"}, pub.published)
	assert.Equal(t, []string{"tr-1", ""}, pub.traces)
	assert.Equal(t, []int64{1, 2}, store.sent)
}

func TestDispatchBatch_FailureDefersSameAggregate(t *testing.T) {
	store := &memStore{pending: []*Event{
		ev(1, "t1", "task.completed", ""),
		ev(2, "t1", "task.recurred", ""),
		ev(3, "t2", "task.recurred", ""),
	}}
	pub := &fakePublisher{failKeys: map[string]bool{"task.completed": true}}
	d := newDispatcher(store, pub, zap.NewNop())

	res := d.dispatchBatch(context.Background())

	assert.Equal(t, batchResult{published: 1, failed: 1, deferred: 1}, res)
	assert.Equal(t, []int64{1}, store.marked)
	assert.Equal(t, []int64{3}, store.sent)
}

func TestDispatchBatch_SkipsWhenDisconnected(t *testing.T) {
	store := &memStore{pending: []*Event{ev(1, "t1", "task.updated", "")}}
	d := newDispatcher(store, &fakePublisher{disconnected: true}, zap.NewNop())

	res := d.dispatchBatch(context.Background())

	assert.Equal(t, batchResult{}, res)
	assert.Empty(t, store.sent)
	assert.Empty(t, store.marked)
}

func TestReplayFailedEvents(t *testing.T) {
	store := &memStore{
		failed:   []*Event{ev(1, "t1", "task.updated", ""), ev(2, "t2", "task.updated", "")},
		resetErr: map[int64]error{2: ErrEventNotFound},
	}
	s := &ReplayService{store: store}

	n, err := s.ReplayFailedEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, store.reset)

	store = &memStore{
		failed:   []*Event{ev(2, "t2", "task.updated", "")},
		resetErr: map[int64]error{2: ErrEventNotFound},
	}
	n, err = (&ReplayService{store: store}).ReplayFailedEvents(context.Background(), 10)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.Zero(t, n)
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, Message{AggregateType: "task", AggregateID: "t1", RoutingKey: "task.updated"}.validate())
	assert.ErrorIs(t, Message{AggregateType: "task", RoutingKey: "task.updated"}.validate(), ErrInvalidMessage)
	assert.ErrorIs(t, Message{AggregateType: "task", AggregateID: "t1"}.validate(), ErrInvalidMessage)
}
