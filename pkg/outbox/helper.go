package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nesto/pkg/metrics"
	"nesto/pkg/trace"
)

var ErrInvalidMessage = errors.New("outbox message requires aggregate and routing key")

// Message 描述一次领域状态变更需要发布的事件
type Message struct {
	AggregateType string // task, event
	AggregateID   string
	RoutingKey    string
	Payload       any
}

func (m Message) validate() error {
	if m.AggregateType == "" || m.AggregateID == "" || m.RoutingKey == "" {
		return fmt.Errorf("%w: %+v", ErrInvalidMessage, m)
	}
	return nil
}

// Enqueue 在业务事务 tx 内写入 outbox，与状态变更一起提交或回滚。
// context 中的 trace_id 随事件保存，Dispatcher 发布时恢复
func Enqueue(ctx context.Context, tx pgx.Tx, repo *Repository, m Message) error {
	if err := m.validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", m.RoutingKey, err)
	}

	if err := repo.InsertEvent(ctx, tx, &Event{
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		RoutingKey:    m.RoutingKey,
		Payload:       payload,
		TraceID:       trace.FromContext(ctx),
		Status:        StatusPending,
	}); err != nil {
		return err
	}
	metrics.RecordOutboxEvent(m.RoutingKey, "enqueued")
	return nil
}
