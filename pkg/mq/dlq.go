package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	DLQExchangeName = "events.dlq"

	HeaderOriginalError = "x-original-error"
	HeaderFailedAt      = "x-failed-at"
	HeaderFailedTime    = "x-failed-time"
)

// DeclareDLQExchange 声明死信 exchange
func DeclareDLQExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(DLQExchangeName, "topic", true, false, false, false, nil)
}

// DeclareDLQQueue 声明 <queue>.dlq 并以原 routing key 绑定到死信 exchange。
// 死信消息不会被自动消费，由人工排查后处理
func DeclareDLQQueue(ch *amqp091.Channel, b Binding) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(b.DLQName(), true, false, false, false, nil)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare DLQ queue %s: %w", b.DLQName(), err)
	}
	if err := ch.QueueBind(q.Name, b.RoutingKey, DLQExchangeName, false, nil); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to bind DLQ queue %s: %w", b.DLQName(), err)
	}
	return q, nil
}

func dlqHeaders(originalError, failedAt string, now time.Time) amqp091.Table {
	return amqp091.Table{
		HeaderOriginalError: originalError,
		HeaderFailedAt:      failedAt,
		HeaderFailedTime:    now.UTC().Format(time.RFC3339),
	}
}

// PublishToDLQ 将重试耗尽的消息转入死信 exchange，header 记录失败原因与位置
func (p *Publisher) PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, failedAt string) error {
	return p.publish(ctx, DLQExchangeName, routingKey, payload, dlqHeaders(originalError, failedAt, time.Now()))
}
