package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "events"

	dialAttempts = 5
	dialBackoff  = 2 * time.Second
)

// Binding 描述一个消费队列及其在 events exchange 上订阅的 routing key
type Binding struct {
	Queue      string
	RoutingKey string
}

// DLQName 是该绑定对应的死信队列名
func (b Binding) DLQName() string {
	return b.Queue + ".dlq"
}

func (b Binding) validate() error {
	if b.Queue == "" || b.RoutingKey == "" {
		return fmt.Errorf("mq binding requires queue and routing key, got %+v", b)
	}
	return nil
}

// NewConnection 连接 RabbitMQ；进程与 broker 同时启动时 broker 可能尚未就绪，
// 按 2s、4s、6s... 退避重试
func NewConnection(url string) (*amqp091.Connection, error) {
	return dial(url, dialAttempts, dialBackoff, amqp091.Dial)
}

func dial(url string, attempts int, backoff time.Duration, dialFn func(string) (*amqp091.Connection, error)) (*amqp091.Connection, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := dialFn(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if i < attempts {
			time.Sleep(time.Duration(i) * backoff)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}

// DeclareExchange 声明所有领域事件使用的 durable topic exchange
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil)
}

// DeclareBinding 声明工作队列并绑定 routing key，同时声明对应的死信队列，
// 保证 PublishToDLQ 的消息有处可去
func DeclareBinding(ch *amqp091.Channel, b Binding) (amqp091.Queue, error) {
	if err := b.validate(); err != nil {
		return amqp091.Queue{}, err
	}
	if err := DeclareExchange(ch); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := DeclareDLQExchange(ch); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare dlq exchange: %w", err)
	}
	if _, err := DeclareDLQQueue(ch, b); err != nil {
		return amqp091.Queue{}, err
	}

	q, err := ch.QueueDeclare(b.Queue, true, false, false, false, nil)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare queue %s: %w", b.Queue, err)
	}
	if err := ch.QueueBind(q.Name, b.RoutingKey, ExchangeName, false, nil); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to bind queue %s: %w", b.Queue, err)
	}
	return q, nil
}
