package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nesto/pkg/metrics"
	"nesto/pkg/trace"
)

// EventPublisher 是 Dispatcher 需要的发布能力，*mq.Publisher 满足该接口
type EventPublisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// connectionChecker 可选：发布端断线时跳过本轮，避免白白消耗重试次数
type connectionChecker interface {
	IsConnected() bool
}

// eventStore 是 Dispatcher 对 outbox 表的依赖，*Repository 满足该接口
type eventStore interface {
	GetPendingEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkAsSent(ctx context.Context, eventID int64) error
	MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error
}

// Dispatcher 轮询 outbox 并把事件发布到 events exchange。
// 同一聚合（如同一个任务）的事件按写入顺序发布：某条失败后，
// 本轮不再发布该聚合后续的事件
type Dispatcher struct {
	store      eventStore
	publisher  EventPublisher
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

func NewDispatcher(repo *Repository, publisher EventPublisher, logger *zap.Logger) *Dispatcher {
	return newDispatcher(repo, publisher, logger)
}

func newDispatcher(store eventStore, publisher EventPublisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		maxRetries: 5,
		interval:   time.Second,
		batchSize:  100,
	}
}

func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	d.maxRetries = maxRetries
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	d.batchSize = batchSize
	return d
}

// Start 阻塞运行，直到 ctx 取消
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting outbox dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.dispatchBatch(ctx)
		}
	}
}

type batchResult struct {
	published int
	failed    int
	deferred  int
}

func (d *Dispatcher) dispatchBatch(ctx context.Context) batchResult {
	var res batchResult
	if c, ok := d.publisher.(connectionChecker); ok && !c.IsConnected() {
		d.logger.Warn("Publisher disconnected, skipping outbox batch")
		return res
	}

	events, err := d.store.GetPendingEvents(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to get pending events", zap.Error(err))
		return res
	}

	blocked := make(map[string]bool)
	for _, event := range events {
		if ctx.Err() != nil {
			break
		}
		aggregate := event.AggregateType + ":" + event.AggregateID
		if blocked[aggregate] {
			res.deferred++
			continue
		}

		log := d.logger.With(
			zap.Int64("event_id", event.ID),
			zap.String("routing_key", event.RoutingKey),
			zap.String("aggregate", aggregate),
			zap.String("trace_id", event.TraceID),
		)

		if err := d.publish(ctx, event); err != nil {
			log.Error("Failed to publish event", zap.Int("retry_count", event.RetryCount), zap.Error(err))
			blocked[aggregate] = true
			res.failed++
			metrics.RecordOutboxEvent(event.RoutingKey, "failed")
			if err := d.store.MarkAsFailed(ctx, event.ID, d.maxRetries); err != nil {
				log.Error("Failed to mark event as failed", zap.Error(err))
			}
			continue
		}

		res.published++
		metrics.RecordOutboxEvent(event.RoutingKey, "published")
		if err := d.store.MarkAsSent(ctx, event.ID); err != nil {
			// 已发布但未标记：下一轮会重复发布，消费端需幂等
			log.Error("Failed to mark event as sent", zap.Error(err))
			continue
		}
		log.Debug("Event published")
	}

	if res.failed > 0 || res.deferred > 0 {
		d.logger.Warn("Outbox batch finished with failures",
			zap.Int("published", res.published),
			zap.Int("failed", res.failed),
			zap.Int("deferred", res.deferred),
		)
	}
	return res
}

func (d *Dispatcher) publish(ctx context.Context, event *Event) error {
	if event.TraceID != "" {
		ctx = trace.WithContext(ctx, event.TraceID)
	}
	// payload 已是 JSON，原样转发
	if err := d.publisher.PublishWithContext(ctx, event.RoutingKey, json.RawMessage(event.Payload)); err != nil {
		return fmt.Errorf("failed to publish to MQ: %w", err)
	}
	return nil
}
