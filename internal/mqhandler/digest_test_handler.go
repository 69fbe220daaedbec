package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	mqcontracts "nesto/contracts/mq"
	"nesto/internal/digest"
	"nesto/internal/model"
	"nesto/pkg/logger"
	"nesto/pkg/util"
)

const handlerName = "digest_test"

// DefaultMaxRetries 超过后消息进入 DLQ
const DefaultMaxRetries = 3

type TestDigestSender interface {
	SendTest(ctx context.Context, userID string, period model.DigestPeriod, now time.Time) error
}

// OnceGuard 由 util.Deduper 实现
type OnceGuard interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string) error
}

// RetryTracker 由 util.RetryCounter 实现
type RetryTracker interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DLQPublisher 由 mq.Publisher 实现
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, failedAt string) error
}

type DigestTestHandler struct {
	sender     TestDigestSender
	deduper    OnceGuard
	retries    RetryTracker
	dlq        DLQPublisher
	maxRetries int64
	now        func() time.Time
	logger     *zap.Logger
}

func NewDigestTestHandler(
	sender TestDigestSender,
	deduper OnceGuard,
	retries RetryTracker,
	dlq DLQPublisher,
	logger *zap.Logger,
) *DigestTestHandler {
	return &DigestTestHandler{
		sender:     sender,
		deduper:    deduper,
		retries:    retries,
		dlq:        dlq,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
		logger:     logger,
	}
}

// Handle 处理 digest.test_requested；返回 error 表示 nack 重新入队
func (h *DigestTestHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.DigestTestRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// JSON decode 错误 - 不可重试
		log.Error("Failed to unmarshal digest test request (non-retryable)", zap.Error(err))
		return nil
	}
	log = log.With(
		zap.String("request_id", p.RequestID),
		zap.String("user_id", p.UserID),
		zap.String("period", p.Period),
	)

	if !h.deduper.AcquireOnce(ctx, handlerName, p.RequestID) {
		return nil
	}

	err := h.sender.SendTest(ctx, p.UserID, model.DigestPeriod(p.Period), h.now())
	retryKey := util.FormatRetryKey(handlerName, p.RequestID)
	if err == nil {
		if rerr := h.retries.Reset(ctx, retryKey); rerr != nil {
			log.Warn("Failed to reset retry counter", zap.Error(rerr))
		}
		log.Info("Test digest delivered")
		return nil
	}

	if errors.Is(err, digest.ErrUserNotFound) || errors.Is(err, digest.ErrUnknownPeriod) || errors.Is(err, digest.ErrMailDisabled) {
		log.Warn("Test digest dropped", zap.Error(err))
		return nil
	}

	retryable, errType := util.IsRetryableError(err)
	count, cerr := h.retries.IncrementAndGet(ctx, retryKey)
	if cerr != nil {
		// 计数不可用时按首次失败处理
		log.Warn("Failed to increment retry counter", zap.Error(cerr))
		count = 1
	}
	log = log.With(
		zap.String("error_type", errType),
		zap.Bool("retryable", retryable),
		zap.Int64("retry_count", count),
		zap.Error(err),
	)

	if util.ShouldRetry(count, h.maxRetries, retryable) {
		log.Warn("Test digest failed, will retry")
		if rerr := h.deduper.Release(ctx, handlerName, p.RequestID); rerr != nil {
			log.Warn("Failed to release dedup key", zap.Error(rerr))
		}
		return err
	}

	log.Error("Test digest failed, sending to DLQ")
	if derr := h.dlq.PublishToDLQ(ctx, mqcontracts.RoutingDigestTestRequested, raw, err.Error(), h.now().Format(time.RFC3339)); derr != nil {
		log.Error("Failed to publish to DLQ", zap.Error(derr))
	}
	if rerr := h.retries.Reset(ctx, retryKey); rerr != nil {
		log.Warn("Failed to reset retry counter", zap.Error(rerr))
	}
	return nil
}
