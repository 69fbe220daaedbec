package util

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper 基于 Redis SETNX 的幂等保护：同一 handler 在 TTL 内只处理一次同一 id
type Deduper struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewDeduper logger 可以为 nil
func NewDeduper(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{rdb: rdb, ttl: ttl, logger: logger}
}

func DedupKey(handler, id string) string {
	return "dedup:" + handler + ":" + id
}

// AcquireOnce 首次见到 id 时返回 true，重复时返回 false。
// Redis 不可用时放行
func (d *Deduper) AcquireOnce(ctx context.Context, handler, id string) bool {
	key := DedupKey(handler, id)
	log := d.logger.With(zap.String("handler", handler), zap.String("dedup_key", key))

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		log.Warn("Redis dedup check failed, allowing processing", zap.Error(err))
		return true
	}
	if !ok {
		log.Info("Skipped duplicated message")
	}
	return ok
}

// Release 删除去重标记，使失败的消息可以被重新处理
func (d *Deduper) Release(ctx context.Context, handler, id string) error {
	return d.rdb.Del(ctx, DedupKey(handler, id)).Err()
}
