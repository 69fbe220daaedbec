package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis 只实现 Deduper 用到的命令
type fakeRedis struct {
	redis.Cmdable
	keys   map[string]time.Duration
	setErr error
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.BoolCmd {
	if f.setErr != nil {
		return redis.NewBoolResult(false, f.setErr)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestDeduper_AcquireOnce(t *testing.T) {
	rdb := &fakeRedis{keys: map[string]time.Duration{}}
	d := NewDeduper(rdb, 24*time.Hour, nil)
	ctx := context.Background()

	assert.True(t, d.AcquireOnce(ctx, "digest_test", "req-1"))
	assert.False(t, d.AcquireOnce(ctx, "digest_test", "req-1"))
	assert.True(t, d.AcquireOnce(ctx, "other", "req-1"))
	assert.Equal(t, 24*time.Hour, rdb.keys["dedup:digest_test:req-1"])

	require.NoError(t, d.Release(ctx, "digest_test", "req-1"))
	assert.True(t, d.AcquireOnce(ctx, "digest_test", "req-1"))
}

func TestDeduper_RedisDownAllows(t *testing.T) {
	d := NewDeduper(&fakeRedis{keys: map[string]time.Duration{}, setErr: errors.New("dial tcp: refused")}, time.Hour, nil)
	assert.True(t, d.AcquireOnce(context.Background(), "digest_test", "req-1"))
	assert.True(t, d.AcquireOnce(context.Background(), "digest_test", "req-1"))
}
