package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nesto/internal/model"
)

// boundaryTTL keeps a marker past the end of its day in any location.
const boundaryTTL = 48 * time.Hour

// BoundaryGuard records that a boundary fired outside the process, so a
// restart inside the boundary minute does not send twice.
type BoundaryGuard interface {
	// Acquire returns true the first time it is called for period and day.
	Acquire(ctx context.Context, period model.DigestPeriod, day time.Time) (bool, error)
}

type RedisBoundaryGuard struct {
	rdb redis.Cmdable
}

func NewRedisBoundaryGuard(rdb redis.Cmdable) *RedisBoundaryGuard {
	return &RedisBoundaryGuard{rdb: rdb}
}

func (g *RedisBoundaryGuard) Acquire(ctx context.Context, period model.DigestPeriod, day time.Time) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, BoundaryKey(period, day), time.Now().Unix(), boundaryTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire digest boundary: %w", err)
	}
	return ok, nil
}

func BoundaryKey(period model.DigestPeriod, day time.Time) string {
	return fmt.Sprintf("digest:%s:%s", period, day.Format("2006-01-02"))
}
