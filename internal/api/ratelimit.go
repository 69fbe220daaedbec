package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// rateLimiter 每个用户一个令牌桶，长时间不活跃的用户由 LRU 过期淘汰
type rateLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

func newRateLimiter(perHour, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](10000, nil, time.Hour),
		rate:     rate.Limit(float64(perHour) / 3600.0),
		burst:    burst,
	}
}

func (rl *rateLimiter) Allow(key string) bool {
	limiter, ok := rl.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters.Add(key, limiter)
	}
	return limiter.Allow()
}

// RateLimitPerUser 超出限额返回 429；需在 AuthMiddleware 之后使用
func RateLimitPerUser(perHour, burst int) gin.HandlerFunc {
	rl := newRateLimiter(perHour, burst)
	return func(c *gin.Context) {
		userID, _ := userIDFrom(c)
		if !rl.Allow(userID) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
