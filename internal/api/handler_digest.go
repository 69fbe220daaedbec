package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "nesto/contracts/mq"
	"nesto/internal/model"
	"nesto/pkg/logger"
)

// EventPublisher 由 mq.Publisher 实现
type EventPublisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

type DigestHandler struct {
	publisher EventPublisher
	now       func() time.Time
	logger    *zap.Logger
}

func NewDigestHandler(publisher EventPublisher, logger *zap.Logger) *DigestHandler {
	return &DigestHandler{publisher: publisher, now: time.Now, logger: logger}
}

// RequestTestDigest handles POST /api/digest/test
// 请求进入队列后由 worker 发送，接口立即返回 202
func (h *DigestHandler) RequestTestDigest(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req struct {
		Period string `json:"period"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	period := model.DigestPeriod(req.Period)
	if period == "" {
		period = model.PeriodDaily
	}
	if !period.Valid() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "period must be daily or weekly"})
		return
	}

	payload := mqcontracts.DigestTestRequestedPayload{
		RequestID:   uuid.NewString(),
		UserID:      userID,
		Period:      string(period),
		RequestedAt: h.now(),
	}
	ctx := c.Request.Context()
	if err := h.publisher.PublishWithContext(ctx, mqcontracts.RoutingDigestTestRequested, payload); err != nil {
		logger.WithTrace(ctx, h.logger).Error("failed to publish test digest request",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to queue test digest"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"request_id": payload.RequestID,
		"period":     payload.Period,
		"status":     "queued",
	})
}
