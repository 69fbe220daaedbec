package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nesto/internal/digest"
	"nesto/internal/event"
	"nesto/internal/patch"
	"nesto/internal/recurrence"
	"nesto/internal/repository"
	"nesto/internal/task"
	"nesto/pkg/logger"
	"nesto/pkg/outbox"
)

var validationErrors = []error{
	patch.ErrNullField,
	patch.ErrInvalidField,
	recurrence.ErrUnknownKind,
	recurrence.ErrInvalidInterval,
	task.ErrEmptyTitle,
	task.ErrInvalidStatus,
	task.ErrInvalidPriority,
	event.ErrEmptyTitle,
	event.ErrInvalidTimeRange,
	event.ErrInvalidWindow,
	digest.ErrUnknownPeriod,
}

// writeError 将领域错误映射为 HTTP 状态码；未知错误只记录日志，不回传细节
func writeError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, outbox.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	case errors.Is(err, patch.ErrAssigneeNotMember):
		c.JSON(http.StatusBadRequest, gin.H{"error": patch.ErrAssigneeNotMember.Error()})
		return
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
	}
	logger.WithTrace(c.Request.Context(), log).Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
