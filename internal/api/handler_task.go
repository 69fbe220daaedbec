package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	dbcontracts "nesto/contracts/db"
	"nesto/internal/model"
	"nesto/internal/patch"
	"nesto/internal/task"
)

// TaskService 由 task.Service 实现
type TaskService interface {
	Update(ctx context.Context, householdID, taskID string, p task.Patch) (model.Task, error)
	Complete(ctx context.Context, householdID, taskID string) (model.Task, error)
}

type TaskHandler struct {
	tasks  TaskService
	loc    *time.Location
	logger *zap.Logger
}

func NewTaskHandler(tasks TaskService, loc *time.Location, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, loc: loc, logger: logger}
}

// UpdateTask handles PATCH /api/households/:hid/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var body patch.Body
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	p, err := task.DecodePatch(body, h.loc)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	t, err := h.tasks.Update(c.Request.Context(), c.Param("hid"), c.Param("id"), p)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dbcontracts.FromTask(t))
}

// CompleteTask handles POST /api/households/:hid/tasks/:id/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	t, err := h.tasks.Complete(c.Request.Context(), c.Param("hid"), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dbcontracts.FromTask(t))
}
