package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	dbcontracts "nesto/contracts/db"
	"nesto/internal/event"
	"nesto/internal/model"
	"nesto/internal/patch"
	"nesto/internal/recurrence"
)

// maxWindowDays 限制一次展开的范围
const maxWindowDays = 366

// EventService 由 event.Service 实现
type EventService interface {
	Occurrences(ctx context.Context, householdID string, from, to time.Time) ([]event.Occurrence, error)
	Update(ctx context.Context, householdID, eventID string, p event.Patch) (model.Event, error)
}

type EventHandler struct {
	events EventService
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

func NewEventHandler(events EventService, loc *time.Location, logger *zap.Logger) *EventHandler {
	return &EventHandler{events: events, loc: loc, now: time.Now, logger: logger}
}

// ListOccurrences handles GET /api/households/:hid/occurrences?start=YYYY-MM-DD&end=YYYY-MM-DD
// 缺省为今天起 7 天
func (h *EventHandler) ListOccurrences(c *gin.Context) {
	today := recurrence.DateOf(h.now().In(h.loc))
	from, ok := h.dateQuery(c, "start", today)
	if !ok {
		return
	}
	to, ok := h.dateQuery(c, "end", from.AddDate(0, 0, 7))
	if !ok {
		return
	}
	if to.Sub(from) > maxWindowDays*24*time.Hour {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window too large"})
		return
	}

	occ, err := h.events.Occurrences(c.Request.Context(), c.Param("hid"), from, to)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	out := make([]dbcontracts.Occurrence, 0, len(occ))
	for _, o := range occ {
		out = append(out, dbcontracts.FromOccurrence(o.Event, o.Start, o.End))
	}
	c.JSON(http.StatusOK, gin.H{"occurrences": out})
}

// UpdateEvent handles PATCH /api/households/:hid/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	var body patch.Body
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	p, err := event.DecodePatch(body, h.loc)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	e, err := h.events.Update(c.Request.Context(), c.Param("hid"), c.Param("id"), p)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dbcontracts.FromEvent(e))
}

func (h *EventHandler) dateQuery(c *gin.Context, key string, def time.Time) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	d, err := time.ParseInLocation(patch.DateLayout, raw, h.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key + " date, want YYYY-MM-DD"})
		return time.Time{}, false
	}
	return d, true
}
