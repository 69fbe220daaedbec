package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nesto/pkg/rbac"
)

// Pinger 用于 /readyz，*pgxpool.Pool 满足该接口
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	JWTIssuer         string
	JWTSecret         string
	TestDigestPerHour int
	TestDigestBurst   int
}

type Handlers struct {
	Tasks   *TaskHandler
	Events  *EventHandler
	Digest  *DigestHandler
	Admin   *AdminHandler
	Members MembershipChecker
	DB      Pinger
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(cfg RouterConfig, h Handlers, logger *zap.Logger) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), RequestLogger(logger))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := h.DB.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/api")
	auth.Use(AuthMiddleware(cfg.JWTIssuer, cfg.JWTSecret))
	{
		hh := auth.Group("/households/:hid")
		hh.Use(RequireMember(h.Members, "hid", logger))
		hh.GET("/occurrences", RequirePermission(rbac.PermissionReadHousehold), h.Events.ListOccurrences)
		hh.PATCH("/events/:id", RequirePermission(rbac.PermissionUpdateTask), h.Events.UpdateEvent)
		hh.PATCH("/tasks/:id", RequirePermission(rbac.PermissionUpdateTask), h.Tasks.UpdateTask)
		hh.POST("/tasks/:id/complete", RequirePermission(rbac.PermissionUpdateTask), h.Tasks.CompleteTask)

		auth.POST("/digest/test",
			RequirePermission(rbac.PermissionSendTestMail),
			RateLimitPerUser(cfg.TestDigestPerHour, cfg.TestDigestBurst),
			h.Digest.RequestTestDigest,
		)

		admin := auth.Group("/admin")
		admin.Use(RequirePermission(rbac.PermissionReplayOutbox))
		admin.POST("/outbox/:id/replay", h.Admin.ReplayOutboxEvent)
		admin.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
	}

	return &Router{Engine: r}
}
