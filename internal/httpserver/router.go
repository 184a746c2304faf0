package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"contractorvet/internal/handler"
	"contractorvet/pkg/rbac"
)

// ReadinessCheck 一个依赖的就绪探测；Name 用于拼出 "<name>_not_ready"
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handlers struct {
	Dashboard    *handler.DashboardHandler
	Activity     *handler.ActivityHandler
	Referral     *handler.ReferralHandler
	Project      *handler.ProjectHandler
	Review       *handler.ReviewHandler
	Notification *handler.NotificationHandler
}

type Options struct {
	JWTSecret   string
	AllowOrigin string
	ServiceName string
	Readiness   []ReadinessCheck
}

func NewRouter(h Handlers, opts Options, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(TraceMiddleware())
	r.Use(RequestLogger(logger))
	r.Use(CORSMiddleware(opts.AllowOrigin))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", readyz(opts.Readiness))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 预检请求由 CORSMiddleware 处理，这里只需要让路由命中
	r.OPTIONS("/*path", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	authed := AuthMiddleware(opts.JWTSecret)

	fn := r.Group("/functions/v1")
	fn.Use(authed)
	{
		fn.POST("/dashboard-data", RequirePermission(rbac.PermissionReadDashboard), h.Dashboard.GetDashboard)
		fn.POST("/track-activity", RequirePermission(rbac.PermissionTrackActivity), h.Activity.TrackActivity)
		// 按 action 在 handler 里分别鉴权
		fn.POST("/referral-system", h.Referral.Handle)
	}

	api := r.Group("/api")
	api.Use(authed)
	{
		writeProject := RequirePermission(rbac.PermissionWriteProject)
		api.POST("/projects", writeProject, h.Project.CreateProject)
		api.PATCH("/projects/:id", writeProject, h.Project.UpdateProject)
		api.DELETE("/projects/:id", writeProject, h.Project.DeleteProject)
		api.POST("/projects/:id/milestones", writeProject, h.Project.AddMilestone)
		api.PATCH("/milestones/:id", writeProject, h.Project.UpdateMilestone)

		api.POST("/reviews", RequirePermission(rbac.PermissionWriteReview), h.Review.CreateReview)

		readDashboard := RequirePermission(rbac.PermissionReadDashboard)
		api.GET("/notifications", readDashboard, h.Notification.ListUnread)
		api.POST("/notifications/:id/read", readDashboard, h.Notification.MarkRead)
	}

	return r
}

func readyz(checks []ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for _, chk := range checks {
			if err := chk.Check(ctx); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"status": chk.Name + "_not_ready", "error": err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
