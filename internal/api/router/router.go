package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"queue-dispatch/config"
	"queue-dispatch/internal/api/handler"
	"queue-dispatch/internal/api/middleware"
	"queue-dispatch/pkg/jwt"
	"queue-dispatch/pkg/metrics"
	"queue-dispatch/pkg/redis"
)

const (
	submitRateLimit = 30
	loginRateLimit  = 10
	rateLimitWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, rec *metrics.Recorder, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	if cfg.Server.MetricsEnabled {
		r.Use(middleware.Metrics(rec))
	}
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// Redis 不可用时限流降级放行；避免把 nil 指针装进接口
	var limiter middleware.RateLimiter
	if rdb != nil {
		limiter = rdb
	}

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok", "redis": rdb != nil}
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				status["status"] = "degraded"
				c.JSON(http.StatusServiceUnavailable, status)
				return
			}
		}
		c.JSON(http.StatusOK, status)
	})

	if cfg.Server.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 无需认证：登录、取号、查询叫号顺序
		v1.POST("/auth/login", middleware.RateLimit(limiter, loginRateLimit, rateLimitWindow), h.Auth.Login)
		v1.POST("/requests", middleware.RateLimit(limiter, submitRateLimit, rateLimitWindow), h.Queue.Submit)
		v1.GET("/requests/:id", h.Queue.GetRequest)
		v1.GET("/queue/order", h.Queue.OrderedView)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr))
		{
			authorized.GET("/auth/me", h.Auth.Me)

			// 请求操作
			requests := authorized.Group("/requests")
			{
				requests.GET("", h.Queue.ListHistory)
				requests.POST("/:id/skip", h.Queue.Skip)
				requests.POST("/:id/hold", h.Queue.Hold)
				requests.POST("/:id/resume", h.Queue.Resume)
				requests.POST("/:id/transfer", h.Queue.Transfer)
				requests.POST("/:id/complete", h.Queue.Complete)
				requests.POST("/:id/return", h.Queue.ReturnToWaiting)
			}

			// 服务点模块
			servicePoints := authorized.Group("/service-points")
			{
				servicePoints.GET("", h.ServicePoint.List)
				servicePoints.GET("/:id", h.ServicePoint.GetByID)
				servicePoints.POST("/:id/call-next", h.Queue.CallNext) // 操作员仅限所在服务点（Handler 层鉴权）
				servicePoints.POST("", middleware.RoleAuth(middleware.RoleAdmin), h.ServicePoint.Create)
				servicePoints.PUT("/:id", middleware.RoleAuth(middleware.RoleAdmin), h.ServicePoint.Update)
				servicePoints.PUT("/:id/capabilities", middleware.RoleAuth(middleware.RoleAdmin), h.ServicePoint.SetCapabilities)
			}

			// 请求类型模块
			requestTypes := authorized.Group("/request-types")
			{
				requestTypes.GET("", h.RequestType.List)
				requestTypes.POST("", middleware.RoleAuth(middleware.RoleAdmin), h.RequestType.Create)
				requestTypes.PUT("/:id", middleware.RoleAuth(middleware.RoleAdmin), h.RequestType.Update)
			}

			// 叫号配置
			authorized.GET("/queue-setting", h.QueueSetting.Get)
			authorized.PUT("/queue-setting", middleware.RoleAuth(middleware.RoleAdmin), h.QueueSetting.Update)

			// 分配模块
			assignments := authorized.Group("/assignments")
			{
				assignments.POST("/recalculate", middleware.RoleAuth(middleware.RoleAdmin), h.Assignment.Recalculate)
				assignments.POST("/refresh", h.Assignment.RequestRefresh)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/history", middleware.RoleAuth(middleware.RoleAdmin), h.Export.ExportHistory)
			}
		}
	}

	return r
}
