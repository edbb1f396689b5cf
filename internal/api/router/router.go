package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"turnero-padel/backend/config"
	"turnero-padel/backend/internal/api/handler"
	"turnero-padel/backend/internal/api/middleware"
	"turnero-padel/backend/internal/service"
	"turnero-padel/backend/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不启用限流（未配置 Redis）
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	resolver service.TenantResolver,
	limiter middleware.RateLimiter,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", h.Health.Health)

	rateLimit := middleware.RateLimit(limiter, cfg.Server.RateLimit, cfg.Server.RateLimitWindow, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 公开查询：租户可选，携带 Token 时按角色返回
		public := v1.Group("")
		public.Use(middleware.OptionalJWTAuth(jwtMgr), middleware.Tenant(resolver, false), rateLimit)
		{
			public.GET("/courts/:id/availability", h.Availability.GetAvailability)
			public.GET("/courts/:id/slots", h.Availability.GetOpenSlots)
		}

		// 事件流：租户可选，超级管理员可不带租户订阅全部
		stream := v1.Group("")
		stream.Use(middleware.JWTAuth(jwtMgr), middleware.Tenant(resolver, false))
		{
			stream.GET("/events", h.Events.Stream)
		}

		// 需要认证且必须指定租户的路由
		tenant := v1.Group("")
		tenant.Use(middleware.JWTAuth(jwtMgr), middleware.Tenant(resolver, true), rateLimit)
		{
			// 预订模块
			bookings := tenant.Group("/bookings")
			{
				bookings.POST("", h.Booking.CreateBooking)
				bookings.GET("/:id", h.Booking.GetBooking)
				bookings.PUT("/:id/reschedule", h.Booking.RescheduleBooking)
				bookings.POST("/:id/confirm", h.Booking.ConfirmBooking) // 租户管理员（Service 层鉴权）
				bookings.POST("/:id/cancel", h.Booking.CancelBooking)   // 本人或租户管理员
			}

			// 营业设置
			tenant.GET("/settings", h.Settings.GetSettings)
			tenant.PUT("/settings", h.Settings.UpdateSetting)

			// 场地日历
			tenant.GET("/courts/:id/calendar.ics", h.Export.CourtCalendar)

			// 导出模块
			tenant.GET("/admin/export/bookings.xlsx", h.Export.ExportBookings)
		}

		// 后台任务：scope=all 时不需要租户
		jobs := v1.Group("/admin/jobs")
		jobs.Use(middleware.JWTAuth(jwtMgr), middleware.Tenant(resolver, false))
		{
			jobs.POST("/generate", h.Jobs.Generate)
			jobs.POST("/expire", h.Jobs.Expire)
			jobs.GET("/expired-stats", h.Jobs.ExpiredStats)
		}
	}

	return r
}
