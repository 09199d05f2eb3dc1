package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Naveen-Pal/timetable-2024-25/config"
	"github.com/Naveen-Pal/timetable-2024-25/internal/api/handler"
	"github.com/Naveen-Pal/timetable-2024-25/internal/api/middleware"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/jwt"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/redis"
)

const (
	buildRateLimit  = 30
	importRateLimit = 10
	rateLimitWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时不做速率限制
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	var limiter middleware.RateLimiter
	if rdb != nil {
		limiter = rdb
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── 课表后端（远程课表源的线格式） ──
	timetable := r.Group("/api/timetable")
	{
		timetable.POST("", h.Timetable.Structured)
		timetable.POST("/text", h.Timetable.Text)
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 目录模块（无需会话）
		v1.GET("/courses", h.Catalog.ListCourses)
		v1.GET("/courses/:code", h.Catalog.GetCourse)
		v1.GET("/time-slots", h.TimeSlot.ListTimeSlots)
		v1.GET("/export/formats", h.Export.ListFormats)

		// 目录导入会整体替换目录，需管理员令牌
		catalog := v1.Group("/catalog")
		catalog.Use(middleware.AdminAuth(cfg.Auth.AdminToken))
		catalog.Use(middleware.RateLimit(limiter, importRateLimit, rateLimitWindow))
		{
			catalog.POST("/courses", h.Catalog.ImportCourses)
			catalog.POST("/time-slots", h.TimeSlot.ImportTimeSlots)
		}

		// 创建会话
		v1.POST("/sessions", h.Session.CreateSession)

		// 需要会话令牌的路由
		session := v1.Group("/session")
		session.Use(middleware.SessionAuth(jwtMgr))
		{
			session.GET("/selection", h.Session.GetSelection)
			session.POST("/selection/toggle", h.Session.ToggleCourse)
			session.DELETE("/selection/:code", h.Session.RemoveCourse)
			session.DELETE("/selection", h.Session.ClearSelection)

			session.POST("/build", middleware.RateLimit(limiter, buildRateLimit, rateLimitWindow), h.Session.Build)
			session.GET("/grid", h.Session.GetGrid)
			session.GET("/export/:format", h.Export.ExportGrid)
			session.GET("/notice", h.Session.GetNotice)
			session.DELETE("", h.Session.EndSession)
		}
	}

	return r
}
