package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"course-signup/config"
	"course-signup/internal/api/handler"
	"course-signup/internal/api/middleware"
	"course-signup/pkg/jwt"
	"course-signup/pkg/redis"
)

// 请求体上限，报名表单远小于此
const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时限流中间件直接放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	health := healthHandler(db)
	r.GET("/health", health)

	api := r.Group("/api")
	{
		api.GET("/health", health)

		// LINE 登录（无需认证）
		api.GET("/line/login", h.Auth.LineLogin)
		api.GET("/line-callback", h.Auth.LineCallback)

		// 课程（公开读取）
		api.GET("/courses", h.Course.List)
		api.GET("/courses/:id", h.Course.Get)

		// 需要认证的路由
		authorized := api.Group("")
		authorized.Use(middleware.TokenAuth(jwtMgr))
		{
			submitLimit := middleware.RateLimit(rdb, cfg.RateLimit.SubmitPerMinute, time.Minute, logger)
			authorized.POST("/registration/submit", submitLimit, h.Registration.Submit)
			authorized.GET("/registrations/me", h.Registration.Mine)

			// 管理员
			admin := authorized.Group("")
			admin.Use(middleware.AdminAuth(&cfg.Auth))
			{
				admin.POST("/courses", h.Course.Create)
				admin.PUT("/courses/:id", h.Course.Update)
				admin.PUT("/courses", h.Course.Update) // ?id=
				admin.DELETE("/courses/:id", h.Course.Delete)
				admin.DELETE("/courses", h.Course.Delete) // ?id=

				admin.GET("/registrations", h.Registration.List)
				admin.GET("/registrations/export", h.Export.ExportRegistrations)
				admin.POST("/registrations/redrive", h.Registration.Redrive)
				admin.GET("/registrations/:id", h.Registration.Get)
				admin.PUT("/registrations/:id/payment-status", h.Registration.UpdatePaymentStatus)
				admin.DELETE("/registrations/:id", h.Registration.Delete)

				admin.POST("/line/tag", h.Tag.Apply)
			}
		}
	}

	return r
}

// healthHandler 存活检查，db 不为 nil 时附带数据库连通性
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{"status": "ok", "time": time.Now().Format(time.RFC3339)}
		if db != nil {
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				status["status"] = "degraded"
				status["database"] = "unreachable"
				c.JSON(http.StatusServiceUnavailable, status)
				return
			}
			status["database"] = "ok"
		}
		c.JSON(http.StatusOK, status)
	}
}
