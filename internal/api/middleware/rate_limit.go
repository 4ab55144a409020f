package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"course-signup/pkg/redis"
	"course-signup/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// 已登录请求按 LINE 用户计数，否则按客户端 IP
// rdb 为 nil 或 limit <= 0 时放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := c.ClientIP()
		if v, ok := c.Get("line_user_id"); ok {
			if id, _ := v.(string); id != "" {
				subject = id
			}
		}

		key := fmt.Sprintf("rate_limit:%s:%s", c.FullPath(), subject)
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis 出错时降级放行
			logger.Warn("限流检查失败，放行", zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
