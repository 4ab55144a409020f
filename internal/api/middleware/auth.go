package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"course-signup/config"
	"course-signup/pkg/jwt"
	"course-signup/pkg/response"
)

// ClaimsKey gin.Context 中保存 Token 声明的键
const ClaimsKey = "claims"

// TokenAuth Bearer Token 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Token，声明写入上下文
func TokenAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			msg := "Token 无效"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token 已过期，请重新登录"
			}
			response.Unauthorized(c, 10002, msg)
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set("user_id", claims.ID)
		c.Set("line_user_id", claims.LineUserID)

		c.Next()
	}
}

// AdminAuth 管理员权限中间件，需在 TokenAuth 之后使用
// 管理员名单来自 auth.admin_line_user_ids
func AdminAuth(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(ClaimsKey)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		claims, ok := v.(*jwt.Claims)
		if !ok || !cfg.IsAdmin(claims.LineUserID) {
			response.Forbidden(c, 10003, "无权限访问")
			c.Abort()
			return
		}

		c.Next()
	}
}
