package handler

import (
	"github.com/gin-gonic/gin"

	"course-signup/internal/api/middleware"
	"course-signup/pkg/jwt"
	"course-signup/pkg/response"
)

// MustGetClaims 从 Gin 上下文中安全提取 Token 声明。
// TokenAuth 中间件未注入声明时返回 false 并写入 401 响应，调用方应直接 return。
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(middleware.ClaimsKey)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil || claims.LineUserID == "" {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

// resourceID 读取资源 ID，路径参数优先，其次 ?id=
func resourceID(c *gin.Context) (string, bool) {
	if id := c.Param("id"); id != "" {
		return id, true
	}
	if id := c.Query("id"); id != "" {
		return id, true
	}
	response.BadRequest(c, 10001, "缺少 id")
	return "", false
}

// bindJSON 绑定请求体，失败时写入响应并返回 false
// 超出 BodyLimit 的请求返回 413，其余绑定错误返回 400
func bindJSON(c *gin.Context, obj interface{}, code int, msg string) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	if middleware.IsBodyTooLarge(err) {
		middleware.RespondBodyTooLarge(c)
		return false
	}
	response.BadRequest(c, code, msg)
	return false
}
