package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"course-signup/internal/dto"
	"course-signup/internal/service"
	"course-signup/pkg/response"
)

// AuthHandler LINE 登录 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// LineLogin 跳转到 LINE 授权页
// GET /api/line/login
func (h *AuthHandler) LineLogin(c *gin.Context) {
	loginURL, err := h.authSvc.LoginURL(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	c.Redirect(http.StatusFound, loginURL)
}

// LineCallback LINE 授权回调
// GET /api/line-callback?code=&state=
// 成功与失败都重定向回前端，结果通过查询参数传递
func (h *AuthHandler) LineCallback(c *gin.Context) {
	var q dto.LineCallbackQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.HandleCallback(c.Request.Context(), &q)
	if err != nil {
		_ = c.Error(err)
	}
	c.Redirect(http.StatusFound, h.authSvc.RedirectURL(result, err))
}
