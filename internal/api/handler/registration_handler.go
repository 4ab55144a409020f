package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"course-signup/internal/api/middleware"
	"course-signup/internal/dto"
	"course-signup/internal/service"
	apperrors "course-signup/pkg/errors"
	"course-signup/pkg/response"
)

// RegistrationHandler 报名模块 HTTP 处理器
type RegistrationHandler struct {
	registrationSvc service.RegistrationService
	notificationSvc service.NotificationService
}

// NewRegistrationHandler 创建 RegistrationHandler
func NewRegistrationHandler(registrationSvc service.RegistrationService, notificationSvc service.NotificationService) *RegistrationHandler {
	return &RegistrationHandler{registrationSvc: registrationSvc, notificationSvc: notificationSvc}
}

// Submit 提交报名
// POST /api/registration/submit
// 推送失败不影响结果：报名写入成功即返回 201
func (h *RegistrationHandler) Submit(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}

	var req dto.SubmitRegistrationRequest
	if !bindJSON(c, &req, 13001, "参数校验失败") {
		return
	}

	result, err := h.registrationSvc.Submit(c.Request.Context(), claims, &req)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.Created(c, result)
}

// Mine 我的报名记录
// GET /api/registrations/me
func (h *RegistrationHandler) Mine(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}

	list, err := h.registrationSvc.ListMine(c.Request.Context(), claims)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// List 报名列表（管理员）
// GET /api/registrations?limit=&page=&sort=&course_id=
func (h *RegistrationHandler) List(c *gin.Context) {
	var req dto.ListRegistrationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.registrationSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 报名详情，含推送记录
// GET /api/registrations/:id
func (h *RegistrationHandler) Get(c *gin.Context) {
	id, ok := resourceID(c)
	if !ok {
		return
	}

	detail, err := h.registrationSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, detail)
}

// UpdatePaymentStatus 更新缴费状态
// PUT /api/registrations/:id/payment-status
func (h *RegistrationHandler) UpdatePaymentStatus(c *gin.Context) {
	id, ok := resourceID(c)
	if !ok {
		return
	}

	var req dto.UpdatePaymentStatusRequest
	if !bindJSON(c, &req, 13001, "payment_status 只能是 unpaid、paid 或 confirmed") {
		return
	}

	if err := h.registrationSvc.UpdatePaymentStatus(c.Request.Context(), id, req.PaymentStatus); err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, gin.H{"id": id, "payment_status": req.PaymentStatus})
}

// Delete 删除报名，课程人数同步减一
// DELETE /api/registrations/:id
func (h *RegistrationHandler) Delete(c *gin.Context) {
	id, ok := resourceID(c)
	if !ok {
		return
	}

	if err := h.registrationSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, gin.H{"id": id})
}

// Redrive 重新投递推送失败的通知
// POST /api/registrations/redrive，请求体可省略
func (h *RegistrationHandler) Redrive(c *gin.Context) {
	var req dto.RedriveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		if middleware.IsBodyTooLarge(err) {
			middleware.RespondBodyTooLarge(c)
			return
		}
		response.BadRequest(c, 13001, "limit 必须在 1-1000 之间")
		return
	}

	result, err := h.notificationSvc.Redrive(c.Request.Context(), req.Limit)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *RegistrationHandler) handleRegistrationError(c *gin.Context, err error) {
	var fe *apperrors.FieldError
	switch {
	case errors.As(err, &fe):
		response.BadRequest(c, 13001, fe.Error())
	case errors.Is(err, apperrors.ErrUnauthorized):
		response.Unauthorized(c, 10002, "未认证")
	case errors.Is(err, service.ErrCourseFull):
		response.Conflict(c, 13002, "课程名额已满")
	case errors.Is(err, service.ErrRegistrationNotFound):
		response.NotFound(c, 13003, "报名记录不存在")
	case errors.Is(err, service.ErrInvalidPaymentStatus):
		response.BadRequest(c, 13004, "无效的缴费状态")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
