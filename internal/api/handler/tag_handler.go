package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"course-signup/internal/dto"
	"course-signup/internal/service"
	apperrors "course-signup/pkg/errors"
	"course-signup/pkg/response"
)

// TagHandler LINE 标签 HTTP 处理器
type TagHandler struct {
	tagSvc service.TagService
}

// NewTagHandler 创建 TagHandler
func NewTagHandler(tagSvc service.TagService) *TagHandler {
	return &TagHandler{tagSvc: tagSvc}
}

// Apply 手动打标签
// POST /api/line/tag
func (h *TagHandler) Apply(c *gin.Context) {
	var req dto.ApplyTagRequest
	if !bindJSON(c, &req, 14001, "line_user_id 与 tag_name 为必填项") {
		return
	}

	if err := h.tagSvc.Apply(c.Request.Context(), &req); err != nil {
		var fe *apperrors.FieldError
		switch {
		case errors.As(err, &fe):
			response.BadRequest(c, 14001, fe.Error())
		case errors.Is(err, service.ErrRegistrationNotFound):
			response.NotFound(c, 14002, "报名记录不存在")
		default:
			_ = c.Error(err)
			response.InternalError(c)
		}
		return
	}

	response.OK(c, gin.H{"line_user_id": req.LineUserID, "tag_name": req.TagName})
}
