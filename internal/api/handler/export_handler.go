package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"course-signup/internal/service"
	apperrors "course-signup/pkg/errors"
	"course-signup/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportRegistrations 导出报名记录
// GET /api/registrations/export?course_id=xxx（course_id 可选）
func (h *ExportHandler) ExportRegistrations(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportRegistrations(c.Request.Context(), c.Query("course_id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	var fe *apperrors.FieldError
	switch {
	case errors.As(err, &fe):
		response.BadRequest(c, 10001, fe.Error())
	case errors.Is(err, service.ErrExportNoRecords):
		response.NotFound(c, 15001, "暂无报名记录")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
