package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"course-signup/internal/dto"
	"course-signup/internal/service"
	apperrors "course-signup/pkg/errors"
	"course-signup/pkg/response"
)

// CourseHandler 课程模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// List 课程列表
// GET /api/courses
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courseSvc.List(c.Request.Context())
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, courses)
}

// Get 课程详情
// GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	id, ok := resourceID(c)
	if !ok {
		return
	}

	course, err := h.courseSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, course)
}

// Create 新建课程
// POST /api/courses
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CreateCourseRequest
	if !bindJSON(c, &req, 12001, "参数校验失败，name、teacher、cost 为必填项") {
		return
	}

	course, err := h.courseSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.Created(c, course)
}

// Update 更新课程
// PUT /api/courses/:id 或 PUT /api/courses?id=
func (h *CourseHandler) Update(c *gin.Context) {
	id, ok := resourceID(c)
	if !ok {
		return
	}

	var req dto.UpdateCourseRequest
	if !bindJSON(c, &req, 12001, "参数校验失败") {
		return
	}

	course, err := h.courseSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, course)
}

// Delete 删除课程
// DELETE /api/courses/:id 或 DELETE /api/courses?id=
func (h *CourseHandler) Delete(c *gin.Context) {
	id, ok := resourceID(c)
	if !ok {
		return
	}

	if err := h.courseSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, gin.H{"id": id})
}

func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	var fe *apperrors.FieldError
	switch {
	case errors.As(err, &fe):
		response.BadRequest(c, 12001, fe.Error())
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 12002, "课程不存在")
	case errors.Is(err, service.ErrCourseHasRegistrations):
		response.Conflict(c, 12003, "课程已有报名记录，无法删除")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
