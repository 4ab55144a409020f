package handler

import "course-signup/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Course       *CourseHandler
	Registration *RegistrationHandler
	Tag          *TagHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Course:       NewCourseHandler(svc.Course),
		Registration: NewRegistrationHandler(svc.Registration, svc.Notification),
		Tag:          NewTagHandler(svc.Tag),
		Export:       NewExportHandler(svc.Export),
	}
}
