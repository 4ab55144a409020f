package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"course-signup/internal/dto"
	"course-signup/internal/model"
	"course-signup/internal/repository"
	apperrors "course-signup/pkg/errors"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound         = errors.New("课程不存在")
	ErrCourseHasRegistrations = repository.ErrCourseHasRegistrations
)

// CourseService 课程业务接口
type CourseService interface {
	List(ctx context.Context) ([]dto.CourseResponse, error)
	Get(ctx context.Context, id string) (*dto.CourseResponse, error)
	Create(ctx context.Context, req *dto.CreateCourseRequest) (*dto.CourseResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error)
	Delete(ctx context.Context, id string) error
}

type courseService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, logger: logger}
}

func (s *courseService) List(ctx context.Context) ([]dto.CourseResponse, error) {
	courses, err := s.repo.Course.List(ctx)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.Error(err))
		return nil, err
	}
	list := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		list = append(list, toCourseResponse(&courses[i]))
	}
	return list, nil
}

func (s *courseService) Get(ctx context.Context, id string) (*dto.CourseResponse, error) {
	course, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *courseService) Create(ctx context.Context, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	course := &model.Course{
		Name:        strings.TrimSpace(req.Name),
		Teacher:     strings.TrimSpace(req.Teacher),
		Schedule:    req.Schedule,
		Location:    req.Location,
		Capacity:    req.Capacity.Int(),
		Description: req.Description,
	}
	if req.Cost != nil {
		course.Cost = req.Cost.Int()
	}
	if course.Name == "" {
		return nil, apperrors.NewFieldError("name", "不能为空")
	}
	if course.Teacher == "" {
		return nil, apperrors.NewFieldError("teacher", "不能为空")
	}
	if err := validateCourseNumbers(course); err != nil {
		return nil, err
	}
	course.ComputeIsFull()

	if err := s.repo.Course.Create(ctx, course); err != nil {
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("课程已创建", zap.String("course_id", course.ID), zap.String("name", course.Name))
	resp := toCourseResponse(course)
	return &resp, nil
}

// Update 只写入请求中出现的字段
// 报名人数由 AdjustEnrollment 原子维护，未显式给出 current_enrolled 时不会回写旧值
func (s *courseService) Update(ctx context.Context, id string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	if !validID(ctx, id) {
		return nil, ErrCourseNotFound
	}

	columns := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.NewFieldError("name", "不能为空")
		}
		columns["name"] = name
	}
	if req.Teacher != nil {
		columns["teacher"] = strings.TrimSpace(*req.Teacher)
	}
	if req.Schedule != nil {
		columns["schedule"] = *req.Schedule
	}
	if req.Location != nil {
		columns["location"] = *req.Location
	}
	if req.Description != nil {
		columns["description"] = *req.Description
	}
	for _, n := range []struct {
		field string
		v     *dto.FlexInt
	}{
		{"cost", req.Cost},
		{"capacity", req.Capacity},
		{"current_enrolled", req.CurrentEnrolled},
	} {
		if n.v == nil {
			continue
		}
		if err := checkCount(n.field, n.v.Int()); err != nil {
			return nil, err
		}
		columns[n.field] = n.v.Int()
	}

	course, err := s.repo.Course.UpdateColumns(ctx, id, columns)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("更新课程失败", zap.String("course_id", id), zap.Error(err))
		return nil, err
	}

	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *courseService) Delete(ctx context.Context, id string) error {
	if !validID(ctx, id) {
		return ErrCourseNotFound
	}
	if err := s.repo.Course.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		if errors.Is(err, repository.ErrCourseHasRegistrations) {
			return ErrCourseHasRegistrations
		}
		s.logger.Error("删除课程失败", zap.String("course_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("课程已删除", zap.String("course_id", id))
	return nil
}

func (s *courseService) find(ctx context.Context, id string) (*model.Course, error) {
	if !validID(ctx, id) {
		return nil, ErrCourseNotFound
	}
	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", id), zap.Error(err))
		return nil, err
	}
	return course, nil
}

func validateCourseNumbers(c *model.Course) error {
	if err := checkCount("cost", c.Cost); err != nil {
		return err
	}
	if err := checkCount("capacity", c.Capacity); err != nil {
		return err
	}
	return checkCount("current_enrolled", c.CurrentEnrolled)
}

// checkCount 数值列均为 INTEGER
func checkCount(field string, v int) error {
	switch {
	case v < 0:
		return apperrors.NewFieldError(field, "不能小于 0")
	case v > math.MaxInt32:
		return apperrors.NewFieldError(field, "超出范围")
	}
	return nil
}

func toCourseResponse(c *model.Course) dto.CourseResponse {
	return dto.CourseResponse{
		ID:              c.ID,
		Name:            c.Name,
		Teacher:         c.Teacher,
		Schedule:        c.Schedule,
		Location:        c.Location,
		Cost:            c.Cost,
		Capacity:        c.Capacity,
		CurrentEnrolled: c.CurrentEnrolled,
		IsFull:          c.IsFull,
		Description:     c.Description,
		CreatedAt:       c.CreatedAt.Format(timeLayout),
		UpdatedAt:       c.UpdatedAt.Format(timeLayout),
	}
}
