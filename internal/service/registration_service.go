package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"course-signup/internal/dto"
	"course-signup/internal/model"
	"course-signup/internal/repository"
	"course-signup/internal/worker"
	apperrors "course-signup/pkg/errors"
	"course-signup/pkg/jwt"
	"course-signup/pkg/validator"
)

// ── 报名模块业务错误 ──

var (
	ErrCourseFull           = errors.New("课程名额已满")
	ErrRegistrationNotFound = errors.New("报名记录不存在")
	ErrInvalidPaymentStatus = errors.New("无效的缴费状态")
)

// RegistrationService 报名业务接口
type RegistrationService interface {
	// Submit 提交报名：校验 → 读取课程 → 写入 → 人数 +1 → 投递后台通知
	Submit(ctx context.Context, claims *jwt.Claims, req *dto.SubmitRegistrationRequest) (*dto.SubmitRegistrationResponse, error)
	List(ctx context.Context, req *dto.ListRegistrationsRequest) ([]dto.RegistrationResponse, int64, error)
	ListMine(ctx context.Context, claims *jwt.Claims) ([]dto.RegistrationResponse, error)
	Get(ctx context.Context, id string) (*dto.RegistrationDetailResponse, error)
	UpdatePaymentStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

type registrationService struct {
	repo       *repository.Repository
	dispatcher worker.Dispatcher
	logger     *zap.Logger
}

// NewRegistrationService 创建 RegistrationService 实例
func NewRegistrationService(repo *repository.Repository, dispatcher worker.Dispatcher, logger *zap.Logger) RegistrationService {
	return &registrationService{repo: repo, dispatcher: dispatcher, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// Submit
// ═══════════════════════════════════════════════════════════

func (s *registrationService) Submit(ctx context.Context, claims *jwt.Claims, req *dto.SubmitRegistrationRequest) (*dto.SubmitRegistrationResponse, error) {
	if claims == nil || claims.LineUserID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	// 1. 校验（任何存储访问之前）
	normalizeSubmission(req)
	if err := validateSubmission(ctx, req); err != nil {
		return nil, err
	}

	// 2. 读取课程，课程信息以库中为准
	course, err := s.repo.Course.GetByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewFieldError("course_id", "课程不存在")
		}
		s.logger.Error("查询课程失败", zap.String("course_id", req.CourseID), zap.Error(err))
		return nil, err
	}
	if course.IsFull {
		return nil, ErrCourseFull
	}

	// 3. 写入报名记录
	reg := &model.Registration{
		LineUserID:          claims.LineUserID,
		CourseID:            course.ID,
		CourseName:          course.Name,
		Name:                req.Name,
		Gender:              req.Gender,
		AgeRange:            req.AgeRange,
		Mobile:              req.Mobile,
		EmergencyContact:    req.EmergencyContact,
		EmergencyPhone:      req.EmergencyPhone,
		Religion:            req.Religion,
		PaymentMethod:       req.PaymentMethod,
		AccountLast5:        req.AccountLast5,
		Notes:               req.Notes,
		PaymentStatus:       model.PaymentStatusUnpaid,
		IsProxyRegistration: req.IsProxyRegistration,
		LineNotified:        false,
		LineTagged:          false,
		LineTagName:         model.RegistrationTagName(course.Name),
	}
	if claims.ID != "" {
		userID := claims.ID
		reg.UserID = &userID
	}

	if err := s.repo.Registration.Create(ctx, reg); err != nil {
		s.logger.Error("写入报名记录失败", zap.Error(err))
		return nil, err
	}

	// 4. 人数 +1，失败只记录日志，不回滚报名
	updated, err := s.repo.Course.AdjustEnrollment(ctx, course.ID, 1)
	if err != nil {
		s.logger.Error("更新课程人数失败",
			zap.String("course_id", course.ID),
			zap.String("registration_id", reg.ID),
			zap.Error(err),
		)
	} else if updated.IsFull {
		s.logger.Info("课程已满额", zap.String("course_id", course.ID), zap.Int("enrolled", updated.CurrentEnrolled))
	}

	// 5. 投递后台通知，失败记录在报名记录上，不影响响应
	s.enqueue(ctx, reg.ID)

	s.logger.Info("报名成功",
		zap.String("registration_id", reg.ID),
		zap.String("course_id", course.ID),
		zap.String("line_user_id", claims.LineUserID),
	)

	return &dto.SubmitRegistrationResponse{
		ID:         reg.ID,
		CourseName: reg.CourseName,
		CreatedAt:  reg.CreatedAt.Format(timeLayout),
	}, nil
}

func (s *registrationService) enqueue(ctx context.Context, registrationID string) {
	if s.dispatcher == nil {
		return
	}
	// 投递不受请求取消影响
	err := s.dispatcher.Submit(context.WithoutCancel(ctx), worker.Task{RegistrationID: registrationID})
	if err == nil {
		return
	}

	s.logger.Warn("投递通知任务失败", zap.String("registration_id", registrationID), zap.Error(err))
	if uerr := s.repo.Registration.UpdateNotificationStatus(context.WithoutCancel(ctx), registrationID, false, err.Error()); uerr != nil {
		s.logger.Error("记录通知失败状态失败", zap.String("registration_id", registrationID), zap.Error(uerr))
	}
}

func normalizeSubmission(req *dto.SubmitRegistrationRequest) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	req.Name = strings.TrimSpace(req.Name)
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.AccountLast5 = strings.TrimSpace(req.AccountLast5)
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	if req.PaymentMethod == "" {
		req.PaymentMethod = model.PaymentMethodOnSite
	}
}

func validateSubmission(ctx context.Context, req *dto.SubmitRegistrationRequest) error {
	if err := validator.Struct(ctx, req); err != nil {
		return err
	}
	if req.PaymentMethod == model.PaymentMethodBankTransfer {
		if err := validator.Var(ctx, "account_last5", req.AccountLast5, "digits5"); err != nil {
			return err
		}
	}
	return nil
}

// ═══════════════════════════════════════════════════════════
// 查询与管理
// ═══════════════════════════════════════════════════════════

func (s *registrationService) List(ctx context.Context, req *dto.ListRegistrationsRequest) ([]dto.RegistrationResponse, int64, error) {
	if err := checkCourseFilter(ctx, req.CourseID); err != nil {
		return nil, 0, err
	}
	regs, total, err := s.repo.Registration.List(ctx, repository.RegistrationFilter{
		CourseID: req.CourseID,
		Sort:     req.Sort,
		Offset:   req.GetOffset(),
		Limit:    req.GetPageSize(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSort) {
			return nil, 0, apperrors.NewFieldError("sort", "不支持的排序字段")
		}
		s.logger.Error("查询报名列表失败", zap.Error(err))
		return nil, 0, err
	}
	return toRegistrationResponses(regs), total, nil
}

func (s *registrationService) ListMine(ctx context.Context, claims *jwt.Claims) ([]dto.RegistrationResponse, error) {
	if claims == nil || claims.ID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	regs, err := s.repo.Registration.ListByUser(ctx, claims.ID)
	if err != nil {
		s.logger.Error("查询我的报名失败", zap.Error(err))
		return nil, err
	}
	return toRegistrationResponses(regs), nil
}

func (s *registrationService) Get(ctx context.Context, id string) (*dto.RegistrationDetailResponse, error) {
	if !validID(ctx, id) {
		return nil, ErrRegistrationNotFound
	}
	reg, err := s.repo.Registration.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}

	attempts, err := s.repo.NotificationAttempt.ListByRegistration(ctx, id)
	if err != nil {
		s.logger.Warn("查询推送记录失败", zap.String("registration_id", id), zap.Error(err))
	}

	detail := &dto.RegistrationDetailResponse{
		RegistrationResponse: toRegistrationResponse(reg),
		Attempts:             make([]dto.NotificationAttemptResponse, 0, len(attempts)),
	}
	for _, a := range attempts {
		detail.Attempts = append(detail.Attempts, dto.NotificationAttemptResponse{
			ID:        a.ID,
			Success:   a.Success,
			Error:     a.Error,
			CreatedAt: a.CreatedAt.Format(timeLayout),
		})
	}
	return detail, nil
}

func (s *registrationService) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	switch status {
	case model.PaymentStatusUnpaid, model.PaymentStatusPaid, model.PaymentStatusConfirmed:
	default:
		return ErrInvalidPaymentStatus
	}
	if !validID(ctx, id) {
		return ErrRegistrationNotFound
	}
	if err := s.repo.Registration.UpdatePaymentStatus(ctx, id, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRegistrationNotFound
		}
		return err
	}
	s.logger.Info("缴费状态已更新", zap.String("registration_id", id), zap.String("status", status))
	return nil
}

func (s *registrationService) Delete(ctx context.Context, id string) error {
	if !validID(ctx, id) {
		return ErrRegistrationNotFound
	}
	if err := s.repo.Registration.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRegistrationNotFound
		}
		s.logger.Error("删除报名失败", zap.String("registration_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("报名已删除", zap.String("registration_id", id))
	return nil
}

// ── 转换 ──

func toRegistrationResponse(r *model.Registration) dto.RegistrationResponse {
	resp := dto.RegistrationResponse{
		ID:                  r.ID,
		LineUserID:          r.LineUserID,
		CourseID:            r.CourseID,
		CourseName:          r.CourseName,
		Name:                r.Name,
		Gender:              r.Gender,
		AgeRange:            r.AgeRange,
		Mobile:              r.Mobile,
		EmergencyContact:    r.EmergencyContact,
		EmergencyPhone:      r.EmergencyPhone,
		Religion:            r.Religion,
		PaymentMethod:       r.PaymentMethod,
		AccountLast5:        r.AccountLast5,
		Notes:               r.Notes,
		PaymentStatus:       r.PaymentStatus,
		IsProxyRegistration: r.IsProxyRegistration,
		LineNotified:        r.LineNotified,
		LineNotifyError:     r.LineNotifyError,
		LineTagged:          r.LineTagged,
		LineTagName:         r.LineTagName,
		CreatedAt:           r.CreatedAt.Format(timeLayout),
	}
	if r.UserID != nil {
		resp.UserID = *r.UserID
	}
	return resp
}

func toRegistrationResponses(regs []model.Registration) []dto.RegistrationResponse {
	list := make([]dto.RegistrationResponse, 0, len(regs))
	for i := range regs {
		list = append(list, toRegistrationResponse(&regs[i]))
	}
	return list
}
