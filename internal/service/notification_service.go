package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"course-signup/config"
	"course-signup/internal/dto"
	"course-signup/internal/model"
	"course-signup/internal/repository"
	"course-signup/internal/worker"
	"course-signup/pkg/flex"
)

var ErrNoPushTarget = errors.New("报名记录没有 LINE 用户，无法推送")

// NotificationService 报名后的后台通知
type NotificationService interface {
	// Process 打标签、组装卡片并推送，结果写回报名记录；不重试
	Process(ctx context.Context, task worker.Task) error
	// Redrive 把 line_notified=false 的记录重新投递到队列
	Redrive(ctx context.Context, limit int) (*dto.RedriveResponse, error)
}

type notificationService struct {
	cfg        *config.Config
	repo       *repository.Repository
	line       LineAPI
	dispatcher worker.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(
	cfg *config.Config,
	repo *repository.Repository,
	line LineAPI,
	dispatcher worker.Dispatcher,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		cfg:        cfg,
		repo:       repo,
		line:       line,
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("component", "notification")),
	}
}

func (s *notificationService) Process(ctx context.Context, task worker.Task) error {
	reg, err := s.repo.Registration.GetByID(ctx, task.RegistrationID)
	if err != nil {
		return fmt.Errorf("读取报名记录失败: %w", err)
	}

	if reg.LineUserID == "" {
		s.markResult(ctx, reg.ID, ErrNoPushTarget)
		return ErrNoPushTarget
	}

	// 1. 打标签
	s.tag(ctx, reg)

	// 2. 组装卡片
	messages := s.compose(ctx, reg)

	// 3. 推送并记录
	pushErr := s.line.SendPush(ctx, reg.LineUserID, messages...)
	s.recordAttempt(ctx, reg, messages, pushErr)
	s.markResult(ctx, reg.ID, pushErr)

	if pushErr != nil {
		return pushErr
	}
	s.logger.Info("报名通知已推送", zap.String("registration_id", reg.ID))
	return nil
}

func (s *notificationService) tag(ctx context.Context, reg *model.Registration) {
	tagName := reg.LineTagName
	if tagName == "" {
		tagName = model.RegistrationTagName(reg.CourseName)
	}

	markErr := s.repo.Registration.MarkTagged(ctx, reg.ID, tagName)
	if markErr != nil {
		s.logger.Warn("标记标签失败", zap.String("registration_id", reg.ID), zap.Error(markErr))
	}

	regID := reg.ID
	if err := s.repo.TagLog.Create(ctx, &model.TagLog{
		RegistrationID: &regID,
		LineUserID:     reg.LineUserID,
		TagName:        tagName,
		Action:         model.TagActionCreate,
		Success:        markErr == nil,
	}); err != nil {
		s.logger.Warn("写入标签日志失败", zap.String("registration_id", reg.ID), zap.Error(err))
	}
}

func (s *notificationService) compose(ctx context.Context, reg *model.Registration) []flex.Message {
	fields := flex.ConfirmationFields{
		CourseName:      reg.CourseName,
		StudentName:     reg.Name,
		DefaultLocation: s.cfg.Line.DefaultLocation,
		Date:            reg.CreatedAt.Format("2006-01-02"),
	}

	var cost int
	course, err := s.repo.Course.GetByID(ctx, reg.CourseID)
	if err != nil {
		s.logger.Warn("读取课程失败，卡片使用默认值", zap.String("course_id", reg.CourseID), zap.Error(err))
	} else {
		fields.Teacher = course.Teacher
		fields.Schedule = course.Schedule
		fields.Location = course.Location
		fields.Cost = course.Cost
		cost = course.Cost
	}

	messages := []flex.Message{flex.BuildConfirmationCard(fields)}

	if reg.PaymentMethod == model.PaymentMethodBankTransfer {
		messages = append(messages, flex.BuildPaymentReminderCard(flex.PaymentFields{
			CourseName:    reg.CourseName,
			Amount:        cost,
			BankName:      s.cfg.Bank.Name,
			BankBranch:    s.cfg.Bank.Branch,
			AccountNumber: s.cfg.Bank.AccountNumber,
			AccountName:   s.cfg.Bank.AccountName,
		}))
	}
	return messages
}

func (s *notificationService) recordAttempt(ctx context.Context, reg *model.Registration, messages []flex.Message, pushErr error) {
	body, err := json.Marshal(messages)
	if err != nil {
		body = []byte("[]")
	}

	attempt := &model.NotificationAttempt{
		RegistrationID: reg.ID,
		LineUserID:     reg.LineUserID,
		Messages:       datatypes.JSON(body),
		Success:        pushErr == nil,
	}
	if pushErr != nil {
		attempt.Error = pushErr.Error()
	}
	if err := s.repo.NotificationAttempt.Create(ctx, attempt); err != nil {
		s.logger.Warn("写入推送记录失败", zap.String("registration_id", reg.ID), zap.Error(err))
	}
}

func (s *notificationService) markResult(ctx context.Context, id string, pushErr error) {
	var msg string
	if pushErr != nil {
		msg = pushErr.Error()
	}
	if err := s.repo.Registration.UpdateNotificationStatus(ctx, id, pushErr == nil, msg); err != nil {
		s.logger.Error("更新通知状态失败", zap.String("registration_id", id), zap.Error(err))
	}
}

// taskTimeout 超过这个时间仍未推送成功的记录才视为需要重投
func (s *notificationService) taskTimeout() time.Duration {
	if s.cfg.Notify.TaskTimeout > 0 {
		return s.cfg.Notify.TaskTimeout
	}
	return worker.DefaultTaskTimeout
}

func (s *notificationService) Redrive(ctx context.Context, limit int) (*dto.RedriveResponse, error) {
	if s.dispatcher == nil {
		return nil, errors.New("通知队列未启用")
	}

	regs, err := s.repo.Registration.ListPendingNotifications(ctx, time.Now().Add(-s.taskTimeout()), limit)
	if err != nil {
		s.logger.Error("查询待推送记录失败", zap.Error(err))
		return nil, err
	}

	result := &dto.RedriveResponse{}
	for _, reg := range regs {
		if err := s.dispatcher.Submit(ctx, worker.Task{RegistrationID: reg.ID}); err != nil {
			result.Failed++
			s.logger.Warn("重新投递失败", zap.String("registration_id", reg.ID), zap.Error(err))
			continue
		}
		result.Queued++
	}

	s.logger.Info("重新投递完成", zap.Int("queued", result.Queued), zap.Int("failed", result.Failed))
	return result, nil
}
