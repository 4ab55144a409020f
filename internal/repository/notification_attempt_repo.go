package repository

import (
	"context"

	"gorm.io/gorm"

	"course-signup/internal/model"
	apperrors "course-signup/pkg/errors"
)

// NotificationAttemptRepository 推送记录
type NotificationAttemptRepository interface {
	Create(ctx context.Context, attempt *model.NotificationAttempt) error
	ListByRegistration(ctx context.Context, registrationID string) ([]model.NotificationAttempt, error)
}

type notificationAttemptRepo struct {
	db *gorm.DB
}

// NewNotificationAttemptRepo 创建 NotificationAttemptRepository 实例
func NewNotificationAttemptRepo(db *gorm.DB) NotificationAttemptRepository {
	return &notificationAttemptRepo{db: db}
}

func (r *notificationAttemptRepo) Create(ctx context.Context, attempt *model.NotificationAttempt) error {
	return apperrors.WrapStore("insert", "notification_attempts", r.db.WithContext(ctx).Create(attempt).Error)
}

func (r *notificationAttemptRepo) ListByRegistration(ctx context.Context, registrationID string) ([]model.NotificationAttempt, error) {
	var attempts []model.NotificationAttempt
	err := r.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("created_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, apperrors.WrapStore("find", "notification_attempts", err)
	}
	return attempts, nil
}
