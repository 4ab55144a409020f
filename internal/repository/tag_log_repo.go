package repository

import (
	"context"

	"gorm.io/gorm"

	"course-signup/internal/model"
	apperrors "course-signup/pkg/errors"
)

// TagLogRepository LINE 标签日志
type TagLogRepository interface {
	Create(ctx context.Context, log *model.TagLog) error
}

type tagLogRepo struct {
	db *gorm.DB
}

// NewTagLogRepo 创建 TagLogRepository 实例
func NewTagLogRepo(db *gorm.DB) TagLogRepository {
	return &tagLogRepo{db: db}
}

func (r *tagLogRepo) Create(ctx context.Context, log *model.TagLog) error {
	return apperrors.WrapStore("insert", "line_tags_log", r.db.WithContext(ctx).Create(log).Error)
}
