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
	apperrors "course-signup/pkg/errors"
)

// TagService LINE 标签（记录在库中）
type TagService interface {
	Apply(ctx context.Context, req *dto.ApplyTagRequest) error
}

type tagService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTagService 创建 TagService 实例
func NewTagService(repo *repository.Repository, logger *zap.Logger) TagService {
	return &tagService{repo: repo, logger: logger}
}

// Apply 手动打标签；带 registration_id 时同时更新报名记录
func (s *tagService) Apply(ctx context.Context, req *dto.ApplyTagRequest) error {
	lineUserID := strings.TrimSpace(req.LineUserID)
	tagName := strings.TrimSpace(req.TagName)
	if lineUserID == "" {
		return apperrors.NewFieldError("line_user_id", "不能为空")
	}
	if tagName == "" {
		return apperrors.NewFieldError("tag_name", "不能为空")
	}

	log := &model.TagLog{
		LineUserID: lineUserID,
		TagName:    tagName,
		Action:     model.TagActionManual,
		Success:    true,
	}

	if regID := strings.TrimSpace(req.RegistrationID); regID != "" {
		if !validID(ctx, regID) {
			return ErrRegistrationNotFound
		}
		if err := s.repo.Registration.MarkTagged(ctx, regID, tagName); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			s.logger.Error("标记报名标签失败", zap.Error(err))
			return err
		}
		log.RegistrationID = &regID
	}

	if err := s.repo.TagLog.Create(ctx, log); err != nil {
		s.logger.Error("写入标签日志失败", zap.Error(err))
		return err
	}

	s.logger.Info("标签已新增", zap.String("line_user_id", lineUserID), zap.String("tag", tagName))
	return nil
}
