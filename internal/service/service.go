package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"course-signup/config"
	"course-signup/internal/repository"
	"course-signup/internal/worker"
	"course-signup/pkg/flex"
	"course-signup/pkg/jwt"
	"course-signup/pkg/line"
	"course-signup/pkg/validator"
)

// LineAPI LINE 调用接口，由 *line.Client 实现
type LineAPI interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*line.TokenSet, error)
	GetProfile(ctx context.Context, accessToken string) (*line.Profile, error)
	CheckFriendship(ctx context.Context, accessToken string) bool
	SendPush(ctx context.Context, to string, messages ...flex.Message) error
}

// StateStore 登录 state 存储，由 *redis.Client 实现；为 nil 时不校验 state
type StateStore interface {
	NewLoginState(ctx context.Context, ttl time.Duration) (string, error)
	ConsumeLoginState(ctx context.Context, state string) error
}

// Deps 外部依赖
type Deps struct {
	JWT        *jwt.Manager
	Line       LineAPI
	States     StateStore
	Dispatcher worker.Dispatcher
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Course       CourseService
	Registration RegistrationService
	Notification NotificationService
	Tag          TagService
	Export       ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Deps,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:         NewAuthService(cfg, repo, deps.JWT, deps.Line, deps.States, logger),
		Course:       NewCourseService(repo, logger),
		Registration: NewRegistrationService(repo, deps.Dispatcher, logger),
		Notification: NewNotificationService(cfg, repo, deps.Line, deps.Dispatcher, logger),
		Tag:          NewTagService(repo, logger),
		Export:       NewExportService(repo, logger),
	}
}

const timeLayout = time.RFC3339

// validID 主键均为 UUID，格式不对的 id 按不存在处理，不送进数据库
func validID(ctx context.Context, id string) bool {
	return validator.Var(ctx, "id", id, "uuid_rfc4122") == nil
}

// checkCourseFilter 可选的 course_id 过滤条件
func checkCourseFilter(ctx context.Context, courseID string) error {
	if courseID == "" {
		return nil
	}
	return validator.Var(ctx, "course_id", courseID, "uuid_rfc4122")
}
