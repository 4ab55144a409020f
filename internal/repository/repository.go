package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrCourseHasRegistrations = errors.New("课程仍有报名记录，无法删除")
	ErrInvalidSort            = errors.New("不支持的排序字段")
)

// PostgreSQL 错误码
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User                UserRepository
	Course              CourseRepository
	Registration        RegistrationRepository
	TagLog              TagLogRepository
	NotificationAttempt NotificationAttemptRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:                NewUserRepo(db),
		Course:              NewCourseRepo(db),
		Registration:        NewRegistrationRepo(db),
		TagLog:              NewTagLogRepo(db),
		NotificationAttempt: NewNotificationAttemptRepo(db),
	}
}

// pgCode 提取 PostgreSQL 错误码
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation 唯一约束冲突
func IsUniqueViolation(err error) bool { return pgCode(err) == pgUniqueViolation }

// IsForeignKeyViolation 外键约束冲突
func IsForeignKeyViolation(err error) bool { return pgCode(err) == pgForeignKeyViolation }
