package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-signup/internal/model"
	apperrors "course-signup/pkg/errors"
)

const usersTable = "users"

// UserRepository 用户数据访问接口
type UserRepository interface {
	UpsertByLineUserID(ctx context.Context, user *model.User) error
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

// UpsertByLineUserID 按 line_user_id 插入或更新，单条语句完成
// 已有的 mobile 与 friend_added_at 不会被覆盖；执行后 user 带回库中完整行
func (r *userRepo) UpsertByLineUserID(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "line_user_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"display_name":    gorm.Expr("EXCLUDED.display_name"),
					"picture_url":     gorm.Expr("EXCLUDED.picture_url"),
					"status_message":  gorm.Expr("EXCLUDED.status_message"),
					"is_line_friend":  gorm.Expr("EXCLUDED.is_line_friend"),
					"mobile":          gorm.Expr("COALESCE(users.mobile, EXCLUDED.mobile)"),
					"friend_added_at": gorm.Expr("COALESCE(users.friend_added_at, EXCLUDED.friend_added_at)"),
					"last_login_at":   gorm.Expr("EXCLUDED.last_login_at"),
					"updated_at":      gorm.Expr("NOW()"),
				}),
			},
			clause.Returning{},
		).
		Create(user).Error
	return apperrors.WrapStore("upsert", usersTable, err)
}
