package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-signup/internal/model"
	apperrors "course-signup/pkg/errors"
)

const coursesTable = "courses"

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context) ([]model.Course, error)
	// UpdateColumns 只写入给定列并在同一条 UPDATE 中重算 is_full，返回更新后的课程
	UpdateColumns(ctx context.Context, id string, columns map[string]interface{}) (*model.Course, error)
	Delete(ctx context.Context, id string) error
	// AdjustEnrollment 原子调整报名人数并重算 is_full，返回更新后的课程
	AdjustEnrollment(ctx context.Context, id string, delta int) (*model.Course, error)
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return apperrors.WrapStore("insert", coursesTable, r.db.WithContext(ctx).Create(course).Error)
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&course).Error; err != nil {
		return nil, apperrors.WrapStore("find", coursesTable, err)
	}
	return &course, nil
}

func (r *courseRepo) List(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&courses).Error; err != nil {
		return nil, apperrors.WrapStore("find", coursesTable, err)
	}
	return courses, nil
}

// UpdateColumns 未给出的列保持库中现值，并发的 AdjustEnrollment 不会被覆盖
// is_full 按写入后的 current_enrolled 与 capacity 计算
func (r *courseRepo) UpdateColumns(ctx context.Context, id string, columns map[string]interface{}) (*model.Course, error) {
	updates := make(map[string]interface{}, len(columns)+2)
	for k, v := range columns {
		updates[k] = v
	}

	enrolledSQL, capacitySQL := "current_enrolled", "capacity"
	var args []interface{}
	if v, ok := columns["current_enrolled"]; ok {
		enrolledSQL = "?"
		args = append(args, v)
	}
	if v, ok := columns["capacity"]; ok {
		capacitySQL = "?"
		args = append(args, v)
	}
	updates["is_full"] = gorm.Expr(enrolledSQL+" >= "+capacitySQL, args...)
	updates["updated_at"] = gorm.Expr("NOW()")

	var course model.Course
	result := r.db.WithContext(ctx).Model(&course).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.WrapStore("update", coursesTable, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.WrapStore("update", coursesTable, gorm.ErrRecordNotFound)
	}
	return &course, nil
}

func (r *courseRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Course{})
	if result.Error != nil {
		if IsForeignKeyViolation(result.Error) {
			return ErrCourseHasRegistrations
		}
		return apperrors.WrapStore("delete", coursesTable, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.WrapStore("delete", coursesTable, gorm.ErrRecordNotFound)
	}
	return nil
}

// AdjustEnrollment 单条 UPDATE 完成读改写，并发调用不会丢失更新
// SET 子句右侧引用的都是更新前的 current_enrolled
func (r *courseRepo) AdjustEnrollment(ctx context.Context, id string, delta int) (*model.Course, error) {
	return adjustEnrollment(r.db.WithContext(ctx), id, delta)
}

func adjustEnrollment(db *gorm.DB, id string, delta int) (*model.Course, error) {
	var course model.Course
	result := db.Model(&course).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_enrolled": gorm.Expr("GREATEST(0, current_enrolled + ?)", delta),
			"is_full":          gorm.Expr("GREATEST(0, current_enrolled + ?) >= capacity", delta),
			"updated_at":       gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, apperrors.WrapStore("update", coursesTable, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.WrapStore("update", coursesTable, gorm.ErrRecordNotFound)
	}
	return &course, nil
}
