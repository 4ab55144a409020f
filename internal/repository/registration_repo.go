package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-signup/internal/model"
	apperrors "course-signup/pkg/errors"
)

const (
	registrationsTable = "registrations"

	// DefaultRegistrationSort 默认按创建时间倒序
	DefaultRegistrationSort = "-created_at"
	// DefaultPendingLimit 待推送列表默认条数
	DefaultPendingLimit = 100
)

// 允许排序的字段
var registrationSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"name":           true,
	"course_name":    true,
	"payment_status": true,
	"payment_method": true,
	"line_notified":  true,
}

// RegistrationFilter 报名列表过滤条件
type RegistrationFilter struct {
	CourseID string
	Sort     string // field 或 -field
	Offset   int
	Limit    int
}

// RegistrationRepository 报名记录数据访问接口
type RegistrationRepository interface {
	Create(ctx context.Context, reg *model.Registration) error
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	List(ctx context.Context, filter RegistrationFilter) ([]model.Registration, int64, error)
	ListByUser(ctx context.Context, userID string) ([]model.Registration, error)
	// ListPendingNotifications 只返回 before 之前最后变动的记录，避开仍在队列中的任务
	ListPendingNotifications(ctx context.Context, before time.Time, limit int) ([]model.Registration, error)
	MarkTagged(ctx context.Context, id, tagName string) error
	UpdateNotificationStatus(ctx context.Context, id string, notified bool, errMsg string) error
	UpdatePaymentStatus(ctx context.Context, id, status string) error
	// Delete 删除报名并在同一事务中把课程人数减一
	Delete(ctx context.Context, id string) error
}

type registrationRepo struct {
	db *gorm.DB
}

// NewRegistrationRepo 创建 RegistrationRepository 实例
func NewRegistrationRepo(db *gorm.DB) RegistrationRepository {
	return &registrationRepo{db: db}
}

// ParseSort 把 field / -field 转换为 ORDER BY 子句
func ParseSort(sort string) (string, error) {
	if sort == "" {
		sort = DefaultRegistrationSort
	}
	dir := "ASC"
	field := sort
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		field = sort[1:]
	}
	if !registrationSortFields[field] {
		return "", ErrInvalidSort
	}
	return field + " " + dir, nil
}

func (r *registrationRepo) Create(ctx context.Context, reg *model.Registration) error {
	return apperrors.WrapStore("insert", registrationsTable, r.db.WithContext(ctx).Create(reg).Error)
}

func (r *registrationRepo) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	var reg model.Registration
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reg).Error; err != nil {
		return nil, apperrors.WrapStore("find", registrationsTable, err)
	}
	return &reg, nil
}

func (r *registrationRepo) List(ctx context.Context, filter RegistrationFilter) ([]model.Registration, int64, error) {
	order, err := ParseSort(filter.Sort)
	if err != nil {
		return nil, 0, err
	}

	var regs []model.Registration
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Registration{})
	if filter.CourseID != "" {
		db = db.Where("course_id = ?", filter.CourseID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapStore("find", registrationsTable, err)
	}

	q := db.Order(order).Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&regs).Error; err != nil {
		return nil, 0, apperrors.WrapStore("find", registrationsTable, err)
	}

	return regs, total, nil
}

func (r *registrationRepo) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	var regs []model.Registration
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&regs).Error
	if err != nil {
		return nil, apperrors.WrapStore("find", registrationsTable, err)
	}
	return regs, nil
}

// ListPendingNotifications 尚未推送成功且有推送对象的记录，最早的优先
// 写入与每次推送结果都会刷新 updated_at，因此按 updated_at 截止
func (r *registrationRepo) ListPendingNotifications(ctx context.Context, before time.Time, limit int) ([]model.Registration, error) {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	var regs []model.Registration
	err := r.db.WithContext(ctx).
		Where("line_notified = ? AND line_user_id <> '' AND updated_at < ?", false, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&regs).Error
	if err != nil {
		return nil, apperrors.WrapStore("find", registrationsTable, err)
	}
	return regs, nil
}

func (r *registrationRepo) MarkTagged(ctx context.Context, id, tagName string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"line_tagged":    true,
		"line_tag_name":  tagName,
		"line_tagged_at": time.Now(),
	})
}

func (r *registrationRepo) UpdateNotificationStatus(ctx context.Context, id string, notified bool, errMsg string) error {
	updates := map[string]interface{}{
		"line_notified":     notified,
		"line_notify_error": errMsg,
	}
	if notified {
		updates["line_notified_at"] = time.Now()
	}
	return r.updateColumns(ctx, id, updates)
}

func (r *registrationRepo) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"payment_status": status})
}

func (r *registrationRepo) updateColumns(ctx context.Context, id string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return apperrors.WrapStore("update", registrationsTable, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.WrapStore("update", registrationsTable, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *registrationRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg model.Registration
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&reg).Error; err != nil {
			return apperrors.WrapStore("find", registrationsTable, err)
		}

		if err := tx.Where("id = ?", id).Delete(&model.Registration{}).Error; err != nil {
			return apperrors.WrapStore("delete", registrationsTable, err)
		}

		if _, err := adjustEnrollment(tx, reg.CourseID, -1); err != nil {
			return err
		}
		return nil
	})
}
