package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationAttempt 推送记录，对应 notification_attempts
// 每次后台任务执行写一行，messages 保存实际推送的消息内容
type NotificationAttempt struct {
	ID             string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RegistrationID string         `gorm:"type:uuid;not null"                             json:"registration_id"`
	LineUserID     string         `gorm:"type:varchar(64);not null"                      json:"line_user_id"`
	Messages       datatypes.JSON `gorm:"type:jsonb;not null"                            json:"messages"`
	Success        bool           `gorm:"not null"                                       json:"success"`
	Error          string         `gorm:"type:text;not null;default:''"                  json:"error,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (NotificationAttempt) TableName() string { return "notification_attempts" }
