package model

import "time"

// 标签操作
const (
	TagActionCreate = "create"
	TagActionManual = "manual"
)

// TagLog LINE 标签日志，对应 line_tags_log
type TagLog struct {
	ID             string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RegistrationID *string   `gorm:"type:uuid"                                      json:"registration_id,omitempty"`
	LineUserID     string    `gorm:"type:varchar(64);not null"                      json:"line_user_id"`
	TagName        string    `gorm:"type:varchar(250);not null"                     json:"tag_name"`
	Action         string    `gorm:"type:varchar(20);not null;default:'create'"     json:"action"`
	Success        bool      `gorm:"not null"                                       json:"success"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (TagLog) TableName() string { return "line_tags_log" }
