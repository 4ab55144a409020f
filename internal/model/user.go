package model

import "time"

// User 用户表，对应 users，以 line_user_id 唯一标识
type User struct {
	ID            string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	LineUserID    string     `gorm:"type:varchar(64);not null;uniqueIndex"          json:"line_user_id"`
	DisplayName   string     `gorm:"type:varchar(200);not null;default:''"          json:"display_name"`
	PictureURL    string     `gorm:"type:text;not null;default:''"                  json:"picture_url"`
	StatusMessage string     `gorm:"type:text;not null;default:''"                  json:"status_message"`
	Mobile        *string    `gorm:"type:varchar(30)"                               json:"mobile,omitempty"`
	IsLineFriend  bool       `gorm:"not null;default:false"                         json:"is_line_friend"`
	FriendAddedAt *time.Time `                                                      json:"friend_added_at,omitempty"`
	LastLoginAt   *time.Time `                                                      json:"last_login_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
