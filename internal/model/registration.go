package model

import "time"

// 缴费方式
const (
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodOnSite       = "on_site"
)

// 缴费状态
const (
	PaymentStatusUnpaid    = "unpaid"
	PaymentStatusPaid      = "paid"
	PaymentStatusConfirmed = "confirmed"
)

// RegistrationTagPrefix 报名标签前缀，完整标签为 registered-<课程名>
const RegistrationTagPrefix = "registered-"

// Registration 报名记录表，对应 registrations
type Registration struct {
	ID                  string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID              *string    `gorm:"type:uuid"                                      json:"user_id,omitempty"`
	LineUserID          string     `gorm:"type:varchar(64);not null;default:''"           json:"line_user_id"`
	CourseID            string     `gorm:"type:uuid;not null"                             json:"course_id"`
	CourseName          string     `gorm:"type:varchar(200);not null"                     json:"course_name"`
	Name                string     `gorm:"type:varchar(100);not null"                     json:"name"`
	Gender              string     `gorm:"type:varchar(10);not null;default:''"           json:"gender"`
	AgeRange            string     `gorm:"type:varchar(20);not null;default:''"           json:"age_range"`
	Mobile              string     `gorm:"type:varchar(30);not null"                      json:"mobile"`
	EmergencyContact    string     `gorm:"type:varchar(100);not null;default:''"          json:"emergency_contact"`
	EmergencyPhone      string     `gorm:"type:varchar(30);not null;default:''"           json:"emergency_phone"`
	Religion            string     `gorm:"type:varchar(50);not null;default:''"           json:"religion"`
	PaymentMethod       string     `gorm:"type:varchar(20);not null;default:'on_site'"    json:"payment_method"`
	AccountLast5        string     `gorm:"column:account_last5;type:varchar(5);not null;default:''" json:"account_last5"`
	Notes               string     `gorm:"type:text;not null;default:''"                  json:"notes"`
	PaymentStatus       string     `gorm:"type:varchar(20);not null;default:'unpaid'"     json:"payment_status"`
	IsProxyRegistration bool       `gorm:"not null;default:false"                         json:"is_proxy_registration"`
	LineNotified        bool       `gorm:"not null;default:false"                         json:"line_notified"`
	LineNotifiedAt      *time.Time `                                                      json:"line_notified_at,omitempty"`
	LineNotifyError     string     `gorm:"type:text;not null;default:''"                  json:"line_notify_error,omitempty"`
	LineTagged          bool       `gorm:"not null;default:false"                         json:"line_tagged"`
	LineTagName         string     `gorm:"type:varchar(250);not null;default:''"          json:"line_tag_name"`
	LineTaggedAt        *time.Time `                                                      json:"line_tagged_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Registration) TableName() string { return "registrations" }

// RegistrationTagName 报名标签名
func RegistrationTagName(courseName string) string {
	return RegistrationTagPrefix + courseName
}
