package dto

// ── 报名请求 ──

// SubmitRegistrationRequest 提交报名
type SubmitRegistrationRequest struct {
	CourseID            string `json:"course_id"             validate:"notblank,uuid_rfc4122"`
	Name                string `json:"name"                  validate:"notblank,max=100"`
	Gender              string `json:"gender"                validate:"max=10"`
	AgeRange            string `json:"age_range"             validate:"max=20"`
	Mobile              string `json:"mobile"                validate:"notblank,max=30"`
	EmergencyContact    string `json:"emergency_contact"     validate:"max=100"`
	EmergencyPhone      string `json:"emergency_phone"       validate:"max=30"`
	Religion            string `json:"religion"              validate:"max=50"`
	PaymentMethod       string `json:"payment_method"        validate:"omitempty,oneof=bank_transfer on_site"`
	AccountLast5        string `json:"account_last5"`
	Notes               string `json:"notes"`
	IsProxyRegistration bool   `json:"is_proxy_registration"`
}

// ListRegistrationsRequest 报名列表查询
type ListRegistrationsRequest struct {
	PaginationRequest
	Sort     string `form:"sort"`
	CourseID string `form:"course_id"`
}

// UpdatePaymentStatusRequest 更新缴费状态
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required,oneof=unpaid paid confirmed"`
}

// RedriveRequest 重新投递未成功推送的通知
type RedriveRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=1,max=1000"`
}

// ── 报名响应 ──

// SubmitRegistrationResponse 提交报名成功
type SubmitRegistrationResponse struct {
	ID         string `json:"id"`
	CourseName string `json:"course_name"`
	CreatedAt  string `json:"created_at"`
}

// RegistrationResponse 报名记录
type RegistrationResponse struct {
	ID                  string `json:"id"`
	UserID              string `json:"user_id,omitempty"`
	LineUserID          string `json:"line_user_id"`
	CourseID            string `json:"course_id"`
	CourseName          string `json:"course_name"`
	Name                string `json:"name"`
	Gender              string `json:"gender"`
	AgeRange            string `json:"age_range"`
	Mobile              string `json:"mobile"`
	EmergencyContact    string `json:"emergency_contact"`
	EmergencyPhone      string `json:"emergency_phone"`
	Religion            string `json:"religion"`
	PaymentMethod       string `json:"payment_method"`
	AccountLast5        string `json:"account_last5"`
	Notes               string `json:"notes"`
	PaymentStatus       string `json:"payment_status"`
	IsProxyRegistration bool   `json:"is_proxy_registration"`
	LineNotified        bool   `json:"line_notified"`
	LineNotifyError     string `json:"line_notify_error,omitempty"`
	LineTagged          bool   `json:"line_tagged"`
	LineTagName         string `json:"line_tag_name"`
	CreatedAt           string `json:"created_at"`
}

// NotificationAttemptResponse 推送记录
type NotificationAttemptResponse struct {
	ID        string `json:"id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

// RegistrationDetailResponse 报名详情（含推送记录）
type RegistrationDetailResponse struct {
	RegistrationResponse
	Attempts []NotificationAttemptResponse `json:"notification_attempts"`
}

// RedriveResponse 重新投递结果
type RedriveResponse struct {
	Queued int `json:"queued"`
	Failed int `json:"failed"`
}
