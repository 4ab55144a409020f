package dto

// ── LINE 登录 ──

// LineCallbackQuery LINE 授权回调参数
type LineCallbackQuery struct {
	Code             string `form:"code"`
	State            string `form:"state"`
	Error            string `form:"error"`
	ErrorDescription string `form:"error_description"`
}

// LoginUser 登录成功后回传给前端的用户信息
type LoginUser struct {
	ID           string `json:"id"`
	LineUserID   string `json:"line_user_id"`
	DisplayName  string `json:"display_name"`
	PictureURL   string `json:"picture_url"`
	Mobile       string `json:"mobile,omitempty"`
	IsLineFriend bool   `json:"is_line_friend"`
}

// LoginResult 登录结果
type LoginResult struct {
	Token string
	User  LoginUser
}

// ── LINE 标签 ──

// ApplyTagRequest 手动给 LINE 用户打标签
type ApplyTagRequest struct {
	LineUserID     string `json:"line_user_id"    binding:"required"`
	TagName        string `json:"tag_name"        binding:"required,max=250"`
	RegistrationID string `json:"registration_id"`
}
