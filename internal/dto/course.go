package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexInt 兼容 JSON 数字与数字字符串的整数（表单提交常把数字当字符串）
type FlexInt int

// UnmarshalJSON 接受 12、12.0、"12"、" 12 "，空字符串视为 0
// 带小数部分、NaN/Inf 或超出 int32 的值一律拒绝
func (n *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		b = []byte(s)
	}

	s := string(b)
	if i, err := strconv.ParseInt(s, 10, 32); err == nil {
		*n = FlexInt(i)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return fmt.Errorf("不是有效的整数: %s", s)
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return fmt.Errorf("超出整数范围: %s", s)
	}
	*n = FlexInt(f)
	return nil
}

// Int 转为 int
func (n FlexInt) Int() int { return int(n) }

// ── 课程请求 ──

// CreateCourseRequest 新建课程
type CreateCourseRequest struct {
	Name        string   `json:"name"        binding:"required"`
	Teacher     string   `json:"teacher"     binding:"required"`
	Schedule    string   `json:"schedule"`
	Location    string   `json:"location"`
	Cost        *FlexInt `json:"cost"        binding:"required"`
	Capacity    FlexInt  `json:"capacity"`
	Description string   `json:"description"`
}

// UpdateCourseRequest 更新课程，字段缺省表示不修改
type UpdateCourseRequest struct {
	Name            *string  `json:"name"`
	Teacher         *string  `json:"teacher"`
	Schedule        *string  `json:"schedule"`
	Location        *string  `json:"location"`
	Cost            *FlexInt `json:"cost"`
	Capacity        *FlexInt `json:"capacity"`
	CurrentEnrolled *FlexInt `json:"current_enrolled"`
	Description     *string  `json:"description"`
}

// ── 课程响应 ──

// CourseResponse 课程信息
type CourseResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Teacher         string `json:"teacher"`
	Schedule        string `json:"schedule"`
	Location        string `json:"location"`
	Cost            int    `json:"cost"`
	Capacity        int    `json:"capacity"`
	CurrentEnrolled int    `json:"current_enrolled"`
	IsFull          bool   `json:"is_full"`
	Description     string `json:"description"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}
