// Package flex 组装 LINE Flex Message 卡片。
// 所有函数都是纯函数，日期由调用方传入。
package flex

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	pendingText  = "待公布"
	successColor = "#06C755"
	remindColor  = "#F5A623"
	labelColor   = "#888888"
	valueColor   = "#333333"
)

// Message 推送消息（LINE Messaging API 的 message object）
type Message struct {
	Type     string     `json:"type"`
	AltText  string     `json:"altText,omitempty"`
	Contents *Container `json:"contents,omitempty"`
	Text     string     `json:"text,omitempty"`
}

// Container flex bubble
type Container struct {
	Type   string     `json:"type"`
	Header *Component `json:"header,omitempty"`
	Body   *Component `json:"body,omitempty"`
	Footer *Component `json:"footer,omitempty"`
	Styles *Styles    `json:"styles,omitempty"`
}

// Styles bubble 各区块样式
type Styles struct {
	Header *BlockStyle `json:"header,omitempty"`
}

// BlockStyle 区块样式
type BlockStyle struct {
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

// Component box / text / separator
type Component struct {
	Type     string       `json:"type"`
	Layout   string       `json:"layout,omitempty"`
	Contents []*Component `json:"contents,omitempty"`
	Text     string       `json:"text,omitempty"`
	Size     string       `json:"size,omitempty"`
	Weight   string       `json:"weight,omitempty"`
	Color    string       `json:"color,omitempty"`
	Wrap     bool         `json:"wrap,omitempty"`
	Flex     int          `json:"flex,omitempty"`
	Spacing  string       `json:"spacing,omitempty"`
	Margin   string       `json:"margin,omitempty"`
}

// ConfirmationFields 报名成功卡片字段
type ConfirmationFields struct {
	CourseName      string
	StudentName     string
	Teacher         string
	Schedule        string
	Location        string
	DefaultLocation string // Location 为空时使用，仍为空则显示“待公布”
	Cost            int
	Date            string
}

// PaymentFields 付款提醒卡片字段
type PaymentFields struct {
	CourseName    string
	Amount        int
	BankName      string
	BankBranch    string
	AccountNumber string
	AccountName   string
}

// BuildConfirmationCard 报名成功卡片
func BuildConfirmationCard(f ConfirmationFields) Message {
	location := orDefault(f.Location, orDefault(f.DefaultLocation, pendingText))

	body := box("vertical", "md",
		text(f.CourseName, "lg", "bold", valueColor),
		separator(),
		row("学员", orDefault(f.StudentName, "-")),
		row("老师", orDefault(f.Teacher, pendingText)),
		row("时间", orDefault(f.Schedule, pendingText)),
		row("地点", location),
		row("费用", FormatCost(f.Cost)),
		row("报名日期", f.Date),
	)

	return Message{
		Type:    "flex",
		AltText: "报名成功：" + f.CourseName,
		Contents: &Container{
			Type:   "bubble",
			Header: box("vertical", "", text("报名成功", "xl", "bold", "#FFFFFF")),
			Body:   body,
			Styles: &Styles{Header: &BlockStyle{BackgroundColor: successColor}},
		},
	}
}

// BuildPaymentReminderCard 转账缴费提醒卡片
func BuildPaymentReminderCard(f PaymentFields) Message {
	body := box("vertical", "md",
		text(f.CourseName, "md", "bold", valueColor),
		separator(),
		row("银行", orDefault(f.BankName, pendingText)),
		row("分行", orDefault(f.BankBranch, pendingText)),
		row("账号", orDefault(f.AccountNumber, pendingText)),
		row("户名", orDefault(f.AccountName, pendingText)),
		row("金额", FormatCost(f.Amount)),
	)

	footer := box("vertical", "",
		&Component{
			Type:  "text",
			Text:  "转账完成后，请确认报名表中填写的账号末 5 码正确，以便核对款项。",
			Size:  "sm",
			Color: labelColor,
			Wrap:  true,
		},
	)

	return Message{
		Type:    "flex",
		AltText: "缴费提醒：" + f.CourseName,
		Contents: &Container{
			Type:   "bubble",
			Header: box("vertical", "", text("缴费提醒", "xl", "bold", "#FFFFFF")),
			Body:   body,
			Footer: footer,
			Styles: &Styles{Header: &BlockStyle{BackgroundColor: remindColor}},
		},
	}
}

// FormatCost 金额格式化，千分位
func FormatCost(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.Itoa(n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("NT$ %s%s", sign, b.String())
}

// ── 组件 ──

func box(layout, spacing string, contents ...*Component) *Component {
	return &Component{Type: "box", Layout: layout, Spacing: spacing, Contents: contents}
}

func text(s, size, weight, color string) *Component {
	return &Component{Type: "text", Text: s, Size: size, Weight: weight, Color: color, Wrap: true}
}

func separator() *Component {
	return &Component{Type: "separator", Margin: "md"}
}

func row(label, value string) *Component {
	return &Component{
		Type:   "box",
		Layout: "baseline",
		Contents: []*Component{
			{Type: "text", Text: label, Size: "sm", Color: labelColor, Flex: 2},
			{Type: "text", Text: value, Size: "sm", Color: valueColor, Flex: 5, Wrap: true},
		},
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
