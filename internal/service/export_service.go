package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"course-signup/internal/model"
	"course-signup/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoRecords    = errors.New("没有可导出的报名记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type ExportService interface {
	// ExportRegistrations 导出报名记录，courseID 为空时导出全部
	ExportRegistrations(ctx context.Context, courseID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

var exportHeaders = []string{
	"报名时间", "课程", "姓名", "性别", "年龄段", "手机", "紧急联系人", "紧急联系电话",
	"宗教", "缴费方式", "账号末5码", "缴费状态", "代报名", "LINE 通知", "备注",
}

var paymentMethodText = map[string]string{
	model.PaymentMethodBankTransfer: "转账",
	model.PaymentMethodOnSite:       "现场缴费",
}

var paymentStatusText = map[string]string{
	model.PaymentStatusUnpaid:    "未缴费",
	model.PaymentStatusPaid:      "已缴费",
	model.PaymentStatusConfirmed: "已确认",
}

func (s *exportService) ExportRegistrations(ctx context.Context, courseID string) (*bytes.Buffer, string, error) {
	if err := checkCourseFilter(ctx, courseID); err != nil {
		return nil, "", err
	}
	regs, _, err := s.repo.Registration.List(ctx, repository.RegistrationFilter{
		CourseID: courseID,
		Sort:     "created_at",
	})
	if err != nil {
		s.logger.Error("查询报名记录失败", zap.Error(err))
		return nil, "", err
	}
	if len(regs) == 0 {
		return nil, "", ErrExportNoRecords
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "报名记录"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	// 表头
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
	}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, style)
	}

	// 数据行
	for r, reg := range regs {
		row := []interface{}{
			reg.CreatedAt.Format("2006-01-02 15:04"),
			reg.CourseName,
			reg.Name,
			reg.Gender,
			reg.AgeRange,
			reg.Mobile,
			reg.EmergencyContact,
			reg.EmergencyPhone,
			reg.Religion,
			textOr(paymentMethodText, reg.PaymentMethod),
			reg.AccountLast5,
			textOr(paymentStatusText, reg.PaymentStatus),
			yesNo(reg.IsProxyRegistration),
			yesNo(reg.LineNotified),
			reg.Notes,
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			s.logger.Error("写入 Excel 行失败", zap.Int("row", r+2), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 20)
	_ = f.SetColWidth(sheetName, "C", "O", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("生成 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("registrations_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}

func textOr(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}
