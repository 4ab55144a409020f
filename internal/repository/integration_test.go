//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"course-signup/internal/model"
	"course-signup/internal/repository"
	"course-signup/pkg/database"
	apperrors "course-signup/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=course_signup_test sslmode=disable TimeZone=Asia/Taipei"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "数据库迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// createCourse 创建测试课程并注册清理
func createCourse(t *testing.T, capacity, enrolled int) *model.Course {
	t.Helper()
	course := &model.Course{
		Name:            fmt.Sprintf("测试课程-%d", time.Now().UnixNano()),
		Teacher:         "林老师",
		Cost:            1000,
		Capacity:        capacity,
		CurrentEnrolled: enrolled,
	}
	course.ComputeIsFull()
	if err := testDB.Create(course).Error; err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}
	t.Cleanup(func() {
		testDB.Where("course_id = ?", course.ID).Delete(&model.Registration{})
		testDB.Where("id = ?", course.ID).Delete(&model.Course{})
	})
	return course
}

// ═══════════════════════════════════════════════════════════
// Test: User Upsert
// ═══════════════════════════════════════════════════════════

func TestUserUpsert_ConcurrentLoginsYieldOneRow(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	lineUserID := fmt.Sprintf("U-it-%d", time.Now().UnixNano())
	defer testDB.Where("line_user_id = ?", lineUserID).Delete(&model.User{})

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			now := time.Now()
			errs <- repo.User.UpsertByLineUserID(ctx, &model.User{
				LineUserID:  lineUserID,
				DisplayName: fmt.Sprintf("用户-%d", i),
				LastLoginAt: &now,
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("并发 upsert 失败: %v", err)
		}
	}

	var count int64
	testDB.Model(&model.User{}).Where("line_user_id = ?", lineUserID).Count(&count)
	if count != 1 {
		t.Errorf("期望 1 行，实际 %d 行", count)
	}
}

func TestUserUpsert_KeepsExistingMobile(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	lineUserID := fmt.Sprintf("U-it-%d", time.Now().UnixNano())
	defer testDB.Where("line_user_id = ?", lineUserID).Delete(&model.User{})

	mobile := "0912345678"
	first := &model.User{LineUserID: lineUserID, DisplayName: "旧名字", Mobile: &mobile}
	if err := repo.User.UpsertByLineUserID(ctx, first); err != nil {
		t.Fatalf("首次 upsert 失败: %v", err)
	}

	second := &model.User{LineUserID: lineUserID, DisplayName: "新名字"}
	if err := repo.User.UpsertByLineUserID(ctx, second); err != nil {
		t.Fatalf("再次 upsert 失败: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("期望同一行，first=%s second=%s", first.ID, second.ID)
	}
	if second.DisplayName != "新名字" {
		t.Errorf("display_name 应被覆盖，实际 %s", second.DisplayName)
	}
	if second.Mobile == nil || *second.Mobile != mobile {
		t.Errorf("mobile 应保留原值 %s", mobile)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Enrollment Counter
// ═══════════════════════════════════════════════════════════

func TestAdjustEnrollment_Sequential(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	course := createCourse(t, 5, 0)

	var got *model.Course
	var err error
	for i := 1; i <= 5; i++ {
		got, err = repo.Course.AdjustEnrollment(ctx, course.ID, 1)
		if err != nil {
			t.Fatalf("第 %d 次 AdjustEnrollment 失败: %v", i, err)
		}
		if got.CurrentEnrolled != i {
			t.Fatalf("期望 current_enrolled=%d，实际 %d", i, got.CurrentEnrolled)
		}
		if got.IsFull != (i >= 5) {
			t.Errorf("第 %d 次 is_full=%v 与人数不一致", i, got.IsFull)
		}
	}
}

func TestAdjustEnrollment_Concurrent(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	course := createCourse(t, 100, 0)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Course.AdjustEnrollment(ctx, course.ID, 1); err != nil {
				t.Errorf("AdjustEnrollment 失败: %v", err)
			}
		}()
	}
	wg.Wait()

	found, err := repo.Course.GetByID(ctx, course.ID)
	if err != nil {
		t.Fatalf("查询课程失败: %v", err)
	}
	if found.CurrentEnrolled != n {
		t.Errorf("期望 current_enrolled=%d，实际 %d", n, found.CurrentEnrolled)
	}
}

func TestAdjustEnrollment_NeverNegative(t *testing.T) {
	repo := repository.NewRepository(testDB)
	course := createCourse(t, 10, 0)

	got, err := repo.Course.AdjustEnrollment(context.Background(), course.ID, -1)
	if err != nil {
		t.Fatalf("AdjustEnrollment 失败: %v", err)
	}
	if got.CurrentEnrolled != 0 {
		t.Errorf("人数不应小于 0，实际 %d", got.CurrentEnrolled)
	}
}

func TestAdjustEnrollment_NotFound(t *testing.T) {
	repo := repository.NewRepository(testDB)
	_, err := repo.Course.AdjustEnrollment(context.Background(), "00000000-0000-0000-0000-000000000000", 1)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，得到: %v", err)
	}
	if !errors.Is(err, apperrors.ErrStore) {
		t.Errorf("期望错误属于 ErrStore，得到: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Course UpdateColumns
// ═══════════════════════════════════════════════════════════

func TestUpdateColumns_KeepsEnrollment(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	course := createCourse(t, 20, 19)

	// 编辑前已读到 19，期间有人报名
	if _, err := repo.Course.AdjustEnrollment(ctx, course.ID, 1); err != nil {
		t.Fatalf("AdjustEnrollment 失败: %v", err)
	}
	got, err := repo.Course.UpdateColumns(ctx, course.ID, map[string]interface{}{"description": "教材另购"})
	if err != nil {
		t.Fatalf("UpdateColumns 失败: %v", err)
	}
	if got.CurrentEnrolled != 20 || !got.IsFull || got.Description != "教材另购" {
		t.Errorf("期望 {20, true, 教材另购}，实际 {%d, %v, %s}", got.CurrentEnrolled, got.IsFull, got.Description)
	}
	if got.Name != course.Name || got.Cost != course.Cost {
		t.Errorf("未给出的列不应变动: %+v", got)
	}
}

func TestUpdateColumns_IsFullUsesNewValues(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	course := createCourse(t, 10, 8)

	got, err := repo.Course.UpdateColumns(ctx, course.ID, map[string]interface{}{"capacity": 8})
	if err != nil {
		t.Fatalf("UpdateColumns 失败: %v", err)
	}
	if got.Capacity != 8 || !got.IsFull {
		t.Errorf("名额降到 8 后应满额: %+v", got)
	}

	got, err = repo.Course.UpdateColumns(ctx, course.ID, map[string]interface{}{"capacity": 30, "current_enrolled": 2})
	if err != nil {
		t.Fatalf("UpdateColumns 失败: %v", err)
	}
	if got.Capacity != 30 || got.CurrentEnrolled != 2 || got.IsFull {
		t.Errorf("期望 {30, 2, false}，实际 %+v", got)
	}
}

func TestUpdateColumns_NotFound(t *testing.T) {
	repo := repository.NewRepository(testDB)
	_, err := repo.Course.UpdateColumns(context.Background(), "00000000-0000-0000-0000-000000000000", map[string]interface{}{"name": "x"})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，得到: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Registration
// ═══════════════════════════════════════════════════════════

func TestRegistrationDelete_DecrementsCourse(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	course := createCourse(t, 2, 2)

	reg := &model.Registration{
		CourseID:      course.ID,
		CourseName:    course.Name,
		Name:          "王小明",
		Mobile:        "0912345678",
		PaymentMethod: model.PaymentMethodOnSite,
		PaymentStatus: model.PaymentStatusUnpaid,
	}
	if err := repo.Registration.Create(ctx, reg); err != nil {
		t.Fatalf("创建报名失败: %v", err)
	}

	if err := repo.Registration.Delete(ctx, reg.ID); err != nil {
		t.Fatalf("删除报名失败: %v", err)
	}

	found, _ := repo.Course.GetByID(ctx, course.ID)
	if found.CurrentEnrolled != 1 || found.IsFull {
		t.Errorf("期望 {1, 未满}，实际 {%d, %v}", found.CurrentEnrolled, found.IsFull)
	}
	if _, err := repo.Registration.GetByID(ctx, reg.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("删除后应查不到，得到: %v", err)
	}
}

func TestCourseDelete_WithRegistrations(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	course := createCourse(t, 10, 0)

	reg := &model.Registration{
		CourseID:      course.ID,
		CourseName:    course.Name,
		Name:          "李四",
		Mobile:        "0987654321",
		PaymentMethod: model.PaymentMethodOnSite,
		PaymentStatus: model.PaymentStatusUnpaid,
	}
	if err := repo.Registration.Create(ctx, reg); err != nil {
		t.Fatalf("创建报名失败: %v", err)
	}

	if err := repo.Course.Delete(ctx, course.ID); !errors.Is(err, repository.ErrCourseHasRegistrations) {
		t.Errorf("期望 ErrCourseHasRegistrations，得到: %v", err)
	}
}

func TestListPendingNotifications(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	course := createCourse(t, 10, 0)

	for i, lineUserID := range []string{"U-pending", ""} {
		reg := &model.Registration{
			LineUserID:    lineUserID,
			CourseID:      course.ID,
			CourseName:    course.Name,
			Name:          fmt.Sprintf("学员%d", i),
			Mobile:        "0900000000",
			PaymentMethod: model.PaymentMethodOnSite,
			PaymentStatus: model.PaymentStatusUnpaid,
		}
		if err := repo.Registration.Create(ctx, reg); err != nil {
			t.Fatalf("创建报名失败: %v", err)
		}
	}

	inFlight, err := repo.Registration.ListPendingNotifications(ctx, time.Now().Add(-time.Minute), 1000)
	if err != nil {
		t.Fatalf("ListPendingNotifications 失败: %v", err)
	}
	for _, r := range inFlight {
		if r.CourseID == course.ID {
			t.Error("刚写入的记录不应出现在重投列表")
		}
	}

	regs, err := repo.Registration.ListPendingNotifications(ctx, time.Now().Add(time.Second), 1000)
	if err != nil {
		t.Fatalf("ListPendingNotifications 失败: %v", err)
	}
	var mine int
	for _, r := range regs {
		if r.CourseID == course.ID {
			mine++
			if r.LineUserID == "" {
				t.Error("没有推送对象的记录不应出现")
			}
		}
	}
	if mine != 1 {
		t.Errorf("期望 1 条待推送，实际 %d", mine)
	}
}
