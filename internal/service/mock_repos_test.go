package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"course-signup/internal/model"
	"course-signup/internal/repository"
	"course-signup/internal/worker"
	apperrors "course-signup/pkg/errors"
	"course-signup/pkg/flex"
	"course-signup/pkg/line"
)

// malformedUUID 模拟 PostgreSQL 对非法 uuid 的报错（22P02），service 层应在此之前拦截
func malformedUUID(op, table, id string) error {
	if _, err := uuid.Parse(id); err == nil && len(id) == 36 {
		return nil
	}
	return apperrors.WrapStore(op, table, &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"})
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // key: line_user_id
	seq   int
	err   error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) UpsertByLineUserID(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return apperrors.WrapStore("upsert", "users", m.err)
	}

	existing, ok := m.users[user.LineUserID]
	if !ok {
		m.seq++
		user.ID = fmt.Sprintf("user-%d", m.seq)
		cp := *user
		m.users[user.LineUserID] = &cp
		return nil
	}

	existing.DisplayName = user.DisplayName
	existing.PictureURL = user.PictureURL
	existing.StatusMessage = user.StatusMessage
	existing.IsLineFriend = user.IsLineFriend
	existing.LastLoginAt = user.LastLoginAt
	if existing.Mobile == nil {
		existing.Mobile = user.Mobile
	}
	if existing.FriendAddedAt == nil {
		existing.FriendAddedAt = user.FriendAddedAt
	}
	*user = *existing
	return nil
}

func (m *mockUserRepo) byLineUserID(_ context.Context, lineUserID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[lineUserID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperrors.WrapStore("find", "users", gorm.ErrRecordNotFound)
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	mu        sync.Mutex
	courses   map[string]*model.Course
	seq       int
	adjustErr error
	inUse     map[string]bool // 有报名的课程，删除时返回外键错误
	// beforeUpdate 在 UpdateColumns 写入前执行，用来插入并发的报名
	beforeUpdate func()
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course), inUse: make(map[string]bool)}
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	m.seq++
	course.CreatedAt = time.Date(2026, 10, 1, 9, 0, m.seq, 0, time.UTC)
	course.UpdatedAt = course.CreatedAt
	cp := *course
	m.courses[course.ID] = &cp
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	if err := malformedUUID("find", "courses", id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, apperrors.WrapStore("find", "courses", gorm.ErrRecordNotFound)
}

func (m *mockCourseRepo) List(_ context.Context) ([]model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Course
	for _, c := range m.courses {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *mockCourseRepo) UpdateColumns(_ context.Context, id string, columns map[string]interface{}) (*model.Course, error) {
	if err := malformedUUID("update", "courses", id); err != nil {
		return nil, err
	}
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, apperrors.WrapStore("update", "courses", gorm.ErrRecordNotFound)
	}
	for col, v := range columns {
		switch col {
		case "name":
			c.Name = v.(string)
		case "teacher":
			c.Teacher = v.(string)
		case "schedule":
			c.Schedule = v.(string)
		case "location":
			c.Location = v.(string)
		case "description":
			c.Description = v.(string)
		case "cost":
			c.Cost = v.(int)
		case "capacity":
			c.Capacity = v.(int)
		case "current_enrolled":
			c.CurrentEnrolled = v.(int)
		default:
			return nil, fmt.Errorf("unexpected column %q", col)
		}
	}
	c.ComputeIsFull()
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (m *mockCourseRepo) Delete(_ context.Context, id string) error {
	if err := malformedUUID("delete", "courses", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[id]; !ok {
		return apperrors.WrapStore("delete", "courses", gorm.ErrRecordNotFound)
	}
	if m.inUse[id] {
		return repository.ErrCourseHasRegistrations
	}
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) AdjustEnrollment(_ context.Context, id string, delta int) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adjustErr != nil {
		return nil, apperrors.WrapStore("update", "courses", m.adjustErr)
	}
	c, ok := m.courses[id]
	if !ok {
		return nil, apperrors.WrapStore("update", "courses", gorm.ErrRecordNotFound)
	}
	c.CurrentEnrolled += delta
	if c.CurrentEnrolled < 0 {
		c.CurrentEnrolled = 0
	}
	c.IsFull = c.CurrentEnrolled >= c.Capacity
	cp := *c
	return &cp, nil
}

// ── Mock RegistrationRepository ──

type mockRegistrationRepo struct {
	mu        sync.Mutex
	regs      map[string]*model.Registration
	courses   *mockCourseRepo
	seq       int
	createErr error
}

func newMockRegistrationRepo(courses *mockCourseRepo) *mockRegistrationRepo {
	return &mockRegistrationRepo{regs: make(map[string]*model.Registration), courses: courses}
}

func (m *mockRegistrationRepo) Create(_ context.Context, reg *model.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return apperrors.WrapStore("insert", "registrations", m.createErr)
	}
	m.seq++
	reg.ID = uuid.NewString()
	reg.CreatedAt = time.Date(2026, 10, 18, 9, 0, m.seq, 0, time.UTC)
	reg.UpdatedAt = time.Now()
	cp := *reg
	m.regs[reg.ID] = &cp
	return nil
}

func (m *mockRegistrationRepo) GetByID(_ context.Context, id string) (*model.Registration, error) {
	if err := malformedUUID("find", "registrations", id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.regs[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, apperrors.WrapStore("find", "registrations", gorm.ErrRecordNotFound)
}

func (m *mockRegistrationRepo) sorted() []model.Registration {
	var result []model.Registration
	for _, r := range m.regs {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

func (m *mockRegistrationRepo) List(_ context.Context, filter repository.RegistrationFilter) ([]model.Registration, int64, error) {
	if filter.CourseID != "" {
		if err := malformedUUID("find", "registrations", filter.CourseID); err != nil {
			return nil, 0, err
		}
	}
	if _, err := repository.ParseSort(filter.Sort); err != nil {
		return nil, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Registration
	for _, r := range m.sorted() {
		if filter.CourseID == "" || r.CourseID == filter.CourseID {
			result = append(result, r)
		}
	}
	total := int64(len(result))
	if filter.Offset >= len(result) {
		return []model.Registration{}, total, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, total, nil
}

func (m *mockRegistrationRepo) ListByUser(_ context.Context, userID string) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Registration
	for _, r := range m.sorted() {
		if r.UserID != nil && *r.UserID == userID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockRegistrationRepo) ListPendingNotifications(_ context.Context, before time.Time, limit int) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Registration
	for _, r := range m.sorted() {
		if !r.LineNotified && r.LineUserID != "" && r.UpdatedAt.Before(before) {
			result = append(result, r)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockRegistrationRepo) update(id string, fn func(r *model.Registration)) error {
	if err := malformedUUID("update", "registrations", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok {
		return apperrors.WrapStore("update", "registrations", gorm.ErrRecordNotFound)
	}
	fn(r)
	r.UpdatedAt = time.Now()
	return nil
}

// age 把记录的最后变动时间往前推 d
func (m *mockRegistrationRepo) age(id string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.regs[id]; ok {
		r.UpdatedAt = time.Now().Add(-d)
	}
}

func (m *mockRegistrationRepo) MarkTagged(_ context.Context, id, tagName string) error {
	return m.update(id, func(r *model.Registration) {
		now := time.Now()
		r.LineTagged = true
		r.LineTagName = tagName
		r.LineTaggedAt = &now
	})
}

func (m *mockRegistrationRepo) UpdateNotificationStatus(_ context.Context, id string, notified bool, errMsg string) error {
	return m.update(id, func(r *model.Registration) {
		r.LineNotified = notified
		r.LineNotifyError = errMsg
		if notified {
			now := time.Now()
			r.LineNotifiedAt = &now
		}
	})
}

func (m *mockRegistrationRepo) UpdatePaymentStatus(_ context.Context, id, status string) error {
	return m.update(id, func(r *model.Registration) { r.PaymentStatus = status })
}

func (m *mockRegistrationRepo) Delete(ctx context.Context, id string) error {
	if err := malformedUUID("delete", "registrations", id); err != nil {
		return err
	}
	m.mu.Lock()
	r, ok := m.regs[id]
	if !ok {
		m.mu.Unlock()
		return apperrors.WrapStore("find", "registrations", gorm.ErrRecordNotFound)
	}
	delete(m.regs, id)
	m.mu.Unlock()

	_, err := m.courses.AdjustEnrollment(ctx, r.CourseID, -1)
	return err
}

func (m *mockRegistrationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.regs)
}

// ── Mock TagLogRepository ──

type mockTagLogRepo struct {
	mu   sync.Mutex
	logs []model.TagLog
}

func (m *mockTagLogRepo) Create(_ context.Context, log *model.TagLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = fmt.Sprintf("tag-%d", len(m.logs)+1)
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockTagLogRepo) byLineUser(_ context.Context, lineUserID string) ([]model.TagLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.TagLog
	for _, l := range m.logs {
		if l.LineUserID == lineUserID {
			result = append(result, l)
		}
	}
	return result, nil
}

// ── Mock NotificationAttemptRepository ──

type mockAttemptRepo struct {
	mu       sync.Mutex
	attempts []model.NotificationAttempt
}

func (m *mockAttemptRepo) Create(_ context.Context, a *model.NotificationAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = fmt.Sprintf("attempt-%d", len(m.attempts)+1)
	m.attempts = append(m.attempts, *a)
	return nil
}

func (m *mockAttemptRepo) ListByRegistration(_ context.Context, registrationID string) ([]model.NotificationAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.NotificationAttempt
	for _, a := range m.attempts {
		if a.RegistrationID == registrationID {
			result = append(result, a)
		}
	}
	return result, nil
}

// ── Mock LINE ──

type mockLine struct {
	mu       sync.Mutex
	profile  *line.Profile
	friend   bool
	exchErr  error
	pushErr  error
	pushed   map[string][]flex.Message
	lastCode string
}

func newMockLine() *mockLine {
	return &mockLine{
		profile: &line.Profile{UserID: "U-line-1", DisplayName: "小明", PictureURL: "https://example.com/p.png"},
		friend:  true,
		pushed:  make(map[string][]flex.Message),
	}
}

func (m *mockLine) AuthCodeURL(state string) string {
	return "https://access.line.me/oauth2/v2.1/authorize?state=" + state
}

func (m *mockLine) ExchangeCode(_ context.Context, code string) (*line.TokenSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCode = code
	if m.exchErr != nil {
		return nil, m.exchErr
	}
	return &line.TokenSet{AccessToken: "access-" + code, IDToken: "id-" + code}, nil
}

func (m *mockLine) GetProfile(_ context.Context, _ string) (*line.Profile, error) {
	cp := *m.profile
	return &cp, nil
}

func (m *mockLine) CheckFriendship(_ context.Context, _ string) bool { return m.friend }

func (m *mockLine) SendPush(_ context.Context, to string, messages ...flex.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushErr != nil {
		return m.pushErr
	}
	m.pushed[to] = append(m.pushed[to], messages...)
	return nil
}

func (m *mockLine) pushedTo(to string) []flex.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushed[to]
}

// ── Mock StateStore ──

type mockStates struct {
	mu     sync.Mutex
	states map[string]bool
}

func newMockStates() *mockStates { return &mockStates{states: make(map[string]bool)} }

func (m *mockStates) NewLoginState(_ context.Context, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := fmt.Sprintf("state-%d", len(m.states)+1)
	m.states[s] = true
	return s, nil
}

func (m *mockStates) ConsumeLoginState(_ context.Context, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.states[state] {
		return fmt.Errorf("state not found")
	}
	delete(m.states, state)
	return nil
}

// ── Mock Dispatcher ──

type mockDispatcher struct {
	mu    sync.Mutex
	tasks []worker.Task
	err   error
}

func (m *mockDispatcher) Submit(_ context.Context, task worker.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockDispatcher) Close() error { return nil }
