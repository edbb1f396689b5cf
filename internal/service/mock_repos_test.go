package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"turnero-padel/backend/config"
	"turnero-padel/backend/internal/eventbus"
	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/repository"
	"turnero-padel/backend/internal/schedule"
	pkgerrors "turnero-padel/backend/pkg/errors"
)

// ── Mock TenantRepository ──

type mockTenantRepo struct {
	tenants map[string]*model.Tenant
	calls   int
	err     error
}

func newMockTenantRepo() *mockTenantRepo {
	return &mockTenantRepo{tenants: make(map[string]*model.Tenant)}
}

func (m *mockTenantRepo) Create(_ context.Context, t *model.Tenant) error {
	if t.ID == "" {
		t.ID = "tenant-" + t.Slug
	}
	m.tenants[t.ID] = t
	return nil
}

func (m *mockTenantRepo) GetByID(_ context.Context, id string) (*model.Tenant, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if t, ok := m.tenants[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTenantRepo) GetBySlug(_ context.Context, slug string) (*model.Tenant, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTenantRepo) ListActive(_ context.Context) ([]model.Tenant, error) {
	var result []model.Tenant
	for _, t := range m.tenants {
		if t.IsActive {
			result = append(result, *t)
		}
	}
	return result, nil
}

// ── Mock CourtRepository ──

type mockCourtRepo struct {
	courts map[string]*model.Court
	locks  int
	err    error
}

func newMockCourtRepo() *mockCourtRepo {
	return &mockCourtRepo{courts: make(map[string]*model.Court)}
}

func (m *mockCourtRepo) Create(_ context.Context, c *model.Court) error {
	if c.ID == "" {
		c.ID = "court-" + c.Name
	}
	m.courts[c.ID] = c
	return nil
}

func (m *mockCourtRepo) GetByID(_ context.Context, tenantID, id string) (*model.Court, error) {
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.courts[id]; ok && c.TenantID == tenantID && c.IsLive() {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourtRepo) LockForBooking(ctx context.Context, tenantID, id string) (*model.Court, error) {
	m.locks++
	return m.GetByID(ctx, tenantID, id)
}

func (m *mockCourtRepo) ListByTenant(_ context.Context, tenantID string) ([]model.Court, error) {
	var result []model.Court
	for _, c := range m.courts {
		if c.TenantID == tenantID && c.IsLive() {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockCourtRepo) Delete(_ context.Context, _ string, id string) error {
	if c, ok := m.courts[id]; ok {
		c.State = model.StateDeleted
	}
	return nil
}

// ── Mock BookingRepository ──

type mockBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	seq      int
	err      error // 所有读操作返回该错误
	// createErr 模拟数据库约束拒绝写入
	createErr error
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{bookings: make(map[string]*model.Booking)}
}

func (m *mockBookingRepo) put(b *model.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		m.seq++
		b.ID = fmt.Sprintf("bk-%d", m.seq)
	}
	if b.State == "" {
		b.State = model.StateLive
	}
	cp := *b
	m.bookings[b.ID] = &cp
}

func (m *mockBookingRepo) get(id string) *model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		cp := *b
		return &cp
	}
	return nil
}

func (m *mockBookingRepo) all() []model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].BookingDate != result[j].BookingDate {
			return result[i].BookingDate < result[j].BookingDate
		}
		if result[i].StartMin != result[j].StartMin {
			return result[i].StartMin < result[j].StartMin
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (m *mockBookingRepo) Create(_ context.Context, b *model.Booking) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.put(b)
	return nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, tenantID, id string) (*model.Booking, error) {
	if m.err != nil {
		return nil, m.err
	}
	if b := m.get(id); b != nil && b.TenantID == tenantID && b.IsLive() {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBookingRepo) ListActiveOnDate(_ context.Context, q repository.SlotQuery) ([]model.Booking, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.Booking
	for _, b := range m.all() {
		if q.TenantID != "" && b.TenantID != q.TenantID {
			continue
		}
		if b.CourtID != q.CourtID || b.BookingDate != q.Date || !b.IsActive() || b.ID == q.ExcludeID {
			continue
		}
		result = append(result, b)
	}
	return result, nil
}

func (m *mockBookingRepo) inRange(q repository.RangeQuery, activeOnly bool) ([]model.Booking, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.Booking
	for _, b := range m.all() {
		if q.TenantID != "" && b.TenantID != q.TenantID {
			continue
		}
		if q.CourtID != "" && b.CourtID != q.CourtID {
			continue
		}
		if b.BookingDate < q.From || b.BookingDate > q.To || !b.IsLive() {
			continue
		}
		if activeOnly && b.Status == model.BookingStatusCancelled {
			continue
		}
		result = append(result, b)
	}
	return result, nil
}

func (m *mockBookingRepo) ListActiveInRange(_ context.Context, q repository.RangeQuery) ([]model.Booking, error) {
	return m.inRange(q, true)
}

func (m *mockBookingRepo) ListInRange(_ context.Context, q repository.RangeQuery) ([]model.Booking, error) {
	return m.inRange(q, false)
}

func (m *mockBookingRepo) ExistsForRecurring(_ context.Context, recurringID, date string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, b := range m.all() {
		if b.RecurringID != nil && *b.RecurringID == recurringID && b.BookingDate == date && b.IsLive() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockBookingRepo) Reschedule(_ context.Context, b *model.Booking) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.put(b)
	return nil
}

func (m *mockBookingRepo) Confirm(_ context.Context, tenantID, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.TenantID != tenantID || b.Status != model.BookingStatusPending {
		return 0, nil
	}
	b.Status = model.BookingStatusConfirmed
	b.PaymentStatus = model.PaymentStatusPaid
	b.ExpiresAt = nil
	return 1, nil
}

func (m *mockBookingRepo) Cancel(_ context.Context, tenantID, id, reason string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.TenantID != tenantID || b.Status == model.BookingStatusCancelled {
		return 0, nil
	}
	b.Status = model.BookingStatusCancelled
	b.CancelledAt = &at
	b.CancellationReason = &reason
	return 1, nil
}

func isExpired(b *model.Booking, now time.Time) bool {
	return b.IsLive() && b.Status == model.BookingStatusPending && b.ExpiresAt != nil && b.ExpiresAt.Before(now)
}

func (m *mockBookingRepo) ListExpired(_ context.Context, tenantID *string, now time.Time) ([]model.Booking, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.Booking
	for _, b := range m.all() {
		if tenantID != nil && b.TenantID != *tenantID {
			continue
		}
		if isExpired(&b, now) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *mockBookingRepo) CountExpiredByTenant(ctx context.Context, now time.Time) ([]repository.ExpiredCount, error) {
	list, err := m.ListExpired(ctx, nil, now)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for _, b := range list {
		counts[b.TenantID]++
	}
	var result []repository.ExpiredCount
	for id, n := range counts {
		result = append(result, repository.ExpiredCount{TenantID: id, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TenantID < result[j].TenantID })
	return result, nil
}

func (m *mockBookingRepo) CancelExpired(_ context.Context, ids []string, now time.Time, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		b, ok := m.bookings[id]
		if !ok || !isExpired(b, now) {
			continue
		}
		at := now
		r := reason
		b.Status = model.BookingStatusCancelled
		b.CancelledAt = &at
		b.CancellationReason = &r
		n++
	}
	return n, nil
}

// ── Mock RecurringRepository ──

type mockRecurringRepo struct {
	rules      map[string]*model.RecurringBookingRule
	exceptions []model.RecurringException
	err        error
}

func newMockRecurringRepo() *mockRecurringRepo {
	return &mockRecurringRepo{rules: make(map[string]*model.RecurringBookingRule)}
}

func (m *mockRecurringRepo) CreateRule(_ context.Context, rule *model.RecurringBookingRule) error {
	if rule.ID == "" {
		rule.ID = fmt.Sprintf("rule-%d", len(m.rules)+1)
	}
	if rule.Status == "" {
		rule.Status = model.RuleStatusActive
	}
	m.rules[rule.ID] = rule
	return nil
}

func (m *mockRecurringRepo) CreateException(_ context.Context, ex *model.RecurringException) error {
	for _, e := range m.exceptions {
		if e.RecurringID == ex.RecurringID && e.Date == ex.Date {
			return fmt.Errorf("%w: duplicate exception", pkgerrors.ErrConflict)
		}
	}
	m.exceptions = append(m.exceptions, *ex)
	return nil
}

func (m *mockRecurringRepo) ListActiveRules(_ context.Context, tenantID *string, courtID string) ([]model.RecurringBookingRule, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.RecurringBookingRule
	for _, r := range m.rules {
		if r.Status != model.RuleStatusActive || !r.IsLive() {
			continue
		}
		if tenantID != nil && r.TenantID != *tenantID {
			continue
		}
		if courtID != "" && r.CourtID != courtID {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockRecurringRepo) ListExceptions(_ context.Context, ruleIDs []string, from, to string) ([]model.RecurringException, error) {
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[string]bool, len(ruleIDs))
	for _, id := range ruleIDs {
		want[id] = true
	}
	var result []model.RecurringException
	for _, e := range m.exceptions {
		if want[e.RecurringID] && e.Date >= from && e.Date <= to {
			result = append(result, e)
		}
	}
	return result, nil
}

// ── Mock CourtBlockRepository ──

type mockCourtBlockRepo struct {
	blocks map[string]*model.CourtBlock
	err    error
}

func newMockCourtBlockRepo() *mockCourtBlockRepo {
	return &mockCourtBlockRepo{blocks: make(map[string]*model.CourtBlock)}
}

func (m *mockCourtBlockRepo) Create(_ context.Context, b *model.CourtBlock) error {
	if b.ID == "" {
		b.ID = fmt.Sprintf("block-%d", len(m.blocks)+1)
	}
	m.blocks[b.ID] = b
	return nil
}

func (m *mockCourtBlockRepo) ListInRange(_ context.Context, q repository.RangeQuery) ([]model.CourtBlock, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.CourtBlock
	for _, b := range m.blocks {
		if q.TenantID != "" && b.TenantID != q.TenantID {
			continue
		}
		if q.CourtID != "" && b.CourtID != q.CourtID {
			continue
		}
		if b.Date < q.From || b.Date > q.To || !b.IsLive() {
			continue
		}
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockCourtBlockRepo) Delete(_ context.Context, _ string, id string) error {
	if b, ok := m.blocks[id]; ok {
		b.State = model.StateDeleted
	}
	return nil
}

// ── Mock SystemSettingRepository ──

type mockSettingRepo struct {
	settings map[string]map[string]string
	err      error
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{settings: make(map[string]map[string]string)}
}

func (m *mockSettingRepo) ListByTenant(_ context.Context, tenantID string) ([]model.SystemSetting, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.SystemSetting
	for k, v := range m.settings[tenantID] {
		result = append(result, model.SystemSetting{TenantID: tenantID, Key: k, Value: v})
	}
	return result, nil
}

func (m *mockSettingRepo) Upsert(_ context.Context, s *model.SystemSetting) error {
	if m.err != nil {
		return m.err
	}
	if m.settings[s.TenantID] == nil {
		m.settings[s.TenantID] = make(map[string]string)
	}
	m.settings[s.TenantID][s.Key] = s.Value
	return nil
}

// ── Mock AdminRepository ──

type mockAdminRepo struct {
	entries []model.AdminEntry
	err     error
}

func newMockAdminRepo() *mockAdminRepo {
	return &mockAdminRepo{}
}

func (m *mockAdminRepo) Create(_ context.Context, e *model.AdminEntry) error {
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockAdminRepo) HasActiveEntry(_ context.Context, email string, tenantID *string, role string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, e := range m.entries {
		if !e.IsActive || e.Role != role || !strings.EqualFold(e.Email, email) {
			continue
		}
		if tenantID == nil && e.TenantID == nil {
			return true, nil
		}
		if tenantID != nil && e.TenantID != nil && *e.TenantID == *tenantID {
			return true, nil
		}
	}
	return false, nil
}

// ── 录制事件 ──

type recordingEmitter struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (r *recordingEmitter) Emit(e eventbus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) ofType(t eventbus.EventType) []eventbus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []eventbus.Event
	for _, e := range r.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// ── 测试夹具 ──

type mocks struct {
	tenants   *mockTenantRepo
	courts    *mockCourtRepo
	bookings  *mockBookingRepo
	recurring *mockRecurringRepo
	blocks    *mockCourtBlockRepo
	settings  *mockSettingRepo
	admins    *mockAdminRepo
	events    *recordingEmitter
}

func newMocks() *mocks {
	return &mocks{
		tenants:   newMockTenantRepo(),
		courts:    newMockCourtRepo(),
		bookings:  newMockBookingRepo(),
		recurring: newMockRecurringRepo(),
		blocks:    newMockCourtBlockRepo(),
		settings:  newMockSettingRepo(),
		admins:    newMockAdminRepo(),
		events:    &recordingEmitter{},
	}
}

func (m *mocks) repo() *repository.Repository {
	return &repository.Repository{
		Tenant:     m.tenants,
		Court:      m.courts,
		Booking:    m.bookings,
		Recurring:  m.recurring,
		CourtBlock: m.blocks,
		Setting:    m.settings,
		Admin:      m.admins,
	}
}

const (
	tenantA = "tenant-a"
	tenantB = "tenant-b"
	courtA1 = "court-a1"
	courtB1 = "court-b1"
)

// fixedNow 2025-06-10 10:00（周二），业务时区 UTC
var fixedNow = time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testBookingConfig() *config.BookingConfig {
	return &config.BookingConfig{
		Timezone:        "UTC",
		PaymentDeadline: 30 * time.Minute,
		HorizonDays:     7,
		DefaultPrice:    "5000",
	}
}

// seedCourts 每个租户一个场地
func (m *mocks) seedCourts() {
	_ = m.courts.Create(context.Background(), &model.Court{ID: courtA1, TenantID: tenantA, Name: "Cancha 1"})
	_ = m.courts.Create(context.Background(), &model.Court{ID: courtB1, TenantID: tenantB, Name: "Cancha B"})
}

func (m *mocks) seedBooking(id, tenantID, courtID, date, start, end, status string) *model.Booking {
	iv := mustInterval(start, end)
	b := &model.Booking{
		ID:            id,
		TenantID:      tenantID,
		CourtID:       courtID,
		UserID:        "user-1",
		BookingDate:   date,
		StartTime:     start,
		EndTime:       end,
		StartMin:      iv.Start,
		EndMin:        iv.End,
		Status:        status,
		PaymentStatus: model.PaymentStatusPending,
	}
	m.bookings.put(b)
	return b
}

func member(id, tenantID string) *model.Principal {
	tid := tenantID
	return &model.Principal{ID: id, Email: id + "@example.com", Role: model.RoleUser, TenantID: &tid}
}

func tenantAdmin(id, tenantID string) *model.Principal {
	p := member(id, tenantID)
	p.Role = model.RoleAdmin
	p.IsAdmin = true
	return p
}

func superAdmin() *model.Principal {
	return &model.Principal{ID: "root", Email: "root@example.com", Role: model.RoleSuperAdmin, IsSuperAdmin: true}
}

func nopLogger() *zap.Logger { return zap.NewNop() }

func mustInterval(start, end string) schedule.Interval {
	iv, err := schedule.NewInterval(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}
