package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"turnero-padel/backend/internal/api/middleware"
	"turnero-padel/backend/internal/dto"
	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/repository"
	"turnero-padel/backend/internal/service"
	pkgerrors "turnero-padel/backend/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

const (
	tenantA = "11111111-1111-1111-1111-111111111111"
	tenantB = "22222222-2222-2222-2222-222222222222"
)

// ── Mock TenantResolver ──

type mockResolver struct {
	tenants map[string]*model.Tenant
}

func newMockResolver() *mockResolver {
	return &mockResolver{tenants: map[string]*model.Tenant{
		tenantA: {ID: tenantA, Name: "Club A", Slug: "club-a", IsActive: true},
		tenantB: {ID: tenantB, Name: "Club B", Slug: "club-b", IsActive: true},
	}}
}

func (m *mockResolver) Resolve(_ context.Context, ref service.TenantRef) *model.Tenant {
	if t, ok := m.tenants[ref.ID]; ok {
		return t
	}
	for _, t := range m.tenants {
		if ref.Slug != "" && t.Slug == ref.Slug || ref.Header != "" && t.Slug == ref.Header {
			return t
		}
	}
	return nil
}

func (m *mockResolver) ClearCache(context.Context, string) {}

// ── Mock AdminRepository ──

type mockAdminRepo struct{}

func (mockAdminRepo) Create(context.Context, *model.AdminEntry) error { return nil }
func (mockAdminRepo) HasActiveEntry(context.Context, string, *string, string) (bool, error) {
	return false, nil
}

func newPerm() *service.PermissionEvaluator {
	return service.NewPermissionEvaluator(&repository.Repository{Admin: mockAdminRepo{}}, zap.NewNop())
}

// ── Mock AvailabilityService ──

type mockAvailabilityService struct {
	lastQuery   service.AvailabilityQuery
	availResult *dto.AvailabilityResult
	slots       []dto.DaySlots
	err         error
}

func (m *mockAvailabilityService) GetAvailableSlots(_ context.Context, q service.AvailabilityQuery) (*dto.AvailabilityResult, error) {
	m.lastQuery = q
	return m.availResult, m.err
}

func (m *mockAvailabilityService) GetOpenSlots(_ context.Context, q service.AvailabilityQuery) ([]dto.DaySlots, error) {
	m.lastQuery = q
	return m.slots, m.err
}

// ── Mock BookingService ──

type mockBookingService struct {
	result     *dto.BookingResponse
	err        error
	lastTenant string
	lastCancel *dto.CancelBookingRequest
}

func (m *mockBookingService) Get(_ context.Context, _ *model.Principal, tenantID, _ string) (*dto.BookingResponse, error) {
	m.lastTenant = tenantID
	return m.result, m.err
}
func (m *mockBookingService) Create(_ context.Context, _ *model.Principal, tenantID string, _ *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	m.lastTenant = tenantID
	return m.result, m.err
}
func (m *mockBookingService) Reschedule(_ context.Context, _ *model.Principal, tenantID, _ string, _ *dto.RescheduleBookingRequest) (*dto.BookingResponse, error) {
	m.lastTenant = tenantID
	return m.result, m.err
}
func (m *mockBookingService) Confirm(_ context.Context, _ *model.Principal, tenantID, _ string) (*dto.BookingResponse, error) {
	m.lastTenant = tenantID
	return m.result, m.err
}
func (m *mockBookingService) Cancel(_ context.Context, _ *model.Principal, tenantID, _ string, req *dto.CancelBookingRequest) (*dto.BookingResponse, error) {
	m.lastTenant = tenantID
	m.lastCancel = req
	return m.result, m.err
}

// ── Mock SettingsService ──

type mockSettingsService struct {
	updated *dto.UpdateSettingRequest
}

func (m *mockSettingsService) GetOperatingHours(context.Context, string) service.OperatingHours {
	return service.DefaultOperatingHours()
}
func (m *mockSettingsService) Get(context.Context, string) *dto.OperatingSettings {
	return &dto.OperatingSettings{OpenTime: "08:00", CloseTime: "23:00", SlotDuration: 90}
}
func (m *mockSettingsService) Update(_ context.Context, _ string, req *dto.UpdateSettingRequest) (*dto.OperatingSettings, error) {
	m.updated = req
	return m.Get(context.Background(), ""), nil
}

// ── Mock RecurringGenerator / ExpirationSweeper ──

type mockGenerator struct {
	called   bool
	tenantID *string
	err      error
}

func (m *mockGenerator) Generate(_ context.Context, tenantID *string) (*dto.GenerateResult, error) {
	m.called = true
	m.tenantID = tenantID
	if m.err != nil {
		return nil, m.err
	}
	return &dto.GenerateResult{Created: 3, Conflicts: 1}, nil
}

type mockSweeper struct {
	tenantID *string
}

func (m *mockSweeper) CancelExpiredBookings(_ context.Context, tenantID *string) (int64, error) {
	m.tenantID = tenantID
	return 2, nil
}
func (m *mockSweeper) GetExpiredBookingsStats(_ context.Context, tenantID *string) (*dto.ExpiredStats, error) {
	m.tenantID = tenantID
	return &dto.ExpiredStats{TotalExpired: 2, ExpiredIDs: []string{"b1", "b2"}}, nil
}

// ── Mock ExportService ──

type mockExportService struct {
	err error
}

func (m *mockExportService) ExportBookings(context.Context, string, string, string) (*bytes.Buffer, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return bytes.NewBufferString("xlsx"), "预订报表_2025-06-01_2025-06-07.xlsx", nil
}
func (m *mockExportService) CourtCalendar(context.Context, string, string, string, string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", nil
}

// ═══════════════════════════════════════════════════════════
// 测试工具
// ═══════════════════════════════════════════════════════════

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details string          `json:"details"`
}

func member(tenantID string) *model.Principal {
	return &model.Principal{ID: "user-1", Email: "user@example.com", Role: model.RoleUser, TenantID: &tenantID}
}

func admin(tenantID string) *model.Principal {
	return &model.Principal{ID: "admin-1", Email: "admin@example.com", Role: model.RoleAdmin, IsAdmin: true, TenantID: &tenantID}
}

func superAdmin() *model.Principal {
	return &model.Principal{ID: "root", Email: "root@example.com", Role: model.RoleSuperAdmin, IsSuperAdmin: true}
}

// withPrincipal 模拟认证中间件；p 为 nil 时不注入
func withPrincipal(p *model.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			middleware.SetPrincipal(c, p)
		}
		c.Next()
	}
}

func newEngine(p *model.Principal, tenantRequired bool) *gin.Engine {
	r := gin.New()
	r.Use(withPrincipal(p), middleware.Tenant(newMockResolver(), tenantRequired))
	return r
}

func doRequest(r *gin.Engine, method, path, tenantID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tenantID != "" {
		req.Header.Set(middleware.HeaderTenantID, tenantID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应不是合法 JSON: %v (%s)", err, w.Body.String())
	}
	return resp
}

// ═══════════════════════════════════════════════════════════
// AvailabilityHandler
// ═══════════════════════════════════════════════════════════

func TestGetOpenSlots_AnonymousIsUser(t *testing.T) {
	svc := &mockAvailabilityService{slots: []dto.DaySlots{{Date: "2025-06-10", SlotDuration: 90}}}
	h := NewAvailabilityHandler(svc, newPerm())
	r := newEngine(nil, false)
	r.GET("/courts/:id/slots", h.GetOpenSlots)

	w := doRequest(r, http.MethodGet, "/courts/c1/slots?from=2025-06-10&to=2025-06-10", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d: %s", w.Code, w.Body.String())
	}
	if svc.lastQuery.Role != model.RoleUser {
		t.Errorf("匿名请求应按 USER 查询，实际 %q", svc.lastQuery.Role)
	}
	if svc.lastQuery.TenantID != nil {
		t.Error("未指定租户时不应按租户过滤")
	}
	if svc.lastQuery.CourtID != "c1" {
		t.Errorf("期望 courtID=c1，实际 %q", svc.lastQuery.CourtID)
	}
}

func TestGetAvailability_TenantAdminRole(t *testing.T) {
	svc := &mockAvailabilityService{availResult: &dto.AvailabilityResult{ThresholdDate: "2025-06-17"}}
	h := NewAvailabilityHandler(svc, newPerm())
	r := newEngine(admin(tenantA), false)
	r.GET("/courts/:id/availability", h.GetAvailability)

	w := doRequest(r, http.MethodGet, "/courts/c1/availability?from=2025-06-10&to=2025-06-12", tenantA, "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if svc.lastQuery.Role != model.RoleAdmin {
		t.Errorf("本租户管理员应按 ADMIN 查询，实际 %q", svc.lastQuery.Role)
	}
	if svc.lastQuery.TenantID == nil || *svc.lastQuery.TenantID != tenantA {
		t.Error("应传入解析出的租户")
	}
}

func TestGetAvailability_AdminOfOtherTenantIsUser(t *testing.T) {
	svc := &mockAvailabilityService{availResult: &dto.AvailabilityResult{}}
	h := NewAvailabilityHandler(svc, newPerm())
	r := newEngine(admin(tenantB), false)
	r.GET("/courts/:id/availability", h.GetAvailability)

	doRequest(r, http.MethodGet, "/courts/c1/availability?from=2025-06-10&to=2025-06-12", tenantA, "")
	if svc.lastQuery.Role != model.RoleUser {
		t.Errorf("其他租户的管理员应按 USER 查询，实际 %q", svc.lastQuery.Role)
	}
}

func TestGetAvailability_MissingQuery(t *testing.T) {
	h := NewAvailabilityHandler(&mockAvailabilityService{}, newPerm())
	r := newEngine(nil, false)
	r.GET("/courts/:id/availability", h.GetAvailability)

	w := doRequest(r, http.MethodGet, "/courts/c1/availability?from=2025-06-10", "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("缺少 to 应返回 400，实际 %d", w.Code)
	}
	if resp := decode(t, w); resp.Code != 10001 {
		t.Errorf("期望 code=10001，实际 %d", resp.Code)
	}
}

func TestGetAvailability_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"跨度过大", service.ErrInvalidDateRange, http.StatusBadRequest, 20002},
		{"场地不存在", service.ErrCourtNotFound, http.StatusNotFound, 20101},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError, 50000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAvailabilityHandler(&mockAvailabilityService{err: tc.err}, newPerm())
			r := newEngine(nil, false)
			r.GET("/courts/:id/availability", h.GetAvailability)

			w := doRequest(r, http.MethodGet, "/courts/c1/availability?from=2025-06-10&to=2025-06-12", "", "")
			if w.Code != tc.wantStatus {
				t.Fatalf("期望 %d，实际 %d", tc.wantStatus, w.Code)
			}
			if resp := decode(t, w); resp.Code != tc.wantCode {
				t.Errorf("期望 code=%d，实际 %d", tc.wantCode, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// BookingHandler
// ═══════════════════════════════════════════════════════════

const createBody = `{"courtId":"c1","date":"2025-06-10","startTime":"19:00","endTime":"20:30"}`

func TestCreateBooking_Success(t *testing.T) {
	svc := &mockBookingService{result: &dto.BookingResponse{ID: "b1", Status: model.BookingStatusPending}}
	h := NewBookingHandler(svc)
	r := newEngine(member(tenantA), true)
	r.POST("/bookings", h.CreateBooking)

	w := doRequest(r, http.MethodPost, "/bookings", tenantA, createBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d: %s", w.Code, w.Body.String())
	}
	var booking dto.BookingResponse
	if err := json.Unmarshal(decode(t, w).Data, &booking); err != nil {
		t.Fatalf("解析预订失败: %v", err)
	}
	if booking.ID != "b1" || svc.lastTenant != tenantA {
		t.Errorf("响应或租户不符: %+v tenant=%s", booking, svc.lastTenant)
	}
}

func TestCreateBooking_SlotTaken(t *testing.T) {
	svc := &mockBookingService{err: fmt.Errorf("%w (duplicate)", service.ErrSlotUnavailable)}
	h := NewBookingHandler(svc)
	r := newEngine(member(tenantA), true)
	r.POST("/bookings", h.CreateBooking)

	w := doRequest(r, http.MethodPost, "/bookings", tenantA, createBody)
	if w.Code != http.StatusConflict {
		t.Fatalf("期望 409，实际 %d", w.Code)
	}
	if resp := decode(t, w); resp.Code != 20201 {
		t.Errorf("期望 code=20201，实际 %d", resp.Code)
	}
}

func TestCreateBooking_Unauthenticated(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{})
	r := newEngine(nil, true)
	r.POST("/bookings", h.CreateBooking)

	w := doRequest(r, http.MethodPost, "/bookings", tenantA, createBody)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("期望 401，实际 %d", w.Code)
	}
}

func TestCreateBooking_UnknownTenant(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{})
	r := newEngine(member(tenantA), true)
	r.POST("/bookings", h.CreateBooking)

	w := doRequest(r, http.MethodPost, "/bookings", "33333333-3333-3333-3333-333333333333", createBody)
	if w.Code != http.StatusNotFound {
		t.Fatalf("期望 404，实际 %d", w.Code)
	}
	if resp := decode(t, w); resp.Code != 30001 {
		t.Errorf("期望 code=30001，实际 %d", resp.Code)
	}
}

func TestCreateBooking_InvalidBody(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{})
	r := newEngine(member(tenantA), true)
	r.POST("/bookings", h.CreateBooking)

	w := doRequest(r, http.MethodPost, "/bookings", tenantA, `{"courtId":"c1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("期望 400，实际 %d", w.Code)
	}
}

func TestCreateBooking_BodyTooLarge(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{})
	r := gin.New()
	r.Use(middleware.BodyLimit(16), withPrincipal(member(tenantA)), middleware.Tenant(newMockResolver(), true))
	r.POST("/bookings", h.CreateBooking)

	w := doRequest(r, http.MethodPost, "/bookings", tenantA, createBody)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("期望 413，实际 %d", w.Code)
	}
}

func TestConfirmBooking_PermissionDenied(t *testing.T) {
	svc := &mockBookingService{err: fmt.Errorf("确认预订: %w", errPermission(service.TierTenantAdmin))}
	h := NewBookingHandler(svc)
	r := newEngine(member(tenantA), true)
	r.POST("/bookings/:id/confirm", h.ConfirmBooking)

	w := doRequest(r, http.MethodPost, "/bookings/b1/confirm", tenantA, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("期望 403，实际 %d", w.Code)
	}
	if resp := decode(t, w); resp.Details != service.TierTenantAdmin {
		t.Errorf("响应应携带缺失层级，实际 %q", resp.Details)
	}
}

func TestCancelBooking_EmptyBody(t *testing.T) {
	svc := &mockBookingService{result: &dto.BookingResponse{ID: "b1", Status: model.BookingStatusCancelled}}
	h := NewBookingHandler(svc)
	r := newEngine(member(tenantA), true)
	r.POST("/bookings/:id/cancel", h.CancelBooking)

	w := doRequest(r, http.MethodPost, "/bookings/b1/cancel", tenantA, "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d: %s", w.Code, w.Body.String())
	}
	if svc.lastCancel == nil || svc.lastCancel.Reason != "" {
		t.Error("无请求体时应传入空原因")
	}
}

func TestRescheduleBooking_AlreadyCancelled(t *testing.T) {
	svc := &mockBookingService{err: service.ErrBookingCancelled}
	h := NewBookingHandler(svc)
	r := newEngine(member(tenantA), true)
	r.PUT("/bookings/:id/reschedule", h.RescheduleBooking)

	w := doRequest(r, http.MethodPut, "/bookings/b1/reschedule", tenantA,
		`{"date":"2025-06-11","startTime":"10:00","endTime":"11:30"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("期望 409，实际 %d", w.Code)
	}
	if resp := decode(t, w); resp.Code != 20204 {
		t.Errorf("期望 code=20204，实际 %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SettingsHandler
// ═══════════════════════════════════════════════════════════

func TestUpdateSetting_RequiresTenantAdmin(t *testing.T) {
	svc := &mockSettingsService{}
	h := NewSettingsHandler(svc, newPerm())

	r := newEngine(member(tenantA), true)
	r.PUT("/settings", h.UpdateSetting)
	w := doRequest(r, http.MethodPut, "/settings", tenantA, `{"key":"slot_duration_minutes","value":"60"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("普通成员应返回 403，实际 %d", w.Code)
	}
	if svc.updated != nil {
		t.Error("无权限时不应调用 Update")
	}

	r = newEngine(admin(tenantA), true)
	r.PUT("/settings", h.UpdateSetting)
	w = doRequest(r, http.MethodPut, "/settings", tenantA, `{"key":"slot_duration_minutes","value":"60"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("管理员应返回 200，实际 %d", w.Code)
	}
	if svc.updated == nil || svc.updated.Value != "60" {
		t.Error("应调用 Update")
	}
}

// ═══════════════════════════════════════════════════════════
// JobsHandler
// ═══════════════════════════════════════════════════════════

func TestJobsGenerate_GlobalScopeRequiresSuperAdmin(t *testing.T) {
	gen := &mockGenerator{}
	h := NewJobsHandler(gen, &mockSweeper{}, newPerm())
	r := newEngine(admin(tenantA), false)
	r.POST("/admin/jobs/generate", h.Generate)

	w := doRequest(r, http.MethodPost, "/admin/jobs/generate?scope=all", "", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("期望 403，实际 %d", w.Code)
	}
	if resp := decode(t, w); resp.Details != service.TierSuperAdmin {
		t.Errorf("期望缺失层级 super_admin，实际 %q", resp.Details)
	}
	if gen.called {
		t.Error("无权限时不应执行任务")
	}
}

func TestJobsGenerate_SuperAdminGlobal(t *testing.T) {
	gen := &mockGenerator{}
	h := NewJobsHandler(gen, &mockSweeper{}, newPerm())
	r := newEngine(superAdmin(), false)
	r.POST("/admin/jobs/generate", h.Generate)

	w := doRequest(r, http.MethodPost, "/admin/jobs/generate?scope=all", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if !gen.called || gen.tenantID != nil {
		t.Error("全局范围应以 nil 租户执行")
	}
	var result dto.GenerateResult
	_ = json.Unmarshal(decode(t, w).Data, &result)
	if result.Created != 3 || result.Conflicts != 1 {
		t.Errorf("结果不符: %+v", result)
	}
}

func TestJobsExpire_TenantScope(t *testing.T) {
	sweeper := &mockSweeper{}
	h := NewJobsHandler(&mockGenerator{}, sweeper, newPerm())
	r := newEngine(admin(tenantA), false)
	r.POST("/admin/jobs/expire", h.Expire)

	w := doRequest(r, http.MethodPost, "/admin/jobs/expire", tenantA, "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if sweeper.tenantID == nil || *sweeper.tenantID != tenantA {
		t.Error("应限定在当前租户")
	}
}

func TestJobsExpiredStats_TenantMissing(t *testing.T) {
	h := NewJobsHandler(&mockGenerator{}, &mockSweeper{}, newPerm())
	r := newEngine(admin(tenantA), false)
	r.GET("/admin/jobs/expired-stats", h.ExpiredStats)

	w := doRequest(r, http.MethodGet, "/admin/jobs/expired-stats", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("未指定租户且非全局范围应返回 404，实际 %d", w.Code)
	}
}

func TestJobsGenerate_Failure(t *testing.T) {
	h := NewJobsHandler(&mockGenerator{err: errors.New("db down")}, &mockSweeper{}, newPerm())
	r := newEngine(superAdmin(), false)
	r.POST("/admin/jobs/generate", h.Generate)

	w := doRequest(r, http.MethodPost, "/admin/jobs/generate?scope=all", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("期望 500，实际 %d", w.Code)
	}
	if resp := decode(t, w); resp.Code != 40001 {
		t.Errorf("期望 code=40001，实际 %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler
// ═══════════════════════════════════════════════════════════

func TestExportBookings_Headers(t *testing.T) {
	h := NewExportHandler(&mockExportService{}, newPerm())
	r := newEngine(admin(tenantA), true)
	r.GET("/admin/export/bookings.xlsx", h.ExportBookings)

	w := doRequest(r, http.MethodGet, "/admin/export/bookings.xlsx?from=2025-06-01&to=2025-06-07", tenantA, "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Errorf("Content-Type 不符: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename*=UTF-8''") {
		t.Errorf("Content-Disposition 不符: %s", cd)
	}
}

func TestExportBookings_MemberForbidden(t *testing.T) {
	h := NewExportHandler(&mockExportService{}, newPerm())
	r := newEngine(member(tenantA), true)
	r.GET("/admin/export/bookings.xlsx", h.ExportBookings)

	w := doRequest(r, http.MethodGet, "/admin/export/bookings.xlsx?from=2025-06-01&to=2025-06-07", tenantA, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("期望 403，实际 %d", w.Code)
	}
}

func TestCourtCalendar(t *testing.T) {
	h := NewExportHandler(&mockExportService{}, newPerm())
	r := newEngine(member(tenantA), true)
	r.GET("/courts/:id/calendar.ics", h.CourtCalendar)

	w := doRequest(r, http.MethodGet, "/courts/c1/calendar.ics?from=2025-06-01&to=2025-06-07", tenantA, "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/calendar") {
		t.Errorf("Content-Type 不符: %s", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "BEGIN:VCALENDAR") {
		t.Error("响应应为日历内容")
	}

	// 其他租户的成员无权读取
	r = newEngine(member(tenantB), true)
	r.GET("/courts/:id/calendar.ics", h.CourtCalendar)
	w = doRequest(r, http.MethodGet, "/courts/c1/calendar.ics?from=2025-06-01&to=2025-06-07", tenantA, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("期望 403，实际 %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// HealthHandler
// ═══════════════════════════════════════════════════════════

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/health", NewHealthHandler(fakePinger{}, nil).Health)
	if w := doRequest(r, http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}

	r = gin.New()
	r.GET("/health", NewHealthHandler(fakePinger{err: errors.New("down")}, nil).Health)
	if w := doRequest(r, http.MethodGet, "/health", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("数据库不可用应返回 503，实际 %d", w.Code)
	}
}

// ── 工具 ──

func errPermission(tier string) error {
	return &pkgerrors.PermissionError{Tier: tier}
}
