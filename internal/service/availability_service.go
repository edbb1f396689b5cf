package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"turnero-padel/backend/config"
	"turnero-padel/backend/internal/dto"
	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/repository"
	"turnero-padel/backend/internal/schedule"
)

// MaxRangeDays 单次查询允许的最大日期跨度
const MaxRangeDays = 62

// AvailabilityQuery 可用性查询
type AvailabilityQuery struct {
	CourtID  string
	DateFrom string
	DateTo   string
	Role     string  // 调用者角色，决定是否返回虚拟占用
	TenantID *string // 为 nil 时不按租户过滤
}

// AvailabilityService 可用性引擎接口
type AvailabilityService interface {
	// GetAvailableSlots 返回区间内的占用、封锁与虚拟占用
	// 只有参数错误和场地不存在会返回错误，存储故障降级为空列表
	GetAvailableSlots(ctx context.Context, q AvailabilityQuery) (*dto.AvailabilityResult, error)
	// GetOpenSlots 按营业时间切分时段并去掉所有被占用的时段
	GetOpenSlots(ctx context.Context, q AvailabilityQuery) ([]dto.DaySlots, error)
}

type availabilityService struct {
	cfg      *config.BookingConfig
	repo     *repository.Repository
	settings SettingsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewAvailabilityService 创建 AvailabilityService 实例
func NewAvailabilityService(cfg *config.BookingConfig, repo *repository.Repository, settings SettingsService, logger *zap.Logger) AvailabilityService {
	return &availabilityService{cfg: cfg, repo: repo, settings: settings, logger: logger, now: time.Now}
}

// dateRange 解析并校验 [from, to]
func dateRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	f, err := schedule.ParseDate(from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	t, err := schedule.ParseDate(to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	if t.Before(f) || schedule.AddDays(f, MaxRangeDays).Before(t) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return f, t, nil
}

func isPrivileged(role string) bool {
	return role == model.RoleAdmin || role == model.RoleSuperAdmin
}

func tenantFilter(tenantID *string) string {
	if tenantID == nil {
		return ""
	}
	return *tenantID
}

// thresholdDate 周期预订已物化到的日期（不含）
func (s *availabilityService) thresholdDate(loc *time.Location) time.Time {
	return schedule.AddDays(schedule.StartOfDay(s.now(), loc), s.cfg.HorizonDays)
}

func (s *availabilityService) ensureCourt(ctx context.Context, q AvailabilityQuery) error {
	if q.TenantID == nil {
		return nil
	}
	if _, err := s.repo.Court.GetByID(ctx, *q.TenantID, q.CourtID); err != nil {
		if isNotFound(err) {
			return ErrCourtNotFound
		}
		s.logger.Error("查询场地失败", zap.String("court_id", q.CourtID), zap.Error(err))
	}
	return nil
}

func (s *availabilityService) GetAvailableSlots(ctx context.Context, q AvailabilityQuery) (*dto.AvailabilityResult, error) {
	loc := s.cfg.Location()
	from, to, err := dateRange(q.DateFrom, q.DateTo, loc)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCourt(ctx, q); err != nil {
		return nil, err
	}
	return s.collect(ctx, q, from, to, isPrivileged(q.Role)), nil
}

// collect 汇总三类占用；任何一步失败只记录日志并返回空列表
func (s *availabilityService) collect(ctx context.Context, q AvailabilityQuery, from, to time.Time, withVirtual bool) *dto.AvailabilityResult {
	loc := s.cfg.Location()
	threshold := s.thresholdDate(loc)
	rq := repository.RangeQuery{
		TenantID: tenantFilter(q.TenantID),
		CourtID:  q.CourtID,
		From:     schedule.FormatDate(from),
		To:       schedule.FormatDate(to),
	}
	out := &dto.AvailabilityResult{
		Bookings:      []dto.BusyInterval{},
		CourtBlocks:   []dto.BusyInterval{},
		VirtualBlocks: []dto.BusyInterval{},
		ThresholdDate: schedule.FormatDate(threshold),
	}

	materialized := make(map[string]struct{})
	bookings, err := s.repo.Booking.ListActiveInRange(ctx, rq)
	if err != nil {
		s.logger.Error("查询预订失败", zap.String("court_id", q.CourtID), zap.Error(err))
	}
	for i := range bookings {
		b := &bookings[i]
		if !b.IsActive() {
			continue
		}
		out.Bookings = append(out.Bookings, dto.BusyInterval{
			ID:          b.ID,
			RecurringID: b.RecurringID,
			Date:        b.BookingDate,
			StartTime:   b.StartTime,
			EndTime:     b.EndTime,
			Status:      b.Status,
		})
		if b.RecurringID != nil {
			materialized[*b.RecurringID+"|"+b.BookingDate] = struct{}{}
		}
	}

	blocks, err := s.repo.CourtBlock.ListInRange(ctx, rq)
	if err != nil {
		s.logger.Error("查询场地封锁失败", zap.String("court_id", q.CourtID), zap.Error(err))
	}
	for i := range blocks {
		b := &blocks[i]
		if !b.IsLive() {
			continue
		}
		out.CourtBlocks = append(out.CourtBlocks, dto.BusyInterval{
			ID:        b.ID,
			Date:      b.Date,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Reason:    b.Reason,
		})
	}

	if withVirtual {
		out.VirtualBlocks = append(out.VirtualBlocks, s.virtualBlocks(ctx, q, from, to, threshold, materialized)...)
	}
	return out
}

// virtualBlocks 阈值日之后尚未物化的周期预订
func (s *availabilityService) virtualBlocks(ctx context.Context, q AvailabilityQuery, from, to, threshold time.Time, materialized map[string]struct{}) []dto.BusyInterval {
	start := from
	if start.Before(threshold) {
		start = threshold
	}
	end := schedule.AddDays(to, 1)
	if !start.Before(end) {
		return nil
	}

	rules, err := s.repo.Recurring.ListActiveRules(ctx, q.TenantID, q.CourtID)
	if err != nil {
		s.logger.Error("查询周期规则失败", zap.String("court_id", q.CourtID), zap.Error(err))
		return nil
	}
	if len(rules) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rules))
	for i := range rules {
		ids = append(ids, rules[i].ID)
	}
	exceptions, err := s.repo.Recurring.ListExceptions(ctx, ids, schedule.FormatDate(start), schedule.FormatDate(to))
	if err != nil {
		// 没有例外信息就无法正确跳过 SKIP，宁可不返回虚拟占用
		s.logger.Error("查询周期例外失败", zap.String("court_id", q.CourtID), zap.Error(err))
		return nil
	}

	var out []dto.BusyInterval
	for i := range rules {
		rule := &rules[i]
		for _, occ := range schedule.ExpandRule(rule, exceptions, start, end) {
			if _, ok := materialized[occ.RuleID+"|"+occ.Date]; ok {
				continue
			}
			ruleID := occ.RuleID
			out = append(out, dto.BusyInterval{
				RecurringID: &ruleID,
				Date:        occ.Date,
				StartTime:   occ.Slot.StartClock(),
				EndTime:     occ.Slot.EndClock(),
				Status:      "VIRTUAL",
			})
		}
	}
	return out
}

func (s *availabilityService) GetOpenSlots(ctx context.Context, q AvailabilityQuery) ([]dto.DaySlots, error) {
	loc := s.cfg.Location()
	from, to, err := dateRange(q.DateFrom, q.DateTo, loc)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCourt(ctx, q); err != nil {
		return nil, err
	}

	oh := DefaultOperatingHours()
	if q.TenantID != nil {
		oh = s.settings.GetOperatingHours(ctx, *q.TenantID)
	}

	// 虚拟占用终将物化为预订，开放时段对所有角色都要扣除
	busy := s.collect(ctx, q, from, to, true)
	byDate := make(map[string][]schedule.Interval)
	for _, group := range [][]dto.BusyInterval{busy.Bookings, busy.CourtBlocks, busy.VirtualBlocks} {
		for _, b := range group {
			iv, err := schedule.NewInterval(b.StartTime, b.EndTime)
			if err != nil {
				continue
			}
			byDate[b.Date] = append(byDate[b.Date], iv)
		}
	}

	now := s.now().In(loc)
	today := schedule.FormatDate(now)
	nowMin := now.Hour()*60 + now.Minute()

	all := schedule.SplitSlots(oh.Hours, oh.SlotDuration)
	out := make([]dto.DaySlots, 0)
	for _, day := range schedule.Days(from, schedule.AddDays(to, 1)) {
		date := schedule.FormatDate(day)
		ds := dto.DaySlots{Date: date, SlotDuration: oh.SlotDuration, Slots: []dto.Slot{}}
		if date >= today {
			for _, slot := range schedule.FreeSlots(all, byDate[date]) {
				if date == today && slot.Start <= nowMin {
					continue
				}
				ds.Slots = append(ds.Slots, dto.Slot{StartTime: slot.StartClock(), EndTime: slot.EndClock()})
			}
		}
		out = append(out, ds)
	}
	return out, nil
}
