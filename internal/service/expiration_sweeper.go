package service

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"turnero-padel/backend/internal/dto"
	"turnero-padel/backend/internal/eventbus"
	"turnero-padel/backend/internal/repository"
)

// ExpiredReason 过期自动取消写入的原因
const ExpiredReason = "支付超时自动取消"

// ExpirationSweeper 过期未支付预订清理接口
//
// 授权由调用方负责：tenantID 为 nil 表示全部租户。
type ExpirationSweeper interface {
	CancelExpiredBookings(ctx context.Context, tenantID *string) (int64, error)
	GetExpiredBookingsStats(ctx context.Context, tenantID *string) (*dto.ExpiredStats, error)
}

type expirationSweeper struct {
	repo   *repository.Repository
	events eventbus.Emitter
	logger *zap.Logger
	now    func() time.Time
}

// NewExpirationSweeper 创建 ExpirationSweeper 实例
func NewExpirationSweeper(repo *repository.Repository, events eventbus.Emitter, logger *zap.Logger) ExpirationSweeper {
	if events == nil {
		events = eventbus.NopEmitter{}
	}
	return &expirationSweeper{repo: repo, events: events, logger: logger, now: time.Now}
}

func (s *expirationSweeper) CancelExpiredBookings(ctx context.Context, tenantID *string) (cancelled int64, err error) {
	ctx, span := startSpan(ctx, "ExpirationSweeper.CancelExpiredBookings", attribute.String("tenant.id", tenantFilter(tenantID)))
	defer func() { endSpan(span, err) }()

	now := s.now().UTC()
	expired, err := s.repo.Booking.ListExpired(ctx, tenantID, now)
	if err != nil {
		s.logger.Error("查询过期预订失败", zap.Error(err))
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(expired))
	touched := make(map[string]struct{})
	for i := range expired {
		ids = append(ids, expired[i].ID)
		touched[expired[i].TenantID] = struct{}{}
	}

	// UPDATE 条件再次校验 PENDING 与 expires_at，并发确认支付的行不会被取消
	cancelled, err = s.repo.Booking.CancelExpired(ctx, ids, now, ExpiredReason)
	if err != nil {
		s.logger.Error("取消过期预订失败", zap.Int("candidates", len(ids)), zap.Error(err))
		return 0, err
	}
	if cancelled == 0 {
		return 0, nil
	}

	tenants := make([]string, 0, len(touched))
	for id := range touched {
		tenants = append(tenants, id)
	}
	sort.Strings(tenants)
	for _, id := range tenants {
		tid := id
		s.events.Emit(eventbus.NewEvent(eventbus.BookingsUpdated, &tid, map[string]string{"source": "expiration"}))
		s.events.Emit(eventbus.NewEvent(eventbus.SlotsUpdated, &tid, map[string]string{"source": "expiration"}))
	}

	s.logger.Info("过期预订已取消", zap.Int64("cancelled", cancelled), zap.Int("candidates", len(ids)))
	return cancelled, nil
}

func (s *expirationSweeper) GetExpiredBookingsStats(ctx context.Context, tenantID *string) (*dto.ExpiredStats, error) {
	now := s.now().UTC()
	expired, err := s.repo.Booking.ListExpired(ctx, tenantID, now)
	if err != nil {
		s.logger.Error("查询过期预订失败", zap.Error(err))
		return nil, err
	}

	stats := &dto.ExpiredStats{
		TotalExpired: len(expired),
		ExpiredIDs:   make([]string, 0, len(expired)),
	}
	for i := range expired {
		stats.ExpiredIDs = append(stats.ExpiredIDs, expired[i].ID)
	}

	if tenantID == nil {
		counts, err := s.repo.Booking.CountExpiredByTenant(ctx, now)
		if err != nil {
			s.logger.Error("按租户统计过期预订失败", zap.Error(err))
			return nil, err
		}
		stats.ByTenant = make(map[string]int64, len(counts))
		for _, c := range counts {
			stats.ByTenant[c.TenantID] = c.Count
		}
	}
	return stats, nil
}
