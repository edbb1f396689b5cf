package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"turnero-padel/backend/config"
	"turnero-padel/backend/internal/dto"
	"turnero-padel/backend/internal/eventbus"
	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/repository"
	"turnero-padel/backend/internal/schedule"
	"turnero-padel/backend/pkg/obs"
)

// DefaultCancelReason 用户主动取消且未填写原因时记录的原因
const DefaultCancelReason = "用户取消"

// BookingService 预订写路径接口
type BookingService interface {
	Get(ctx context.Context, p *model.Principal, tenantID, id string) (*dto.BookingResponse, error)
	Create(ctx context.Context, p *model.Principal, tenantID string, req *dto.CreateBookingRequest) (*dto.BookingResponse, error)
	Reschedule(ctx context.Context, p *model.Principal, tenantID, id string, req *dto.RescheduleBookingRequest) (*dto.BookingResponse, error)
	// Confirm 支付完成：PENDING → CONFIRMED/PAID，仅租户管理员
	Confirm(ctx context.Context, p *model.Principal, tenantID, id string) (*dto.BookingResponse, error)
	Cancel(ctx context.Context, p *model.Principal, tenantID, id string, req *dto.CancelBookingRequest) (*dto.BookingResponse, error)
}

type bookingService struct {
	cfg      *config.BookingConfig
	repo     *repository.Repository
	settings SettingsService
	perm     *PermissionEvaluator
	events   eventbus.Emitter
	logger   *zap.Logger
	now      func() time.Time
}

// NewBookingService 创建 BookingService 实例
func NewBookingService(
	cfg *config.BookingConfig,
	repo *repository.Repository,
	settings SettingsService,
	perm *PermissionEvaluator,
	events eventbus.Emitter,
	logger *zap.Logger,
) BookingService {
	if events == nil {
		events = eventbus.NopEmitter{}
	}
	return &bookingService{
		cfg:      cfg,
		repo:     repo,
		settings: settings,
		perm:     perm,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return obs.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// defaultPrice 配置的兜底价格，无效时为 0
func defaultPrice(cfg *config.BookingConfig) decimal.Decimal {
	d, err := decimal.NewFromString(cfg.DefaultPrice)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (s *bookingService) Get(ctx context.Context, p *model.Principal, tenantID, id string) (*dto.BookingResponse, error) {
	if err := s.perm.Authorize(ctx, p, tenantID, OpRead); err != nil {
		return nil, err
	}
	b, err := s.loadOwned(ctx, p, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toBookingResponse(b), nil
}

// validateSlot 校验日期与时段：格式、营业时间、不早于当前时间
func (s *bookingService) validateSlot(ctx context.Context, tenantID, date, start, end string) (schedule.Interval, error) {
	loc := s.cfg.Location()
	day, err := schedule.ParseDate(date, loc)
	if err != nil {
		return schedule.Interval{}, ErrInvalidDate
	}
	iv, err := schedule.NewInterval(start, end)
	if err != nil {
		return schedule.Interval{}, ErrInvalidTimeRange
	}
	oh := s.settings.GetOperatingHours(ctx, tenantID)
	if iv.Start < oh.Hours.Start || iv.End > oh.Hours.End {
		return schedule.Interval{}, ErrOutsideHours
	}
	startsAt := day.Add(time.Duration(iv.Start) * time.Minute)
	if !startsAt.After(s.now()) {
		return schedule.Interval{}, ErrBookingInPast
	}
	return iv, nil
}

func (s *bookingService) Create(ctx context.Context, p *model.Principal, tenantID string, req *dto.CreateBookingRequest) (resp *dto.BookingResponse, err error) {
	ctx, span := startSpan(ctx, "BookingService.Create",
		attribute.String("tenant.id", tenantID),
		attribute.String("court.id", req.CourtID),
		attribute.String("booking.date", req.Date),
	)
	defer func() { endSpan(span, err) }()

	if err := s.perm.Authorize(ctx, p, tenantID, OpCreate); err != nil {
		return nil, err
	}
	iv, err := s.validateSlot(ctx, tenantID, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	court, err := s.repo.Court.GetByID(ctx, tenantID, req.CourtID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCourtNotFound
		}
		s.logger.Error("查询场地失败", zap.String("court_id", req.CourtID), zap.Error(err))
		return nil, err
	}
	price := defaultPrice(s.cfg)
	if court.PricePerSlot != nil {
		price = *court.PricePerSlot
	}

	expires := s.now().UTC().Add(s.cfg.PaymentDeadline)
	booking := &model.Booking{
		TenantID:      tenantID,
		CourtID:       req.CourtID,
		UserID:        p.ID,
		BookingDate:   req.Date,
		StartTime:     iv.StartClock(),
		EndTime:       iv.EndClock(),
		StartMin:      iv.Start,
		EndMin:        iv.End,
		Status:        model.BookingStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		Price:         price,
		ExpiresAt:     &expires,
	}

	err = withTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		return guardedInsert(ctx, txRepo, booking, "")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("预订已创建",
		zap.String("booking_id", booking.ID),
		zap.String("court_id", booking.CourtID),
		zap.String("date", booking.BookingDate),
		zap.String("start", booking.StartTime),
	)
	s.notify(tenantID, booking)
	return toBookingResponse(booking), nil
}

func (s *bookingService) Reschedule(ctx context.Context, p *model.Principal, tenantID, id string, req *dto.RescheduleBookingRequest) (resp *dto.BookingResponse, err error) {
	ctx, span := startSpan(ctx, "BookingService.Reschedule",
		attribute.String("tenant.id", tenantID),
		attribute.String("booking.id", id),
	)
	defer func() { endSpan(span, err) }()

	if err := s.perm.Authorize(ctx, p, tenantID, OpUpdate); err != nil {
		return nil, err
	}
	b, err := s.loadOwned(ctx, p, tenantID, id)
	if err != nil {
		return nil, err
	}
	if b.Status == model.BookingStatusCancelled {
		return nil, ErrBookingCancelled
	}
	iv, err := s.validateSlot(ctx, tenantID, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	b.BookingDate = req.Date
	b.StartTime = iv.StartClock()
	b.EndTime = iv.EndClock()
	b.StartMin = iv.Start
	b.EndMin = iv.End

	err = withTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		return guardedInsert(ctx, txRepo, b, b.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("预订已改期", zap.String("booking_id", b.ID), zap.String("date", b.BookingDate), zap.String("start", b.StartTime))
	s.notify(tenantID, b)
	return toBookingResponse(b), nil
}

func (s *bookingService) Confirm(ctx context.Context, p *model.Principal, tenantID, id string) (resp *dto.BookingResponse, err error) {
	ctx, span := startSpan(ctx, "BookingService.Confirm",
		attribute.String("tenant.id", tenantID),
		attribute.String("booking.id", id),
	)
	defer func() { endSpan(span, err) }()

	if err := s.perm.AuthorizeTenantAdmin(ctx, p, tenantID); err != nil {
		return nil, err
	}
	rows, err := s.repo.Booking.Confirm(ctx, tenantID, id)
	if err != nil {
		s.logger.Error("确认预订失败", zap.String("booking_id", id), zap.Error(err))
		return nil, err
	}
	b, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	// 已被过期任务取消或重复确认
	if rows == 0 {
		if b.Status == model.BookingStatusCancelled {
			return nil, ErrBookingCancelled
		}
		return nil, ErrBookingNotPending
	}

	s.logger.Info("预订已确认", zap.String("booking_id", id))
	s.notify(tenantID, b)
	return toBookingResponse(b), nil
}

func (s *bookingService) Cancel(ctx context.Context, p *model.Principal, tenantID, id string, req *dto.CancelBookingRequest) (resp *dto.BookingResponse, err error) {
	ctx, span := startSpan(ctx, "BookingService.Cancel",
		attribute.String("tenant.id", tenantID),
		attribute.String("booking.id", id),
	)
	defer func() { endSpan(span, err) }()

	if err := s.perm.Authorize(ctx, p, tenantID, OpUpdate); err != nil {
		return nil, err
	}
	if _, err := s.loadOwned(ctx, p, tenantID, id); err != nil {
		return nil, err
	}

	reason := DefaultCancelReason
	if req != nil && req.Reason != "" {
		reason = req.Reason
	}
	rows, err := s.repo.Booking.Cancel(ctx, tenantID, id, reason, s.now().UTC())
	if err != nil {
		s.logger.Error("取消预订失败", zap.String("booking_id", id), zap.Error(err))
		return nil, err
	}
	if rows == 0 {
		return nil, ErrBookingCancelled
	}
	b, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("预订已取消", zap.String("booking_id", id), zap.String("reason", reason))
	s.notify(tenantID, b)
	return toBookingResponse(b), nil
}

func (s *bookingService) load(ctx context.Context, tenantID, id string) (*model.Booking, error) {
	b, err := s.repo.Booking.GetByID(ctx, tenantID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("查询预订失败", zap.String("booking_id", id), zap.Error(err))
		return nil, err
	}
	return b, nil
}

// loadOwned 预订本人或租户管理员可操作
func (s *bookingService) loadOwned(ctx context.Context, p *model.Principal, tenantID, id string) (*model.Booking, error) {
	b, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != p.ID {
		if err := s.perm.AuthorizeTenantAdmin(ctx, p, tenantID); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (s *bookingService) notify(tenantID string, b *model.Booking) {
	tid := tenantID
	payload := map[string]string{"bookingId": b.ID, "courtId": b.CourtID, "date": b.BookingDate}
	s.events.Emit(eventbus.NewEvent(eventbus.BookingsUpdated, &tid, payload))
	s.events.Emit(eventbus.NewEvent(eventbus.SlotsUpdated, &tid, payload))
}

func toBookingResponse(b *model.Booking) *dto.BookingResponse {
	return &dto.BookingResponse{
		ID:                 b.ID,
		TenantID:           b.TenantID,
		CourtID:            b.CourtID,
		UserID:             b.UserID,
		BookingDate:        b.BookingDate,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		Status:             b.Status,
		PaymentStatus:      b.PaymentStatus,
		Price:              b.Price.StringFixed(2),
		ExpiresAt:          formatTime(b.ExpiresAt),
		RecurringID:        b.RecurringID,
		CancelledAt:        formatTime(b.CancelledAt),
		CancellationReason: b.CancellationReason,
		Notes:              b.Notes,
	}
}
