package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"turnero-padel/backend/config"
	"turnero-padel/backend/internal/dto"
	"turnero-padel/backend/internal/eventbus"
	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/repository"
	"turnero-padel/backend/internal/schedule"
	pkgerrors "turnero-padel/backend/pkg/errors"
)

// RecurringGenerator 周期预订物化接口
type RecurringGenerator interface {
	// Generate 把 [今天, 今天+HorizonDays) 内的规则出现写入为 CONFIRMED 预订
	// 可重复执行：已物化的出现不会重复写入；与现有预订冲突的出现跳过并计入 Conflicts
	Generate(ctx context.Context, tenantID *string) (*dto.GenerateResult, error)
}

type recurringGenerator struct {
	cfg    *config.BookingConfig
	repo   *repository.Repository
	events eventbus.Emitter
	logger *zap.Logger
	now    func() time.Time
}

// NewRecurringGenerator 创建 RecurringGenerator 实例
func NewRecurringGenerator(cfg *config.BookingConfig, repo *repository.Repository, events eventbus.Emitter, logger *zap.Logger) RecurringGenerator {
	if events == nil {
		events = eventbus.NopEmitter{}
	}
	return &recurringGenerator{cfg: cfg, repo: repo, events: events, logger: logger, now: time.Now}
}

func (g *recurringGenerator) Generate(ctx context.Context, tenantID *string) (result *dto.GenerateResult, err error) {
	ctx, span := startSpan(ctx, "RecurringGenerator.Generate", attribute.String("tenant.id", tenantFilter(tenantID)))
	defer func() { endSpan(span, err) }()

	loc := g.cfg.Location()
	from := schedule.StartOfDay(g.now(), loc)
	to := schedule.AddDays(from, g.cfg.HorizonDays)
	result = &dto.GenerateResult{}

	rules, err := g.repo.Recurring.ListActiveRules(ctx, tenantID, "")
	if err != nil {
		g.logger.Error("查询周期规则失败", zap.Error(err))
		return nil, err
	}
	if len(rules) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(rules))
	for i := range rules {
		ids = append(ids, rules[i].ID)
	}
	exceptions, err := g.repo.Recurring.ListExceptions(ctx, ids, schedule.FormatDate(from), schedule.FormatDate(schedule.AddDays(to, -1)))
	if err != nil {
		g.logger.Error("查询周期例外失败", zap.Error(err))
		return nil, err
	}

	courts := make(map[string]*model.Court)
	touched := make(map[string]struct{})
	fallback := defaultPrice(g.cfg)

	for i := range rules {
		rule := &rules[i]
		court, ok := courts[rule.CourtID]
		if !ok {
			court, err = g.repo.Court.GetByID(ctx, rule.TenantID, rule.CourtID)
			if err != nil && !isNotFound(err) {
				g.logger.Error("查询场地失败", zap.String("court_id", rule.CourtID), zap.Error(err))
				return nil, err
			}
			courts[rule.CourtID] = court
		}
		if court == nil {
			g.logger.Warn("周期规则引用的场地不存在，跳过", zap.String("rule_id", rule.ID), zap.String("court_id", rule.CourtID))
			continue
		}

		for _, occ := range schedule.ExpandRule(rule, exceptions, from, to) {
			exists, err := g.repo.Booking.ExistsForRecurring(ctx, rule.ID, occ.Date)
			if err != nil {
				g.logger.Error("检查已物化预订失败", zap.String("rule_id", rule.ID), zap.Error(err))
				return nil, err
			}
			if exists {
				continue
			}

			booking := g.buildBooking(rule, court, occ, fallback)
			err = withTx(ctx, g.repo, g.logger, func(txRepo *repository.Repository) error {
				return guardedInsert(ctx, txRepo, booking, "")
			})
			switch {
			case err == nil:
				result.Created++
				touched[rule.TenantID] = struct{}{}
			case errors.Is(err, pkgerrors.ErrConflict):
				result.Conflicts++
				g.logger.Warn("周期预订与现有预订冲突，跳过",
					zap.String("rule_id", rule.ID),
					zap.String("date", occ.Date),
					zap.String("start", occ.Slot.StartClock()),
				)
			case errors.Is(err, ErrCourtNotFound):
				g.logger.Warn("场地已删除，跳过周期预订", zap.String("rule_id", rule.ID), zap.String("date", occ.Date))
			default:
				g.logger.Error("写入周期预订失败", zap.String("rule_id", rule.ID), zap.String("date", occ.Date), zap.Error(err))
				return nil, err
			}
		}
	}

	g.notify(touched)
	g.logger.Info("周期预订物化完成",
		zap.String("from", schedule.FormatDate(from)),
		zap.String("to", schedule.FormatDate(to)),
		zap.Int("created", result.Created),
		zap.Int("conflicts", result.Conflicts),
	)
	return result, nil
}

// buildBooking 价格优先级：例外改价 > 规则价格 > 场地价格 > 配置兜底
func (g *recurringGenerator) buildBooking(rule *model.RecurringBookingRule, court *model.Court, occ schedule.Occurrence, fallback decimal.Decimal) *model.Booking {
	price := fallback
	var notes *string
	if occ.Override && occ.Reason != nil && *occ.Reason != "" {
		reason := *occ.Reason
		notes = &reason
	}
	switch {
	case occ.Override && occ.Price != nil:
		price = *occ.Price
	case rule.Price != nil:
		price = *rule.Price
	case court.PricePerSlot != nil:
		price = *court.PricePerSlot
	}
	ruleID := rule.ID
	return &model.Booking{
		TenantID:      rule.TenantID,
		CourtID:       rule.CourtID,
		UserID:        rule.UserID,
		BookingDate:   occ.Date,
		StartTime:     occ.Slot.StartClock(),
		EndTime:       occ.Slot.EndClock(),
		StartMin:      occ.Slot.Start,
		EndMin:        occ.Slot.End,
		Status:        model.BookingStatusConfirmed,
		PaymentStatus: model.PaymentStatusPaid,
		Price:         price,
		RecurringID:   &ruleID,
		Notes:         notes,
	}
}

func (g *recurringGenerator) notify(touched map[string]struct{}) {
	tenants := make([]string, 0, len(touched))
	for id := range touched {
		tenants = append(tenants, id)
	}
	sort.Strings(tenants)
	for _, id := range tenants {
		tid := id
		g.events.Emit(eventbus.NewEvent(eventbus.BookingsUpdated, &tid, map[string]string{"source": "recurring"}))
		g.events.Emit(eventbus.NewEvent(eventbus.SlotsUpdated, &tid, map[string]string{"source": "recurring"}))
	}
}
