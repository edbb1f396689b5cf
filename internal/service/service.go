package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"turnero-padel/backend/config"
	"turnero-padel/backend/internal/eventbus"
	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/repository"
	"turnero-padel/backend/pkg/cache"
	"turnero-padel/backend/pkg/logger"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Tenant       TenantResolver
	Permission   *PermissionEvaluator
	Settings     SettingsService
	Availability AvailabilityService
	Booking      BookingService
	Generator    RecurringGenerator
	Sweeper      ExpirationSweeper
	Export       ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	tenantCache cache.Cache[model.Tenant],
	events eventbus.Emitter,
	log *zap.Logger,
) *Service {
	settings := NewSettingsService(repo, logger.Component(log, "settings"))
	perm := NewPermissionEvaluator(repo, logger.Component(log, "permission"))
	return &Service{
		Tenant:       NewTenantResolver(repo, tenantCache, logger.Component(log, "tenant")),
		Permission:   perm,
		Settings:     settings,
		Availability: NewAvailabilityService(&cfg.Booking, repo, settings, logger.Component(log, "availability")),
		Booking:      NewBookingService(&cfg.Booking, repo, settings, perm, events, logger.Component(log, "booking")),
		Generator:    NewRecurringGenerator(&cfg.Booking, repo, events, logger.Component(log, "generator")),
		Sweeper:      NewExpirationSweeper(repo, events, logger.Component(log, "sweeper")),
		Export:       NewExportService(&cfg.Booking, repo, logger.Component(log, "export")),
	}
}

// withTx 在事务内执行 fn；fn 返回错误或 panic 时回滚
// mock 聚合没有数据库连接，BeginTx 返回 nil，fn 直接在原聚合上执行
func withTx(ctx context.Context, repo *repository.Repository, log *zap.Logger, fn func(txRepo *repository.Repository) error) (err error) {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		log.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			log.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}

// ── 辅助函数 ──

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
