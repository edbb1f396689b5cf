package repository

import (
	"context"

	"gorm.io/gorm"

	"turnero-padel/backend/internal/model"
)

// RecurringRepository 周期规则与例外的数据访问接口
type RecurringRepository interface {
	CreateRule(ctx context.Context, rule *model.RecurringBookingRule) error
	CreateException(ctx context.Context, ex *model.RecurringException) error
	// ListActiveRules ACTIVE 且未删除的规则；tenantID 为 nil 表示全部租户，courtID 为空表示全部场地
	ListActiveRules(ctx context.Context, tenantID *string, courtID string) ([]model.RecurringBookingRule, error)
	// ListExceptions 指定规则在 [from, to] 内的例外
	ListExceptions(ctx context.Context, ruleIDs []string, from, to string) ([]model.RecurringException, error)
}

// recurringRepo RecurringRepository 的 GORM 实现
type recurringRepo struct {
	db *gorm.DB
}

// NewRecurringRepo 创建 RecurringRepository 实例
func NewRecurringRepo(db *gorm.DB) RecurringRepository {
	return &recurringRepo{db: db}
}

func (r *recurringRepo) CreateRule(ctx context.Context, rule *model.RecurringBookingRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *recurringRepo) CreateException(ctx context.Context, ex *model.RecurringException) error {
	return translateWriteErr(r.db.WithContext(ctx).Create(ex).Error)
}

func (r *recurringRepo) ListActiveRules(ctx context.Context, tenantID *string, courtID string) ([]model.RecurringBookingRule, error) {
	db := r.db.WithContext(ctx).
		Scopes(model.Live).
		Where("status = ?", model.RuleStatusActive)
	if tenantID != nil {
		db = db.Where("tenant_id = ?", *tenantID)
	}
	if courtID != "" {
		db = db.Where("court_id = ?", courtID)
	}
	var list []model.RecurringBookingRule
	err := db.Order("tenant_id ASC, court_id ASC, weekday ASC, start_time ASC").Find(&list).Error
	return list, err
}

func (r *recurringRepo) ListExceptions(ctx context.Context, ruleIDs []string, from, to string) ([]model.RecurringException, error) {
	if len(ruleIDs) == 0 {
		return nil, nil
	}
	var list []model.RecurringException
	err := r.db.WithContext(ctx).
		Where("recurring_id IN ? AND date >= ? AND date <= ?", ruleIDs, from, to).
		Find(&list).Error
	return list, err
}
