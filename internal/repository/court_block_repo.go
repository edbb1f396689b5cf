package repository

import (
	"context"

	"gorm.io/gorm"

	"turnero-padel/backend/internal/model"
)

// CourtBlockRepository 场地封锁数据访问接口
type CourtBlockRepository interface {
	Create(ctx context.Context, block *model.CourtBlock) error
	ListInRange(ctx context.Context, q RangeQuery) ([]model.CourtBlock, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// courtBlockRepo CourtBlockRepository 的 GORM 实现
type courtBlockRepo struct {
	db *gorm.DB
}

// NewCourtBlockRepo 创建 CourtBlockRepository 实例
func NewCourtBlockRepo(db *gorm.DB) CourtBlockRepository {
	return &courtBlockRepo{db: db}
}

func (r *courtBlockRepo) Create(ctx context.Context, block *model.CourtBlock) error {
	return r.db.WithContext(ctx).Create(block).Error
}

func (r *courtBlockRepo) ListInRange(ctx context.Context, q RangeQuery) ([]model.CourtBlock, error) {
	db := r.db.WithContext(ctx).
		Scopes(model.Live).
		Where("date >= ? AND date <= ?", q.From, q.To)
	if q.TenantID != "" {
		db = db.Where("tenant_id = ?", q.TenantID)
	}
	if q.CourtID != "" {
		db = db.Where("court_id = ?", q.CourtID)
	}
	var list []model.CourtBlock
	err := db.Order("date ASC, start_time ASC").Find(&list).Error
	return list, err
}

func (r *courtBlockRepo) Delete(ctx context.Context, tenantID, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.CourtBlock{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("state", model.StateDeleted).Error
}
