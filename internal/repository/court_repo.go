package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"turnero-padel/backend/internal/model"
)

// CourtRepository 场地数据访问接口
type CourtRepository interface {
	Create(ctx context.Context, court *model.Court) error
	GetByID(ctx context.Context, tenantID, id string) (*model.Court, error)
	// LockForBooking 在当前事务内对场地行加排他锁，串行化同一场地的预订写入
	LockForBooking(ctx context.Context, tenantID, id string) (*model.Court, error)
	ListByTenant(ctx context.Context, tenantID string) ([]model.Court, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// courtRepo CourtRepository 的 GORM 实现
type courtRepo struct {
	db *gorm.DB
}

// NewCourtRepo 创建 CourtRepository 实例
func NewCourtRepo(db *gorm.DB) CourtRepository {
	return &courtRepo{db: db}
}

func (r *courtRepo) Create(ctx context.Context, court *model.Court) error {
	return r.db.WithContext(ctx).Create(court).Error
}

func (r *courtRepo) GetByID(ctx context.Context, tenantID, id string) (*model.Court, error) {
	var c model.Court
	err := r.db.WithContext(ctx).
		Scopes(model.Live).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *courtRepo) LockForBooking(ctx context.Context, tenantID, id string) (*model.Court, error) {
	q := r.db.WithContext(ctx).Scopes(model.Live)
	// SQLite（测试）不支持 FOR UPDATE，单写者模型本身已串行
	if r.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var c model.Court
	err := q.Where("id = ? AND tenant_id = ?", id, tenantID).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *courtRepo) ListByTenant(ctx context.Context, tenantID string) ([]model.Court, error) {
	var list []model.Court
	err := r.db.WithContext(ctx).
		Scopes(model.Live).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&list).Error
	return list, err
}

func (r *courtRepo) Delete(ctx context.Context, tenantID, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.Court{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("state", model.StateDeleted).Error
}
