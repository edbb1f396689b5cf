package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"turnero-padel/backend/internal/model"
)

// SystemSettingRepository 租户设置数据访问接口
type SystemSettingRepository interface {
	ListByTenant(ctx context.Context, tenantID string) ([]model.SystemSetting, error)
	Upsert(ctx context.Context, setting *model.SystemSetting) error
}

// systemSettingRepo SystemSettingRepository 的 GORM 实现
type systemSettingRepo struct {
	db *gorm.DB
}

// NewSystemSettingRepo 创建 SystemSettingRepository 实例
func NewSystemSettingRepo(db *gorm.DB) SystemSettingRepository {
	return &systemSettingRepo{db: db}
}

func (r *systemSettingRepo) ListByTenant(ctx context.Context, tenantID string) ([]model.SystemSetting, error) {
	var list []model.SystemSetting
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&list).Error
	return list, err
}

func (r *systemSettingRepo) Upsert(ctx context.Context, setting *model.SystemSetting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(setting).Error
}
