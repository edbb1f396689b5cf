package repository

import (
	"context"

	"gorm.io/gorm"

	"turnero-padel/backend/internal/model"
)

// TenantRepository 租户数据访问接口
type TenantRepository interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	GetByID(ctx context.Context, id string) (*model.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*model.Tenant, error)
	ListActive(ctx context.Context) ([]model.Tenant, error)
}

// tenantRepo TenantRepository 的 GORM 实现
type tenantRepo struct {
	db *gorm.DB
}

// NewTenantRepo 创建 TenantRepository 实例
func NewTenantRepo(db *gorm.DB) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) Create(ctx context.Context, tenant *model.Tenant) error {
	return r.db.WithContext(ctx).Create(tenant).Error
}

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	var t model.Tenant
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	var t model.Tenant
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepo) ListActive(ctx context.Context) ([]model.Tenant, error) {
	var list []model.Tenant
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&list).Error
	return list, err
}
