package repository

import (
	"context"

	"gorm.io/gorm"

	"turnero-padel/backend/internal/model"
)

// AdminRepository 管理员白名单数据访问接口
type AdminRepository interface {
	Create(ctx context.Context, entry *model.AdminEntry) error
	// HasActiveEntry 是否存在匹配 (email, tenantID, role) 的有效条目；tenantID 为 nil 匹配平台级条目
	HasActiveEntry(ctx context.Context, email string, tenantID *string, role string) (bool, error)
}

// adminRepo AdminRepository 的 GORM 实现
type adminRepo struct {
	db *gorm.DB
}

// NewAdminRepo 创建 AdminRepository 实例
func NewAdminRepo(db *gorm.DB) AdminRepository {
	return &adminRepo{db: db}
}

func (r *adminRepo) Create(ctx context.Context, entry *model.AdminEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *adminRepo) HasActiveEntry(ctx context.Context, email string, tenantID *string, role string) (bool, error) {
	db := r.db.WithContext(ctx).
		Model(&model.AdminEntry{}).
		Where("lower(email) = lower(?) AND role = ? AND is_active = ?", email, role, true)
	if tenantID == nil {
		db = db.Where("tenant_id IS NULL")
	} else {
		db = db.Where("tenant_id = ?", *tenantID)
	}
	var count int64
	err := db.Count(&count).Error
	return count > 0, err
}
