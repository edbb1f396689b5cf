package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Tenant     TenantRepository
	Court      CourtRepository
	Booking    BookingRepository
	Recurring  RecurringRepository
	CourtBlock CourtBlockRepository
	Setting    SystemSettingRepository
	Admin      AdminRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		Tenant:     NewTenantRepo(db),
		Court:      NewCourtRepo(db),
		Booking:    NewBookingRepo(db),
		Recurring:  NewRecurringRepo(db),
		CourtBlock: NewCourtBlockRepo(db),
		Setting:    NewSystemSettingRepo(db),
		Admin:      NewAdminRepo(db),
	}
}

// BeginTx 开启事务
// 未绑定数据库（单元测试中的 mock 聚合）时返回 nil，调用方按无事务执行
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务的 Repository 聚合；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// DB 底层连接（健康检查用），mock 聚合返回 nil
func (r *Repository) DB() *gorm.DB {
	return r.db
}
