package model

import "gorm.io/gorm"

// 角色
const (
	RoleUser       = "USER"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// AdminEntry 管理员白名单，对应 admin_registry
//
// TenantID 为空表示平台级条目（仅 SUPER_ADMIN 有意义）。
type AdminEntry struct {
	ID       string  `gorm:"type:varchar(36);primaryKey"      json:"id"`
	Email    string  `gorm:"type:varchar(200);not null;index" json:"email"`
	TenantID *string `gorm:"type:varchar(36);index"           json:"tenant_id,omitempty"`
	Role     string  `gorm:"type:varchar(20);not null"        json:"role"`
	IsActive bool    `gorm:"not null"                         json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (AdminEntry) TableName() string { return "admin_registry" }

// BeforeCreate 生成主键
func (a *AdminEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
