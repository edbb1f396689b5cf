package model

import "gorm.io/gorm"

// Tenant 租户（一个球馆/俱乐部），对应 tenants
type Tenant struct {
	ID       string `gorm:"type:varchar(36);primaryKey"         json:"id"`
	Name     string `gorm:"type:varchar(120);not null"          json:"name"`
	Slug     string `gorm:"type:varchar(80);not null;uniqueIndex" json:"slug"`
	IsActive bool   `gorm:"not null"                            json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Tenant) TableName() string { return "tenants" }

// BeforeCreate 生成主键
func (t *Tenant) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
