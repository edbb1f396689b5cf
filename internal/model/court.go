package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Court 场地，对应 courts
type Court struct {
	ID           string           `gorm:"type:varchar(36);primaryKey"        json:"id"`
	TenantID     string           `gorm:"type:varchar(36);not null;index"    json:"tenant_id"`
	Name         string           `gorm:"type:varchar(120);not null"         json:"name"`
	PricePerSlot *decimal.Decimal `gorm:"type:numeric(12,2)"                 json:"price_per_slot,omitempty"`
	TombstoneModel
}

// TableName 指定表名
func (Court) TableName() string { return "courts" }

// BeforeCreate 生成主键并初始化状态
func (c *Court) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	ensureLive(&c.State)
	return nil
}
