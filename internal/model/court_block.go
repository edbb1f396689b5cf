package model

import "gorm.io/gorm"

// CourtBlock 场地封锁时段（维护、赛事），对应 court_blocks
type CourtBlock struct {
	ID        string `gorm:"type:varchar(36);primaryKey"     json:"id"`
	TenantID  string `gorm:"type:varchar(36);not null;index" json:"tenant_id"`
	CourtID   string `gorm:"type:varchar(36);not null;index" json:"court_id"`
	Date      string `gorm:"type:varchar(10);not null;index" json:"date"`
	StartTime string `gorm:"type:varchar(5);not null"        json:"start_time"`
	EndTime   string `gorm:"type:varchar(5);not null"        json:"end_time"`
	Reason    string `gorm:"type:varchar(200)"               json:"reason"`
	TombstoneModel
}

// TableName 指定表名
func (CourtBlock) TableName() string { return "court_blocks" }

// BeforeCreate 生成主键并初始化状态
func (b *CourtBlock) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	ensureLive(&b.State)
	return nil
}
