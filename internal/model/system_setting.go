package model

// 系统设置键
const (
	SettingOperatingHoursStart = "operating_hours_start"
	SettingOperatingHoursEnd   = "operating_hours_end"
	SettingSlotDuration        = "slot_duration_minutes"
)

// SystemSetting 租户级键值设置，对应 system_settings
type SystemSetting struct {
	TenantID string `gorm:"type:varchar(36);primaryKey" json:"tenant_id"`
	Key      string `gorm:"type:varchar(60);primaryKey" json:"key"`
	Value    string `gorm:"type:varchar(200);not null"  json:"value"`
	BaseModel
}

// TableName 指定表名
func (SystemSetting) TableName() string { return "system_settings" }
