package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 周期规则状态
const (
	RuleStatusActive    = "ACTIVE"
	RuleStatusPaused    = "PAUSED"
	RuleStatusCancelled = "CANCELLED"
)

// 周期例外类型
const (
	ExceptionSkip     = "SKIP"
	ExceptionOverride = "OVERRIDE"
)

// RecurringBookingRule 周期预订规则，对应 recurring_booking_rules
//
// Weekday 取值 0-6，0 表示周日。StartsAt/EndsAt 为 YYYY-MM-DD，EndsAt 为空表示无限期。
type RecurringBookingRule struct {
	ID        string           `gorm:"type:varchar(36);primaryKey"     json:"id"`
	TenantID  string           `gorm:"type:varchar(36);not null;index" json:"tenant_id"`
	CourtID   string           `gorm:"type:varchar(36);not null;index" json:"court_id"`
	UserID    string           `gorm:"type:varchar(36);not null"       json:"user_id"`
	Weekday   int              `gorm:"not null"                        json:"weekday"`
	StartTime string           `gorm:"type:varchar(5);not null"        json:"start_time"`
	EndTime   string           `gorm:"type:varchar(5)"                 json:"end_time"`
	StartsAt  string           `gorm:"type:varchar(10);not null"       json:"starts_at"`
	EndsAt    *string          `gorm:"type:varchar(10)"                json:"ends_at,omitempty"`
	Status    string           `gorm:"type:varchar(20);not null;index" json:"status"`
	Price     *decimal.Decimal `gorm:"type:numeric(12,2)"              json:"price,omitempty"`
	TombstoneModel
}

// TableName 指定表名
func (RecurringBookingRule) TableName() string { return "recurring_booking_rules" }

// BeforeCreate 生成主键并初始化状态
func (r *RecurringBookingRule) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	ensureLive(&r.State)
	if r.Status == "" {
		r.Status = RuleStatusActive
	}
	return nil
}

// RecurringException 周期规则在某一天的例外（跳过或改价），对应 recurring_exceptions
type RecurringException struct {
	ID          string           `gorm:"type:varchar(36);primaryKey"                       json:"id"`
	RecurringID string           `gorm:"type:varchar(36);not null;uniqueIndex:uk_rule_date" json:"recurring_id"`
	Date        string           `gorm:"type:varchar(10);not null;uniqueIndex:uk_rule_date" json:"date"`
	Type        string           `gorm:"type:varchar(10);not null"                         json:"type"`
	NewPrice    *decimal.Decimal `gorm:"type:numeric(12,2)"                                json:"new_price,omitempty"`
	Reason      *string          `gorm:"type:varchar(200)"                                 json:"reason,omitempty"`
	BaseModel
}

// TableName 指定表名
func (RecurringException) TableName() string { return "recurring_exceptions" }

// BeforeCreate 生成主键
func (e *RecurringException) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
