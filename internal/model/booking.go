package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 预订状态
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusActive    = "ACTIVE"
	BookingStatusCompleted = "COMPLETED"
	BookingStatusCancelled = "CANCELLED"
)

// 支付状态
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"
)

// Booking 预订，对应 bookings
//
// StartMin/EndMin 为 StartTime/EndTime 的分钟数冗余列，
// 供 PostgreSQL 排斥约束构造 int4range 使用。
type Booking struct {
	ID                 string          `gorm:"type:varchar(36);primaryKey"               json:"id"`
	TenantID           string          `gorm:"type:varchar(36);not null;index"           json:"tenant_id"`
	CourtID            string          `gorm:"type:varchar(36);not null;index"           json:"court_id"`
	UserID             string          `gorm:"type:varchar(36);not null;index"           json:"user_id"`
	BookingDate        string          `gorm:"type:varchar(10);not null;index"           json:"booking_date"`
	StartTime          string          `gorm:"type:varchar(5);not null"                  json:"start_time"`
	EndTime            string          `gorm:"type:varchar(5);not null"                  json:"end_time"`
	StartMin           int             `gorm:"not null"                                  json:"-"`
	EndMin             int             `gorm:"not null"                                  json:"-"`
	Status             string          `gorm:"type:varchar(20);not null;index"           json:"status"`
	PaymentStatus      string          `gorm:"type:varchar(20);not null"                 json:"payment_status"`
	Price              decimal.Decimal `gorm:"type:numeric(12,2);not null"               json:"price"`
	ExpiresAt          *time.Time      `gorm:"index"                                     json:"expires_at,omitempty"`
	RecurringID        *string         `gorm:"type:varchar(36);index"                    json:"recurring_id,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CancellationReason *string         `gorm:"type:varchar(200)"                         json:"cancellation_reason,omitempty"`
	Notes              *string         `gorm:"type:varchar(200)"                         json:"notes,omitempty"` // 周期例外（OVERRIDE）的原因
	TombstoneModel
}

// TableName 指定表名
func (Booking) TableName() string { return "bookings" }

// BeforeCreate 生成主键并初始化状态
func (b *Booking) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	ensureLive(&b.State)
	return nil
}

// IsActive 未取消的预订占用时段
func (b *Booking) IsActive() bool {
	return b.Status != BookingStatusCancelled && b.IsLive()
}
