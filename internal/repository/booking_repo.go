package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/pkg/database"
	pkgerrors "turnero-padel/backend/pkg/errors"
)

// SlotQuery 同一场地同一天的占用查询条件
type SlotQuery struct {
	TenantID  string // 为空时不按租户过滤
	CourtID   string
	Date      string
	ExcludeID string // 改期时排除自身
}

// RangeQuery 场地在日期区间 [From, To]（闭区间）内的查询条件
type RangeQuery struct {
	TenantID string // 为空时不按租户过滤
	CourtID  string // 为空表示租户下所有场地
	From     string
	To       string
}

// ExpiredCount 按租户聚合的过期数量
type ExpiredCount struct {
	TenantID string
	Count    int64
}

// BookingRepository 预订数据访问接口
type BookingRepository interface {
	// Create 插入预订；违反排斥约束或唯一约束时返回包装了 ErrConflict 的错误
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, tenantID, id string) (*model.Booking, error)
	ListActiveOnDate(ctx context.Context, q SlotQuery) ([]model.Booking, error)
	ListActiveInRange(ctx context.Context, q RangeQuery) ([]model.Booking, error)
	ListInRange(ctx context.Context, q RangeQuery) ([]model.Booking, error)
	// ExistsForRecurring 该出现是否已物化（包括已取消的）
	ExistsForRecurring(ctx context.Context, recurringID, date string) (bool, error)
	Reschedule(ctx context.Context, b *model.Booking) error
	// Confirm PENDING → CONFIRMED/PAID，返回受影响行数
	Confirm(ctx context.Context, tenantID, id string) (int64, error)
	// Cancel 取消未取消的预订，返回受影响行数
	Cancel(ctx context.Context, tenantID, id, reason string, at time.Time) (int64, error)
	ListExpired(ctx context.Context, tenantID *string, now time.Time) ([]model.Booking, error)
	CountExpiredByTenant(ctx context.Context, now time.Time) ([]ExpiredCount, error)
	// CancelExpired 只取消仍处于 PENDING 且已过期的行，与支付确认并发时确认优先
	CancelExpired(ctx context.Context, ids []string, now time.Time, reason string) (int64, error)
}

// bookingRepo BookingRepository 的 GORM 实现
type bookingRepo struct {
	db *gorm.DB
}

// NewBookingRepo 创建 BookingRepository 实例
func NewBookingRepo(db *gorm.DB) BookingRepository {
	return &bookingRepo{db: db}
}

func translateWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if database.IsConstraintViolation(err) {
		return fmt.Errorf("%w: %v", pkgerrors.ErrConflict, err)
	}
	return err
}

func (r *bookingRepo) Create(ctx context.Context, b *model.Booking) error {
	return translateWriteErr(r.db.WithContext(ctx).Create(b).Error)
}

func (r *bookingRepo) GetByID(ctx context.Context, tenantID, id string) (*model.Booking, error) {
	var b model.Booking
	err := r.db.WithContext(ctx).
		Scopes(model.Live).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepo) ListActiveOnDate(ctx context.Context, q SlotQuery) ([]model.Booking, error) {
	db := r.db.WithContext(ctx).
		Scopes(model.Live).
		Where("court_id = ? AND booking_date = ? AND status <> ?", q.CourtID, q.Date, model.BookingStatusCancelled)
	if q.TenantID != "" {
		db = db.Where("tenant_id = ?", q.TenantID)
	}
	if q.ExcludeID != "" {
		db = db.Where("id <> ?", q.ExcludeID)
	}
	var list []model.Booking
	err := db.Order("start_min ASC").Find(&list).Error
	return list, err
}

func (r *bookingRepo) rangeScope(q RangeQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("booking_date >= ? AND booking_date <= ?", q.From, q.To)
		if q.TenantID != "" {
			db = db.Where("tenant_id = ?", q.TenantID)
		}
		if q.CourtID != "" {
			db = db.Where("court_id = ?", q.CourtID)
		}
		return db
	}
}

func (r *bookingRepo) ListActiveInRange(ctx context.Context, q RangeQuery) ([]model.Booking, error) {
	var list []model.Booking
	err := r.db.WithContext(ctx).
		Scopes(model.Live, r.rangeScope(q)).
		Where("status <> ?", model.BookingStatusCancelled).
		Order("booking_date ASC, start_min ASC").
		Find(&list).Error
	return list, err
}

func (r *bookingRepo) ListInRange(ctx context.Context, q RangeQuery) ([]model.Booking, error) {
	var list []model.Booking
	err := r.db.WithContext(ctx).
		Scopes(model.Live, r.rangeScope(q)).
		Order("booking_date ASC, court_id ASC, start_min ASC").
		Find(&list).Error
	return list, err
}

func (r *bookingRepo) ExistsForRecurring(ctx context.Context, recurringID, date string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Scopes(model.Live).
		Where("recurring_id = ? AND booking_date = ?", recurringID, date).
		Count(&count).Error
	return count > 0, err
}

func (r *bookingRepo) Reschedule(ctx context.Context, b *model.Booking) error {
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ? AND tenant_id = ?", b.ID, b.TenantID).
		Updates(map[string]interface{}{
			"court_id":     b.CourtID,
			"booking_date": b.BookingDate,
			"start_time":   b.StartTime,
			"end_time":     b.EndTime,
			"start_min":    b.StartMin,
			"end_min":      b.EndMin,
			"price":        b.Price,
		}).Error
	return translateWriteErr(err)
}

func (r *bookingRepo) Confirm(ctx context.Context, tenantID, id string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, model.BookingStatusPending).
		Updates(map[string]interface{}{
			"status":         model.BookingStatusConfirmed,
			"payment_status": model.PaymentStatusPaid,
			"expires_at":     nil,
		})
	return res.RowsAffected, res.Error
}

func (r *bookingRepo) Cancel(ctx context.Context, tenantID, id, reason string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ? AND tenant_id = ? AND status <> ?", id, tenantID, model.BookingStatusCancelled).
		Updates(map[string]interface{}{
			"status":              model.BookingStatusCancelled,
			"cancelled_at":        at,
			"cancellation_reason": reason,
		})
	return res.RowsAffected, res.Error
}

func (r *bookingRepo) expiredScope(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", model.BookingStatusPending, now)
	}
}

func (r *bookingRepo) ListExpired(ctx context.Context, tenantID *string, now time.Time) ([]model.Booking, error) {
	db := r.db.WithContext(ctx).Scopes(model.Live, r.expiredScope(now))
	if tenantID != nil {
		db = db.Where("tenant_id = ?", *tenantID)
	}
	var list []model.Booking
	err := db.Order("expires_at ASC").Find(&list).Error
	return list, err
}

func (r *bookingRepo) CountExpiredByTenant(ctx context.Context, now time.Time) ([]ExpiredCount, error) {
	var rows []ExpiredCount
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Scopes(model.Live, r.expiredScope(now)).
		Select("tenant_id, COUNT(*) AS count").
		Group("tenant_id").
		Order("tenant_id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *bookingRepo) CancelExpired(ctx context.Context, ids []string, now time.Time, reason string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Scopes(r.expiredScope(now)).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":              model.BookingStatusCancelled,
			"cancelled_at":        now,
			"cancellation_reason": reason,
		})
	return res.RowsAffected, res.Error
}
