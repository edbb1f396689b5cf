package service

import (
	"context"
	"errors"
	"fmt"

	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/repository"
	"turnero-padel/backend/internal/schedule"
	pkgerrors "turnero-padel/backend/pkg/errors"
)

// CheckRequest 冲突检查参数
type CheckRequest struct {
	TenantID         string
	CourtID          string
	Date             string
	StartTime        string
	EndTime          string
	ExcludeBookingID string // 改期时排除自身
}

// ConflictChecker 同场地同日的时段冲突检查
//
// 检查结果只在调用方已持有场地行锁的事务内可信。
type ConflictChecker struct {
	bookings repository.BookingRepository
}

// NewConflictChecker 基于给定的预订仓储创建检查器（通常是事务内的仓储）
func NewConflictChecker(bookings repository.BookingRepository) *ConflictChecker {
	return &ConflictChecker{bookings: bookings}
}

// CheckAvailability 时段空闲返回 true
func (c *ConflictChecker) CheckAvailability(ctx context.Context, req CheckRequest) (bool, error) {
	want, err := schedule.NewInterval(req.StartTime, req.EndTime)
	if err != nil {
		return false, ErrInvalidTimeRange
	}

	list, err := c.bookings.ListActiveOnDate(ctx, repository.SlotQuery{
		TenantID:  req.TenantID,
		CourtID:   req.CourtID,
		Date:      req.Date,
		ExcludeID: req.ExcludeBookingID,
	})
	if err != nil {
		return false, err
	}

	for i := range list {
		b := &list[i]
		if !b.IsActive() || b.ID == req.ExcludeBookingID {
			continue
		}
		iv, ok := bookingInterval(b)
		if !ok {
			continue
		}
		if schedule.Overlaps(want, iv) {
			return false, nil
		}
	}
	return true, nil
}

// bookingInterval 优先使用分钟列，旧数据回退到解析时间字符串
func bookingInterval(b *model.Booking) (schedule.Interval, bool) {
	if b.EndMin > b.StartMin {
		return schedule.Interval{Start: b.StartMin, End: b.EndMin}, true
	}
	iv, err := schedule.NewInterval(b.StartTime, b.EndTime)
	if err != nil {
		return schedule.Interval{}, false
	}
	return iv, true
}

func blockInterval(b *model.CourtBlock) (schedule.Interval, bool) {
	iv, err := schedule.NewInterval(b.StartTime, b.EndTime)
	if err != nil {
		return schedule.Interval{}, false
	}
	return iv, true
}

// guardedInsert 在事务内写入预订：锁场地行 → 检查封锁 → 检查冲突 → 插入
// excludeID 非空时按改期处理，更新已有行而不是插入
func guardedInsert(ctx context.Context, txRepo *repository.Repository, b *model.Booking, excludeID string) error {
	if _, err := txRepo.Court.LockForBooking(ctx, b.TenantID, b.CourtID); err != nil {
		if isNotFound(err) {
			return ErrCourtNotFound
		}
		return err
	}

	want := schedule.Interval{Start: b.StartMin, End: b.EndMin}

	blocks, err := txRepo.CourtBlock.ListInRange(ctx, repository.RangeQuery{
		TenantID: b.TenantID,
		CourtID:  b.CourtID,
		From:     b.BookingDate,
		To:       b.BookingDate,
	})
	if err != nil {
		return err
	}
	for i := range blocks {
		if iv, ok := blockInterval(&blocks[i]); ok && schedule.Overlaps(want, iv) {
			return ErrSlotBlocked
		}
	}

	free, err := NewConflictChecker(txRepo.Booking).CheckAvailability(ctx, CheckRequest{
		TenantID:         b.TenantID,
		CourtID:          b.CourtID,
		Date:             b.BookingDate,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		ExcludeBookingID: excludeID,
	})
	if err != nil {
		return err
	}
	if !free {
		return ErrSlotUnavailable
	}

	if excludeID != "" {
		err = txRepo.Booking.Reschedule(ctx, b)
	} else {
		err = txRepo.Booking.Create(ctx, b)
	}
	if errors.Is(err, pkgerrors.ErrConflict) {
		// 排斥约束兜底：并发事务绕过了行锁
		return fmt.Errorf("%w (%v)", ErrSlotUnavailable, err)
	}
	return err
}
