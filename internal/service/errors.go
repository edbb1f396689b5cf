package service

import (
	"fmt"

	pkgerrors "turnero-padel/backend/pkg/errors"
)

// ── 业务错误 ──
// 均包装 pkg/errors 的分类，Handler 层据此映射 HTTP 状态码

var (
	ErrInvalidDate      = fmt.Errorf("%w: 日期格式应为 YYYY-MM-DD", pkgerrors.ErrValidation)
	ErrInvalidDateRange = fmt.Errorf("%w: 结束日期不能早于开始日期，且跨度不超过 62 天", pkgerrors.ErrValidation)
	ErrInvalidTimeRange = fmt.Errorf("%w: 时间格式应为 HH:MM 且结束晚于开始", pkgerrors.ErrValidation)
	ErrOutsideHours     = fmt.Errorf("%w: 预订时段超出营业时间", pkgerrors.ErrValidation)
	ErrBookingInPast    = fmt.Errorf("%w: 不能预订已经开始的时段", pkgerrors.ErrValidation)
	ErrInvalidSetting   = fmt.Errorf("%w: 设置值无效", pkgerrors.ErrValidation)

	ErrTenantNotFound  = fmt.Errorf("%w: 租户不存在或已停用", pkgerrors.ErrNotFound)
	ErrCourtNotFound   = fmt.Errorf("%w: 场地不存在", pkgerrors.ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("%w: 预订不存在", pkgerrors.ErrNotFound)

	ErrSlotUnavailable   = fmt.Errorf("%w: 该时段已被预订", pkgerrors.ErrConflict)
	ErrSlotBlocked       = fmt.Errorf("%w: 该时段场地已封锁", pkgerrors.ErrConflict)
	ErrBookingNotPending = fmt.Errorf("%w: 预订不是待支付状态", pkgerrors.ErrConflict)
	ErrBookingCancelled  = fmt.Errorf("%w: 预订已取消", pkgerrors.ErrConflict)
)
