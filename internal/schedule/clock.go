// Package schedule 时段计算的纯函数：时钟解析、半开区间、日期遍历与周期规则展开。
// 不依赖存储，生成器（写）与可用性引擎（读）共用同一套展开逻辑。
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout 日期统一格式
const DateLayout = "2006-01-02"

// DefaultDurationMinutes 规则缺少有效结束时间时的默认时长
const DefaultDurationMinutes = 90

// MinutesPerDay 一天的分钟数，24:00 合法作为结束时间
const MinutesPerDay = 24 * 60

var (
	ErrInvalidClock    = errors.New("时间格式应为 HH:MM")
	ErrInvalidDate     = errors.New("日期格式应为 YYYY-MM-DD")
	ErrInvalidInterval = errors.New("结束时间必须晚于开始时间")
)

// ParseClock 解析 "HH:MM" 为当天的分钟数
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || !twoDigits(h) || !twoDigits(m) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if hh < 0 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	total := hh*60 + mm
	if total > MinutesPerDay {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return total, nil
}

// twoDigits 恰好两位 ASCII 数字，不接受符号
func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// FormatClock 分钟数 → "HH:MM"
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// ParseDate 按业务时区解析 "YYYY-MM-DD"，返回当天零点
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// FormatDate time → "YYYY-MM-DD"
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay 返回 t 在 loc 时区的当天零点
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// AddDays 按日历日偏移（夏令时切换日仍落在零点）
func AddDays(day time.Time, n int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+n, 0, 0, 0, 0, day.Location())
}

// Days 遍历 [from, to) 之间的每一天
func Days(from, to time.Time) []time.Time {
	var days []time.Time
	for d := from; d.Before(to); d = AddDays(d, 1) {
		days = append(days, d)
	}
	return days
}
