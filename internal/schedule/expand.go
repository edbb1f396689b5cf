package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"turnero-padel/backend/internal/model"
)

// Occurrence 周期规则在某一天的一次出现
type Occurrence struct {
	RuleID   string
	Date     string
	Slot     Interval
	Price    *decimal.Decimal // OVERRIDE 例外的新价格
	Reason   *string          // OVERRIDE 例外的原因
	Override bool
}

// RuleInterval 规则每次出现的时段；结束时间缺失或无效时按默认 90 分钟计
func RuleInterval(rule *model.RecurringBookingRule) (Interval, error) {
	start, err := ParseClock(rule.StartTime)
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseClock(rule.EndTime)
	if err != nil || end <= start {
		end = start + DefaultDurationMinutes
	}
	if end > MinutesPerDay {
		end = MinutesPerDay
	}
	if end <= start {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

// CoversDate 规则的 [StartsAt, EndsAt|∞] 是否覆盖 date（均为 YYYY-MM-DD，可按字典序比较）
func CoversDate(rule *model.RecurringBookingRule, date string) bool {
	if date < rule.StartsAt {
		return false
	}
	return rule.EndsAt == nil || *rule.EndsAt == "" || date <= *rule.EndsAt
}

// ExpandRule 展开规则在 [from, to) 内的所有出现
//
// 非 ACTIVE 规则不产生出现；SKIP 例外对应的日期被跳过；
// OVERRIDE 例外把新价格与原因附在出现上。
// 生成器用它写入预订，可用性引擎用它计算虚拟占用，二者必须一致。
func ExpandRule(rule *model.RecurringBookingRule, exceptions []model.RecurringException, from, to time.Time) []Occurrence {
	if rule == nil || rule.Status != model.RuleStatusActive || !rule.IsLive() {
		return nil
	}
	slot, err := RuleInterval(rule)
	if err != nil {
		return nil
	}

	byDate := make(map[string]*model.RecurringException, len(exceptions))
	for i := range exceptions {
		if exceptions[i].RecurringID == rule.ID {
			byDate[exceptions[i].Date] = &exceptions[i]
		}
	}

	var out []Occurrence
	for _, day := range Days(from, to) {
		if int(day.Weekday()) != rule.Weekday {
			continue
		}
		date := FormatDate(day)
		if !CoversDate(rule, date) {
			continue
		}
		occ := Occurrence{RuleID: rule.ID, Date: date, Slot: slot}
		if ex, ok := byDate[date]; ok {
			switch ex.Type {
			case model.ExceptionSkip:
				continue
			case model.ExceptionOverride:
				occ.Override = true
				occ.Price = ex.NewPrice
				occ.Reason = ex.Reason
			}
		}
		out = append(out, occ)
	}
	return out
}
