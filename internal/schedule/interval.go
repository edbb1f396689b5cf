package schedule

import "sort"

// Interval 当天内的半开区间 [Start, End)，单位为分钟
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewInterval 由 "HH:MM" 构造区间，要求 End > Start
func NewInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	if e <= s {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: s, End: e}, nil
}

// Empty 区间长度为 0
func (i Interval) Empty() bool { return i.End <= i.Start }

// StartClock "HH:MM" 形式的开始时间
func (i Interval) StartClock() string { return FormatClock(i.Start) }

// EndClock "HH:MM" 形式的结束时间
func (i Interval) EndClock() string { return FormatClock(i.End) }

// Overlaps 两个半开区间是否冲突：NOT(e1 <= s2 OR e2 <= s1)
// 首尾相接（e1 == s2）不算冲突。
func Overlaps(a, b Interval) bool {
	return !(a.End <= b.Start || b.End <= a.Start)
}

// OverlapsAny 是否与任意一个区间冲突
func OverlapsAny(a Interval, others []Interval) bool {
	for _, o := range others {
		if Overlaps(a, o) {
			return true
		}
	}
	return false
}

// SplitSlots 把营业时间切分为固定时长的时段，不足一个时长的尾巴丢弃
func SplitSlots(hours Interval, duration int) []Interval {
	if duration <= 0 || hours.Empty() {
		return nil
	}
	var slots []Interval
	for cur := hours.Start; cur+duration <= hours.End; cur += duration {
		slots = append(slots, Interval{Start: cur, End: cur + duration})
	}
	return slots
}

// FreeSlots 去掉与任一占用区间冲突的时段
func FreeSlots(slots, busy []Interval) []Interval {
	free := make([]Interval, 0, len(slots))
	for _, s := range slots {
		if !OverlapsAny(s, busy) {
			free = append(free, s)
		}
	}
	return free
}

// SortIntervals 按开始时间排序（原地）
func SortIntervals(list []Interval) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Start != list[j].Start {
			return list[i].Start < list[j].Start
		}
		return list[i].End < list[j].End
	})
}
