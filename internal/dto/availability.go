package dto

// ── 可用性模块 DTO ──
// 字段命名沿用前端约定的 camelCase

// AvailabilityRequest 可用性查询参数
type AvailabilityRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to"   binding:"required,datetime=2006-01-02"`
}

// BusyInterval 已占用 / 封锁 / 虚拟占用区间
type BusyInterval struct {
	ID          string  `json:"id,omitempty"`
	RecurringID *string `json:"recurringId,omitempty"`
	Date        string  `json:"date"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	Status      string  `json:"status,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// AvailabilityResult 场地在日期区间内的占用情况
type AvailabilityResult struct {
	Bookings      []BusyInterval `json:"bookings"`
	CourtBlocks   []BusyInterval `json:"courtBlocks"`
	VirtualBlocks []BusyInterval `json:"virtualBlocks"`
	ThresholdDate string         `json:"thresholdDate"`
}

// Slot 可预订时段
type Slot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// DaySlots 某一天的可预订时段
type DaySlots struct {
	Date         string `json:"date"`
	SlotDuration int    `json:"slotDuration"`
	Slots        []Slot `json:"slots"`
}

// OperatingSettings 租户营业设置
type OperatingSettings struct {
	OpenTime     string `json:"openTime"`
	CloseTime    string `json:"closeTime"`
	SlotDuration int    `json:"slotDuration"`
}

// UpdateSettingRequest 修改单个设置项
type UpdateSettingRequest struct {
	Key   string `json:"key"   binding:"required,oneof=operating_hours_start operating_hours_end slot_duration_minutes"`
	Value string `json:"value" binding:"required,max=20"`
}
