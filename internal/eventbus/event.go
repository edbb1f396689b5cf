// Package eventbus 进程内的实时事件分发：维护在线连接，按租户与角色过滤后推送领域事件。
package eventbus

import "time"

// EventType 事件类型
type EventType string

const (
	CourtsUpdated   EventType = "courts_updated"
	BookingsUpdated EventType = "bookings_updated"
	SlotsUpdated    EventType = "slots_updated"
	AdminChange     EventType = "admin_change"
)

// Event 推送给客户端的事件
// TenantID 为 nil 表示广播给所有连接。
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp int64     `json:"timestamp"` // 毫秒
	TenantID  *string   `json:"tenantId"`
}

// NewEvent 构造事件，时间戳取当前毫秒
func NewEvent(t EventType, tenantID *string, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now().UnixMilli(), TenantID: tenantID}
}

// Emitter 事件发射方
type Emitter interface {
	Emit(e Event)
}

// NopEmitter 丢弃所有事件
type NopEmitter struct{}

// Emit 不做任何事
func (NopEmitter) Emit(Event) {}
