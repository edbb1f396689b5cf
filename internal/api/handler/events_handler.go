package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"turnero-padel/backend/internal/eventbus"
	"turnero-padel/backend/internal/service"
	"turnero-padel/backend/pkg/response"
)

// DefaultHeartbeat 未配置时的心跳间隔
const DefaultHeartbeat = 25 * time.Second

// EventsHandler 实时事件推送（Server-Sent Events）
type EventsHandler struct {
	bus       *eventbus.Bus
	perm      *service.PermissionEvaluator
	heartbeat time.Duration
}

// NewEventsHandler 创建 EventsHandler
func NewEventsHandler(bus *eventbus.Bus, perm *service.PermissionEvaluator, heartbeat time.Duration) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &EventsHandler{bus: bus, perm: perm, heartbeat: heartbeat}
}

// Stream 注册连接并持续推送事件
// GET /api/v1/events
//
// 客户端断开、连接被总线移除或服务关闭时退出，退出时一定从总线注销。
func (h *EventsHandler) Stream(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	isSuper := h.perm.IsSuperAdminUser(ctx, p)
	tenantID := optionalTenantID(c)
	if tenantID != nil {
		if !isSuper && !h.perm.CanAccessTenant(ctx, p, *tenantID) {
			response.ForbiddenTier(c, service.TierTenantMember)
			return
		}
	} else {
		tenantID = p.TenantID
	}

	conn := h.bus.AddConnection(tenantID, isSuper, p.ID)
	defer h.bus.RemoveConnection(conn.ID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("connected", gin.H{"connectionId": conn.ID})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case e := <-conn.Events():
			c.SSEvent(string(e.Type), e)
			c.Writer.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(c.Writer, ": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
