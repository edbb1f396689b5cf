package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"turnero-padel/backend/internal/eventbus"
)

// Pinger 数据库连通性检查，*sql.DB 满足该接口
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler 健康检查
type HealthHandler struct {
	db  Pinger
	bus *eventbus.Bus
}

// NewHealthHandler 创建 HealthHandler
func NewHealthHandler(db Pinger, bus *eventbus.Bus) *HealthHandler {
	return &HealthHandler{db: db, bus: bus}
}

// Health GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = err.Error()
		}
	}
	if h.bus != nil {
		body["connections"] = h.bus.Count()
	}

	c.JSON(status, body)
}
