package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"turnero-padel/backend/internal/service"
	"turnero-padel/backend/pkg/response"
)

// JobsHandler 后台任务手动触发
type JobsHandler struct {
	generator service.RecurringGenerator
	sweeper   service.ExpirationSweeper
	perm      *service.PermissionEvaluator
}

// NewJobsHandler 创建 JobsHandler
func NewJobsHandler(generator service.RecurringGenerator, sweeper service.ExpirationSweeper, perm *service.PermissionEvaluator) *JobsHandler {
	return &JobsHandler{generator: generator, sweeper: sweeper, perm: perm}
}

// Generate 物化周期预订
// POST /api/v1/admin/jobs/generate[?scope=all]
func (h *JobsHandler) Generate(c *gin.Context) {
	tenantID, ok := h.scope(c)
	if !ok {
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), tenantID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, 40001, "周期预订生成失败")
		return
	}

	response.OK(c, result)
}

// Expire 取消超时未支付的预订
// POST /api/v1/admin/jobs/expire[?scope=all]
func (h *JobsHandler) Expire(c *gin.Context) {
	tenantID, ok := h.scope(c)
	if !ok {
		return
	}

	cancelled, err := h.sweeper.CancelExpiredBookings(c.Request.Context(), tenantID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, 40002, "过期预订清理失败")
		return
	}

	response.OK(c, gin.H{"cancelled": cancelled})
}

// ExpiredStats 待清理的过期预订统计
// GET /api/v1/admin/jobs/expired-stats[?scope=all]
func (h *JobsHandler) ExpiredStats(c *gin.Context) {
	tenantID, ok := h.scope(c)
	if !ok {
		return
	}

	stats, err := h.sweeper.GetExpiredBookingsStats(c.Request.Context(), tenantID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, 40003, "过期预订统计失败")
		return
	}

	response.OK(c, stats)
}

// scope 全局范围需要超级管理员；否则限定在当前租户并要求租户管理员
func (h *JobsHandler) scope(c *gin.Context) (*string, bool) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return nil, false
	}

	if c.Query("scope") == "all" {
		if err := h.perm.AuthorizeSuperAdmin(c.Request.Context(), p); err != nil {
			writeError(c, err)
			return nil, false
		}
		return nil, true
	}

	t, ok := MustGetTenant(c)
	if !ok {
		return nil, false
	}
	if err := h.perm.AuthorizeTenantAdmin(c.Request.Context(), p, t.ID); err != nil {
		writeError(c, err)
		return nil, false
	}
	id := t.ID
	return &id, true
}
