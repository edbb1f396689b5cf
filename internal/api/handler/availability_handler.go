package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"turnero-padel/backend/internal/api/middleware"
	"turnero-padel/backend/internal/dto"
	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/service"
	"turnero-padel/backend/pkg/response"
)

// AvailabilityHandler 可用性模块 HTTP 处理器
type AvailabilityHandler struct {
	availSvc service.AvailabilityService
	perm     *service.PermissionEvaluator
}

// NewAvailabilityHandler 创建 AvailabilityHandler
func NewAvailabilityHandler(availSvc service.AvailabilityService, perm *service.PermissionEvaluator) *AvailabilityHandler {
	return &AvailabilityHandler{availSvc: availSvc, perm: perm}
}

// GetAvailability 查询场地占用情况
// GET /api/v1/courts/:id/availability?from=&to=
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}

	result, err := h.availSvc.GetAvailableSlots(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, result)
}

// GetOpenSlots 查询可预订时段
// GET /api/v1/courts/:id/slots?from=&to=
func (h *AvailabilityHandler) GetOpenSlots(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}

	days, err := h.availSvc.GetOpenSlots(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, gin.H{"list": days})
}

func (h *AvailabilityHandler) bindQuery(c *gin.Context) (service.AvailabilityQuery, bool) {
	courtID := c.Param("id")
	if courtID == "" {
		response.BadRequest(c, 10001, "场地ID不能为空")
		return service.AvailabilityQuery{}, false
	}

	var req dto.AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return service.AvailabilityQuery{}, false
	}

	tenantID := optionalTenantID(c)
	p, _ := middleware.GetPrincipal(c)

	return service.AvailabilityQuery{
		CourtID:  courtID,
		DateFrom: req.From,
		DateTo:   req.To,
		Role:     effectiveRole(c.Request.Context(), h.perm, p, tenantID),
		TenantID: tenantID,
	}, true
}

// effectiveRole 管理员视图只授予经过判定的主体，令牌中的角色声明本身不算数
func effectiveRole(ctx context.Context, perm *service.PermissionEvaluator, p *model.Principal, tenantID *string) string {
	if p == nil {
		return model.RoleUser
	}
	if perm.IsSuperAdminUser(ctx, p) {
		return model.RoleSuperAdmin
	}
	if tenantID != nil && perm.IsTenantAdmin(ctx, p, *tenantID) {
		return model.RoleAdmin
	}
	return model.RoleUser
}
