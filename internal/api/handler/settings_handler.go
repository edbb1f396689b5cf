package handler

import (
	"github.com/gin-gonic/gin"

	"turnero-padel/backend/internal/dto"
	"turnero-padel/backend/internal/service"
	"turnero-padel/backend/pkg/response"
)

// SettingsHandler 营业设置 HTTP 处理器
type SettingsHandler struct {
	settingsSvc service.SettingsService
	perm        *service.PermissionEvaluator
}

// NewSettingsHandler 创建 SettingsHandler
func NewSettingsHandler(settingsSvc service.SettingsService, perm *service.PermissionEvaluator) *SettingsHandler {
	return &SettingsHandler{settingsSvc: settingsSvc, perm: perm}
}

// GetSettings 读取当前租户的营业设置
// GET /api/v1/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	t, ok := MustGetTenant(c)
	if !ok {
		return
	}

	response.OK(c, h.settingsSvc.Get(c.Request.Context(), t.ID))
}

// UpdateSetting 修改单个设置项（租户管理员）
// PUT /api/v1/settings
func (h *SettingsHandler) UpdateSetting(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	t, ok := MustGetTenant(c)
	if !ok {
		return
	}
	if err := h.perm.AuthorizeTenantAdmin(c.Request.Context(), p, t.ID); err != nil {
		writeError(c, err)
		return
	}

	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	settings, err := h.settingsSvc.Update(c.Request.Context(), t.ID, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, settings)
}
