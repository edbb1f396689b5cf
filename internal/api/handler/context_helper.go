package handler

import (
	"github.com/gin-gonic/gin"

	"turnero-padel/backend/internal/api/middleware"
	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/pkg/response"
)

// MustGetPrincipal 从 Gin 上下文中安全提取认证主体。
// 如果 JWT 中间件未注入主体，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetPrincipal(c *gin.Context) (*model.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return p, true
}

// MustGetTenant 从 Gin 上下文中提取已解析的租户，缺失时写入 404
func MustGetTenant(c *gin.Context) (*model.Tenant, bool) {
	t, ok := middleware.GetTenant(c)
	if !ok {
		response.NotFound(c, 30001, "租户不存在或已停用")
		return nil, false
	}
	return t, true
}

// optionalTenantID 租户可选的接口：未解析到租户时返回 nil
func optionalTenantID(c *gin.Context) *string {
	t, ok := middleware.GetTenant(c)
	if !ok {
		return nil
	}
	id := t.ID
	return &id
}
