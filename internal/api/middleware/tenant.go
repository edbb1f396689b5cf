package middleware

import (
	"github.com/gin-gonic/gin"

	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/service"
	"turnero-padel/backend/pkg/response"
)

const tenantKey = "tenant"

// 租户标识来源
const (
	HeaderTenantID   = "X-Tenant-ID"
	HeaderTenantSlug = "X-Tenant-Slug"
	QueryTenant      = "tenant"
)

// Tenant 租户解析中间件
// 依次读取 X-Tenant-ID、X-Tenant-Slug、?tenant=（UUID 按 ID，否则按 slug）；
// 携带了标识却解析失败时返回 404；未携带标识时仅在 required 为 true 时返回 404
func Tenant(resolver service.TenantResolver, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := service.TenantRef{
			ID:     c.GetHeader(HeaderTenantID),
			Slug:   c.GetHeader(HeaderTenantSlug),
			Header: c.Query(QueryTenant),
		}

		tenant := resolver.Resolve(c.Request.Context(), ref)
		if tenant == nil {
			if required || ref != (service.TenantRef{}) {
				response.NotFound(c, 30001, "租户不存在或已停用")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		c.Set(tenantKey, tenant)
		c.Next()
	}
}

// GetTenant 读取已解析的租户
func GetTenant(c *gin.Context) (*model.Tenant, bool) {
	v, exists := c.Get(tenantKey)
	if !exists {
		return nil, false
	}
	t, ok := v.(*model.Tenant)
	return t, ok && t != nil
}

// SetTenant 注入租户（测试与内部调用）
func SetTenant(c *gin.Context, t *model.Tenant) {
	c.Set(tenantKey, t)
}
