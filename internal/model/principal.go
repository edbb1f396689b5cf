package model

// Principal 当前请求的主体，由认证中间件从 Token 构造
type Principal struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	Role         string  `json:"role"`
	IsAdmin      bool    `json:"is_admin"`
	IsSuperAdmin bool    `json:"is_super_admin"`
	TenantID     *string `json:"tenant_id,omitempty"`
}

// InTenant 主体是否归属指定租户
func (p *Principal) InTenant(tenantID string) bool {
	return p != nil && p.TenantID != nil && *p.TenantID == tenantID
}
