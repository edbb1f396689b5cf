package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/pkg/jwt"
	"turnero-padel/backend/pkg/response"
)

const principalKey = "principal"

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，构造 Principal 注入上下文
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		p, msg := parsePrincipal(jwtMgr, authHeader)
		if p == nil {
			response.Unauthorized(c, 10002, msg)
			c.Abort()
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// OptionalJWTAuth 公开接口使用：有合法 Token 时注入主体，否则按匿名继续
func OptionalJWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if p, _ := parsePrincipal(jwtMgr, authHeader); p != nil {
				c.Set(principalKey, p)
			}
		}
		c.Next()
	}
}

func parsePrincipal(jwtMgr *jwt.Manager, authHeader string) (*model.Principal, string) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, "认证头格式无效"
	}

	claims, err := jwtMgr.ParseToken(parts[1])
	if err != nil {
		return nil, "Token 无效或已过期"
	}
	if claims.UserID == "" {
		return nil, "Token 缺少主体"
	}

	return &model.Principal{
		ID:           claims.UserID,
		Email:        claims.Email,
		Role:         claims.Role,
		IsAdmin:      claims.IsAdmin,
		IsSuperAdmin: claims.IsSuperAdmin,
		TenantID:     claims.TenantID,
	}, ""
}

// GetPrincipal 读取认证中间件注入的主体
func GetPrincipal(c *gin.Context) (*model.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*model.Principal)
	return p, ok && p != nil
}

// SetPrincipal 注入主体（测试与内部调用）
func SetPrincipal(c *gin.Context, p *model.Principal) {
	c.Set(principalKey, p)
}
