package service

import (
	"context"

	"go.uber.org/zap"

	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/repository"
	pkgerrors "turnero-padel/backend/pkg/errors"
)

// Operation 租户内操作类型
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// 授权层级，出现在 403 响应中
const (
	TierTenantMember = "tenant_member"
	TierTenantAdmin  = "tenant_admin"
	TierSuperAdmin   = "super_admin"
)

// PermissionEvaluator 权限判定
//
// 所有判定函数只返回 bool：主体为空、查询出错或缺少数据一律视为无权限。
// 资源归属（例如只能取消自己的预订）由调用方的业务逻辑负责。
type PermissionEvaluator struct {
	admins repository.AdminRepository
	logger *zap.Logger
}

// NewPermissionEvaluator 创建 PermissionEvaluator
func NewPermissionEvaluator(repo *repository.Repository, logger *zap.Logger) *PermissionEvaluator {
	return &PermissionEvaluator{admins: repo.Admin, logger: logger}
}

func (p *PermissionEvaluator) hasEntry(ctx context.Context, user *model.Principal, tenantID *string, role string) bool {
	if user.Email == "" {
		return false
	}
	ok, err := p.admins.HasActiveEntry(ctx, user.Email, tenantID, role)
	if err != nil {
		p.logger.Error("查询管理员白名单失败", zap.String("user_id", user.ID), zap.Error(err))
		return false
	}
	return ok
}

// IsSuperAdminUser 令牌标记或平台级白名单条目
func (p *PermissionEvaluator) IsSuperAdminUser(ctx context.Context, user *model.Principal) bool {
	if user == nil {
		return false
	}
	if user.IsSuperAdmin || user.Role == model.RoleSuperAdmin {
		return true
	}
	return p.hasEntry(ctx, user, nil, model.RoleSuperAdmin)
}

// CanAccessTenant 超级管理员、租户成员或该租户的白名单管理员
func (p *PermissionEvaluator) CanAccessTenant(ctx context.Context, user *model.Principal, tenantID string) bool {
	if user == nil || tenantID == "" {
		return false
	}
	if p.IsSuperAdminUser(ctx, user) {
		return true
	}
	if user.InTenant(tenantID) {
		return true
	}
	return p.hasEntry(ctx, user, &tenantID, model.RoleAdmin)
}

// IsTenantAdmin 超级管理员、本租户的管理员角色或白名单管理员
func (p *PermissionEvaluator) IsTenantAdmin(ctx context.Context, user *model.Principal, tenantID string) bool {
	if user == nil || tenantID == "" {
		return false
	}
	if p.IsSuperAdminUser(ctx, user) {
		return true
	}
	if (user.IsAdmin || user.Role == model.RoleAdmin) && user.InTenant(tenantID) {
		return true
	}
	return p.hasEntry(ctx, user, &tenantID, model.RoleAdmin)
}

// CanManageAdmins 超级管理员可管理任意租户；租户管理员只能管理本租户
func (p *PermissionEvaluator) CanManageAdmins(ctx context.Context, user *model.Principal, tenantID *string) bool {
	if p.IsSuperAdminUser(ctx, user) {
		return true
	}
	if tenantID == nil {
		return false
	}
	return p.IsTenantAdmin(ctx, user, *tenantID)
}

// CanPerformOperation 读/建/改对租户成员开放，删除需要租户管理员
func (p *PermissionEvaluator) CanPerformOperation(ctx context.Context, user *model.Principal, tenantID string, op Operation) bool {
	if !p.CanAccessTenant(ctx, user, tenantID) {
		return false
	}
	switch op {
	case OpRead, OpCreate, OpUpdate:
		return true
	case OpDelete:
		return p.IsTenantAdmin(ctx, user, tenantID)
	}
	return false
}

// Authorize 与 CanPerformOperation 相同的判定，失败时返回带缺失层级的 PermissionError
func (p *PermissionEvaluator) Authorize(ctx context.Context, user *model.Principal, tenantID string, op Operation) error {
	if !p.CanAccessTenant(ctx, user, tenantID) {
		return &pkgerrors.PermissionError{Tier: TierTenantMember}
	}
	if !p.CanPerformOperation(ctx, user, tenantID, op) {
		return &pkgerrors.PermissionError{Tier: TierTenantAdmin}
	}
	return nil
}

// AuthorizeTenantAdmin 要求租户管理员
func (p *PermissionEvaluator) AuthorizeTenantAdmin(ctx context.Context, user *model.Principal, tenantID string) error {
	if !p.IsTenantAdmin(ctx, user, tenantID) {
		return &pkgerrors.PermissionError{Tier: TierTenantAdmin}
	}
	return nil
}

// AuthorizeSuperAdmin 要求超级管理员
func (p *PermissionEvaluator) AuthorizeSuperAdmin(ctx context.Context, user *model.Principal) error {
	if !p.IsSuperAdminUser(ctx, user) {
		return &pkgerrors.PermissionError{Tier: TierSuperAdmin}
	}
	return nil
}
