package errors

import "errors"

// ── 错误分类 ──
// 业务层的具体错误通过 fmt.Errorf("%w: ...", ErrXxx) 包装这些分类，
// Handler 层用 errors.Is 映射 HTTP 状态码。

var (
	// ErrValidation 调用方输入不合法 → 400
	ErrValidation = errors.New("参数校验失败")
	// ErrPermission 已认证但无权操作 → 403
	ErrPermission = errors.New("无权限访问")
	// ErrNotFound 引用的租户/场地/预订不存在 → 404
	ErrNotFound = errors.New("资源不存在")
	// ErrConflict 时段冲突或唯一约束冲突 → 409
	ErrConflict = errors.New("资源冲突")
)

// PermissionError 权限错误，携带缺失的授权层级（tenant_member / tenant_admin / super_admin）
type PermissionError struct {
	Tier string
}

func (e *PermissionError) Error() string {
	return "缺少授权层级: " + e.Tier
}

// Unwrap 使 errors.Is(err, ErrPermission) 成立
func (e *PermissionError) Unwrap() error { return ErrPermission }

// MissingTier 提取 PermissionError 中缺失的授权层级
func MissingTier(err error) (string, bool) {
	var pe *PermissionError
	if errors.As(err, &pe) {
		return pe.Tier, true
	}
	return "", false
}
