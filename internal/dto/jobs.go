package dto

// ── 后台任务 DTO ──

// GenerateResult 周期预订物化结果
type GenerateResult struct {
	Created   int `json:"created"`
	Conflicts int `json:"conflicts"`
}

// ExpireResult 过期清理结果
type ExpireResult struct {
	Cancelled int64 `json:"cancelled"`
}

// ExpiredStats 过期预订统计；ByTenant 仅在未指定租户时填充
type ExpiredStats struct {
	TotalExpired int              `json:"totalExpired"`
	ExpiredIDs   []string         `json:"expiredIds"`
	ByTenant     map[string]int64 `json:"byTenant,omitempty"`
}

// ExportRequest 导出参数
type ExportRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to"   binding:"required,datetime=2006-01-02"`
}
