package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/repository"
	"turnero-padel/backend/pkg/cache"
)

// TenantRef 请求中携带的租户标识，优先级 ID > Slug > Header
type TenantRef struct {
	ID     string
	Slug   string
	Header string // ?tenant= 参数，可能是 ID 也可能是 slug
}

// TenantResolver 租户解析接口
type TenantResolver interface {
	// Resolve 解析租户；不存在、已停用或存储出错时返回 nil
	Resolve(ctx context.Context, ref TenantRef) *model.Tenant
	// ClearCache 清除指定 slug 的缓存，slug 为空时清空全部
	ClearCache(ctx context.Context, slug string)
}

type tenantResolver struct {
	repo   *repository.Repository
	cache  cache.Cache[model.Tenant]
	logger *zap.Logger
}

// NewTenantResolver 创建 TenantResolver 实例
func NewTenantResolver(repo *repository.Repository, c cache.Cache[model.Tenant], logger *zap.Logger) TenantResolver {
	return &tenantResolver{repo: repo, cache: c, logger: logger}
}

func idKey(id string) string     { return "id:" + id }
func slugKey(slug string) string { return "slug:" + slug }

func (r *tenantResolver) Resolve(ctx context.Context, ref TenantRef) *model.Tenant {
	switch {
	case ref.ID != "":
		return r.byID(ctx, ref.ID)
	case ref.Slug != "":
		return r.bySlug(ctx, ref.Slug)
	case ref.Header != "":
		h := strings.TrimSpace(ref.Header)
		if _, err := uuid.Parse(h); err == nil {
			return r.byID(ctx, h)
		}
		return r.bySlug(ctx, strings.ToLower(h))
	}
	return nil
}

func (r *tenantResolver) byID(ctx context.Context, id string) *model.Tenant {
	if t, ok := r.cache.Get(ctx, idKey(id)); ok {
		return activeOrNil(&t)
	}
	t, err := r.repo.Tenant.GetByID(ctx, id)
	return r.remember(ctx, t, err, zap.String("tenant_id", id))
}

func (r *tenantResolver) bySlug(ctx context.Context, slug string) *model.Tenant {
	if t, ok := r.cache.Get(ctx, slugKey(slug)); ok {
		return activeOrNil(&t)
	}
	t, err := r.repo.Tenant.GetBySlug(ctx, slug)
	return r.remember(ctx, t, err, zap.String("slug", slug))
}

func (r *tenantResolver) remember(ctx context.Context, t *model.Tenant, err error, field zap.Field) *model.Tenant {
	if err != nil {
		if !isNotFound(err) {
			r.logger.Error("解析租户失败", field, zap.Error(err))
		}
		return nil
	}
	r.cache.Set(ctx, idKey(t.ID), *t)
	r.cache.Set(ctx, slugKey(t.Slug), *t)
	return activeOrNil(t)
}

func activeOrNil(t *model.Tenant) *model.Tenant {
	if t == nil || !t.IsActive {
		return nil
	}
	return t
}

func (r *tenantResolver) ClearCache(ctx context.Context, slug string) {
	if slug == "" {
		r.cache.Clear(ctx)
		return
	}
	keys := []string{slugKey(slug)}
	if t, ok := r.cache.Get(ctx, slugKey(slug)); ok {
		keys = append(keys, idKey(t.ID))
	}
	r.cache.Delete(ctx, keys...)
}
