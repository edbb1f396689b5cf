// Package cache 带 TTL 的通用键值缓存。
//
// 两种实现：进程内 Memory（单实例）与 Redis（多实例共享）。
// 缓存只是加速层，所有实现都不向调用方返回错误，未命中即回源。
package cache

import (
	"context"
	"time"
)

// Cache 泛型 TTL 缓存
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V)
	Delete(ctx context.Context, keys ...string)
	Clear(ctx context.Context)
}

// Options 缓存参数
type Options struct {
	TTL     time.Duration
	MaxSize int // 仅 Memory 使用，<=0 表示不限
}
