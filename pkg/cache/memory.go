package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Memory 进程内 TTL 缓存
//
// 写入时若超过容量上限，先清理过期项；仍然超限则整体清空。
type Memory[V any] struct {
	mu      sync.Mutex
	items   map[string]entry[V]
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// NewMemory 创建进程内缓存
func NewMemory[V any](opts Options) *Memory[V] {
	return &Memory[V]{
		items:   make(map[string]entry[V]),
		ttl:     opts.TTL,
		maxSize: opts.MaxSize,
		now:     time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (m *Memory[V]) WithClock(now func() time.Time) *Memory[V] {
	m.now = now
	return m
}

// Get 读取未过期的值
func (m *Memory[V]) Get(_ context.Context, key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	e, ok := m.items[key]
	if !ok {
		return zero, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.items, key)
		return zero, false
	}
	return e.value, true
}

// Set 写入值
func (m *Memory[V]) Set(_ context.Context, key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.items[key]; !exists && m.maxSize > 0 && len(m.items) >= m.maxSize {
		for k, e := range m.items {
			if !now.Before(e.expiresAt) {
				delete(m.items, k)
			}
		}
		if len(m.items) >= m.maxSize {
			m.items = make(map[string]entry[V])
		}
	}
	m.items[key] = entry[V]{value: value, expiresAt: now.Add(m.ttl)}
}

// Delete 删除指定键
func (m *Memory[V]) Delete(_ context.Context, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
}

// Clear 清空
func (m *Memory[V]) Clear(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]entry[V])
}

// Len 当前条目数（含尚未清理的过期项）
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
