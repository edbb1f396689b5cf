package eventbus

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBufferSize 每个连接的待发送队列长度
const DefaultBufferSize = 64

// Connection 一个在线客户端连接
type Connection struct {
	ID           string
	TenantID     *string
	IsSuperAdmin bool
	UserID       string

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// Events 待推送事件，按发射顺序排列
func (c *Connection) Events() <-chan Event { return c.events }

// Done 连接被移除后关闭
func (c *Connection) Done() <-chan struct{} { return c.done }

func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Connection) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// accepts 投递规则：超级管理员、广播事件、同租户
func (c *Connection) accepts(e Event) bool {
	if c.IsSuperAdmin || e.TenantID == nil {
		return true
	}
	return c.TenantID != nil && *c.TenantID == *e.TenantID
}

// Publisher 跨实例转发事件（见 Relay）
type Publisher interface {
	Publish(e Event)
}

// Bus 连接注册表
//
// Emit 永不阻塞也不返回错误：队列已满或已关闭的连接会被直接移除，
// 客户端重连后重新注册即可。
type Bus struct {
	mu         sync.RWMutex
	conns      map[string]*Connection
	bufferSize int
	publisher  Publisher
	logger     *zap.Logger
}

// Option Bus 构造选项
type Option func(*Bus)

// WithBufferSize 设置每个连接的队列长度
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// New 创建 Bus
func New(logger *zap.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		conns:      make(map[string]*Connection),
		bufferSize: DefaultBufferSize,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetPublisher 挂载跨实例转发
func (b *Bus) SetPublisher(p Publisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publisher = p
}

// AddConnection 注册连接；调用方必须在连接关闭的所有路径上调用 RemoveConnection
func (b *Bus) AddConnection(tenantID *string, isSuperAdmin bool, userID string) *Connection {
	c := &Connection{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		IsSuperAdmin: isSuperAdmin,
		UserID:       userID,
		events:       make(chan Event, b.bufferSize),
		done:         make(chan struct{}),
	}
	b.mu.Lock()
	b.conns[c.ID] = c
	b.mu.Unlock()

	b.logger.Debug("连接已注册", zap.String("conn_id", c.ID), zap.String("user_id", userID))
	return c
}

// RemoveConnection 移除连接，可重复调用
func (b *Bus) RemoveConnection(id string) {
	b.mu.Lock()
	c, ok := b.conns[id]
	delete(b.conns, id)
	b.mu.Unlock()

	if ok {
		c.close()
		b.logger.Debug("连接已移除", zap.String("conn_id", id))
	}
}

// Emit 本地投递并转发给其他实例
func (b *Bus) Emit(e Event) {
	b.Deliver(e)

	b.mu.RLock()
	p := b.publisher
	b.mu.RUnlock()
	if p != nil {
		p.Publish(e)
	}
}

// Deliver 只投递给本实例的连接
func (b *Bus) Deliver(e Event) {
	var dead []string

	b.mu.RLock()
	for id, c := range b.conns {
		if !c.accepts(e) {
			continue
		}
		if c.closed() {
			dead = append(dead, id)
			continue
		}
		select {
		case c.events <- e:
		default:
			dead = append(dead, id)
		}
	}
	b.mu.RUnlock()

	for _, id := range dead {
		b.logger.Warn("连接不可写，已移除", zap.String("conn_id", id), zap.String("event", string(e.Type)))
		b.RemoveConnection(id)
	}
}

// Count 当前连接数
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

// Close 移除所有连接（服务关闭时调用）
func (b *Bus) Close() {
	b.mu.Lock()
	conns := b.conns
	b.conns = make(map[string]*Connection)
	b.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}
