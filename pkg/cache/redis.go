package cache

import (
	"context"
	"encoding/json"
	"errors"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis 基于 Redis 的 TTL 缓存，值以 JSON 存储
//
// Redis 故障时降级为未命中，只记录日志。
type Redis[V any] struct {
	rdb    goredis.UniversalClient
	prefix string
	opts   Options
	logger *zap.Logger
}

// NewRedis 创建 Redis 缓存，prefix 用于隔离不同用途的键
func NewRedis[V any](rdb goredis.UniversalClient, prefix string, opts Options, logger *zap.Logger) *Redis[V] {
	return &Redis[V]{rdb: rdb, prefix: prefix, opts: opts, logger: logger}
}

// Get 读取并解码
func (r *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	var v V
	raw, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			r.logger.Warn("读取缓存失败", zap.String("key", key), zap.Error(err))
		}
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		r.logger.Warn("缓存值解码失败", zap.String("key", key), zap.Error(err))
		return v, false
	}
	return v, true
}

// Set 编码后写入，带 TTL
func (r *Redis[V]) Set(ctx context.Context, key string, value V) {
	raw, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("缓存值编码失败", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.rdb.Set(ctx, r.prefix+key, raw, r.opts.TTL).Err(); err != nil {
		r.logger.Warn("写入缓存失败", zap.String("key", key), zap.Error(err))
	}
}

// Delete 删除指定键
func (r *Redis[V]) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	if err := r.rdb.Del(ctx, full...).Err(); err != nil {
		r.logger.Warn("删除缓存失败", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Clear 删除该前缀下的全部键
func (r *Redis[V]) Clear(ctx context.Context) {
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			r.rdb.Del(ctx, batch...)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		r.rdb.Del(ctx, batch...)
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("清空缓存失败", zap.String("prefix", r.prefix), zap.Error(err))
	}
}
