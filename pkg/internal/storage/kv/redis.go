//go:build !no_redis

package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yeisme/casevault/pkg/configs"
)

// scanBatch 每次 SCAN 的建议数量.
const scanBatch = 256

// RedisKV 基于 Redis 的实现，键统一加 prefix.
type RedisKV struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisKV 连接 Redis 并 PING 验证.
func NewRedisKV(ctx context.Context, cfg *configs.RedisKVConfig) (*RedisKV, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "casevault",
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("kv: ping redis %s: %w", cfg.Addr, err)
	}

	return &RedisKV{rdb: rdb, prefix: cfg.KeyPrefix}, nil
}

func (r *RedisKV) key(k string) string { return r.prefix + k }

// Get 获取键的值.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("kv: get %s: %w", key, err)
	}

	return b, nil
}

// Set 写入键值，ttl<=0 表示不过期.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	if err := r.rdb.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}

	return nil
}

// Delete 删除键.
func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}

	return nil
}

// Exists 检查键是否存在.
func (r *RedisKV) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("kv: exists %s: %w", key, err)
	}

	return n > 0, nil
}

// Keys 通过 SCAN 列出匹配模式的键，返回值不含 prefix.
func (r *RedisKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	var out []string

	iter := r.rdb.Scan(ctx, 0, r.key(pattern), scanBatch).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), r.prefix))
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("kv: scan %s: %w", pattern, err)
	}

	return out, nil
}

// Close 关闭连接.
func (r *RedisKV) Close() error {
	return r.rdb.Close()
}

func init() {
	register(KVTypeRedis, func(ctx context.Context, cfg *configs.KVConfig) (Store, error) {
		return NewRedisKV(ctx, &cfg.Redis)
	})
}
