// Package kv 是附件台账缓存使用的键值存储.
//
// 后端有进程内 memory、Redis 与 NATS JetStream KV，可用 no_redis、no_nats build tag 裁剪.
// 键为点分路径（例如 ledger.cases.42），Keys 的 pattern 使用 path.Match 语法.
package kv

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/yeisme/casevault/pkg/configs"
)

// ErrKeyNotFound 键不存在或已过期.
var ErrKeyNotFound = errors.New("key not found")

// Store 键值存储.
type Store interface {
	// Get 读取值，不存在或已过期时返回 ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 写入值，ttl 为 0 表示不过期.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Keys 返回匹配 pattern 的键，空 pattern 返回全部.
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// KVType 后端类型，取值与 kv.type 一致.
type KVType string

const (
	KVTypeMemory KVType = "memory"
	KVTypeRedis  KVType = "redis"
	KVTypeNATS   KVType = "nats"
)

// opener 从完整的 kv 配置中取出自己的部分并建立连接.
type opener func(ctx context.Context, cfg *configs.KVConfig) (Store, error)

var openers = map[KVType]opener{}

func register(t KVType, open opener) {
	openers[t] = open
}

// GetRegisteredKVTypes 返回编译进来的后端.
func GetRegisteredKVTypes() []KVType {
	types := slices.Collect(maps.Keys(openers))
	slices.Sort(types)

	return types
}

// Client 带类型信息的 Store.
type Client struct {
	Store

	kvType KVType
}

// NewKVClient 按 kv.type 打开后端.
func NewKVClient(ctx context.Context, cfg *configs.KVConfig) (*Client, error) {
	t := KVType(cfg.Type)

	open, ok := openers[t]
	if !ok {
		return nil, fmt.Errorf("kv: unsupported type %q (registered: %v)", cfg.Type, GetRegisteredKVTypes())
	}

	store, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Client{Store: store, kvType: t}, nil
}

// Type 后端类型.
func (c *Client) Type() KVType {
	return c.kvType
}

// HealthCheck 写入、读回并删除一个探测键.
// 探测键带随机后缀，多实例共用后端时互不干扰.
func (c *Client) HealthCheck(ctx context.Context) error {
	key := "health.probe." + uuid.NewString()
	want := []byte(key)

	if err := c.Set(ctx, key, want, time.Minute); err != nil {
		return fmt.Errorf("kv health: set: %w", err)
	}

	got, err := c.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("kv health: get: %w", err)
	}

	if string(got) != string(want) {
		return errors.New("kv health: read back mismatched value")
	}

	return c.Delete(ctx, key)
}
