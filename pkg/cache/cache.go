// Package cache 在 KV 存储之上缓存可重建的读模型，目前用于附件账本列表.
//
// 缓存内容总能从数据库重建：读取失败与解码失败都视为未命中，
// 只有回源函数的错误会返回给调用方. 写入路径负责在提交后调用 Delete 失效.
//
// 每个值带有写入时的代数. Delete 先推进 key 所在分片的代数再删除，
// 失效之前开始的回源即使晚于 Delete 写回，写入的值也因代数过期而不会被读到.
// 代数保存在 Cache 实例中，同一进程应共享一个实例.
package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/casevault/pkg/internal/storage/kv"
)

const shards = 256

var (
	// ErrCorrupt 缓存值无法解码.
	ErrCorrupt = errors.New("cache: corrupt value")
	// ErrStale 缓存值写入后 key 已被失效.
	ErrStale = errors.New("cache: stale value")
)

// envelope 缓存值的存储格式.
type envelope[T any] struct {
	Gen   uint64 `json:"g"`
	Value T      `json:"v"`
}

// Cache 以 sonic 编码存取 KV 中的值.
type Cache struct {
	store  kv.Store
	flight singleflight.Group
	gens   [shards]atomic.Uint64
}

// NewCache 包装 store. 各分片代数以随机值起步，上一进程留下的值不会被误认为当前代.
func NewCache(store kv.Store) *Cache {
	c := &Cache{store: store}
	for i := range c.gens {
		c.gens[i].Store(rand.Uint64())
	}

	return c
}

func (c *Cache) shard(key string) *atomic.Uint64 {
	return &c.gens[xxhash.Sum64String(key)%shards]
}

// Get 读取并解码 key. 不存在时返回 kv.ErrKeyNotFound，已失效的值返回 ErrStale.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var env envelope[T]

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		return env.Value, err
	}

	if err := sonic.Unmarshal(raw, &env); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}

	if env.Gen != c.shard(key).Load() {
		var zero T
		return zero, ErrStale
	}

	return env.Value, nil
}

// Set 以当前代写入，ttl 为 0 表示不过期.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	return put(ctx, c, key, c.shard(key).Load(), value, ttl)
}

func put[T any](ctx context.Context, c *Cache, key string, gen uint64, value T, ttl time.Duration) error {
	raw, err := sonic.Marshal(envelope[T]{Gen: gen, Value: value})
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}

	return c.store.Set(ctx, key, raw, ttl)
}

// GetOrSet 命中直接返回，否则调用 load 并以回源前的代写回.
// 同一 key 同一代的并发未命中只回源一次；load 出错时不写缓存，写回失败被忽略.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error), ttl time.Duration) (T, error) {
	if hit, err := Get[T](ctx, c, key); err == nil {
		return hit, nil
	}

	gen := c.shard(key).Load()

	v, err, _ := c.flight.Do(key+"@"+strconv.FormatUint(gen, 36), func() (any, error) {
		fresh, err := load(ctx)
		if err != nil {
			return nil, err
		}

		_ = put(ctx, c, key, gen, fresh, ttl)

		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// Delete 使 key 失效.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.shard(key).Add(1)

	return c.store.Delete(ctx, key)
}

// Exists 报告 key 是否仍在存储中，不检查代数.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.store.Exists(ctx, key)
}

// Clear 使全部分片失效并删除匹配 pattern 的 key，返回删除数量. 空 pattern 等同 "*".
func (c *Cache) Clear(ctx context.Context, pattern string) (int, error) {
	if pattern == "" {
		pattern = "*"
	}

	keys, err := c.store.Keys(ctx, pattern)
	if err != nil {
		return 0, err
	}

	for i := range c.gens {
		c.gens[i].Add(1)
	}

	for i, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil {
			return i, fmt.Errorf("cache: clear %s: %w", key, err)
		}
	}

	return len(keys), nil
}
