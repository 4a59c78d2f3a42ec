//go:build !no_nats

package kv

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yeisme/casevault/pkg/configs"
)

// NATSKV 基于 JetStream KV bucket 的实现.
// bucket 的 max_age 是所有条目的上限，更短的 TTL 通过值头部记录并在读取时惰性删除.
type NATSKV struct {
	conn *nats.Conn
	kv   nats.KeyValue
	now  func() time.Time
}

// NewNATSKV 连接 NATS 并创建或打开 bucket.
func NewNATSKV(cfg *configs.NATSKVConfig) (*NATSKV, error) {
	opts := []nats.Option{nats.Name("casevault-kv")}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("kv: connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("kv: jetstream: %w", err)
	}

	bucket, err := js.KeyValue(cfg.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		bucket, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      cfg.Bucket,
			Description: "casevault attachment ledger cache",
			TTL:         cfg.MaxAge,
			Replicas:    max(1, cfg.Replicas),
			History:     1,
		})
	}

	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("kv: open bucket %s: %w", cfg.Bucket, err)
	}

	return &NATSKV{conn: nc, kv: bucket, now: time.Now}, nil
}

// live 读取条目并处理过期，不存在或已过期时 ok 为 false.
func (n *NATSKV) live(key string) (value []byte, ok bool, err error) {
	entry, err := n.kv.Get(key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("kv: get %s: %w", key, err)
	}

	value, expired := stripExpiry(entry.Value(), n.now())
	if expired {
		_ = n.kv.Delete(key)
		return nil, false, nil
	}

	return value, true, nil
}

// Get 获取键的值.
func (n *NATSKV) Get(_ context.Context, key string) ([]byte, error) {
	value, ok, err := n.live(key)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return value, nil
}

// Set 写入键值，ttl<=0 时只受 bucket max_age 约束.
func (n *NATSKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if _, err := n.kv.Put(key, withExpiry(value, ttl, n.now())); err != nil {
		return fmt.Errorf("kv: put %s: %w", key, err)
	}

	return nil
}

// Delete 删除键，不存在时不报错.
func (n *NATSKV) Delete(_ context.Context, key string) error {
	if err := n.kv.Delete(key); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}

	return nil
}

// Exists 检查键是否存在且未过期.
func (n *NATSKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok, err := n.live(key)
	return ok, err
}

// Keys 列出匹配 glob 模式的键，已过期的键会被顺带删除.
func (n *NATSKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	lister, err := n.kv.ListKeys(nats.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("kv: list keys: %w", err)
	}

	defer func() { _ = lister.Stop() }()

	var out []string

	for key := range lister.Keys() {
		if pattern != "" {
			if ok, _ := path.Match(pattern, key); !ok {
				continue
			}
		}

		if _, ok, err := n.live(key); err != nil || !ok {
			continue
		}

		out = append(out, key)
	}

	return out, nil
}

// Close 关闭连接.
func (n *NATSKV) Close() error {
	n.conn.Close()
	return nil
}

func init() {
	register(KVTypeNATS, func(_ context.Context, cfg *configs.KVConfig) (Store, error) {
		return NewNATSKV(&cfg.NATS)
	})
}
