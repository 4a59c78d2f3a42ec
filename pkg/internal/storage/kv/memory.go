package kv

import (
	"context"
	"fmt"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/yeisme/casevault/pkg/configs"
)

// sweepEvery 每写入这么多次顺带清理一次过期条目.
const sweepEvery = 1024

type memoryItem struct {
	value    []byte
	expireAt time.Time
}

func (i memoryItem) live(now time.Time) bool {
	return i.expireAt.IsZero() || now.Before(i.expireAt)
}

// MemoryKV 进程内实现，单实例部署与测试使用.
// 过期条目在读取时跳过，并在写入时周期性清理.
type MemoryKV struct {
	mu     sync.RWMutex
	items  map[string]memoryItem
	writes int
	now    func() time.Time
}

// NewMemoryKV 创建空的内存存储.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryKV) lookup(key string) (memoryItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[key]

	return item, ok && item.live(m.now())
}

// Get 返回值的副本.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	item, ok := m.lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return slices.Clone(item.value), nil
}

// Set 保存值的副本.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := m.now()

	item := memoryItem{value: slices.Clone(value)}
	if ttl > 0 {
		item.expireAt = now.Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = item

	if m.writes++; m.writes%sweepEvery == 0 {
		for k, it := range m.items {
			if !it.live(now) {
				delete(m.items, k)
			}
		}
	}

	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()

	return nil
}

func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.lookup(key)
	return ok, nil
}

// Keys 按字典序返回未过期且匹配的键.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("kv: invalid pattern %q: %w", pattern, err)
	}

	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items))

	for k, item := range m.items {
		if !item.live(now) {
			continue
		}

		if ok, _ := path.Match(pattern, k); pattern == "" || ok {
			keys = append(keys, k)
		}
	}

	slices.Sort(keys)

	return keys, nil
}

// Len 当前条目数，包含尚未清理的过期条目.
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	register(KVTypeMemory, func(context.Context, *configs.KVConfig) (Store, error) {
		return NewMemoryKV(), nil
	})
}
