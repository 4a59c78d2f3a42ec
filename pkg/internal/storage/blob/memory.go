package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yeisme/casevault/pkg/configs"
)

func init() {
	RegisterFactory(configs.BlobTypeMemory, func(context.Context, *configs.BlobConfig) (Store, error) {
		return NewMemory(), nil
	})
}

type memObject struct {
	data        []byte
	contentType string
	modTime     time.Time
}

// MemoryStore 进程内对象存储.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	now     func() time.Time
	// failPut 非空时 Put 对匹配的键返回该错误，用于模拟写失败.
	failPut func(key string) error
}

// MemoryOption 配置 MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock 替换时间来源.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// WithPutFailure 让 Put 对 fn 返回非 nil 的键失败.
func WithPutFailure(fn func(key string) error) MemoryOption {
	return func(m *MemoryStore) { m.failPut = fn }
}

// NewMemory 创建内存存储.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{objects: map[string]memObject{}, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if m.failPut != nil {
		if err := m.failPut(key); err != nil {
			return err
		}
	}

	data, err := io.ReadAll(readerWithContext(ctx, r))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	m.mu.Lock()
	m.objects[key] = memObject{data: data, contentType: contentType, modTime: m.now()}
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}

	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()

	return ok, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, Object, error) {
	if err := ValidateKey(key); err != nil {
		return nil, Object{}, err
	}

	m.mu.RLock()
	o, ok := m.objects[key]
	m.mu.RUnlock()

	if !ok {
		return nil, Object{}, ErrNotFound
	}

	info := Object{Key: key, Size: int64(len(o.data)), ContentType: o.contentType, ModTime: o.modTime}

	return io.NopCloser(bytes.NewReader(o.data)), info, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return 0, err
	}

	if prefix == "" {
		return 0, fmt.Errorf("%w: refusing to delete the whole store", ErrInvalidKey)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0

	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
			n++
		}
	}

	return n, nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Object{}

	for k, o := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Object{Key: k, Size: int64(len(o.data)), ContentType: o.contentType, ModTime: o.modTime})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out, nil
}

// Len 返回对象总数.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.objects)
}

func (m *MemoryStore) HealthCheck(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
