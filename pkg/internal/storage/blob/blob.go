// Package blob 提供证据文件的私有字节存储抽象.
//
// 键为相对路径 "<kind>/<ownerID>/<filename>"，各实现保证：
//   - Put 覆盖同名对象
//   - Delete 对不存在的键幂等
//   - DeletePrefix 只删除以 "/" 结尾的前缀下的对象，对空前缀幂等
//
// 可用实现：filesystem（默认，本地私有目录）、s3（MinIO 兼容）、memory（测试）.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/yeisme/casevault/pkg/configs"
)

var (
	// ErrNotFound 对象不存在.
	ErrNotFound = errors.New("blob: key not found")
	// ErrInvalidKey 键为空、为绝对路径或包含路径穿越.
	ErrInvalidKey = errors.New("blob: invalid key")
)

// Object 描述一个已存储对象.
type Object struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	ModTime     time.Time `json:"mod_time"`
}

// Store 证据文件存储接口.
type Store interface {
	// Put 写入对象，size 未知时传 -1.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Exists 判断对象是否存在.
	Exists(ctx context.Context, key string) (bool, error)
	// Get 打开对象读取流，不存在时返回 ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, Object, error)
	// Delete 删除对象，不存在时返回 nil.
	Delete(ctx context.Context, key string) error
	// DeletePrefix 递归删除前缀下所有对象，返回删除数量.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// List 递归列出前缀下的对象，按键排序.
	List(ctx context.Context, prefix string) ([]Object, error)
	// HealthCheck 检查存储可用.
	HealthCheck(ctx context.Context) error
	// Close 释放资源.
	Close() error
}

// Factory 根据配置创建 Store.
type Factory func(ctx context.Context, cfg *configs.BlobConfig) (Store, error)

var factories = map[configs.BlobType]Factory{}

// RegisterFactory 注册存储工厂.
func RegisterFactory(t configs.BlobType, f Factory) {
	factories[t] = f
}

// GetRegisteredBlobTypes 返回已注册的存储类型.
func GetRegisteredBlobTypes() []configs.BlobType {
	types := make([]configs.BlobType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// New 按配置创建 Store.
func New(ctx context.Context, cfg *configs.BlobConfig) (Store, error) {
	f, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported blob type: %s", cfg.Type)
	}

	return f(ctx, cfg)
}

// Key 拼接 "<kind>/<ownerID>/<filename>".
func Key(kind, ownerID, filename string) string {
	return OwnerPrefix(kind, ownerID) + filename
}

// OwnerPrefix 返回某个记录的对象前缀，总以 "/" 结尾.
func OwnerPrefix(kind, ownerID string) string {
	return kind + "/" + ownerID + "/"
}

// ValidateKey 校验对象键.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return ErrInvalidKey
	}

	return validateSegments(key)
}

// ValidatePrefix 校验前缀，空串表示全部对象.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}

	if strings.HasPrefix(prefix, "/") || !strings.HasSuffix(prefix, "/") {
		return ErrInvalidKey
	}

	return validateSegments(strings.TrimSuffix(prefix, "/"))
}

func validateSegments(p string) error {
	if strings.ContainsAny(p, "\\\x00") {
		return ErrInvalidKey
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidKey
		}
	}

	return nil
}
