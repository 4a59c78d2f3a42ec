package configs

import (
	"fmt"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/viper"
)

const (
	DefaultAttachmentMaxFileSize  = "10MiB" // 单文件上限，10240 KiB
	DefaultAttachmentMaxFiles     = 20      // 单次请求最多文件数
	DefaultAttachmentLockAttempts = 5       // 乐观锁冲突时的最大重放次数
	DefaultAttachmentCacheTTL     = 5 * time.Minute
)

// AttachmentConfig 证据附件上传与账本相关配置.
type AttachmentConfig struct {
	MaxFileSize  string        `mapstructure:"max_file_size"  rule:"required"`
	MaxFiles     int           `mapstructure:"max_files"      rule:"min=1,max=100"`
	LockAttempts int           `mapstructure:"lock_attempts"  rule:"min=1,max=20"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"      rule:"min=0"`
	CacheEnabled bool          `mapstructure:"cache_enabled"`
}

// MaxFileBytes 返回单文件大小上限（字节），解析失败时回退到默认值.
func (c *AttachmentConfig) MaxFileBytes() int64 {
	n, err := c.parseMaxFileSize()
	if err != nil {
		n, _ = units.RAMInBytes(DefaultAttachmentMaxFileSize)
	}

	return n
}

// parseMaxFileSize 按二进制单位解析，"10MiB" 与 "10M" 都等于 10485760.
func (c *AttachmentConfig) parseMaxFileSize() (int64, error) {
	n, err := units.RAMInBytes(c.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("attachment.max_file_size %q: %w", c.MaxFileSize, err)
	}

	if n <= 0 {
		return 0, fmt.Errorf("attachment.max_file_size must be positive")
	}

	return n, nil
}

func (c *AttachmentConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("attachment.max_file_size", DefaultAttachmentMaxFileSize)
	v.SetDefault("attachment.max_files", DefaultAttachmentMaxFiles)
	v.SetDefault("attachment.lock_attempts", DefaultAttachmentLockAttempts)
	v.SetDefault("attachment.cache_ttl", DefaultAttachmentCacheTTL)
	v.SetDefault("attachment.cache_enabled", true)
}
