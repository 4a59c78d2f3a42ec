// Package configs 管理应用程序配置，包括数据库、Blob 存储、缓存和消息队列的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "github.com/yeisme/casevault/pkg/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing attachment limits:
//
//	config := configs.GetConfig()
//	limit := config.Attachment.MaxFileBytes()
//	fmt.Println("max upload:", limit)
//
// 所有配置项都可以通过 CASEVAULT_ 前缀的环境变量覆盖，例如 CASEVAULT_BLOB_TYPE=s3.
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/casevault/pkg/rule"
)

// EnvPrefix 环境变量前缀.
const EnvPrefix = "CASEVAULT"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器端口、超时等
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 数据库配置
		Blob           BlobConfig           `mapstructure:"blob"`            // BlobConfig 证据文件存储配置
		Attachment     AttachmentConfig     `mapstructure:"attachment"`      // AttachmentConfig 附件上传限制
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 缓存使用的键值存储
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 事件开关
		Jobs           JobsConfig           `mapstructure:"jobs"`            // JobsConfig 定时任务
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Auth           AuthConfig           `mapstructure:"auth"`            // AuthConfig 认证
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 限流
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 熔断
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 找不到配置文件时只使用默认值与环境变量.
func InitConfig(path string) error {
	v, err := Load(path)
	if err != nil {
		return err
	}

	appViper = v

	if err := v.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := globalConfig.Validate(); err != nil {
		return err
	}

	reloadConfigs(v, globalConfig.Server.ReloadConfig)

	return nil
}

// Load 构建并读取一个 viper 实例，不修改全局配置.
func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	setAllDefaults(v)

	if path != "" {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			// 是文件，使用SetConfigFile，Viper会自动检测类型
			v.SetConfigFile(path)
		} else {
			v.SetConfigName("config")
			v.AddConfigPath(path)
			v.AddConfigPath(filepath.Join(path, "configs"))

			for _, ext := range []string{"yaml", "yml", "json", "toml", "env", "dotenv"} {
				cfg := filepath.Join(path, "config."+ext)
				if _, err := os.Stat(cfg); err == nil {
					v.SetConfigFile(cfg)

					break
				}
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v, nil
}

// Validate 使用 rule 标签校验配置.
func (c *AppConfig) Validate() error {
	if err := rule.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := c.Attachment.parseMaxFileSize(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		serverConfig     ServerConfig
		dbConfig         DBConfig
		blobConfig       BlobConfig
		attachmentConfig AttachmentConfig
		kvConfig         KVConfig
		mqConfig         MQConfig
		eventsConfig     EventsConfig
		jobsConfig       JobsConfig
		logConfig        LogConfig
		authConfig       AuthConfig
		metricsConfig    MetricsConfig
		tracingConfig    TracingConfig
		rateLimitConfig  RateLimitConfig
		cbConfig         CircuitBreakerConfig
	)

	serverConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	blobConfig.setDefaults(v)
	attachmentConfig.setDefaults(v)
	kvConfig.setDefaults(v)
	mqConfig.setDefaults(v)
	eventsConfig.setDefaults(v)
	jobsConfig.setDefaults(v)
	logConfig.setDefaults(v)
	authConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	rateLimitConfig.setDefaults(v)
	cbConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload || v.ConfigFileUsed() == "" {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)

		var next AppConfig
		if err := v.Unmarshal(&next); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}

		if err := next.Validate(); err != nil {
			fmt.Printf("Rejected reloaded config: %v\n", err)
			return
		}

		globalConfig = next
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

// GetViper 返回全局 viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	return appViper
}

// SetConfig 替换全局配置，供测试与命令行工具使用.
func SetConfig(c AppConfig) {
	globalConfig = c
}

// Default 返回只包含默认值的配置.
func Default() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var c AppConfig
	_ = v.Unmarshal(&c)

	return c
}
