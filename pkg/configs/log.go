package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogEnableFile = true
	DefaultLogFilePath   = "logs/casevault.log"
	DefaultLogMaxSize    = 100
	DefaultLogMaxBackups = 7
	DefaultLogMaxAge     = 28
	DefaultLogCompress   = true
)

type (
	// LogConfig 日志配置. 文件输出始终为 JSON，format 只影响 stderr.
	LogConfig struct {
		Level      string `mapstructure:"level"        rule:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
		Format     string `mapstructure:"format"       rule:"omitempty,oneof=console json"`
		EnableFile bool   `mapstructure:"enable_file"`
		FilePath   string `mapstructure:"file_path"    rule:"required_if=EnableFile true"`
		MaxSize    int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age_days"`
		Compress   bool   `mapstructure:"compress"`
	}
)

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.enable_file", DefaultLogEnableFile)
	v.SetDefault("log.file_path", DefaultLogFilePath)
	v.SetDefault("log.max_size_mb", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAge)
	v.SetDefault("log.compress", DefaultLogCompress)
}
