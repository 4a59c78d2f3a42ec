package configs

import (
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig HTTP 服务配置.
//
// 超时均以秒计，read_timeout 为 0 时不限制整个请求体的读取时间，大文件上传依赖它.
type ServerConfig struct {
	Host              string `mapstructure:"host"                rule:"ip"`
	Port              int    `mapstructure:"port"                rule:"min=1,max=65535"`
	BasePath          string `mapstructure:"base_path"           rule:"startswith=/"`
	Debug             bool   `mapstructure:"debug"`
	ReloadConfig      bool   `mapstructure:"reload_config"`
	ReadHeaderTimeout int    `mapstructure:"read_header_timeout" rule:"min=1,max=120"`
	ReadTimeout       int    `mapstructure:"read_timeout"        rule:"min=0,max=3600"`
	Timeout           int    `mapstructure:"timeout"             rule:"min=1,max=300"`
}

// Addr 监听地址.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// GetTimeoutDuration 优雅退出的等待时长.
func (s *ServerConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// ReadHeaderTimeoutDuration 读取请求头的超时.
func (s *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return time.Duration(s.ReadHeaderTimeout) * time.Second
}

// ReadTimeoutDuration 读取整个请求的超时，0 表示不限制.
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_path", "/api/v1")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.reload_config", false)
	v.SetDefault("server.read_header_timeout", 10)
	v.SetDefault("server.read_timeout", 0)
	v.SetDefault("server.timeout", 30)
}
