package configs

import "github.com/spf13/viper"

// AuthConfig 身份与角色配置.
//
// 身份取自 oauth2-proxy 注入的 X-Auth-Request-Email 或 X-Forwarded-Email，
// 角色取自 role_header，缺省时使用 default_role.
type AuthConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	SkipPaths     []string `mapstructure:"skip_paths"`
	DevAllowQuery bool     `mapstructure:"dev_allow_query"`
	RoleHeader    string   `mapstructure:"role_header"     rule:"required"`
	DefaultRole   string   `mapstructure:"default_role"    rule:"omitempty,oneof=focal_person director system_admin"`
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.dev_allow_query", false)
	v.SetDefault("auth.role_header", "X-Role")
	v.SetDefault("auth.default_role", "")
	// 探活、监控与文档不要求身份.
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/debug/pprof",
		"/api/v1/health",
		"/swagger",
	})
}
