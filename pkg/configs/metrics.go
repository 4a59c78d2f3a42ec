package configs

import "github.com/spf13/viper"

// MetricsConfig Prometheus 指标配置.
//
// 指标挂在主引擎的 path 上，labels 作为 casevault_build_info 的常量标签.
type MetricsConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	Path           string            `mapstructure:"path"            rule:"startswith=/"`
	RuntimeMetrics bool              `mapstructure:"runtime_metrics"`
	Pprof          bool              `mapstructure:"pprof"`
	Labels         map[string]string `mapstructure:"labels"`
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
	v.SetDefault("metrics.labels", map[string]string{
		"service": "casevault",
		"version": AppVersion,
	})
}
