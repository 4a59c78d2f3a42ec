package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultTracingBatchSize = 512
	DefaultTracingQueueSize = 2048
)

// TracingConfig OpenTelemetry 追踪.
type TracingConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	ServiceName    string            `mapstructure:"service_name"`
	ServiceVersion string            `mapstructure:"service_version"`
	ExporterType   string            `mapstructure:"exporter_type"   rule:"omitempty,oneof=otlp-http otlp-grpc zipkin"`
	Endpoint       string            `mapstructure:"endpoint"        rule:"required_if=Enabled true"`
	SampleRate     float64           `mapstructure:"sample_rate"     rule:"gte=0,lte=1"`
	BatchTimeout   time.Duration     `mapstructure:"batch_timeout"`
	MaxBatchSize   int               `mapstructure:"max_batch_size"`
	MaxQueueSize   int               `mapstructure:"max_queue_size"`
	ResourceLabels map[string]string `mapstructure:"resource_labels"` // 附加到 resource 的属性，如 deployment.environment
}

func (c *TracingConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "casevault")
	v.SetDefault("tracing.service_version", AppVersion)
	v.SetDefault("tracing.exporter_type", "otlp-http")
	v.SetDefault("tracing.endpoint", "http://localhost:4318")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.batch_timeout", "5s")
	v.SetDefault("tracing.max_batch_size", DefaultTracingBatchSize)
	v.SetDefault("tracing.max_queue_size", DefaultTracingQueueSize)
	v.SetDefault("tracing.resource_labels", map[string]string{
		"deployment.environment": "production",
	})
}
