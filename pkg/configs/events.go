package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled    bool                   `mapstructure:"enabled"` // 总开关
	Audit      bool                   `mapstructure:"audit"`   // 启动进程内审计消费者
	Attachment AttachmentEventsConfig `mapstructure:"attachment"`
}

// AttachmentEventsConfig 附件领域的事件开关。
type AttachmentEventsConfig struct {
	Stored  bool `mapstructure:"stored"`
	Removed bool `mapstructure:"removed"`
	Purged  bool `mapstructure:"purged"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.audit", true)

	v.SetDefault("events.attachment.stored", true)
	v.SetDefault("events.attachment.removed", true)
	v.SetDefault("events.attachment.purged", true)
}
