package configs

import (
	"time"

	"github.com/spf13/viper"
)

// KVConfig 键值存储配置，用于账本列表缓存.
type KVConfig struct {
	Type  string        `mapstructure:"type"  rule:"oneof=memory redis nats"`
	Redis RedisKVConfig `mapstructure:"redis"`
	NATS  NATSKVConfig  `mapstructure:"nats"`
}

// RedisKVConfig Redis KV 配置，所有键加上 key_prefix 以便与其他应用共用实例.
type RedisKVConfig struct {
	Addr      string `mapstructure:"addr"       rule:"hostname_port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"         rule:"min=0,max=15"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// NATSKVConfig JetStream KV 配置，max_age 为 bucket 内条目的最长保留时间.
type NATSKVConfig struct {
	URL      string        `mapstructure:"url"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Bucket   string        `mapstructure:"bucket"   rule:"required"`
	MaxAge   time.Duration `mapstructure:"max_age"`
	Replicas int           `mapstructure:"replicas" rule:"min=0,max=5"`
}

// setDefaults 设置 KV 配置的默认值.
func (c *KVConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("kv.type", "memory")

	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.password", "")
	v.SetDefault("kv.redis.db", 0)
	v.SetDefault("kv.redis.key_prefix", "casevault:")

	v.SetDefault("kv.nats.url", "nats://localhost:4222")
	v.SetDefault("kv.nats.bucket", "casevault-ledgers")
	v.SetDefault("kv.nats.max_age", "1h")
	v.SetDefault("kv.nats.replicas", 1)
}
