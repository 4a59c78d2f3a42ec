package configs

import (
	"time"

	"github.com/spf13/viper"
)

// JobsConfig 定时任务配置.
type JobsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	OrphanSweepCron string        `mapstructure:"orphan_sweep_cron" rule:"required"`
	OrphanGrace     time.Duration `mapstructure:"orphan_grace"      rule:"min=0"`
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.orphan_sweep_cron", "17 * * * *")
	// 上传过程中 blob 先于账本写入，宽限期避免误删进行中的上传
	v.SetDefault("jobs.orphan_grace", time.Hour)
}
