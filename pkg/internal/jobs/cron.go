// Package jobs 负责注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/casevault/pkg/configs"
	ctxPkg "github.com/yeisme/casevault/pkg/context"
	"github.com/yeisme/casevault/pkg/internal/service"
	"github.com/yeisme/casevault/pkg/internal/storage"
	"github.com/yeisme/casevault/pkg/log"
	"github.com/yeisme/casevault/pkg/scheduler"
)

// RegisterCronJobs 配置业务定时任务：
//   - 按 jobs.orphan_sweep_cron 清理孤儿证据文件（默认每小时第 17 分钟）
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager, cfg configs.JobsConfig) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	if !cfg.Enabled {
		return nil
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	if err := sched.AddCron(baseCtx, JobOrphanSweep, cfg.OrphanSweepCron, func(ctx context.Context) error {
		return runOrphanSweep(ctx, cfg)
	}); err != nil {
		return fmt.Errorf("register %s: %w", JobOrphanSweep, err)
	}

	return nil
}

// runOrphanSweep 执行一次孤儿文件清理.
func runOrphanSweep(ctx context.Context, cfg configs.JobsConfig) error {
	l := log.Logger().With().Str("job", JobOrphanSweep).Logger()

	d := service.DepsFromContext(ctx)
	if d.DB == nil || d.Blob == nil {
		return errors.New("storage not initialized")
	}

	report, err := service.NewSweeper(d, cfg.OrphanGrace).Run(service.WithActor(ctx, "system:"+JobOrphanSweep))
	if err != nil {
		return fmt.Errorf("orphan sweep: %w", err)
	}

	l.Debug().
		Int("scanned", report.Scanned).
		Int("purged_owners", report.PurgedOwners).
		Int("purged_objects", report.PurgedObjects).
		Int("deleted_orphans", report.DeletedOrphans).
		Int("skipped", report.Skipped).
		Msg("orphan sweep done")

	return nil
}
