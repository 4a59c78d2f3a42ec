// Package context 在 context.Context 上携带请求期间共享的依赖.
//
// HTTP 中间件、CLI 与定时任务通过 With* 注入存储与调度器，service 与 handle 通过 Get* 读取.
// 依赖缺失时 Get* 返回 nil，调用方据此决定降级或报错.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/casevault/pkg/cache"
	"github.com/yeisme/casevault/pkg/internal/storage"
	"github.com/yeisme/casevault/pkg/internal/storage/blob"
	dbc "github.com/yeisme/casevault/pkg/internal/storage/db"
	kvc "github.com/yeisme/casevault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/casevault/pkg/internal/storage/mq"
	"github.com/yeisme/casevault/pkg/scheduler"
)

type (
	managerKey   struct{}
	schedulerKey struct{}
)

// WithStorageManager 注入存储管理器.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, mgr)
}

// WithScheduler 注入调度器.
func WithScheduler(ctx context.Context, sched *scheduler.Scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, sched)
}

// GetManager 返回存储管理器.
func GetManager(ctx context.Context) *storage.Manager {
	mgr, _ := ctx.Value(managerKey{}).(*storage.Manager)
	return mgr
}

// GetScheduler 返回调度器.
func GetScheduler(ctx context.Context) *scheduler.Scheduler {
	sched, _ := ctx.Value(schedulerKey{}).(*scheduler.Scheduler)
	return sched
}

// GetBlobStore 返回证据文件存储.
func GetBlobStore(ctx context.Context) blob.Store {
	if mgr := GetManager(ctx); mgr != nil && mgr.Blob != nil {
		return mgr.Blob
	}

	return nil
}

// GetDBClient 返回台账数据库客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.DB
	}

	return nil
}

// GetMQClient 返回事件总线客户端，未启用时为 nil.
func GetMQClient(ctx context.Context) *mqc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.MQ
	}

	return nil
}

// GetKVClient 返回台账缓存客户端，未启用时为 nil.
func GetKVClient(ctx context.Context) *kvc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.KV
	}

	return nil
}

// GetLedgerCache 返回进程共享的台账缓存，未启用时为 nil.
func GetLedgerCache(ctx context.Context) *cache.Cache {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.Cache
	}

	return nil
}

// WithTraceContext 为 logger 附加当前 span 的 trace_id 与 span_id.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}

	return logger.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
}
