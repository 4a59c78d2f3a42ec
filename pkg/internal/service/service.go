// Package service 实现证据附件账本与其所属记录的业务逻辑.
//
// 账本以 JSON 数组保存在 cases / incidents 行上，文件字节保存在 blob.Store 中，
// 键为 "<kind>/<id>/<filename>". 上传先写 blob 再提交账本，账本写入使用版本号乐观锁.
package service

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/yeisme/casevault/pkg/cache"
	"github.com/yeisme/casevault/pkg/configs"
	ctxPkg "github.com/yeisme/casevault/pkg/context"
	"github.com/yeisme/casevault/pkg/internal/storage/blob"
	nlog "github.com/yeisme/casevault/pkg/log"
)

// Deps 服务依赖，Cache 与 Publisher 为空时对应功能关闭.
type Deps struct {
	DB         *gorm.DB
	Blob       blob.Store
	Cache      *cache.Cache
	Publisher  message.Publisher
	Attachment configs.AttachmentConfig
	Events     configs.EventsConfig
	Logger     *zerolog.Logger
	Now        func() time.Time
}

// DepsFromContext 从请求上下文中的存储管理器与全局配置组装依赖.
func DepsFromContext(ctx context.Context) Deps {
	cfg := configs.GetConfig()

	d := Deps{
		Blob:       ctxPkg.GetBlobStore(ctx),
		Attachment: cfg.Attachment,
		Events:     cfg.Events,
		Logger:     nlog.Logger(),
	}

	if dbc := ctxPkg.GetDBClient(ctx); dbc != nil {
		d.DB = dbc.GetDB()
	}

	if cfg.Attachment.CacheEnabled {
		d.Cache = ctxPkg.GetLedgerCache(ctx)
	}

	if mqc := ctxPkg.GetMQClient(ctx); mqc != nil && cfg.Events.Enabled {
		d.Publisher = mqc.Publisher()
	}

	return d
}

func (d Deps) logger() *zerolog.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	nop := zerolog.Nop()

	return &nop
}

func (d Deps) clock() func() time.Time {
	if d.Now != nil {
		return d.Now
	}

	return time.Now
}

type actorKey struct{}

// WithActor 在上下文中记录操作者，用于事件与日志.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom 读取操作者，未设置时为空串.
func ActorFrom(ctx context.Context) string {
	s, _ := ctx.Value(actorKey{}).(string)
	return s
}
