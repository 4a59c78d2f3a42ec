// Package storage 聚合数据库、证据文件存储、KV 缓存与消息队列客户端.
//
// Example:
//
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	dbClient := mgr.GetDBClient()
//	blobs := mgr.GetBlobStore()
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yeisme/casevault/pkg/cache"
	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/internal/storage/blob"
	dbc "github.com/yeisme/casevault/pkg/internal/storage/db"
	kvc "github.com/yeisme/casevault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/casevault/pkg/internal/storage/mq"
	nlog "github.com/yeisme/casevault/pkg/log"
)

// Manager 聚合所有存储资源，KV 与 MQ 可为空（缓存与事件降级为关闭）.
// Cache 随 KV 创建，进程内共享以保证失效对所有请求可见.
type Manager struct {
	DB    *dbc.Client
	Blob  blob.Store
	KV    *kvc.Client
	Cache *cache.Cache
	MQ    *mqc.Client
}

var (
	mgr     *Manager
	mgrErr  error
	mgrOnce sync.Once
)

// Init 使用全局配置初始化默认存储，重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	mgrOnce.Do(func() {
		mgr, mgrErr = NewManager(ctx, configs.GetConfig())
		if mgrErr == nil {
			nlog.Logger().Info().Msg("storage manager initialized")
		}
	})

	return mgr, mgrErr
}

// NewManager 按配置创建各存储客户端并迁移表结构.
func NewManager(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	l := nlog.Logger()
	m := &Manager{}

	dbi, err := dbc.New(ctx, &cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	m.DB = dbi

	if err := dbi.Migrate(ctx, model.All()...); err != nil {
		_ = m.Close()
		return nil, err
	}

	blobs, err := blob.New(ctx, &cfg.Blob)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	m.Blob = blobs

	if cfg.Attachment.CacheEnabled {
		if kvi, err := kvc.NewKVClient(ctx, &cfg.KV); err != nil {
			l.Warn().Err(err).Str("type", cfg.KV.Type).Msg("kv unavailable, ledger cache disabled")
		} else {
			m.KV = kvi
			m.Cache = cache.NewCache(kvi)
		}
	}

	if cfg.Events.Enabled {
		if mqi, err := mqc.New(ctx, &cfg.MQ, cfg.Metrics.Enabled); err != nil {
			l.Warn().Err(err).Str("type", string(cfg.MQ.Type)).Msg("mq unavailable, events disabled")
		} else {
			m.MQ = mqi
		}
	}

	return m, nil
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetBlobStore 获取证据文件存储.
func (m *Manager) GetBlobStore() blob.Store {
	return m.Blob
}

// GetKVClient 获取 KV 客户端，可能为 nil.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端，可能为 nil.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// Close 关闭所有已打开的资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.Blob != nil {
		errs = append(errs, m.Blob.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
