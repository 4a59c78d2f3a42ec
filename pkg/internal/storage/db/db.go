// Package db 通过 GORM 访问台账数据库，支持 PostgreSQL、MySQL/MariaDB 与 SQLite.
//
// 各驱动位于独立文件，可用 no_postgres、no_mysql、no_sqlite build tag 裁剪.
package db

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormPrometheus "gorm.io/plugin/prometheus"

	"github.com/yeisme/casevault/pkg/configs"
	nlog "github.com/yeisme/casevault/pkg/log"
)

// dialectFunc 按配置构造 dialector，驱动文件通过 build tag 决定是否编译.
type dialectFunc func(cfg *configs.DBConfig) gorm.Dialector

var drivers = map[configs.DBType]dialectFunc{}

func registerDriver(fn dialectFunc, types ...configs.DBType) {
	for _, t := range types {
		drivers[t] = fn
	}
}

// GetRegisteredDBTypes 返回编译进来的数据库类型.
func GetRegisteredDBTypes() []configs.DBType {
	types := slices.Collect(maps.Keys(drivers))
	slices.Sort(types)

	return types
}

// sqliteDSN 拼接 SQLite 连接串，":memory:" 使用共享缓存的内存库.
func sqliteDSN(cfg *configs.DBConfig, params ...string) string {
	if cfg.Database == ":memory:" {
		return "file::memory:?" + strings.Join(append([]string{"cache=shared"}, params...), "&")
	}

	return "file:" + cfg.Database + ".db?" + strings.Join(params, "&")
}

// Client 包装 GORM DB 客户端.
type Client struct {
	*gorm.DB
}

// New 按配置建立数据库连接并校验连通性.
func New(ctx context.Context, cfg *configs.DBConfig) (*Client, error) {
	dialect, ok := drivers[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported database type %q (registered: %v)", cfg.Type, GetRegisteredDBTypes())
	}

	client, err := Open(ctx, dialect(cfg), cfg.MaxOpenConns, cfg.MaxIdleConns)
	if err != nil {
		return nil, err
	}

	if configs.GetConfig().Metrics.Enabled {
		if err := client.RegisterGORMMetrics(cfg.Database); err != nil {
			return nil, fmt.Errorf("failed to register GORM metrics: %w", err)
		}
	}

	l := nlog.Component("db")
	l.Info().
		Str("type", cfg.GetDBType()).
		Str("database", cfg.Database).
		Msg("ledger database connected")

	return client, nil
}

// Open 使用给定 dialector 打开连接，测试中可直接传入内存 SQLite.
func Open(ctx context.Context, dialector gorm.Dialector, maxOpen, maxIdle int) (*Client, error) {
	level := logger.Warn
	if configs.GetConfig().Server.Debug {
		level = logger.Info
	}

	gormLogger := logger.New(
		nlog.Logger(),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 获取底层 SQL DB 以配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{DB: db}, nil
}

// GetDB 返回 GORM DB 实例.
func (c *Client) GetDB() *gorm.DB {
	return c.DB
}

// Migrate 自动迁移给定模型.
func (c *Client) Migrate(ctx context.Context, models ...any) error {
	if err := c.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

// HealthCheck 通过 ping 检查连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接池.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

const defaultGORMMetricsRefreshInterval = 15 // 秒

// RegisterGORMMetrics 注册GORM指标到现有注册表.
func (c *Client) RegisterGORMMetrics(dbName string) error {
	promConfig := gormPrometheus.Config{
		DBName:          dbName,
		RefreshInterval: defaultGORMMetricsRefreshInterval,
		StartServer:     false, // 不启动独立的服务器
	}

	if err := c.Use(gormPrometheus.New(promConfig)); err != nil {
		return fmt.Errorf("failed to register GORM prometheus plugin: %w", err)
	}

	return nil
}
