//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/casevault/pkg/configs"
)

// sqliteDialector 纯 Go 驱动，pragma 使用 _pragma=name(value) 语法.
func sqliteDialector(cfg *configs.DBConfig) gorm.Dialector {
	if cfg.DSN != "" {
		return sqlite.Open(cfg.DSN)
	}

	return sqlite.Open(sqliteDSN(cfg, "_pragma=busy_timeout(5000)", "_pragma=journal_mode(WAL)", "_pragma=foreign_keys(1)"))
}

func init() {
	registerDriver(sqliteDialector, configs.SQLite)
}
