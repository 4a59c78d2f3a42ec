//go:build !no_sqlite && cgo

package db

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/casevault/pkg/configs"
)

// sqliteDialector mattn/go-sqlite3 驱动，pragma 使用 _name=value 语法.
func sqliteDialector(cfg *configs.DBConfig) gorm.Dialector {
	if cfg.DSN != "" {
		return sqlite.Open(cfg.DSN)
	}

	return sqlite.Open(sqliteDSN(cfg, "_busy_timeout=5000", "_journal_mode=WAL", "_foreign_keys=on"))
}

func init() {
	registerDriver(sqliteDialector, configs.SQLite)
}
