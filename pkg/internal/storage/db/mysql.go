//go:build !no_mysql

package db

import (
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/yeisme/casevault/pkg/configs"
)

// mysqlDialector 台账 JSON 列在 MySQL 上为 longtext，统一 utf8mb4 以容纳任意文件名.
func mysqlDialector(cfg *configs.DBConfig) gorm.Dialector {
	dsn := cfg.DSN
	if dsn == "" {
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Database
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": "utf8mb4"}
		dsn = mc.FormatDSN()
	}

	return gormmysql.New(gormmysql.Config{
		DSN:               dsn,
		DefaultStringSize: 255,
	})
}

func init() {
	registerDriver(mysqlDialector, configs.MySQL, configs.MariaDB)
}
