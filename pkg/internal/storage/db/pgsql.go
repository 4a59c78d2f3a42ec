//go:build !no_postgres

package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yeisme/casevault/pkg/configs"
)

func postgresDialector(cfg *configs.DBConfig) gorm.Dialector {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)
	}

	return postgres.New(postgres.Config{DSN: dsn})
}

func init() {
	registerDriver(postgresDialector, configs.PostgreSQL, configs.Postgres, configs.Pg)
}
