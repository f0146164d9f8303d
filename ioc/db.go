package ioc

import (
	"fmt"

	"github.com/KNICEX/market-scanner/internal/repo"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitAlertRepo 按配置选择告警账本后端: sqlite(嵌入式) / postgres(网络) / redis
func InitAlertRepo() repo.AlertRepo {
	type Config struct {
		Backend string `mapstructure:"backend"`
		Path    string `mapstructure:"path"` // sqlite
		DSN     string `mapstructure:"dsn"`  // postgres
		Addr    string `mapstructure:"addr"` // redis
		DB      int    `mapstructure:"db"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("storage", &cfg); err != nil {
		panic(err)
	}

	switch cfg.Backend {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = "alerts.db"
		}
		db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err != nil {
			panic(fmt.Errorf("open sqlite %s: %w", path, err))
		}
		if err := repo.InitTables(db); err != nil {
			panic(err)
		}
		return repo.NewAlertRepo(db)
	case "postgres":
		if cfg.DSN == "" {
			panic("storage.dsn is required for the postgres backend")
		}
		db, err := sqlx.Connect("postgres", cfg.DSN)
		if err != nil {
			panic(fmt.Errorf("connect postgres: %w", err))
		}
		alertRepo, err := repo.NewPostgresAlertRepo(db)
		if err != nil {
			panic(err)
		}
		return alertRepo
	case "redis":
		if cfg.Addr == "" {
			panic("storage.addr is required for the redis backend")
		}
		cli := redis.NewClient(&redis.Options{
			Addr: cfg.Addr,
			DB:   cfg.DB,
		})
		return repo.NewRedisAlertRepo(cli)
	default:
		panic(fmt.Sprintf("unknown storage backend: %s", cfg.Backend))
	}
}
