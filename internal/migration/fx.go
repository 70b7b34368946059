package migration

import (
	"github.com/smallbiznis/rondo/internal/config"
	identitydomain "github.com/smallbiznis/rondo/internal/identity/domain"
	roomdomain "github.com/smallbiznis/rondo/internal/room/domain"
	"github.com/smallbiznis/rondo/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql and sqlite installs are for local development, where
			// gorm's schema sync is enough.
			if err := conn.AutoMigrate(
				&identitydomain.User{},
				&roomdomain.Room{},
				&roomdomain.Member{},
				&roomdomain.Turn{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoUsers && !cfg.IsProduction() {
			return seed.EnsureDemoUsers(conn)
		}
		return nil
	}),
)
