package migration

import (
	"github.com/smallbiznis/venuebook/internal/config"
	"github.com/smallbiznis/venuebook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		switch cfg.DBType {
		case db.TypePostgres:
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		case db.TypeSQLite:
			return ApplySQLite(conn)
		default:
			log.Warn("schema migrations are not bundled for this database type; apply them externally",
				zap.String("db_type", cfg.DBType),
			)
			return nil
		}
	}),
)
