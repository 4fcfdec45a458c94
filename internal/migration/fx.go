package migration

import (
	"context"

	"github.com/smallbiznis/flyroom/internal/config"
	"github.com/smallbiznis/flyroom/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Migrate(conn, cfg.DBType); err != nil {
			return err
		}

		if cfg.IsCloud() || cfg.DefaultTenantName == "" {
			return nil
		}
		tenant, err := seed.EnsureDefaultTenant(context.Background(), conn, cfg.DefaultTenantName)
		if err != nil {
			return err
		}
		log.Named("migration").Info("default tenant ready",
			zap.String("tenant_id", tenant.ID),
			zap.String("slug", tenant.Slug),
		)
		return nil
	}),
)
