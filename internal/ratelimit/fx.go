package ratelimit

import (
	backupdomain "github.com/smallbiznis/flyroom/internal/backup/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(
		NewImportGuard,
		func(g *ImportGuard) backupdomain.ImportGuard { return g },
	),
	fx.Provide(NewTenantLimiter),
)
