package backup

import (
	"github.com/smallbiznis/flyroom/internal/backup/repository"
	"github.com/smallbiznis/flyroom/internal/backup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("backup.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(service.NewDomainService),
)
