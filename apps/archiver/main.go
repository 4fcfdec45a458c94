package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyroom/internal/archive"
	"github.com/smallbiznis/flyroom/internal/backup"
	"github.com/smallbiznis/flyroom/internal/blob"
	"github.com/smallbiznis/flyroom/internal/clock"
	"github.com/smallbiznis/flyroom/internal/config"
	"github.com/smallbiznis/flyroom/internal/observability"
	"github.com/smallbiznis/flyroom/internal/ratelimit"
	"github.com/smallbiznis/flyroom/internal/scheduler"
	"github.com/smallbiznis/flyroom/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		blob.Module,
		ratelimit.Module,

		// Domain services required by scheduler
		backup.Module,
		archive.Module,
		scheduler.Module,

		// No server module!
		fx.Invoke(StartScheduler),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.Backup.NodeID)
}

// StartScheduler runs the loop in cloud mode, where the API process leaves
// scheduling to this binary.
func StartScheduler(lc fx.Lifecycle, cfg config.Config, s *scheduler.Scheduler) {
	if !cfg.IsCloud() {
		return
	}
	scheduler.Start(lc, s)
}
