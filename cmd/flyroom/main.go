package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyroom/internal/archive"
	"github.com/smallbiznis/flyroom/internal/backup"
	"github.com/smallbiznis/flyroom/internal/blob"
	"github.com/smallbiznis/flyroom/internal/clock"
	"github.com/smallbiznis/flyroom/internal/config"
	"github.com/smallbiznis/flyroom/internal/migration"
	"github.com/smallbiznis/flyroom/internal/observability"
	"github.com/smallbiznis/flyroom/internal/ratelimit"
	"github.com/smallbiznis/flyroom/internal/scheduler"
	"github.com/smallbiznis/flyroom/internal/server"
	"github.com/smallbiznis/flyroom/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		blob.Module,
		ratelimit.Module,
		migration.Module,

		// Functional Domains
		backup.Module,
		archive.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.Backup.NodeID)
}
