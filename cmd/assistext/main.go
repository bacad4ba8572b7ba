package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/lemur767/assistext-backend-sub001/internal/clock"
	"github.com/lemur767/assistext-backend-sub001/internal/config"
	"github.com/lemur767/assistext-backend-sub001/internal/locks"
	"github.com/lemur767/assistext-backend-sub001/internal/logger"
	"github.com/lemur767/assistext-backend-sub001/internal/migration"
	"github.com/lemur767/assistext-backend-sub001/internal/scheduler"
	"github.com/lemur767/assistext-backend-sub001/internal/server"
	"github.com/lemur767/assistext-backend-sub001/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		locks.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
