package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradesmap/internal/clock"
	"github.com/smallbiznis/tradesmap/internal/config"
	"github.com/smallbiznis/tradesmap/internal/migration"
	"github.com/smallbiznis/tradesmap/internal/observability"
	"github.com/smallbiznis/tradesmap/internal/server"
	"github.com/smallbiznis/tradesmap/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		fx.Provide(clock.New),
		db.Module,
		migration.Module,

		// Account lifecycle and HTTP surface
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
