package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/clock"
	"github.com/smallbiznis/parcella/internal/config"
	"github.com/smallbiznis/parcella/internal/migration"
	"github.com/smallbiznis/parcella/internal/observability"
	"github.com/smallbiznis/parcella/internal/scheduler"
	"github.com/smallbiznis/parcella/internal/server"
	"github.com/smallbiznis/parcella/pkg/db"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newIDNode, clock.System),
		db.Module,

		// migrations and the seed run before the server starts listening
		migration.Module,
		server.Module,
		scheduler.Module,
	).Run()
}

func newIDNode(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
