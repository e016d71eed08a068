package main

import (
	"os"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/wagedesk/wagedesk/internal/certificate"
	"github.com/wagedesk/wagedesk/internal/clock"
	"github.com/wagedesk/wagedesk/internal/config"
	"github.com/wagedesk/wagedesk/internal/establishment"
	"github.com/wagedesk/wagedesk/internal/ledger"
	"github.com/wagedesk/wagedesk/internal/logger"
	"github.com/wagedesk/wagedesk/internal/migration"
	"github.com/wagedesk/wagedesk/internal/observability"
	"github.com/wagedesk/wagedesk/internal/scheduler"
	"github.com/wagedesk/wagedesk/internal/server"
	"github.com/wagedesk/wagedesk/pkg/db"
)

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(nodeID())
}

func nodeID() int64 {
	raw := os.Getenv("SNOWFLAKE_NODE_ID")
	if raw == "" {
		return 1
	}
	var id int64
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 1
		}
		id = id*10 + int64(c-'0')
	}
	if id < 0 || id > 1023 {
		return 1
	}
	return id
}

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		clock.Module,
		db.Module,
		migration.Module,
		fx.Provide(newSnowflakeNode),

		certificate.Module,
		ledger.Module,
		establishment.Module,
		scheduler.Module,
		server.Module,

		fx.Invoke(func(log *zap.Logger, cfg config.Config) {
			log.Info("wagedesk starting",
				zap.String("version", cfg.AppVersion),
				zap.String("environment", cfg.Environment),
			)
		}),
	)
	app.Run()
}
