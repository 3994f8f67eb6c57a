package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"datamarket-settlement/pkg/config"
	"datamarket-settlement/pkg/db"
	"datamarket-settlement/pkg/logger"
	"datamarket-settlement/pkg/redis"
	"datamarket-settlement/pkg/task"
	"datamarket-settlement/services/ledger"
	"datamarket-settlement/services/payout"
	"datamarket-settlement/services/settlement"
	"datamarket-settlement/services/trust"
)

// The task binary runs the asynq worker plus the interval scheduler that
// feeds it. Settlement runs here, never in the API process.
func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		fx.Provide(provideSnowflakeNode),
		ledger.Module,
		trust.Module,
		payout.Module,
		settlement.Module,
		settlement.Worker,
		settlement.SchedulerModule,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
