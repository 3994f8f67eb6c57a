package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"datamarket-settlement/internal/httpapi"
	"datamarket-settlement/pkg/config"
	"datamarket-settlement/pkg/db"
	"datamarket-settlement/pkg/health"
	"datamarket-settlement/pkg/logger"
	"datamarket-settlement/pkg/redis"
	"datamarket-settlement/pkg/sequence"
	"datamarket-settlement/pkg/server"
	"datamarket-settlement/services/ledger"
	"datamarket-settlement/services/payout"
	"datamarket-settlement/services/settlement"
	"datamarket-settlement/services/trust"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		health.Module,
		fx.Provide(
			provideTracerProvider,
			provideSnowflakeNode,
		),
		ledger.Module,
		trust.Module,
		payout.Module,
		settlement.Module,
		httpapi.Module,
		server.ProvideHTTPServer,
		fx.Invoke(autoMigrate, registerTelemetry),
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

func provideTracerProvider() trace.TracerProvider {
	return otel.GetTracerProvider()
}

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func autoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&ledger.Reward{},
		&payout.PayoutRequest{},
		&trust.ConsentEvent{},
	)
}

func registerTelemetry(gdb *gorm.DB, cfg *config.Config) error {
	if err := db.Otel(gdb); err != nil {
		return err
	}
	return db.Metric(gdb, cfg.Database.DBName)
}
