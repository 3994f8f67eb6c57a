package logger

import (
	"context"

	"datamarket-settlement/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("zap",
	fx.Provide(
		New,
	),
)

// New builds the process logger and installs it as the zap global. In
// production the encoder emits JSON with the field names our log pipeline
// indexes on; everywhere else the development console encoder is enough.
func New(lc fx.Lifecycle, cfg *config.Config) *zap.Logger {
	log := zap.Must(zap.NewDevelopment())

	if cfg.AppEnv == "production" {
		zc := zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.EncoderConfig.StacktraceKey = "stacktrace"
		zc.EncoderConfig.LevelKey = "severity"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		zc.EncoderConfig.CallerKey = "caller"
		zc.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		zc.Encoding = "json"
		zc.OutputPaths = []string{"stdout"}
		zc.ErrorOutputPaths = []string{"stderr"}

		var err error
		log, err = zc.Build()
		if err != nil {
			panic(err)
		}
	}

	log = log.With(
		zap.String("env", cfg.AppEnv),
		zap.String("service_name", cfg.AppName),
	)

	zap.ReplaceGlobals(log)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// Sync can fail on stdout; nothing actionable.
			_ = log.Sync()
			return nil
		},
	})

	return log
}
