package main

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"jats/internal/exchange"
	"jats/internal/modules/config"
	"jats/internal/modules/health"
	"jats/internal/modules/journal"
	"jats/internal/modules/lock"
	"jats/internal/modules/metrics"
	"jats/internal/notify"
	"jats/internal/runner"
	"jats/internal/strategy"
	"jats/pkg/logger"
	"jats/pkg/tracing"
)

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		File:    cfg.Logging.File,
		Service: cfg.Service.Name,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}

func newTracer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (opentracing.Tracer, error) {
	if !cfg.Tracing.Enabled {
		return opentracing.NoopTracer{}, nil
	}
	tracer, closer, err := tracing.InitTracer(tracing.Config{
		Service: cfg.Service.Name,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init tracer")
	}
	log.Info("трейсинг включён", zap.String("host", cfg.Tracing.Host), zap.Int("port", cfg.Tracing.Port))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return closer.Close()
		},
	})
	return tracer, nil
}

// options: граф приложения. Порядок модулей задаёт порядок OnStart; OnStop идёт в обратном.
func options(flags config.Flags) fx.Option {
	return fx.Options(
		fx.Supply(flags),
		config.Module(),
		fx.Provide(newLogger, newTracer),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			if log == nil {
				return fxevent.NopLogger
			}
			l := &fxevent.ZapLogger{Logger: log.Named("fx")}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		metrics.Module(),
		health.Module(),
		exchange.Module(),
		strategy.Module(),
		notify.Module(),
		lock.Module(),
		journal.Module(),
		runner.Module(),
	)
}
