package runner

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"jats/internal/exchange"
	"jats/internal/modules/config"
	"jats/internal/modules/health/service"
	"jats/internal/modules/journal"
	"jats/internal/modules/lock"
	"jats/internal/modules/metrics"
	"jats/internal/notify"
	"jats/internal/runner/ledger"
	"jats/internal/runner/risk"
	"jats/internal/strategy"
)

type Params struct {
	fx.In

	Config     *config.Config
	Exchange   exchange.Client
	Engine     strategy.Engine
	Notifier   notify.Notifier
	Commands   notify.CommandSource
	Journal    journal.Recorder
	Guard      lock.Guard
	Metrics    *metrics.Metrics
	State      *service.State
	Tracer     opentracing.Tracer `optional:"true"`
	Log        *zap.Logger
	Shutdowner fx.Shutdowner
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Markets:          cfg.Trading.Markets,
		MaxMarkets:       cfg.Trading.MaxMarkets,
		Timeframe:        cfg.Strategy.TF,
		CandleCount:      cfg.Strategy.CandleCount,
		MaxInvestment:    cfg.Risk.MaxInvestmentPerTrade,
		ExitOnStrongSell: cfg.Strategy.ExitOnStrongSell,
		ShortInterval:    cfg.Trading.ShortInterval,
		MediumInterval:   cfg.Trading.MediumInterval,
		LongInterval:     cfg.Trading.LongInterval,
		PollInterval:     cfg.Trading.OrderPollInterval,
		PollAttempts:     cfg.Trading.OrderPollAttempts,
		StaleOrderAge:    cfg.Trading.StaleOrderAge,
		Cooldown:         cfg.Trading.CooldownPerMarket,
		MaxServerErrors:  cfg.Trading.MaxServerErrors,
		Location:         cfg.Trading.Location,
	}
}

func NewFromParams(p Params) *Runner {
	cfg := ConfigFrom(p.Config)
	return New(cfg, Deps{
		Exchange: p.Exchange,
		Engine:   p.Engine,
		Gate: risk.Gate{
			StopLossPct:     p.Config.Risk.StopLossPercent,
			TrailingStopPct: p.Config.Risk.StopLossPercentHigh,
			MaxDailyLoss:    p.Config.Risk.MaxDailyLoss,
		},
		Ledger: ledger.New(ledger.Config{
			HistoryLimit: p.Config.Trading.HistoryLimit,
			StatsResetAt: p.Config.Risk.ResetAt,
			Location:     cfg.Location,
		}, time.Now()),
		Notifier: p.Notifier,
		Commands: p.Commands,
		Journal:  p.Journal,
		Guard:    p.Guard,
		Metrics:  p.Metrics,
		State:    p.State,
		Tracer:   p.Tracer,
		Log:      p.Log,
		OnFatal: func(error) {
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
		},
	})
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(NewFromParams),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					r.Start()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					r.Stop(ctx)
					return nil
				},
			})
		}),
	)
}
