package exchange

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"jats/internal/exchange/kis"
	"jats/internal/exchange/upbit"
	"jats/internal/modules/config"
)

// New выбирает адаптер один раз при старте.
func New(cfg *config.Config, log *zap.Logger) (Client, error) {
	switch cfg.Platform {
	case "upbit":
		return upbit.New(upbit.Config{
			AccessKey:         cfg.Upbit.AccessKey,
			SecretKey:         cfg.Upbit.SecretKey,
			BaseURL:           cfg.Upbit.BaseURL,
			WebsocketURL:      cfg.Upbit.WebsocketURL,
			RequestsPerMinute: cfg.Upbit.RequestsPerMinute,
			Timeout:           cfg.Upbit.Timeout,
		}, log), nil
	case "kis":
		return kis.New(kis.Config{
			AppKey:            cfg.KIS.AppKey,
			AppSecret:         cfg.KIS.AppSecret,
			AccountNumber:     cfg.KIS.AccountNumber,
			AccountCode:       cfg.KIS.AccountCode,
			BaseURL:           cfg.KIS.BaseURL,
			Virtual:           cfg.Env != "prod",
			RequestsPerSecond: cfg.KIS.RequestsPerSecond,
			Timeout:           cfg.KIS.Timeout,
		}, log), nil
	default:
		return nil, errors.Errorf("unknown platform %q", cfg.Platform)
	}
}

func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(New),
		fx.Invoke(func(lc fx.Lifecycle, c Client, cfg *config.Config) {
			s, ok := c.(Streamer)
			if !ok || !cfg.Upbit.Websocket || len(cfg.Trading.Markets) == 0 {
				return
			}
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					s.StartStream(ctx, cfg.Trading.Markets)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					s.StopStream()
					return nil
				},
			})
		}),
	)
}
