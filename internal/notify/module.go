package notify

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"jats/internal/exchange"
	"jats/internal/modules/config"
)

type Result struct {
	fx.Out

	Notifier Notifier
	Commands CommandSource
}

// New: Telegram при наличии токена и chat_id, иначе stdout.
func New(lc fx.Lifecycle, cfg *config.Config, ex exchange.Client, log *zap.Logger) Result {
	stdout := NewStdout(ex.Name(), log)
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		log.Info("telegram не настроен, уведомления в лог")
		return Result{Notifier: stdout, Commands: stdout}
	}

	tg, err := NewTelegram(TelegramConfig{
		Token:   cfg.Telegram.Token,
		ChatID:  cfg.Telegram.ChatID,
		Venue:   ex.Name(),
		Timeout: cfg.Telegram.Timeout,
		Quiet: Quiet{
			Enabled: cfg.Telegram.QuietHours.Enabled,
			From:    cfg.Telegram.QuietHours.From,
			To:      cfg.Telegram.QuietHours.To,
			Loc:     cfg.Trading.Location,
		},
	}, log)
	if err != nil {
		log.Error("telegram недоступен, уведомления в лог", zap.Error(err))
		return Result{Notifier: stdout, Commands: stdout}
	}

	if cfg.Telegram.Commands {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				tg.Start()
				return nil
			},
			OnStop: func(context.Context) error {
				tg.Stop()
				return nil
			},
		})
	}
	return Result{Notifier: tg, Commands: tg}
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(New),
	)
}
