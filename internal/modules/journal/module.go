package journal

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"jats/internal/exchange"
	"jats/internal/modules/config"
	"jats/pkg/db"
)

// NewRecorder: журнал в Postgres при заданном journal.dsn, иначе Nop.
func NewRecorder(lc fx.Lifecycle, cfg *config.Config, ex exchange.Client, log *zap.Logger) (Recorder, error) {
	if cfg.Journal.DSN == "" {
		return Nop{}, nil
	}
	pool, err := db.NewPool(context.Background(), db.PoolConfig{DSN: cfg.Journal.DSN, MaxConns: 2})
	if err != nil {
		return nil, errors.Wrap(err, "journal: create pool")
	}
	tm := db.NewPgTxManager(pool)
	j := New(tm, ex.Name(), log)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := tm.Ping(ctx); err != nil {
				return errors.Wrap(err, "journal: ping")
			}
			if err := j.EnsureSchema(ctx); err != nil {
				return err
			}
			j.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			j.Close()
			tm.Close()
			return nil
		},
	})
	return j, nil
}

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(NewRecorder),
	)
}
