package lock

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"jats/internal/modules/config"
)

// NewGuard: Redis-замок при заданном lock.redis_addr, иначе Nop.
func NewGuard(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) Guard {
	if cfg.Lock.RedisAddr == "" {
		return Nop{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Lock.RedisAddr,
		Password: cfg.Lock.Password,
		DB:       cfg.Lock.DB,
	})
	g := NewRedis(client, cfg.Lock.Key, cfg.Lock.TTL)
	log = log.Named("lock")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := g.Acquire(ctx); err != nil {
				return err
			}
			log.Info("замок экземпляра получен", zap.String("key", cfg.Lock.Key), zap.Duration("ttl", cfg.Lock.TTL))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := g.Release(ctx); err != nil {
				log.Warn("не удалось снять замок", zap.Error(err))
			}
			return client.Close()
		},
	})
	return g
}

func Module() fx.Option {
	return fx.Module("lock",
		fx.Provide(NewGuard),
	)
}
