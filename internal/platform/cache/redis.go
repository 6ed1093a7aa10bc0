package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/storefront/pkg/config"
)

// NewClient builds the optional redis client used for idempotency-key
// pre-checks. A missing address yields a nil client; callers must treat the
// cache as advisory and rely on the database unique constraint either way.
func NewClient(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *cfgpkg.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		l.Infow("redis disabled, idempotency pre-check will hit the database only")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				// Cache is best-effort; log and keep going.
				l.Warnw("redis ping failed", "addr", cfg.Redis.Addr, "err", err)
				return nil
			}
			l.Infow("connected to redis", "addr", cfg.Redis.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
