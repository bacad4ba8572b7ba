package locks

import (
	"context"

	"github.com/lemur767/assistext-backend-sub001/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient opens a Redis connection when REDIS_ADDR is configured.
// Returns nil otherwise; the Locker degrades to disabled.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured; scheduler lock disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return client
}

var Module = fx.Module("locks",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
)
