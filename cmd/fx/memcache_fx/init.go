package memcache_fx

import (
	"context"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"storefront/internal/config"
	"storefront/internal/infra"
	"storefront/internal/services"
	mem "storefront/pkg/memcache"
)

var Module = fx.Provide(
	provideRedis, provideFingerprintCache, providePaymentPublisher)

// provideRedis yields a nil client when REDIS_URL is unset.
func provideRedis(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*redis.Client, error) {
	client, err := infra.InitRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set, using in-process fingerprint cache")
		return nil, nil
	}

	lc.Append(fx.StopHook(client.Close))
	return client, nil
}

func provideFingerprintCache(client *redis.Client) *mem.FingerprintCache {
	if client == nil {
		return mem.NewFingerprintCache(mem.NewMemoryStore())
	}
	return mem.NewFingerprintCache(mem.NewRedisStore(client, "storefront:"))
}

func providePaymentPublisher(client *redis.Client) services.PaymentEventPublisher {
	if client == nil {
		return services.NewNoopPaymentPublisher()
	}
	return services.NewRedisPaymentPublisher(client)
}
