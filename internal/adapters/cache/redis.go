package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"dnsbridge/internal/infrastructure/metrics"
)

const keyPrefix = "dnsbridge:domains:"

// RedisCache shares the domain cache between processes. Redis failures are
// treated as misses so the provider remains the source of truth.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: rdb}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		metrics.DomainCacheOperations.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	metrics.DomainCacheOperations.WithLabelValues("redis", "hit").Inc()
	return val, true
}

func (r *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	r.client.Set(ctx, keyPrefix+key, data, ttl)
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
