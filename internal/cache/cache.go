// Package cache memoizes computed API responses in Redis. Keys carry the
// snapshot version, so an entry is only ever served for the snapshot it was
// computed from and reloads need no invalidation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/config"
	"github.com/citystrata/citystrata/internal/monitoring"
)

const keyPrefix = "citystrata"

// errMiss reports an absent key.
var errMiss = errors.New("cache: miss")

type backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// Cache is a response cache. The zero value and a nil *Cache are valid and
// disabled: every lookup computes.
type Cache struct {
	backend backend
	ttl     time.Duration
}

// New connects to the Redis server in cfg. An empty address returns a
// disabled cache.
func New(cfg config.CacheConfig) *Cache {
	if cfg.RedisAddr == "" {
		return &Cache{}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ttl := time.Duration(cfg.TTLSecs) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{backend: redisBackend{rdb}, ttl: ttl}
}

// Enabled reports whether lookups reach Redis.
func (c *Cache) Enabled() bool { return c != nil && c.backend != nil }

// Ping checks connectivity. A disabled cache always succeeds.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return eris.Wrap(c.backend.Ping(ctx), "cache: ping")
}

// Close releases the Redis connection pool.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.backend.Close()
}

// Key builds a cache key scoped to city and snapshot version.
func Key(cityCode int, version string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(cityCode))
	b.WriteByte(':')
	b.WriteString(version)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// GetOrCompute returns the cached value at key, or computes, stores and
// returns it. Redis failures are logged and fall back to compute; compute
// errors are returned and never cached.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, compute func() (T, error)) (T, error) {
	if !c.Enabled() {
		return compute()
	}

	raw, err := c.backend.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if uerr := json.Unmarshal(raw, &v); uerr == nil {
			monitoring.CacheHitsTotal.Inc()
			return v, nil
		}
		zap.L().Warn("cache: discarding undecodable entry", zap.String("key", key))
	case errors.Is(err, errMiss):
	default:
		zap.L().Warn("cache: get failed", zap.String("key", key), zap.Error(err))
	}
	monitoring.CacheMissesTotal.Inc()

	v, err := compute()
	if err != nil {
		return v, err
	}
	raw, err = json.Marshal(v)
	if err != nil {
		zap.L().Warn("cache: encode value", zap.String("key", key), zap.Error(err))
		return v, nil
	}
	if err := c.backend.Set(ctx, key, raw, c.ttl); err != nil {
		zap.L().Warn("cache: set failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

type redisBackend struct {
	rdb *redis.Client
}

func (r redisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errMiss
	}
	return b, err
}

func (r redisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r redisBackend) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r redisBackend) Close() error {
	return r.rdb.Close()
}
