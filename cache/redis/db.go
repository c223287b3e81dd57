// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package redis

import (
	"context"
	"encoding/json"
	"time"

	"emperror.dev/errors"
	"github.com/redis/go-redis/v9"
	"github.com/xmidt-org/streamdex/cache"
	"github.com/xmidt-org/streamdex/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix = "streamdex:"
	defaultTTL       = 24 * time.Hour
)

type Config struct {
	// Address is the host:port of the redis server.
	Address  string `validate:"required"`
	Username string
	Password string
	DB       int

	// KeyPrefix namespaces every key written by this service.
	KeyPrefix string

	// DefaultTTL applies to assets stored without a TTL of their own.
	DefaultTTL time.Duration
}

// client captures the methods of interest from go-redis.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

type RedisClient struct {
	c          client
	prefix     string
	defaultTTL time.Duration
	logger     *zap.Logger
}

// ProvideRedis connects to the server and closes the connection when the
// application stops.
func ProvideRedis(config Config, lc fx.Lifecycle, logger *zap.Logger) (cache.C, error) {
	if config.Address == "" {
		return nil, errors.New("redis address is required")
	}
	c := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Username: config.Username,
		Password: config.Password,
		DB:       config.DB,
	})
	r := newRedisClient(c, config, logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := r.Ping(ctx); err != nil {
				logger.Warn("redis is not reachable yet", zap.String("address", config.Address), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return r, nil
}

func newRedisClient(c client, config Config, logger *zap.Logger) *RedisClient {
	validateConfig(&config)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisClient{
		c:          c,
		prefix:     config.KeyPrefix,
		defaultTTL: config.DefaultTTL,
		logger:     logger,
	}
}

func (r *RedisClient) Match(ctx context.Context, key string) (model.Asset, error) {
	data, err := r.c.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Asset{}, cache.ErrNotFound
	}
	if err != nil {
		return model.Asset{}, errors.WrapWithDetails(err, "redis get failed", "key", key)
	}

	var asset model.Asset
	if err = json.Unmarshal(data, &asset); err != nil {
		return model.Asset{}, errors.WrapWithDetails(err, "failed to decode cached asset", "key", key)
	}

	ttl, err := r.c.TTL(ctx, r.prefix+key).Result()
	if err == nil && ttl > 0 {
		asset.TTL = int64(ttl.Seconds())
	}
	return asset, nil
}

func (r *RedisClient) Put(ctx context.Context, key string, asset model.Asset) error {
	ttl := r.defaultTTL
	if asset.TTL > 0 {
		ttl = time.Duration(asset.TTL) * time.Second
	}
	stored := asset
	stored.TTL = 0
	data, err := json.Marshal(&stored)
	if err != nil {
		return errors.WrapWithDetails(err, "failed to encode asset", "key", key)
	}
	if err = r.c.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		return errors.WrapWithDetails(err, "redis set failed", "key", key)
	}
	return nil
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func validateConfig(config *Config) {
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaultKeyPrefix
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = defaultTTL
	}
}
