// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package inmem

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/xmidt-org/streamdex/cache"
	"github.com/xmidt-org/streamdex/model"
)

const (
	defaultTTL             = 24 * time.Hour
	defaultCleanupInterval = 10 * time.Minute
)

type Config struct {
	// DefaultTTL applies to assets stored without a TTL of their own.
	DefaultTTL time.Duration

	// CleanupInterval is how often expired entries are purged.
	CleanupInterval time.Duration
}

type InMem struct {
	data *gocache.Cache
}

func NewInMem(config Config) cache.C {
	validateConfig(&config)
	return &InMem{
		data: gocache.New(config.DefaultTTL, config.CleanupInterval),
	}
}

func (i *InMem) Match(_ context.Context, key string) (model.Asset, error) {
	v, ok := i.data.Get(key)
	if !ok {
		return model.Asset{}, cache.ErrNotFound
	}
	return copyAsset(v.(model.Asset)), nil
}

func (i *InMem) Put(_ context.Context, key string, asset model.Asset) error {
	ttl := gocache.DefaultExpiration
	if asset.TTL > 0 {
		ttl = time.Duration(asset.TTL) * time.Second
	}
	i.data.Set(key, copyAsset(asset), ttl)
	return nil
}

// copyAsset keeps callers from mutating what is stored.
func copyAsset(a model.Asset) model.Asset {
	c := a
	c.Header = a.Header.Clone()
	if a.Body != nil {
		c.Body = append([]byte(nil), a.Body...)
	}
	return c
}

func validateConfig(config *Config) {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = defaultTTL
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaultCleanupInterval
	}
}
