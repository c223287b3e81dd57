// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"github.com/go-playground/validator/v10"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/streamdex/cache"
	"github.com/xmidt-org/streamdex/cache/cassandra"
	"github.com/xmidt-org/streamdex/cache/dynamodb"
	"github.com/xmidt-org/streamdex/cache/inmem"
	"github.com/xmidt-org/streamdex/cache/metric"
	"github.com/xmidt-org/streamdex/cache/redis"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Configs holds the settings of every backend. The first non-nil backend,
// in the order dynamo, yugabyte, redis, wins; the in memory cache is used
// otherwise.
type Configs struct {
	Dynamo   *dynamodb.Config
	Yugabyte *cassandra.Config
	Redis    *redis.Config
	InMem    inmem.Config
}

type SetupIn struct {
	fx.In
	Configs  Configs
	Measures metric.Measures
	LC       fx.Lifecycle
	Logger   *zap.Logger
}

func Provide(configKey string) fx.Option {
	return fx.Options(
		metric.ProvideMetrics(),
		fx.Provide(
			arrange.UnmarshalKey(configKey, Configs{}),
			SetupCache,
		),
	)
}

func SetupCache(in SetupIn) (cache.C, error) {
	c, err := selectCache(in)
	if err != nil {
		return nil, err
	}
	return metric.Instrument(c, in.Measures), nil
}

func selectCache(in SetupIn) (cache.C, error) {
	if in.Configs.Dynamo != nil {
		in.Logger.Info("using dynamodb cache implementation")
		return dynamodb.NewDynamoDB(*in.Configs.Dynamo, in.Measures, in.Logger)
	}
	if in.Configs.Yugabyte != nil {
		in.Logger.Info("using yugabyte cache implementation")
		return cassandra.New(*in.Configs.Yugabyte, in.LC, in.Logger)
	}
	if in.Configs.Redis != nil {
		if err := validator.New().Struct(in.Configs.Redis); err != nil {
			return nil, err
		}
		in.Logger.Info("using redis cache implementation")
		return redis.ProvideRedis(*in.Configs.Redis, in.LC, in.Logger)
	}
	in.Logger.Info("using in memory cache implementation")
	return inmem.NewInMem(in.Configs.InMem), nil
}
