// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/candlelight"
	"github.com/xmidt-org/streamdex/cache/db"
	"github.com/xmidt-org/streamdex/notion"
	"github.com/xmidt-org/streamdex/streamers"
	"github.com/xmidt-org/touchstone"
	"github.com/xmidt-org/touchstone/touchhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	applicationName = "streamdex"
)

var (
	GitCommit = "undefined"
	Version   = "undefined"
	BuildTime = "undefined"
)

func provideTracingConfig(u arrange.Unmarshaler) (candlelight.Config, error) {
	var config candlelight.Config
	err := u.UnmarshalKey("tracing", &config)
	if err != nil {
		return candlelight.Config{}, err
	}
	config.ApplicationName = applicationName
	return config, nil
}

func app(v *viper.Viper, logger *zap.Logger) *fx.App {
	return fx.New(
		arrange.LoggerFunc(logger.Sugar().Infof),
		arrange.ForViper(v),
		fx.Supply(logger, v),
		touchstone.Provide(),
		touchhttp.Provide(),
		provideMetrics(),
		notion.ProvideMetrics(),
		notion.Provide("notion"),
		db.Provide("cache"),
		streamers.Provide("index", "photos"),
		provideServers(),
		fx.Provide(
			arrange.UnmarshalKey("prometheus", touchstone.Config{}),
			arrange.UnmarshalKey("prometheusHandler", touchhttp.Config{}),
			candlelight.New,
			provideTracingConfig,
		),
		fx.Invoke(
			BuildPrimaryRoutes,
			BuildMetricsRoutes,
			BuildHealthRoutes,
		),
	)
}

func main() {
	v, logger, err := setup(os.Args[1:], os.Environ(), os.Stdout)
	if err != nil {
		if code := exitCode(err); code != 0 {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(code)
		}
		return
	}

	a := app(v, logger)
	if err := a.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	a.Run()
}
