// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"github.com/xmidt-org/touchstone/touchhttp"
	"go.uber.org/fx"
)

// Names
const (
	BuildInfoGauge = "build_info"
)

// provideMetrics builds the server instrumentation and makes it available
// to the container.
func provideMetrics() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotated{
				Name: "servers.primary.metrics",
				Target: touchhttp.ServerBundle{}.NewInstrumenter(
					touchhttp.ServerLabel, "primary",
				),
			},
			fx.Annotated{
				Name: "servers.health.metrics",
				Target: touchhttp.ServerBundle{}.NewInstrumenter(
					touchhttp.ServerLabel, "health",
				),
			},
		),
		touchstone.GaugeVec(
			prometheus.GaugeOpts{
				Name: BuildInfoGauge,
				Help: "Build information of the running binary; the value is always 1.",
			},
			"version", "commit", "built",
		),
		fx.Invoke(recordBuildInfo),
	)
}

type buildInfoIn struct {
	fx.In
	BuildInfo *prometheus.GaugeVec `name:"build_info"`
}

func recordBuildInfo(in buildInfoIn) {
	in.BuildInfo.WithLabelValues(Version, GitCommit, BuildTime).Set(1)
}
