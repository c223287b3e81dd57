// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/streamdex/cache"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Generic Metrics
const (
	CacheDurationSeconds  = "cache_duration_seconds"
	CacheQuerySuccess     = "cache_query_success_count"
	CacheQueryFailure     = "cache_query_failure_count"
	CacheInsertedBytes    = "cache_inserted_bytes_count"
	CacheReadBytesCounter = "cache_read_bytes_count"
)

// DynamoDB metrics
const (
	ReadCapacityConsumedCounter  = "read_capacity_unit_consumed"
	WriteCapacityConsumedCounter = "write_capacity_unit_consumed"
)

// ProvideMetrics returns the Metrics relevant to this package
func ProvideMetrics() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotated{
				Name: CacheDurationSeconds,
				Target: func(f *touchstone.Factory) (prometheus.ObserverVec, error) {
					return f.NewHistogramVec(
						prometheus.HistogramOpts{
							Name:    CacheDurationSeconds,
							Help:    "A histogram of latencies for cache operations.",
							Buckets: []float64{0.0625, 0.125, .25, .5, 1, 5, 10, 20, 40, 80, 160},
						},
						cache.TypeLabel,
					)
				},
			},
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: CacheQuerySuccess,
				Help: "The total number of successful cache operations",
			},
			cache.TypeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: CacheQueryFailure,
				Help: "The total number of failed cache operations",
			},
			cache.TypeLabel,
		),
		touchstone.Counter(
			prometheus.CounterOpts{
				Name: CacheInsertedBytes,
				Help: "The total number of asset bytes written to the cache",
			},
		),
		touchstone.Counter(
			prometheus.CounterOpts{
				Name: CacheReadBytesCounter,
				Help: "The total number of asset bytes read from the cache",
			},
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: ReadCapacityConsumedCounter,
				Help: "The number of read capacity units consumed by the operation.",
			},
			cache.TypeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: WriteCapacityConsumedCounter,
				Help: "The number of write capacity units consumed by the operation.",
			},
			cache.TypeLabel,
		),
	)
}

type Measures struct {
	fx.In
	Duration      prometheus.ObserverVec `name:"cache_duration_seconds"`
	QuerySuccess  *prometheus.CounterVec `name:"cache_query_success_count"`
	QueryFailure  *prometheus.CounterVec `name:"cache_query_failure_count"`
	InsertedBytes prometheus.Counter     `name:"cache_inserted_bytes_count"`
	ReadBytes     prometheus.Counter     `name:"cache_read_bytes_count"`

	// DynamoDB Metrics
	ReadCapacityUnitConsumed  *prometheus.CounterVec `name:"read_capacity_unit_consumed"`
	WriteCapacityUnitConsumed *prometheus.CounterVec `name:"write_capacity_unit_consumed"`
}
