// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package streamers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	PhotoLookupCounter = "photo_cache_lookups_total"
	RecordCounter      = "index_records_total"
)

// Labels
const (
	ResultLabel = "result"
)

// Label Values
const (
	HitResult       = "hit"
	MissResult      = "miss"
	ErrorResult     = "error"
	PublishedResult = "published"
	FilteredResult  = "filtered"
	PartialResult   = "partial"
)

// ProvideMetrics returns the Metrics relevant to this package
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: PhotoLookupCounter,
				Help: "Photo cache lookups by result.",
			},
			ResultLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: RecordCounter,
				Help: "Upstream records seen while assembling the index, by result.",
			},
			ResultLabel,
		),
	)
}

type Measures struct {
	fx.In
	PhotoLookups *prometheus.CounterVec `name:"photo_cache_lookups_total"`
	Records      *prometheus.CounterVec `name:"index_records_total"`
}

func (m Measures) lookup(result string) {
	if m.PhotoLookups != nil {
		m.PhotoLookups.With(prometheus.Labels{ResultLabel: result}).Inc()
	}
}

func (m Measures) records(result string, n int) {
	if m.Records != nil && n > 0 {
		m.Records.With(prometheus.Labels{ResultLabel: result}).Add(float64(n))
	}
}
