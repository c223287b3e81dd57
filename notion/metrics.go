// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package notion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	RequestCounter = "notion_requests_total"
)

// Labels
const (
	OperationLabel = "operation"
	OutcomeLabel   = "outcome"
)

// Label Values
const (
	SuccessOutcome = "success"
	FailureOutcome = "failure"

	queryOperation    = "query_database"
	propertyOperation = "get_page_property"
)

// ProvideMetrics returns the Metrics relevant to this package
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: RequestCounter,
				Help: "Counter for the number of requests made to the Notion API and their outcomes.",
			},
			OperationLabel, OutcomeLabel,
		),
	)
}

type Measures struct {
	fx.In
	Requests *prometheus.CounterVec `name:"notion_requests_total"`
}
