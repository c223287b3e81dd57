// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/streamdex/cache"
	"github.com/xmidt-org/streamdex/model"
)

type instrumentedCache struct {
	cache.C
	measures Measures
	now      func() time.Time
}

// Instrument decorates c so every operation is counted and timed. A miss is
// a successful read.
func Instrument(c cache.C, measures Measures) cache.C {
	return &instrumentedCache{C: c, measures: measures, now: time.Now}
}

func (i *instrumentedCache) Match(ctx context.Context, key string) (model.Asset, error) {
	start := i.now()
	asset, err := i.C.Match(ctx, key)
	i.observe(cache.ReadType, start, err == nil || errors.Is(err, cache.ErrNotFound))
	if err == nil && i.measures.ReadBytes != nil {
		i.measures.ReadBytes.Add(float64(len(asset.Body)))
	}
	return asset, err
}

func (i *instrumentedCache) Put(ctx context.Context, key string, asset model.Asset) error {
	start := i.now()
	err := i.C.Put(ctx, key, asset)
	i.observe(cache.InsertType, start, err == nil)
	if err == nil && i.measures.InsertedBytes != nil {
		i.measures.InsertedBytes.Add(float64(len(asset.Body)))
	}
	return err
}

// Ping forwards to the wrapped cache when it has a connection to check.
func (i *instrumentedCache) Ping(ctx context.Context) error {
	p, ok := i.C.(cache.Pinger)
	if !ok {
		return nil
	}
	start := i.now()
	err := p.Ping(ctx)
	i.observe(cache.PingType, start, err == nil)
	return err
}

func (i *instrumentedCache) observe(op string, start time.Time, ok bool) {
	labels := prometheus.Labels{cache.TypeLabel: op}
	if i.measures.Duration != nil {
		i.measures.Duration.With(labels).Observe(i.now().Sub(start).Seconds())
	}
	counter := i.measures.QuerySuccess
	if !ok {
		counter = i.measures.QueryFailure
	}
	if counter != nil {
		counter.With(labels).Inc()
	}
}
