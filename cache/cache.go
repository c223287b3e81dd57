// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"

	"emperror.dev/errors"
	"github.com/xmidt-org/streamdex/model"
)

const (
	// TypeLabel is for labeling metrics; if there is a single metric for
	// successful queries, the typeLabel and corresponding type can be used
	// when incrementing the metric.
	TypeLabel  = "type"
	InsertType = "insert"
	ReadType   = "read"
	PingType   = "ping"
)

const (
	// ErrNotFound is returned by Match when the key has no live entry.
	ErrNotFound = errors.Sentinel("cache entry not found")

	// ErrEntryTooLarge is returned by Put when a backend cannot hold the asset.
	ErrEntryTooLarge = errors.Sentinel("cache entry too large")
)

// C is a shared response cache keyed by URL-shaped strings.
type C interface {
	// Match returns the asset stored under key, or ErrNotFound.
	Match(ctx context.Context, key string) (model.Asset, error)

	// Put stores the asset under key, replacing whatever was there. A zero
	// asset TTL lets the backend apply its default.
	Put(ctx context.Context, key string, asset model.Asset) error
}

// Pinger is implemented by backends holding a connection worth checking.
type Pinger interface {
	Ping(ctx context.Context) error
}
