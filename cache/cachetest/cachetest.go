// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package cachetest holds the behavior every cache backend must share.
package cachetest

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/streamdex/cache"
	"github.com/xmidt-org/streamdex/model"
)

var GenericTestKey = model.Key{
	RecordID:  "7f1b1c7e-3b9a-4b6e-9f1e-2f1c1f7a9d01",
	AssetPath: "pic.png",
}

var GenericTestAsset = model.Asset{
	StatusCode: http.StatusOK,
	Header: http.Header{
		"Content-Type": []string{"image/png"},
		"Etag":         []string{`"abc"`},
	},
	Body: []byte("\x89PNG\r\n\x1a\nnot really a png"),
	TTL:  3,
}

// CacheTest runs the shared conformance checks against c. When storeTiming
// is positive the entry is expected to be gone once it has elapsed.
func CacheTest(c cache.C, storeTiming time.Duration, t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		ctx     = context.Background()
		key     = GenericTestKey.CacheKey()
	)

	t.Log("Basic Test")
	_, err := c.Match(ctx, key)
	assert.True(errors.Is(err, cache.ErrNotFound), "expected a miss, got %v", err)

	require.NoError(c.Put(ctx, key, GenericTestAsset))
	got, err := c.Match(ctx, key)
	require.NoError(err)
	assertSameAsset(t, GenericTestAsset, got)

	t.Log("Overwrite")
	replacement := GenericTestAsset
	replacement.Body = []byte("second")
	require.NoError(c.Put(ctx, key, replacement))
	got, err = c.Match(ctx, key)
	require.NoError(err)
	assert.Equal([]byte("second"), got.Body)

	t.Log("Keys are distinct")
	_, err = c.Match(ctx, model.Key{RecordID: GenericTestKey.RecordID, AssetPath: "other.png"}.CacheKey())
	assert.True(errors.Is(err, cache.ErrNotFound), "expected a miss, got %v", err)

	if storeTiming > 0 {
		t.Log("starting duration tests")
		time.Sleep(storeTiming + time.Second)
		_, err = c.Match(ctx, key)
		assert.True(errors.Is(err, cache.ErrNotFound), "expected expiry, got %v", err)
	}
}

// assertSameAsset ignores the TTL, which backends report as remaining time.
func assertSameAsset(t *testing.T, expected, actual model.Asset) {
	assert.Equal(t, expected.StatusCode, actual.StatusCode)
	assert.Equal(t, expected.Header, actual.Header)
	assert.Equal(t, expected.Body, actual.Body)
}
