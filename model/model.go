// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"net/http"
)

// Record is the flat, camel-cased JSON shape of a single streamer page.
// Values are plain JSON: strings, numbers, booleans, lists and, for file
// attachments, small descriptor objects.
type Record map[string]interface{}

// Key defines the field mapping to retrieve a photo asset from the cache.
type Key struct {
	// RecordID is the upstream page identifier the photo belongs to.
	RecordID string `json:"recordId"`

	// AssetPath is the trailing path the client requested, usually the
	// file name of the attachment.
	AssetPath string `json:"assetPath"`
}

// CacheKey returns the private URL used to address the asset in a shared
// cache. The host is never resolvable so it can't collide with real traffic.
func (k Key) CacheKey() string {
	return fmt.Sprintf("https://photo/%s/%s", k.RecordID, k.AssetPath)
}

// Asset defines a cacheable photo response.
type Asset struct {
	// StatusCode of the upstream response.
	StatusCode int `json:"status"`

	// Header holds the upstream response headers worth replaying.
	Header http.Header `json:"header,omitempty"`

	// Body is the raw asset content.
	Body []byte `json:"body"`

	// TTL is the time to live in the cache, in seconds. Zero means the
	// backend default is used.
	TTL int64 `json:"ttl,omitempty"`
}
