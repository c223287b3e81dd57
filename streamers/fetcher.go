// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package streamers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"emperror.dev/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/xmidt-org/streamdex/model"
)

// DefaultMaxSize bounds fetched assets when no limit is configured.
const DefaultMaxSize int64 = 10 << 20

// passthroughHeaders are the upstream response headers replayed to clients.
var passthroughHeaders = []string{"Content-Type", "ETag", "Last-Modified"}

const errWrappedFmt = "%w: %s"

var errFetchFailure = errors.New("failed to fetch upstream asset")

// Fetcher retrieves an asset by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (model.Asset, error)
}

// HTTPFetcher is a Fetcher over a plain http client. The whole body is read
// into memory, up to MaxSize bytes.
type HTTPFetcher struct {
	Client  *http.Client
	MaxSize int64
}

func (f HTTPFetcher) Fetch(ctx context.Context, url string) (model.Asset, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	maxSize := f.MaxSize
	if maxSize < 1 {
		maxSize = DefaultMaxSize
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Asset{}, fmt.Errorf(errWrappedFmt, errFetchFailure, err.Error())
	}
	resp, err := client.Do(req)
	if err != nil {
		return model.Asset{}, fmt.Errorf(errWrappedFmt, errFetchFailure, err.Error())
	}
	defer resp.Body.Close()

	if resp.ContentLength > maxSize {
		return model.Asset{}, errors.WithDetails(ErrAssetTooLarge, "contentLength", resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return model.Asset{}, fmt.Errorf(errWrappedFmt, errFetchFailure, err.Error())
	}
	if int64(len(body)) > maxSize {
		return model.Asset{}, errors.WithDetails(ErrAssetTooLarge, "maxSize", maxSize)
	}

	header := make(http.Header, len(passthroughHeaders)+1)
	for _, k := range passthroughHeaders {
		if v := resp.Header.Get(k); v != "" {
			header.Set(k, v)
		}
	}
	if ct := header.Get("Content-Type"); ct == "" || ct == "application/octet-stream" {
		header.Set("Content-Type", mimetype.Detect(body).String())
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))

	return model.Asset{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       body,
	}, nil
}
