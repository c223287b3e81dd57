// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package streamers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/go-kit/kit/transport"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/xmidt-org/streamdex/model"
)

// request URL path keys
const (
	RecordIDVarKey  = "recordId"
	AssetPathVarKey = "assetPath"
)

// Request headers consulted when deriving the public origin.
const (
	ForwardedProtoHeaderKey = "X-Forwarded-Proto"
	ForwardedHostHeaderKey  = "X-Forwarded-Host"
)

// ErrCasting indicates there was a middleware wiring mistake with the go-kit style
// encoders.
var ErrCasting = errors.New("casting error due to middleware wiring mistake")

type transportConfig struct {
	// Origin, when set, is used for photo URLs instead of the request's.
	Origin string

	// TrustForwardedHeaders lets a fronting proxy supply the scheme and host.
	TrustForwardedHeaders bool

	// IndexTTL drives the index Cache-Control header.
	IndexTTL time.Duration
}

type indexRequest struct {
	origin string
}

type photoRequest struct {
	key model.Key
}

func decodeIndexRequest(config *transportConfig) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (interface{}, error) {
		return &indexRequest{
			origin: requestOrigin(r, config),
		}, nil
	}
}

func encodeIndexResponse(config *transportConfig) kithttp.EncodeResponseFunc {
	return func(_ context.Context, w http.ResponseWriter, response interface{}) error {
		records, ok := response.([]model.Record)
		if !ok {
			return ErrCasting
		}
		if records == nil {
			records = []model.Record{}
		}

		data, err := json.Marshal(records)
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int64(config.IndexTTL.Seconds())))
		_, err = w.Write(data)
		return err
	}
}

func decodePhotoRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	recordID, ok := vars[RecordIDVarKey]
	if !ok || recordID == "" {
		return nil, errMissingRecordID
	}
	assetPath, ok := vars[AssetPathVarKey]
	if !ok || assetPath == "" {
		return nil, errMissingAssetPath
	}
	return &photoRequest{
		key: model.Key{
			RecordID:  recordID,
			AssetPath: assetPath,
		},
	}, nil
}

func encodePhotoResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	asset, ok := response.(*model.Asset)
	if !ok {
		return ErrCasting
	}
	for k, values := range asset.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	code := asset.StatusCode
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)
	_, err := w.Write(asset.Body)
	return err
}

// requestOrigin returns the scheme and host clients used to reach this
// service. A configured origin always wins over the request. Forwarded
// headers are only consulted when the configuration trusts them, and even
// then only an http or https scheme and a bare host are accepted.
func requestOrigin(r *http.Request, config *transportConfig) string {
	if config.Origin != "" {
		return strings.TrimRight(config.Origin, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host

	if config.TrustForwardedHeaders {
		switch proto := strings.ToLower(firstValue(r.Header.Get(ForwardedProtoHeaderKey))); proto {
		case "http", "https":
			scheme = proto
		}
		if fwd := firstValue(r.Header.Get(ForwardedHostHeaderKey)); isBareHost(fwd) {
			host = fwd
		}
	}
	return scheme + "://" + host
}

// isBareHost reports whether h is a host with an optional port and nothing
// else.
func isBareHost(h string) bool {
	if h == "" {
		return false
	}
	u, err := url.Parse("//" + h)
	return err == nil && u.User == nil && u.Host == h && u.Path == "" && u.RawQuery == "" && u.Fragment == ""
}

// firstValue returns the first element of a comma separated header value.
func firstValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func serverOptions(errorHandler transport.ErrorHandler) []kithttp.ServerOption {
	return []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(encodeError),
		kithttp.ServerErrorHandler(errorHandler),
	}
}
