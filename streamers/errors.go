// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package streamers

import (
	"context"
	"encoding/json"
	"net/http"

	"emperror.dev/emperror"
	"emperror.dev/errors"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/xmidt-org/httpaux/erraux"
	"go.uber.org/zap"
)

var (
	// ErrPhotoNotFound is returned when a record has no servable photo.
	ErrPhotoNotFound = &erraux.Error{
		Err:  errors.New("photo not found"),
		Code: http.StatusNotFound,
	}

	// ErrAssetTooLarge is returned when the upstream asset exceeds the
	// configured size bound.
	ErrAssetTooLarge = &erraux.Error{
		Err:  errors.New("upstream asset too large"),
		Code: http.StatusBadGateway,
	}

	errMissingRecordID = &erraux.Error{
		Err:  errors.New("{recordId} URL path parameter missing"),
		Code: http.StatusBadRequest,
	}
	errMissingAssetPath = &erraux.Error{
		Err:  errors.New("{assetPath} URL path parameter missing"),
		Code: http.StatusBadRequest,
	}
)

// errorBody is the only error shape clients ever see. It never carries the
// underlying cause.
type errorBody struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

func statusCode(err error) int {
	var sc kithttp.StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	var headerer kithttp.Headerer
	if errors.As(err, &headerer) {
		for k, values := range headerer.Headers() {
			for _, v := range values {
				w.Header().Add(k, v)
			}
		}
	}

	code := statusCode(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{
		Status: code,
		Error:  http.StatusText(code),
	})
}

// errorLogger is the sink for every error reaching the transport. Server
// errors are logged with their details; client errors only at debug.
type errorLogger struct {
	getLogger func(context.Context) *zap.Logger
	logger    *zap.Logger
}

func (e errorLogger) Handle(ctx context.Context, err error) {
	e.handler(ctx).Handle(err)
}

func (e errorLogger) handler(ctx context.Context) emperror.ErrorHandler {
	l := e.logger
	if e.getLogger != nil {
		if fromCtx := e.getLogger(ctx); fromCtx != nil {
			l = fromCtx
		}
	}
	return emperror.ErrorHandlerFunc(func(err error) {
		code := statusCode(err)
		fields := []zap.Field{zap.Error(err), zap.Int("status", code)}
		if details := errors.GetDetails(err); len(details) > 0 {
			fields = append(fields, zap.Any("details", details))
		}
		if code >= http.StatusInternalServerError {
			l.Error("request failed", fields...)
			return
		}
		l.Debug("request rejected", fields...)
	})
}
