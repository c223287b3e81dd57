// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package streamers

import (
	"net/http"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

type Handler http.Handler

func newIndexHandler(in handlerIn) Handler {
	return kithttp.NewServer(
		newIndexEndpoint(in.Service),
		decodeIndexRequest(in.Config),
		encodeIndexResponse(in.Config),
		serverOptions(newErrorLogger(in.Logger))...,
	)
}

func newPhotoHandler(in handlerIn) Handler {
	return kithttp.NewServer(
		newPhotoEndpoint(in.Service),
		decodePhotoRequest,
		encodePhotoResponse,
		serverOptions(newErrorLogger(in.Logger))...,
	)
}

func newErrorLogger(logger *zap.Logger) errorLogger {
	if logger == nil {
		logger = sallust.Default()
	}
	return errorLogger{
		getLogger: sallust.Get,
		logger:    logger,
	}
}
