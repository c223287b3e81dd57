// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package streamers

import (
	"context"

	"github.com/go-kit/kit/endpoint"
)

func newIndexEndpoint(s S) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		indexRequest := request.(*indexRequest)
		records, err := s.Index(ctx, indexRequest.origin)
		if err != nil {
			return nil, err
		}
		return records, nil
	}
}

func newPhotoEndpoint(s S) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		photoRequest := request.(*photoRequest)
		asset, err := s.Photo(ctx, photoRequest.key)
		if err != nil {
			return nil, err
		}
		return &asset, nil
	}
}
