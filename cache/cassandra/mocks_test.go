// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cassandra

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xmidt-org/streamdex/model"
)

type mockDB struct {
	mock.Mock
}

func (s *mockDB) Put(ctx context.Context, key string, asset model.Asset, ttl int64) error {
	args := s.Called(key, asset, ttl)
	return args.Error(0)
}

func (s *mockDB) Get(ctx context.Context, key string) (model.Asset, error) {
	args := s.Called(key)
	return args.Get(0).(model.Asset), args.Error(1)
}

func (s *mockDB) Close() {
	s.Called()
}

func (s *mockDB) Ping() error {
	args := s.Called()
	return args.Error(0)
}
