// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package streamers

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xmidt-org/streamdex/model"
	"github.com/xmidt-org/streamdex/notion"
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) QueryDatabase(ctx context.Context, databaseID string) ([]notion.Page, error) {
	args := m.Called(ctx, databaseID)
	pages, _ := args.Get(0).([]notion.Page)
	return pages, args.Error(1)
}

func (m *mockReader) GetPageProperty(ctx context.Context, pageID, property string) (notion.Property, error) {
	args := m.Called(ctx, pageID, property)
	p, _ := args.Get(0).(notion.Property)
	return p, args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Match(ctx context.Context, key string) (model.Asset, error) {
	args := m.Called(ctx, key)
	a, _ := args.Get(0).(model.Asset)
	return a, args.Error(1)
}

func (m *mockCache) Put(ctx context.Context, key string, asset model.Asset) error {
	args := m.Called(ctx, key, asset)
	return args.Error(0)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (model.Asset, error) {
	args := m.Called(ctx, url)
	a, _ := args.Get(0).(model.Asset)
	return a, args.Error(1)
}

type mockService struct {
	mock.Mock
}

func (m *mockService) Index(ctx context.Context, origin string) ([]model.Record, error) {
	args := m.Called(ctx, origin)
	records, _ := args.Get(0).([]model.Record)
	return records, args.Error(1)
}

func (m *mockService) Photo(ctx context.Context, key model.Key) (model.Asset, error) {
	args := m.Called(ctx, key)
	a, _ := args.Get(0).(model.Asset)
	return a, args.Error(1)
}
