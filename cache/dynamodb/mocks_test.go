// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package dynamodb

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/mock"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

// tableClient keeps items in memory, keyed the same way the table is.
type tableClient struct {
	lock  sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newTableClient() *tableClient {
	return &tableClient{items: map[string]map[string]types.AttributeValue{}}
}

func (t *tableClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	k := params.Item[keyAttributeKey].(*types.AttributeValueMemberS).Value
	t.items[k] = params.Item
	return &dynamodb.PutItemOutput{
		ConsumedCapacity: &types.ConsumedCapacity{CapacityUnits: aws.Float64(1)},
	}, nil
}

func (t *tableClient) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	k := params.Key[keyAttributeKey].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{
		Item:             t.items[k],
		ConsumedCapacity: &types.ConsumedCapacity{CapacityUnits: aws.Float64(0.5)},
	}, nil
}
