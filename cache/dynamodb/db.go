// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package dynamodb

import (
	"context"
	"net/http"
	"time"

	"emperror.dev/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dustin/go-humanize"
	"github.com/xmidt-org/streamdex/cache"
	"github.com/xmidt-org/streamdex/cache/metric"
	"github.com/xmidt-org/streamdex/model"
	"go.uber.org/zap"
)

const (
	defaultTable      = "streamdex_assets"
	defaultMaxRetries = 3
	defaultTTL        = 24 * time.Hour

	// DynamoDB rejects items over 400KB; leave room for the key and headers.
	defaultMaxItemSize = 350 * 1024
)

// Dynamo DB attribute keys
const (
	keyAttributeKey = "key"
)

type Config struct {
	Table      string
	Endpoint   string
	Region     string
	MaxRetries int
	AccessKey  string
	SecretKey  string

	// DefaultTTL applies to assets stored without a TTL of their own.
	DefaultTTL time.Duration

	// MaxItemSize is the largest body, in bytes, written to the table.
	MaxItemSize int
}

// client captures the methods of interest from the dynamoDB API. This
// should help mock API calls as well.
type client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type storableAsset struct {
	Key     string              `dynamodbav:"key"`
	Status  int                 `dynamodbav:"status"`
	Header  map[string][]string `dynamodbav:"header,omitempty"`
	Body    []byte              `dynamodbav:"body"`
	Expires int64               `dynamodbav:"expires,omitempty"`
}

type DynamoClient struct {
	c           client
	table       string
	defaultTTL  time.Duration
	maxItemSize int
	measures    metric.Measures
	logger      *zap.Logger
	now         func() time.Time
}

func NewDynamoDB(config Config, measures metric.Measures, logger *zap.Logger) (cache.C, error) {
	validateConfig(&config)

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(config.MaxRetries),
	}
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, "")))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "failed to load aws config", "region", config.Region)
	}

	c := dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})
	return newDynamoClient(c, config, measures, logger), nil
}

func newDynamoClient(c client, config Config, measures metric.Measures, logger *zap.Logger) *DynamoClient {
	validateConfig(&config)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DynamoClient{
		c:           c,
		table:       config.Table,
		defaultTTL:  config.DefaultTTL,
		maxItemSize: config.MaxItemSize,
		measures:    measures,
		logger:      logger,
		now:         time.Now,
	}
}

func (d *DynamoClient) Match(ctx context.Context, key string) (model.Asset, error) {
	out, err := d.c.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			keyAttributeKey: &types.AttributeValueMemberS{Value: key},
		},
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if out != nil {
		d.consumed(out.ConsumedCapacity, cache.ReadType)
	}
	if err != nil {
		return model.Asset{}, errors.WrapWithDetails(err, "dynamodb get failed", "key", key)
	}
	if len(out.Item) == 0 {
		return model.Asset{}, cache.ErrNotFound
	}

	var item storableAsset
	err = attributevalue.UnmarshalMap(out.Item, &item)
	if err != nil {
		return model.Asset{}, errors.WrapWithDetails(err, "failed to decode cached asset", "key", key)
	}

	// expired items linger until the table's TTL sweep removes them
	remaining := time.Unix(item.Expires, 0).Sub(d.now())
	if item.Expires != 0 && remaining < time.Second {
		return model.Asset{}, cache.ErrNotFound
	}

	asset := model.Asset{
		StatusCode: item.Status,
		Body:       item.Body,
	}
	if item.Header != nil {
		asset.Header = http.Header(item.Header)
	}
	if item.Expires != 0 {
		asset.TTL = int64(remaining.Seconds())
	}
	return asset, nil
}

func (d *DynamoClient) Put(ctx context.Context, key string, asset model.Asset) error {
	if len(asset.Body) > d.maxItemSize {
		d.logger.Debug("asset too large for dynamodb",
			zap.String("key", key),
			zap.String("size", humanize.IBytes(uint64(len(asset.Body)))),
			zap.String("limit", humanize.IBytes(uint64(d.maxItemSize))))
		return errors.WithDetails(cache.ErrEntryTooLarge, "key", key, "size", len(asset.Body))
	}

	ttl := d.defaultTTL
	if asset.TTL > 0 {
		ttl = time.Duration(asset.TTL) * time.Second
	}

	av, err := attributevalue.MarshalMap(storableAsset{
		Key:     key,
		Status:  asset.StatusCode,
		Header:  asset.Header,
		Body:    asset.Body,
		Expires: d.now().Add(ttl).Unix(),
	})
	if err != nil {
		return errors.WrapWithDetails(err, "failed to encode asset", "key", key)
	}

	out, err := d.c.PutItem(ctx, &dynamodb.PutItemInput{
		Item:                   av,
		TableName:              aws.String(d.table),
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if out != nil {
		d.consumed(out.ConsumedCapacity, cache.InsertType)
	}
	if err != nil {
		return errors.WrapWithDetails(err, "dynamodb put failed", "key", key)
	}
	return nil
}

func (d *DynamoClient) consumed(capacity *types.ConsumedCapacity, action string) {
	if capacity == nil || capacity.CapacityUnits == nil {
		return
	}
	d.logger.Debug("Updating consumed capacity", zap.Float64("consumed", *capacity.CapacityUnits), zap.String("action", action))
	counter := d.measures.ReadCapacityUnitConsumed
	if action == cache.InsertType {
		counter = d.measures.WriteCapacityUnitConsumed
	}
	if counter != nil {
		counter.WithLabelValues(action).Add(*capacity.CapacityUnits)
	}
}

func validateConfig(config *Config) {
	if config.Table == "" {
		config.Table = defaultTable
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaultMaxRetries
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = defaultTTL
	}
	if config.MaxItemSize <= 0 {
		config.MaxItemSize = defaultMaxItemSize
	}
}
