// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cassandra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/hailocab/go-hostpool"
	"github.com/xmidt-org/streamdex/model"
	"go.uber.org/zap"
)

type dbStore interface {
	Put(ctx context.Context, key string, asset model.Asset, ttl int64) error
	Get(ctx context.Context, key string) (model.Asset, error)
	Close()
	Ping() error
}

var (
	errNoDataResponse = errors.New("no data from query")
	errServerClosed   = errors.New("server is closed")
)

type cassandraExecutor struct {
	session *gocql.Session
	logger  *zap.Logger

	insert      string
	selectByKey string
}

func connect(cluster *gocql.ClusterConfig, table string, logger *zap.Logger) (dbStore, error) {
	cluster.PoolConfig.HostSelectionPolicy = gocql.HostPoolHostPolicy(hostpool.New(nil))
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	return &cassandraExecutor{
		session:     session,
		logger:      logger,
		insert:      fmt.Sprintf("INSERT INTO %s (key, data) VALUES (?, ?) USING TTL ?", table),
		selectByKey: fmt.Sprintf("SELECT data, ttl(data) FROM %s WHERE key = ?", table),
	}, nil
}

func (s *cassandraExecutor) Put(ctx context.Context, key string, asset model.Asset, ttl int64) error {
	data, err := json.Marshal(&asset)
	if err != nil {
		return err
	}

	return s.session.Query(s.insert, key, data, ttl).WithContext(ctx).Exec()
}

func (s *cassandraExecutor) Get(ctx context.Context, key string) (model.Asset, error) {
	var (
		data []byte
		ttl  int64
	)
	iter := s.session.Query(s.selectByKey, key).WithContext(ctx).Iter()
	defer func() {
		err := iter.Close()
		if err != nil {
			s.logger.Error("failed to close iter", zap.String("key", key), zap.Error(err))
		}
	}()
	for iter.Scan(&data, &ttl) {
		asset := model.Asset{}
		err := json.Unmarshal(data, &asset)
		asset.TTL = ttl
		return asset, err
	}
	return model.Asset{}, errNoDataResponse
}

func (s *cassandraExecutor) Close() {
	s.session.Close()
}

func (s *cassandraExecutor) Ping() error {
	if s.session.Closed() {
		return errServerClosed
	}
	return nil
}
