// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package cassandra

import (
	"context"
	"errors"
	"time"

	"emperror.dev/emperror"
	"github.com/gocql/gocql"
	"github.com/xmidt-org/streamdex/cache"
	"github.com/xmidt-org/streamdex/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultKeyspace     = "streamdex"
	defaultTable        = "assets"
	defaultTimeout      = 10 * time.Second
	defaultConnsPerHost = 2
	defaultBackoff      = time.Second
	defaultMultiplier   = 2
	defaultTTL          = 24 * time.Hour
	defaultPingInterval = 5 * time.Second
)

var errNoHosts = errors.New("at least one cassandra host is required")

// TLSConfig enables TLS to the cluster. All three paths are required.
type TLSConfig struct {
	RootCert string
	Cert     string
	Key      string

	// VerifyHost checks the server certificate against the host name.
	VerifyHost bool
}

// RetryConfig controls how the initial connection is retried.
type RetryConfig struct {
	// Attempts beyond the first. Zero means a single try.
	Attempts   int
	Backoff    time.Duration
	Multiplier int
}

// Config describes a Cassandra compatible cluster, Yugabyte YCQL included.
type Config struct {
	Hosts    []string
	Keyspace string
	Table    string
	Timeout  time.Duration

	TLS *TLSConfig

	Username string
	Password string

	Retry        RetryConfig
	ConnsPerHost int

	// DefaultTTL applies to assets stored without a TTL of their own.
	DefaultTTL time.Duration

	PingInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Keyspace == "" {
		c.Keyspace = defaultKeyspace
	}
	if c.Table == "" {
		c.Table = defaultTable
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.ConnsPerHost <= 0 {
		c.ConnsPerHost = defaultConnsPerHost
	}
	if c.Retry.Attempts < 0 {
		c.Retry.Attempts = 0
	}
	if c.Retry.Backoff <= 0 {
		c.Retry.Backoff = defaultBackoff
	}
	if c.Retry.Multiplier < 1 {
		c.Retry.Multiplier = defaultMultiplier
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = defaultTTL
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	return c
}

func (c Config) cluster() *gocql.ClusterConfig {
	cluster := gocql.NewCluster(c.Hosts...)
	cluster.Consistency = gocql.LocalQuorum
	cluster.Keyspace = c.Keyspace
	cluster.Timeout = c.Timeout
	cluster.NumConns = c.ConnsPerHost
	cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: 1}

	if t := c.TLS; t != nil && t.RootCert != "" && t.Cert != "" && t.Key != "" {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 t.RootCert,
			CertPath:               t.Cert,
			KeyPath:                t.Key,
			EnableHostVerification: t.VerifyHost,
		}
	}
	if c.Username != "" && c.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: c.Username,
			Password: c.Password,
		}
	}
	return cluster
}

// Client is a cache.C kept in a single table with native row TTLs.
type Client struct {
	store      dbStore
	logger     *zap.Logger
	defaultTTL int64
}

// New dials the cluster and binds the session, plus a background liveness
// check, to the application lifecycle.
func New(config Config, lc fx.Lifecycle, logger *zap.Logger) (cache.C, error) {
	config = config.withDefaults()
	client, err := Dial(config, logger)
	if err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	go client.keepalive(config.PingInterval, stop)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			close(stop)
			client.Close()
			return nil
		},
	})
	return client, nil
}

// Dial opens a session, retrying with a growing backoff.
func Dial(config Config, logger *zap.Logger) (*Client, error) {
	if len(config.Hosts) == 0 {
		return nil, errNoHosts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()

	var (
		store dbStore
		err   error
		wait  = config.Retry.Backoff
	)
	for attempt := 0; ; attempt++ {
		store, err = connect(config.cluster(), config.Table, logger)
		if err == nil || attempt >= config.Retry.Attempts {
			break
		}
		logger.Warn("cassandra connect failed, retrying",
			zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(err))
		time.Sleep(wait)
		wait *= time.Duration(config.Retry.Multiplier)
	}
	if err != nil {
		return nil, emperror.WrapWith(err, "connecting to cassandra failed", "hosts", config.Hosts)
	}
	return newClient(store, config, logger), nil
}

func newClient(store dbStore, config Config, logger *zap.Logger) *Client {
	config = config.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		store:      store,
		logger:     logger,
		defaultTTL: int64(config.DefaultTTL / time.Second),
	}
}

func (c *Client) keepalive(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.Ping(context.Background()); err != nil {
				c.logger.Error("cassandra ping failed", zap.Error(err))
			}
		}
	}
}

func (c *Client) Match(ctx context.Context, key string) (model.Asset, error) {
	asset, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, errNoDataResponse):
		return model.Asset{}, cache.ErrNotFound
	case err != nil:
		return model.Asset{}, emperror.WrapWith(err, "cassandra get failed", "key", key)
	}
	return asset, nil
}

func (c *Client) Put(ctx context.Context, key string, asset model.Asset) error {
	ttl := asset.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.store.Put(ctx, key, asset, ttl); err != nil {
		return emperror.WrapWith(err, "cassandra put failed", "key", key)
	}
	return nil
}

// Ping reports whether the session is still open.
func (c *Client) Ping(context.Context) error {
	if err := c.store.Ping(); err != nil {
		return emperror.Wrap(err, "cassandra ping failed")
	}
	return nil
}

func (c *Client) Close() {
	c.store.Close()
}
