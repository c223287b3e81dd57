// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package notion

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xmidt-org/arrange"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config is the notion section of the configuration file.
type Config struct {
	Address string `validate:"omitempty,url"`
	Version string
	APIKey  string `validate:"required"`
	Timeout time.Duration
}

type ClientIn struct {
	fx.In
	Config   Config
	Measures Measures
	Logger   *zap.Logger
}

// Provide unmarshals the notion configuration and builds the client shared by
// the index and photo operations.
func Provide(configKey string) fx.Option {
	return fx.Provide(
		arrange.UnmarshalKey(configKey, Config{}),
		NewClient,
		func(c *BasicClient) Reader { return c },
	)
}

func NewClient(in ClientIn) (*BasicClient, error) {
	if err := validator.New().Struct(in.Config); err != nil {
		return nil, err
	}
	return NewBasicClient(BasicClientConfig{
		Address:  in.Config.Address,
		Version:  in.Config.Version,
		APIKey:   in.Config.APIKey,
		Timeout:  in.Config.Timeout,
		Logger:   in.Logger,
		Requests: in.Measures.Requests,
	}, nil)
}
