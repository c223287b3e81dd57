// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package streamers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/streamdex/cache"
	"github.com/xmidt-org/streamdex/notion"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Defaults applied to unset configuration values.
const (
	DefaultIndexTTL     = 5 * time.Minute
	DefaultPhotoTTL     = 24 * time.Hour
	DefaultFetchTimeout = 30 * time.Second
)

// IndexConfig is the index section of the configuration file.
type IndexConfig struct {
	// Database is the id of the streamer database.
	Database string `validate:"required"`

	// TTL is advertised to clients through Cache-Control. Zero is honored;
	// leaving it out applies DefaultIndexTTL.
	TTL *time.Duration `validate:"omitempty,min=0"`

	// Origin overrides the scheme and host of photo URLs.
	Origin string `validate:"omitempty,url"`

	// TrustForwardedHeaders derives photo URLs from X-Forwarded-Proto and
	// X-Forwarded-Host. Enable it only behind a proxy that sets both.
	TrustForwardedHeaders bool

	// PhotoProperty names the files property holding the photo.
	PhotoProperty string
}

// PhotosConfig is the photos section of the configuration file.
type PhotosConfig struct {
	TTL     time.Duration `validate:"min=0"`
	MaxSize int64         `validate:"min=0"`
	Timeout time.Duration `validate:"min=0"`
}

type ServiceIn struct {
	fx.In
	Index    IndexConfig
	Photos   PhotosConfig
	Reader   notion.Reader
	Cache    cache.C
	Measures Measures
	Logger   *zap.Logger
}

type handlerIn struct {
	fx.In
	Service S
	Config  *transportConfig
	Logger  *zap.Logger
}

// Provide unmarshals the index and photo configuration and builds the two
// streamer handlers.
func Provide(indexKey, photosKey string) fx.Option {
	return fx.Options(
		ProvideMetrics(),
		fx.Provide(
			arrange.UnmarshalKey(indexKey, IndexConfig{}),
			arrange.UnmarshalKey(photosKey, PhotosConfig{}),
			NewServiceFromConfig,
			func(s *Service) S { return s },
			newTransportConfig,
			fx.Annotated{
				Name:   "index_handler",
				Target: newIndexHandler,
			},
			fx.Annotated{
				Name:   "photo_handler",
				Target: newPhotoHandler,
			},
		),
	)
}

func NewServiceFromConfig(in ServiceIn) (*Service, error) {
	validate := validator.New()
	if err := validate.Struct(in.Index); err != nil {
		return nil, err
	}
	if err := validate.Struct(in.Photos); err != nil {
		return nil, err
	}

	photoTTL := in.Photos.TTL
	if photoTTL == 0 {
		photoTTL = DefaultPhotoTTL
	}
	timeout := in.Photos.Timeout
	if timeout == 0 {
		timeout = DefaultFetchTimeout
	}

	return NewService(ServiceConfig{
		Reader: in.Reader,
		Cache:  in.Cache,
		Fetcher: HTTPFetcher{
			Client:  &http.Client{Timeout: timeout},
			MaxSize: in.Photos.MaxSize,
		},
		Database:      in.Index.Database,
		PhotoProperty: in.Index.PhotoProperty,
		PhotoTTL:      photoTTL,
		Measures:      in.Measures,
		Logger:        in.Logger,
	}, nil)
}

func newTransportConfig(index IndexConfig) *transportConfig {
	ttl := DefaultIndexTTL
	if index.TTL != nil {
		ttl = *index.TTL
	}
	return &transportConfig{
		Origin:                index.Origin,
		TrustForwardedHeaders: index.TrustForwardedHeaders,
		IndexTTL:              ttl,
	}
}
