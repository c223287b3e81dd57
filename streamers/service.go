// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package streamers

import (
	"context"
	"net/http"
	"time"

	"emperror.dev/emperror"
	"emperror.dev/errors"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/xmidt-org/sallust"
	"github.com/xmidt-org/streamdex/cache"
	"github.com/xmidt-org/streamdex/model"
	"github.com/xmidt-org/streamdex/normalize"
	"github.com/xmidt-org/streamdex/notion"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultPhotoProperty is the name of the files property holding a
// streamer's photo.
const DefaultPhotoProperty = "Photo"

// S is the streamer directory as seen by the HTTP handlers.
type S interface {
	// Index returns the published records of the database, in upstream
	// order. Photo URLs are rooted at origin.
	Index(ctx context.Context, origin string) ([]model.Record, error)

	// Photo returns the photo asset for key, from the cache when possible.
	Photo(ctx context.Context, key model.Key) (model.Asset, error)
}

// ServiceConfig holds the collaborators and settings of a Service.
type ServiceConfig struct {
	Reader        notion.Reader
	Cache         cache.C
	Fetcher       Fetcher
	Database      string
	PhotoProperty string
	PhotoTTL      time.Duration
	Measures      Measures
	Logger        *zap.Logger
}

// Service implements S on top of the Notion API and a shared cache.
type Service struct {
	reader        notion.Reader
	cache         cache.C
	fetcher       Fetcher
	database      string
	photoProperty string
	photoTTL      time.Duration
	measures      Measures
	logger        *zap.Logger
	getLogger     func(context.Context) *zap.Logger
	group         singleflight.Group
}

func NewService(config ServiceConfig, getLogger func(context.Context) *zap.Logger) (*Service, error) {
	if config.Reader == nil {
		return nil, errors.New("a notion reader is required")
	}
	if config.Cache == nil {
		return nil, errors.New("a cache is required")
	}
	if config.Fetcher == nil {
		config.Fetcher = HTTPFetcher{}
	}
	if config.PhotoProperty == "" {
		config.PhotoProperty = DefaultPhotoProperty
	}
	if config.Logger == nil {
		config.Logger = sallust.Default()
	}
	if getLogger == nil {
		getLogger = sallust.Get
	}
	return &Service{
		reader:        config.Reader,
		cache:         config.Cache,
		fetcher:       config.Fetcher,
		database:      config.Database,
		photoProperty: config.PhotoProperty,
		photoTTL:      config.PhotoTTL,
		measures:      config.Measures,
		logger:        config.Logger,
		getLogger:     getLogger,
	}, nil
}

func (s *Service) Index(ctx context.Context, origin string) ([]model.Record, error) {
	pages, err := s.reader.QueryDatabase(ctx, s.database)
	if err != nil {
		return nil, emperror.WrapWith(err, "failed to query streamer database", "database", s.database)
	}

	var partial, filtered int
	records := make([]model.Record, 0, len(pages))
	for _, page := range pages {
		full, ok := page.(*notion.FullPage)
		if !ok {
			partial++
			continue
		}

		record, err := normalize.Normalize(full.Properties, s.log(ctx))
		if err != nil {
			return nil, emperror.WrapWith(err, "failed to normalize streamer page", "page", full.ID)
		}
		published, ok := normalize.Publish(record, full.ID, origin)
		if !ok {
			filtered++
			continue
		}
		records = append(records, published)
	}

	s.measures.records(PublishedResult, len(records))
	s.measures.records(FilteredResult, filtered)
	s.measures.records(PartialResult, partial)
	s.log(ctx).Debug("assembled streamer index",
		zap.Int("published", len(records)),
		zap.Int("filtered", filtered),
		zap.Int("partial", partial),
	)
	return records, nil
}

// ResolvePhoto returns the upstream URL of a record's photo. A record that
// doesn't exist, or whose photo property holds no hosted file, resolves to
// ("", false, nil).
func (s *Service) ResolvePhoto(ctx context.Context, recordID string) (string, bool, error) {
	p, err := s.reader.GetPageProperty(ctx, recordID, s.photoProperty)
	if errors.Is(err, notion.ErrObjectNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, emperror.WrapWith(err, "failed to resolve photo", "record", recordID)
	}

	if p.Type != notion.FilesType || len(p.Files) == 0 {
		return "", false, nil
	}
	first := p.Files[0]
	if first.Type != notion.FileHosted {
		return "", false, nil
	}
	u, ok := first.Location()
	return u, ok, nil
}

func (s *Service) Photo(ctx context.Context, key model.Key) (model.Asset, error) {
	cacheKey := key.CacheKey()

	asset, err := s.cache.Match(ctx, cacheKey)
	switch {
	case err == nil:
		s.measures.lookup(HitResult)
		return asset, nil
	case errors.Is(err, cache.ErrNotFound):
		s.measures.lookup(MissResult)
	default:
		s.measures.lookup(ErrorResult)
		s.log(ctx).Warn("photo cache lookup failed, treating as a miss",
			zap.String("key", cacheKey), zap.Error(err))
	}

	// The first caller's cancellation must not fail everyone sharing the load.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(cacheKey, func() (interface{}, error) {
		return s.load(loadCtx, key)
	})
	if err != nil {
		return model.Asset{}, err
	}
	return v.(model.Asset), nil
}

func (s *Service) load(ctx context.Context, key model.Key) (model.Asset, error) {
	if _, err := uuid.Parse(key.RecordID); err != nil {
		return model.Asset{}, errors.WithDetails(ErrPhotoNotFound, "record", key.RecordID)
	}

	u, ok, err := s.ResolvePhoto(ctx, key.RecordID)
	if err != nil {
		return model.Asset{}, err
	}
	if !ok {
		return model.Asset{}, errors.WithDetails(ErrPhotoNotFound, "record", key.RecordID)
	}

	asset, err := s.fetcher.Fetch(ctx, u)
	if err != nil {
		return model.Asset{}, emperror.WrapWith(err, "failed to fetch photo", "record", key.RecordID)
	}
	if asset.StatusCode != http.StatusOK {
		s.log(ctx).Info("photo host responded with non-200 response, not caching",
			zap.String("record", key.RecordID), zap.Int("code", asset.StatusCode))
		return asset, nil
	}

	asset.TTL = int64(s.photoTTL.Seconds())
	cacheKey := key.CacheKey()
	if err := s.cache.Put(ctx, cacheKey, asset); err != nil {
		s.log(ctx).Warn("failed to cache photo",
			zap.String("key", cacheKey),
			zap.String("size", humanize.IBytes(uint64(len(asset.Body)))),
			zap.Error(err))
		return asset, nil
	}
	s.log(ctx).Debug("cached photo",
		zap.String("key", cacheKey),
		zap.String("size", humanize.IBytes(uint64(len(asset.Body)))),
		zap.Duration("ttl", s.photoTTL))
	return asset, nil
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	if l := s.getLogger(ctx); l != nil {
		return l
	}
	return s.logger
}
