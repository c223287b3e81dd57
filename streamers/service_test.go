// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package streamers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/streamdex/cache"
	"github.com/xmidt-org/streamdex/cache/inmem"
	"github.com/xmidt-org/streamdex/model"
	"github.com/xmidt-org/streamdex/normalize"
	"github.com/xmidt-org/streamdex/notion"
	"go.uber.org/zap"
)

const (
	testDatabase = "db-1"
	testOrigin   = "https://x.test"
	janeID       = "7f1b1c7e-3b9a-4b6e-9f1e-2f1c1f7a9d01"
	johnID       = "0c6a39d4-1f38-4f7e-8d8c-52f0e3b6a7aa"
	photoURL     = "https://files.notion.test/secure/pic.png?sig=abc"
)

var errUpstream = errors.New("upstream failure")

func boolPtr(b bool) *bool { return &b }

func text(s string) []notion.RichText {
	return []notion.RichText{{PlainText: s}}
}

func newMeasures() Measures {
	return Measures{
		PhotoLookups: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_lookups"}, []string{ResultLabel}),
		Records:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_records"}, []string{ResultLabel}),
	}
}

func counterValue(t *testing.T, cv *prometheus.CounterVec, result string) float64 {
	var m dto.Metric
	require.NoError(t, cv.With(prometheus.Labels{ResultLabel: result}).Write(&m))
	return m.GetCounter().GetValue()
}

func newTestService(t *testing.T, r notion.Reader, c cache.C, f Fetcher, measures Measures) *Service {
	s, err := NewService(ServiceConfig{
		Reader:   r,
		Cache:    c,
		Fetcher:  f,
		Database: testDatabase,
		PhotoTTL: 24 * time.Hour,
		Measures: measures,
		Logger:   zap.NewNop(),
	}, nil)
	require.NoError(t, err)
	return s
}

func janePage() *notion.FullPage {
	return &notion.FullPage{
		ID: janeID,
		Properties: map[string]notion.Property{
			"Name":    {Type: notion.TitleType, Title: text("Jane Doe")},
			"Publish": {Type: notion.CheckboxType, Checkbox: boolPtr(true)},
			"Photo": {Type: notion.FilesType, Files: []notion.File{
				{Name: "pic.png", Type: notion.FileHosted, File: &notion.FileRef{URL: photoURL}},
			}},
		},
	}
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(ServiceConfig{Cache: new(mockCache)}, nil)
	assert.Error(t, err)

	_, err = NewService(ServiceConfig{Reader: new(mockReader)}, nil)
	assert.Error(t, err)

	s, err := NewService(ServiceConfig{Reader: new(mockReader), Cache: new(mockCache)}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPhotoProperty, s.photoProperty)
	assert.IsType(t, HTTPFetcher{}, s.fetcher)
}

func TestIndex(t *testing.T) {
	var (
		assert   = assert.New(t)
		require  = require.New(t)
		reader   = new(mockReader)
		measures = newMeasures()
	)

	reader.On("QueryDatabase", mock.Anything, testDatabase).Return([]notion.Page{
		janePage(),
		&notion.PartialPage{ID: "partial"},
		&notion.FullPage{ID: "draft", Properties: map[string]notion.Property{
			"Name":    {Type: notion.TitleType, Title: text("Draft")},
			"Publish": {Type: notion.CheckboxType, Checkbox: boolPtr(false)},
		}},
		&notion.FullPage{ID: johnID, Properties: map[string]notion.Property{
			"Name":    {Type: notion.TitleType, Title: text("John Roe")},
			"Publish": {Type: notion.CheckboxType, Checkbox: boolPtr(true)},
			"CashApp": {Type: notion.URLType, URL: func() *string { s := "$john"; return &s }()},
		}},
	}, nil)

	s := newTestService(t, reader, new(mockCache), new(mockFetcher), measures)
	records, err := s.Index(context.Background(), testOrigin)
	require.NoError(err)
	require.Len(records, 2)

	assert.Equal(model.Record{
		"name":    "Jane Doe",
		"publish": true,
		"slug":    "jane-doe",
		"photo":   testOrigin + "/streamers/" + janeID + "/pic.png",
	}, records[0])
	assert.Equal(model.Record{
		"name":    "John Roe",
		"publish": true,
		"cashapp": "$john",
		"slug":    "john-roe",
		"photo":   nil,
	}, records[1])

	assert.Equal(float64(2), counterValue(t, measures.Records, PublishedResult))
	assert.Equal(float64(1), counterValue(t, measures.Records, FilteredResult))
	assert.Equal(float64(1), counterValue(t, measures.Records, PartialResult))
	reader.AssertExpectations(t)
}

func TestIndexEmpty(t *testing.T) {
	reader := new(mockReader)
	reader.On("QueryDatabase", mock.Anything, testDatabase).Return([]notion.Page{}, nil)

	s := newTestService(t, reader, new(mockCache), new(mockFetcher), Measures{})
	records, err := s.Index(context.Background(), testOrigin)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestIndexErrors(t *testing.T) {
	tcs := []struct {
		Description string
		Pages       []notion.Page
		QueryErr    error
		ExpectedErr error
	}{
		{
			Description: "Query failure",
			QueryErr:    fmt.Errorf("%w: 401", notion.ErrFailedAuthentication),
			ExpectedErr: notion.ErrFailedAuthentication,
		},
		{
			Description: "Malformed property",
			Pages: []notion.Page{
				janePage(),
				&notion.FullPage{ID: "bad", Properties: map[string]notion.Property{
					"Publish": {Type: notion.CheckboxType},
				}},
			},
			ExpectedErr: normalize.ErrMalformedProperty,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			reader := new(mockReader)
			reader.On("QueryDatabase", mock.Anything, testDatabase).Return(tc.Pages, tc.QueryErr)

			s := newTestService(t, reader, new(mockCache), new(mockFetcher), Measures{})
			records, err := s.Index(context.Background(), testOrigin)
			assert.Nil(t, records)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.ExpectedErr), "expected %v, got %v", tc.ExpectedErr, err)
		})
	}
}

func TestResolvePhoto(t *testing.T) {
	tcs := []struct {
		Description string
		Property    notion.Property
		Err         error
		ExpectedURL string
		ExpectedOK  bool
		ExpectedErr bool
	}{
		{
			Description: "Hosted file",
			Property: notion.Property{Type: notion.FilesType, Files: []notion.File{
				{Name: "pic.png", Type: notion.FileHosted, File: &notion.FileRef{URL: photoURL}},
				{Name: "alt.png", Type: notion.FileHosted, File: &notion.FileRef{URL: "https://other"}},
			}},
			ExpectedURL: photoURL,
			ExpectedOK:  true,
		},
		{
			Description: "Page not found",
			Err:         fmt.Errorf("%w: 404", notion.ErrObjectNotFound),
		},
		{
			Description: "Other failure",
			Err:         errUpstream,
			ExpectedErr: true,
		},
		{
			Description: "Not a files property",
			Property:    notion.Property{Type: notion.RichTextType, RichText: text("pic.png")},
		},
		{
			Description: "No files",
			Property:    notion.Property{Type: notion.FilesType, Files: []notion.File{}},
		},
		{
			Description: "External file",
			Property: notion.Property{Type: notion.FilesType, Files: []notion.File{
				{Name: "pic.png", Type: notion.FileExternal, External: &notion.FileRef{URL: "https://cdn/pic.png"}},
			}},
		},
		{
			Description: "Hosted file without payload",
			Property: notion.Property{Type: notion.FilesType, Files: []notion.File{
				{Name: "pic.png", Type: notion.FileHosted},
			}},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			reader := new(mockReader)
			reader.On("GetPageProperty", mock.Anything, janeID, DefaultPhotoProperty).Return(tc.Property, tc.Err).Once()

			s := newTestService(t, reader, new(mockCache), new(mockFetcher), Measures{})
			u, ok, err := s.ResolvePhoto(context.Background(), janeID)
			if tc.ExpectedErr {
				assert.True(errors.Is(err, tc.Err))
			} else {
				assert.NoError(err)
			}
			assert.Equal(tc.ExpectedOK, ok)
			assert.Equal(tc.ExpectedURL, u)
			reader.AssertNumberOfCalls(t, "GetPageProperty", 1)
		})
	}
}

func TestPhotoHit(t *testing.T) {
	var (
		assert   = assert.New(t)
		reader   = new(mockReader)
		c        = new(mockCache)
		fetcher  = new(mockFetcher)
		measures = newMeasures()
		key      = model.Key{RecordID: janeID, AssetPath: "pic.png"}
		cached   = model.Asset{StatusCode: http.StatusOK, Body: []byte("png")}
	)
	c.On("Match", mock.Anything, "https://photo/"+janeID+"/pic.png").Return(cached, nil)

	s := newTestService(t, reader, c, fetcher, measures)
	asset, err := s.Photo(context.Background(), key)
	assert.NoError(err)
	assert.Equal(cached, asset)

	reader.AssertNotCalled(t, "GetPageProperty", mock.Anything, mock.Anything, mock.Anything)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	c.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(float64(1), counterValue(t, measures.PhotoLookups, HitResult))
}

func TestPhotoMissUnresolvable(t *testing.T) {
	var (
		assert  = assert.New(t)
		reader  = new(mockReader)
		c       = new(mockCache)
		fetcher = new(mockFetcher)
		key     = model.Key{RecordID: janeID, AssetPath: "pic.png"}
	)
	c.On("Match", mock.Anything, key.CacheKey()).Return(model.Asset{}, cache.ErrNotFound)
	reader.On("GetPageProperty", mock.Anything, janeID, DefaultPhotoProperty).
		Return(notion.Property{}, fmt.Errorf("%w: 404", notion.ErrObjectNotFound))

	s := newTestService(t, reader, c, fetcher, Measures{})
	asset, err := s.Photo(context.Background(), key)
	assert.True(errors.Is(err, ErrPhotoNotFound))
	assert.Equal(http.StatusNotFound, statusCode(err))
	assert.Equal(model.Asset{}, asset)

	reader.AssertNumberOfCalls(t, "GetPageProperty", 1)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	c.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestPhotoInvalidRecordID(t *testing.T) {
	reader := new(mockReader)
	c := new(mockCache)
	key := model.Key{RecordID: "not-a-page", AssetPath: "pic.png"}
	c.On("Match", mock.Anything, key.CacheKey()).Return(model.Asset{}, cache.ErrNotFound)

	s := newTestService(t, reader, c, new(mockFetcher), Measures{})
	_, err := s.Photo(context.Background(), key)
	assert.True(t, errors.Is(err, ErrPhotoNotFound))
	reader.AssertNotCalled(t, "GetPageProperty", mock.Anything, mock.Anything, mock.Anything)
}

func TestPhotoMiss(t *testing.T) {
	fetched := model.Asset{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"image/png"}},
		Body:       []byte("png"),
	}

	tcs := []struct {
		Description   string
		MatchErr      error
		Fetched       model.Asset
		FetchErr      error
		PutErr        error
		ExpectPut     bool
		ExpectedErr   error
		ExpectedAsset model.Asset
		ExpectedLabel string
	}{
		{
			Description:   "Write through",
			MatchErr:      cache.ErrNotFound,
			Fetched:       fetched,
			ExpectPut:     true,
			ExpectedAsset: model.Asset{StatusCode: fetched.StatusCode, Header: fetched.Header, Body: fetched.Body, TTL: 86400},
			ExpectedLabel: MissResult,
		},
		{
			Description:   "Cache lookup failure is a miss",
			MatchErr:      errors.New("connection refused"),
			Fetched:       fetched,
			ExpectPut:     true,
			ExpectedAsset: model.Asset{StatusCode: fetched.StatusCode, Header: fetched.Header, Body: fetched.Body, TTL: 86400},
			ExpectedLabel: ErrorResult,
		},
		{
			Description:   "Put failure is not surfaced",
			MatchErr:      cache.ErrNotFound,
			Fetched:       fetched,
			PutErr:        cache.ErrEntryTooLarge,
			ExpectPut:     true,
			ExpectedAsset: model.Asset{StatusCode: fetched.StatusCode, Header: fetched.Header, Body: fetched.Body, TTL: 86400},
			ExpectedLabel: MissResult,
		},
		{
			Description:   "Non-200 passed through uncached",
			MatchErr:      cache.ErrNotFound,
			Fetched:       model.Asset{StatusCode: http.StatusForbidden, Body: []byte("expired")},
			ExpectedAsset: model.Asset{StatusCode: http.StatusForbidden, Body: []byte("expired")},
			ExpectedLabel: MissResult,
		},
		{
			Description:   "Fetch failure",
			MatchErr:      cache.ErrNotFound,
			FetchErr:      errUpstream,
			ExpectedErr:   errUpstream,
			ExpectedLabel: MissResult,
		},
		{
			Description:   "Asset too large",
			MatchErr:      cache.ErrNotFound,
			FetchErr:      ErrAssetTooLarge,
			ExpectedErr:   ErrAssetTooLarge,
			ExpectedLabel: MissResult,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			var (
				assert   = assert.New(t)
				reader   = new(mockReader)
				c        = new(mockCache)
				fetcher  = new(mockFetcher)
				measures = newMeasures()
				key      = model.Key{RecordID: janeID, AssetPath: "pic.png"}
			)
			c.On("Match", mock.Anything, key.CacheKey()).Return(model.Asset{}, tc.MatchErr)
			reader.On("GetPageProperty", mock.Anything, janeID, DefaultPhotoProperty).Return(janePage().Properties["Photo"], nil)
			fetcher.On("Fetch", mock.Anything, photoURL).Return(tc.Fetched, tc.FetchErr)
			if tc.ExpectPut {
				c.On("Put", mock.Anything, key.CacheKey(), tc.ExpectedAsset).Return(tc.PutErr).Once()
			}

			s := newTestService(t, reader, c, fetcher, measures)
			asset, err := s.Photo(context.Background(), key)
			if tc.ExpectedErr != nil {
				assert.True(errors.Is(err, tc.ExpectedErr))
			} else {
				assert.NoError(err)
				assert.Equal(tc.ExpectedAsset, asset)
			}

			if tc.ExpectPut {
				c.AssertExpectations(t)
			} else {
				c.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
			}
			fetcher.AssertNumberOfCalls(t, "Fetch", 1)
			assert.Equal(float64(1), counterValue(t, measures.PhotoLookups, tc.ExpectedLabel))
		})
	}
}

// matchSignal reports every Match on a channel.
type matchSignal struct {
	cache.C
	matched chan struct{}
}

func (m matchSignal) Match(ctx context.Context, key string) (model.Asset, error) {
	a, err := m.C.Match(ctx, key)
	m.matched <- struct{}{}
	return a, err
}

// blockingFetcher counts fetches and holds them until released.
type blockingFetcher struct {
	calls   int32
	release chan struct{}
}

func (b *blockingFetcher) Fetch(ctx context.Context, url string) (model.Asset, error) {
	atomic.AddInt32(&b.calls, 1)
	<-b.release
	return model.Asset{StatusCode: http.StatusOK, Body: []byte("png")}, nil
}

func TestPhotoConcurrentMissesShareOneLoad(t *testing.T) {
	const callers = 8

	var (
		reader  = new(mockReader)
		fetcher = &blockingFetcher{release: make(chan struct{})}
		c       = matchSignal{C: inmem.NewInMem(inmem.Config{}), matched: make(chan struct{}, callers)}
		key     = model.Key{RecordID: janeID, AssetPath: "pic.png"}
		wg      sync.WaitGroup
	)
	reader.On("GetPageProperty", mock.Anything, janeID, DefaultPhotoProperty).Return(janePage().Properties["Photo"], nil)

	s := newTestService(t, reader, c, fetcher, Measures{})
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Photo(context.Background(), key)
			errs <- err
		}()
	}

	for i := 0; i < callers; i++ {
		<-c.matched
	}
	time.Sleep(100 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	reader.AssertNumberOfCalls(t, "GetPageProperty", 1)

	asset, err := c.C.Match(context.Background(), key.CacheKey())
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), asset.Body)
}
