// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"emperror.dev/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/bascule/acquire"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// Errors that can be returned by this package. Since some of these errors are returned wrapped, it
// is safest to use errors.Is() to check for them.
const (
	ErrAPIKeyEmpty          = errors.Sentinel("notion api key is required")
	ErrDatabaseEmpty        = errors.Sentinel("database ID is required")
	ErrPageIDEmpty          = errors.Sentinel("page ID is required")
	ErrPropertyEmpty        = errors.Sentinel("property name is required")
	ErrAuthAcquirerFailure  = errors.Sentinel("failed acquiring auth token")
	ErrFailedAuthentication = errors.Sentinel("failed to authenticate with notion")
	ErrBadRequest           = errors.Sentinel("notion rejected the request as invalid")
	ErrObjectNotFound       = errors.Sentinel("notion object not found")
	ErrRateLimited          = errors.Sentinel("notion rate limited the request")
)

const (
	errNonSuccessResponse = errors.Sentinel("notion responded with a non-success status code")
	errNewRequestFailure  = errors.Sentinel("failed creating an HTTP request")
	errDoRequestFailure   = errors.Sentinel("http client failed while sending request")
	errReadingBodyFailure = errors.Sentinel("failed while reading http response body")
	errJSONUnmarshal      = errors.Sentinel("failed unmarshaling JSON response payload")
	errJSONMarshal        = errors.Sentinel("failed marshaling JSON request payload")
)

const (
	DefaultAddress = "https://api.notion.com"
	DefaultVersion = "2022-06-28"

	apiPath          = "/v1"
	versionHeaderKey = "Notion-Version"
	errWrappedFmt    = "%w: %s"
	errStatusCodeFmt = "%w: received status %v"
	errorCodeKey     = "errorCode"

	// pageSize is the largest page the query API hands out.
	pageSize = 100
)

// upstream error codes worth translating
const (
	objectNotFoundCode = "object_not_found"
	rateLimitedCode    = "rate_limited"
	unauthorizedCode   = "unauthorized"
	restrictedCode     = "restricted_resource"
)

// BasicClientConfig contains config data for the client that will be used to
// make requests to the Notion API.
type BasicClientConfig struct {
	// Address is the Notion API URL.
	// (Optional) Defaults to https://api.notion.com.
	Address string

	// Version is sent in the Notion-Version header.
	// (Optional) Defaults to 2022-06-28.
	Version string

	// APIKey is the integration secret used as a bearer token.
	APIKey string `validate:"required"`

	// Timeout bounds each upstream request. Zero leaves the HTTP client's
	// own behavior in place.
	Timeout time.Duration

	// HTTPClient refers to the client that will be used to send requests.
	// (Optional) Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger to be used by the client.
	// (Optional). By default a no op logger will be used.
	Logger *zap.Logger

	// Requests counts upstream calls by operation and outcome.
	// (Optional)
	Requests *prometheus.CounterVec
}

// BasicClient is the client used to make requests to the Notion API.
type BasicClient struct {
	client    *http.Client
	auth      acquire.Acquirer
	baseURL   string
	version   string
	logger    *zap.Logger
	requests  *prometheus.CounterVec
	getLogger func(context.Context) *zap.Logger
}

type response struct {
	Body      []byte
	ErrorCode string
	Code      int
}

// errorBody is the error object returned by the API on failures.
type errorBody struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewBasicClient creates a new BasicClient that can be used to
// make requests to the Notion API.
func NewBasicClient(config BasicClientConfig, getLogger func(context.Context) *zap.Logger) (*BasicClient, error) {
	err := validateBasicConfig(&config)
	if err != nil {
		return nil, err
	}
	if getLogger == nil {
		getLogger = sallust.Get
	}

	tokenAcquirer, err := acquire.NewFixedAuthAcquirer("Bearer " + config.APIKey)
	if err != nil {
		return nil, fmt.Errorf(errWrappedFmt, ErrAuthAcquirerFailure, err.Error())
	}

	return &BasicClient{
		client:    config.HTTPClient,
		auth:      tokenAcquirer,
		baseURL:   config.Address + apiPath,
		version:   config.Version,
		logger:    config.Logger,
		requests:  config.Requests,
		getLogger: getLogger,
	}, nil
}

type queryRequest struct {
	PageSize    int    `json:"page_size"`
	StartCursor string `json:"start_cursor,omitempty"`
}

type queryResponse struct {
	Results    []json.RawMessage `json:"results"`
	HasMore    bool              `json:"has_more"`
	NextCursor *string           `json:"next_cursor"`
}

// QueryDatabase fetches every page of the given database, following the
// pagination cursor until the API reports there is nothing left. Pages are
// returned in the order the API produced them.
func (c *BasicClient) QueryDatabase(ctx context.Context, databaseID string) ([]Page, error) {
	if len(databaseID) < 1 {
		return nil, ErrDatabaseEmpty
	}

	var (
		pages  []Page
		cursor string
	)
	for {
		batch, next, err := c.queryOnce(ctx, databaseID, cursor)
		if err != nil {
			return nil, err
		}
		pages = append(pages, batch...)
		if len(next) < 1 {
			return pages, nil
		}
		cursor = next
	}
}

func (c *BasicClient) queryOnce(ctx context.Context, databaseID, cursor string) ([]Page, string, error) {
	data, err := json.Marshal(queryRequest{PageSize: pageSize, StartCursor: cursor})
	if err != nil {
		return nil, "", fmt.Errorf(errWrappedFmt, errJSONMarshal, err.Error())
	}

	resp, err := c.sendRequest(ctx, http.MethodPost,
		fmt.Sprintf("%s/databases/%s/query", c.baseURL, url.PathEscape(databaseID)), bytes.NewReader(data))
	c.observe(queryOperation, resp, err)
	if err != nil {
		return nil, "", err
	}

	if resp.Code != http.StatusOK {
		c.logNonSuccess(ctx, "Notion responded with non-200 response for QueryDatabase request", resp)
		return nil, "", fmt.Errorf(errStatusCodeFmt, translateNonSuccessResponse(resp), resp.Code)
	}

	var qr queryResponse
	err = json.Unmarshal(resp.Body, &qr)
	if err != nil {
		return nil, "", fmt.Errorf("QueryDatabase: %w: %s", errJSONUnmarshal, err.Error())
	}

	pages := make([]Page, 0, len(qr.Results))
	for _, raw := range qr.Results {
		p, err := decodePage(raw)
		if err != nil {
			return nil, "", fmt.Errorf("QueryDatabase: %w: %s", errJSONUnmarshal, err.Error())
		}
		pages = append(pages, p)
	}

	var next string
	if qr.HasMore && qr.NextCursor != nil {
		next = *qr.NextCursor
	}
	return pages, next, nil
}

// GetPageProperty retrieves a single property of a page. The property may be
// addressed by its ID or by its name.
func (c *BasicClient) GetPageProperty(ctx context.Context, pageID, property string) (Property, error) {
	if len(pageID) < 1 {
		return Property{}, ErrPageIDEmpty
	}
	if len(property) < 1 {
		return Property{}, ErrPropertyEmpty
	}

	resp, err := c.sendRequest(ctx, http.MethodGet,
		fmt.Sprintf("%s/pages/%s/properties/%s", c.baseURL, url.PathEscape(pageID), url.PathEscape(property)), nil)
	c.observe(propertyOperation, resp, err)
	if err != nil {
		return Property{}, err
	}

	if resp.Code != http.StatusOK {
		if resp.ErrorCode != objectNotFoundCode {
			c.logNonSuccess(ctx, "Notion responded with non-200 response for GetPageProperty request", resp)
		}
		return Property{}, fmt.Errorf(errStatusCodeFmt, translateNonSuccessResponse(resp), resp.Code)
	}

	var item propertyItem
	err = json.Unmarshal(resp.Body, &item)
	if err != nil {
		return Property{}, fmt.Errorf("GetPageProperty: %w: %s", errJSONUnmarshal, err.Error())
	}
	return item.property(), nil
}

func (c *BasicClient) sendRequest(ctx context.Context, method, target string, body io.Reader) (response, error) {
	r, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return response{}, fmt.Errorf(errWrappedFmt, errNewRequestFailure, err.Error())
	}
	err = acquire.AddAuth(r, c.auth)
	if err != nil {
		return response{}, fmt.Errorf(errWrappedFmt, ErrAuthAcquirerFailure, err.Error())
	}
	r.Header.Set(versionHeaderKey, c.version)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(r)
	if err != nil {
		return response{}, fmt.Errorf(errWrappedFmt, errDoRequestFailure, err.Error())
	}
	defer resp.Body.Close()

	var sqResp = response{
		Code: resp.StatusCode,
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return sqResp, fmt.Errorf(errWrappedFmt, errReadingBodyFailure, err.Error())
	}
	sqResp.Body = bodyBytes
	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if json.Unmarshal(bodyBytes, &eb) == nil {
			sqResp.ErrorCode = eb.Code
		}
	}
	return sqResp, nil
}

func (c *BasicClient) logNonSuccess(ctx context.Context, msg string, resp response) {
	l := c.getLogger(ctx)
	if l == nil {
		l = c.logger
	}
	l.Error(msg, zap.Int("code", resp.Code), zap.String(errorCodeKey, resp.ErrorCode))
}

func (c *BasicClient) observe(operation string, resp response, err error) {
	if c.requests == nil {
		return
	}
	outcome := SuccessOutcome
	if err != nil || resp.Code != http.StatusOK {
		outcome = FailureOutcome
	}
	c.requests.With(prometheus.Labels{OperationLabel: operation, OutcomeLabel: outcome}).Inc()
}

// translateNonSuccessResponse returns as specific error
// for known Notion status and error codes.
func translateNonSuccessResponse(resp response) error {
	switch resp.ErrorCode {
	case objectNotFoundCode:
		return ErrObjectNotFound
	case rateLimitedCode:
		return ErrRateLimited
	case unauthorizedCode, restrictedCode:
		return ErrFailedAuthentication
	}

	switch resp.Code {
	case http.StatusNotFound:
		return ErrObjectNotFound
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrFailedAuthentication
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return errNonSuccessResponse
	}
}

func validateBasicConfig(config *BasicClientConfig) error {
	if config.Address == "" {
		config.Address = DefaultAddress
	}

	if config.APIKey == "" {
		return ErrAPIKeyEmpty
	}

	if config.Version == "" {
		config.Version = DefaultVersion
	}

	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	if config.Timeout > 0 && config.HTTPClient.Timeout == 0 {
		client := *config.HTTPClient
		client.Timeout = config.Timeout
		config.HTTPClient = &client
	}

	if config.Logger == nil {
		config.Logger = sallust.Default()
	}
	return nil
}
