// Package api is a thin client for the KeepVault backup API, covering the
// calls the onboarding flow makes.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/keepvault/onboard/internal/logger"
)

// ErrUnauthorized is returned when the API rejects the credentials.
var ErrUnauthorized = errors.New("unauthorized")

// DefaultTimeout bounds every API request.
const DefaultTimeout = 15 * time.Second

// Client calls the backup API.
type Client struct {
	httpClient *resty.Client
}

// DataSource is one backup-able resource on a connected platform.
type DataSource struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

type listDataSourcesResponse struct {
	DataSources []DataSource `json:"data_sources"`
}

// CreateSourceRequest creates a backup source.
type CreateSourceRequest struct {
	Name          string   `json:"name"`
	Platform      string   `json:"platform"`
	AccessToken   string   `json:"access_token"`
	RefreshToken  string   `json:"refresh_token,omitempty"`
	DataSourceIDs []string `json:"data_source_ids"`
	Schedule      string   `json:"schedule"`
	RetentionDays int      `json:"retention_days"`
	Encrypted     bool     `json:"encrypted"`
}

// Source is a created backup source.
type Source struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Platform      string    `json:"platform"`
	Schedule      string    `json:"schedule"`
	RetentionDays int       `json:"retention_days"`
	Encrypted     bool      `json:"encrypted"`
	CreatedAt     time.Time `json:"created_at"`
}

// Error is a non-2xx API response.
type Error struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (%d)", e.StatusCode)
	}
	return e.Message
}

// Option configures a Client.
type Option func(*resty.Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// NewClient returns a client for baseURL authenticated with an API token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("User-Agent", "keepvault-onboard/1.0").
		SetHeader("Accept", "application/json").
		SetTimeout(DefaultTimeout)
	if token != "" {
		httpClient.SetAuthToken(token)
	}
	for _, opt := range opts {
		opt(httpClient)
	}

	return &Client{httpClient: httpClient}
}

// ListDataSources returns the resources available on a connected platform.
func (c *Client) ListDataSources(ctx context.Context, platform, accessToken string) ([]DataSource, error) {
	var result listDataSourcesResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Platform-Token", accessToken).
		SetResult(&result).
		SetError(&Error{}).
		Get("/v1/platforms/" + url.PathEscape(platform) + "/data-sources")
	if err != nil {
		return nil, fmt.Errorf("listing data sources: %w", err)
	}
	if err := responseError(resp); err != nil {
		return nil, err
	}

	logger.Debug("Listed %d data sources for %s", len(result.DataSources), platform)
	return result.DataSources, nil
}

// CreateSource creates a backup source. The idempotency key makes a retried
// request after an ambiguous failure safe.
func (c *Client) CreateSource(ctx context.Context, req CreateSourceRequest, idempotencyKey string) (*Source, error) {
	var source Source
	r := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&source).
		SetError(&Error{})
	if idempotencyKey != "" {
		r.SetHeader("Idempotency-Key", idempotencyKey)
	}

	resp, err := r.Post("/v1/sources")
	if err != nil {
		return nil, fmt.Errorf("creating source: %w", err)
	}
	if err := responseError(resp); err != nil {
		return nil, err
	}

	logger.Info("Created backup source %s (%s)", source.ID, source.Name)
	return &source, nil
}

func responseError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}

	apiErr, _ := resp.Error().(*Error)
	if apiErr == nil {
		apiErr = &Error{}
	}
	apiErr.StatusCode = resp.StatusCode()
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(resp.String())
	}
	logger.Warn("API %s %s returned %d: %s", resp.Request.Method, resp.Request.URL, resp.StatusCode(), apiErr.Message)
	return apiErr
}
