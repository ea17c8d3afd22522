// Package client provides the VK API transport and the retrying caller
// built on top of it.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for VK API calls.
var (
	vkRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_requests_total",
		Help: "Total VK API calls by method and status",
	}, []string{"method", "status"})

	vkRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vk_request_duration_seconds",
		Help:    "VK API call duration in seconds by method",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method"})
)

// Caller performs one remote operation.
type Caller interface {
	Call(ctx context.Context, op Operation) (*PageResponse, error)
}

// Config holds the transport configuration.
type Config struct {
	// BaseURL is the method root, e.g. "https://api.vk.com/method/".
	BaseURL string

	// APIVersion is sent as the "v" parameter on every call.
	APIVersion string

	// AccessToken is sent as a bearer token (REQUIRED).
	AccessToken string

	// Timeout bounds each HTTP call; expiry is a transient failure.
	Timeout time.Duration
}

// DefaultConfig returns the production transport configuration.
func DefaultConfig(accessToken string) Config {
	return Config{
		BaseURL:     "https://api.vk.com/method/",
		APIVersion:  "5.131",
		AccessToken: accessToken,
		Timeout:     5 * time.Second,
	}
}

// Client performs single, unretried VK API calls.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a new VK client.
func New(cfg Config) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("api version is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %v)", cfg.Timeout)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		config:     cfg,
		logger:     log.With().Str("component", "client").Logger(),
	}, nil
}

// Call issues op once and decodes the VK envelope. A VK error envelope is
// returned as *APIError, a non-2xx status as *HTTPError.
func (c *Client) Call(ctx context.Context, op Operation) (page *PageResponse, err error) {
	startTime := time.Now()
	defer func() {
		vkRequestDuration.WithLabelValues(op.Method).Observe(time.Since(startTime).Seconds())
		vkRequestsTotal.WithLabelValues(op.Method, statusLabel(err)).Inc()
	}()

	req, err := c.newRequest(ctx, op)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("method", op.Method).
		Str("offset", op.Params.Get("offset")).
		Msg("Executing VK request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op.Method, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if env.Error != nil {
		return nil, env.Error
	}
	if env.Response == nil {
		return nil, ErrEmptyResponse
	}

	return env.Response, nil
}

func (c *Client) newRequest(ctx context.Context, op Operation) (*http.Request, error) {
	endpoint := c.baseURL.JoinPath(op.Method)

	query := cloneValues(op.Params)
	query.Set("v", c.config.APIVersion)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
