// Package provider calls the upstream KYC verification API behind a circuit
// breaker.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"kycgate/internal/verification/metrics"
)

const (
	maxResponseBytes    = 1 << 20
	defaultTimeout      = 10 * time.Second
	defaultMaxFailures  = 5
	defaultOpenTimeout  = 30 * time.Second
	halfOpenMaxRequests = 1
	headerAPIKey        = "X-API-Key"
	executePathPrefix   = "/v1/verify/"
	breakerName         = "verification-provider"
)

// ErrUnavailable wraps every transport failure: timeouts, 5xx and 429
// responses, and calls rejected by an open breaker. Callers never classify
// these.
var ErrUnavailable = errors.New("verification provider unavailable")

// Response is a provider reply the caller should classify. 4xx replies are
// returned here rather than as errors because their bodies carry the
// provider's error codes.
type Response struct {
	StatusCode int
	Body       []byte
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.status)
}

func (e *statusError) Unwrap() error { return ErrUnavailable }

type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	breaker     *gobreaker.CircuitBreaker[*Response]
	maxFailures uint32
	openTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithBreaker sets how many consecutive failures open the breaker and how long
// it stays open before probing.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(c *Client) {
		if maxFailures > 0 {
			c.maxFailures = maxFailures
		}
		if openTimeout > 0 {
			c.openTimeout = openTimeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("invalid provider base URL %q", baseURL)
	}
	c := &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		http:        &http.Client{Timeout: defaultTimeout},
		maxFailures: defaultMaxFailures,
		openTimeout: defaultOpenTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: halfOpenMaxRequests,
		Timeout:     c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if c.logger != nil {
				c.logger.Warn("circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			}
			c.metrics.SetBreakerState(name, int(to))
		},
	})
	return c, nil
}

// State reports the breaker state for health output.
func (c *Client) State() string {
	return c.breaker.State().String()
}

// Execute posts params to the provider endpoint of serviceKey.
func (c *Client) Execute(ctx context.Context, serviceKey string, params map[string]string) (*Response, error) {
	start := time.Now()
	resp, err := c.breaker.Execute(func() (*Response, error) {
		return c.do(ctx, serviceKey, params)
	})
	c.metrics.ObserveProviderLatency(serviceKey, time.Since(start))
	if err == nil {
		return resp, nil
	}

	kind := "transport"
	var status *statusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		kind = "breaker_open"
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.As(err, &status):
		kind = "upstream"
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		kind = "timeout"
	}
	c.metrics.IncrementProviderError(kind)
	return nil, err
}

func (c *Client) do(ctx context.Context, serviceKey string, params map[string]string) (*Response, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal provider request: %w", err)
	}
	endpoint := c.baseURL + executePathPrefix + url.PathEscape(serviceKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read provider response: %w", ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &statusError{status: resp.StatusCode}
	}
	return &Response{StatusCode: resp.StatusCode, Body: raw}, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
