package summit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/infrastructure/observability"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultTimeout = 15 * time.Second
	// maxResponseSize caps how much of a provider response is read.
	maxResponseSize = 1 << 20
	breakerName     = "summit"
)

// Client talks to the Summit REST API. It does not retry; callers that want
// retries wrap calls themselves.
type Client struct {
	httpClient *http.Client
	creds      Credentials
	hosts      map[Mode]string
	breaker    *gobreaker.CircuitBreaker[[]byte]
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient       *http.Client
	timeout          time.Duration
	testHost         string
	productionHost   string
	breakerThreshold uint32
	breakerTimeout   time.Duration
	metrics          *observability.Metrics
	logger           zerolog.Logger
}

// WithHTTPClient replaces the underlying HTTP client. The client is copied, so
// the request timeout never changes the caller's value.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithHosts overrides the base URLs per mode.
func WithHosts(testHost, productionHost string) Option {
	return func(o *clientOptions) {
		o.testHost = testHost
		o.productionHost = productionHost
	}
}

// WithCircuitBreaker trips the breaker after threshold consecutive connection
// failures and keeps it open for timeout.
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(o *clientOptions) {
		if threshold > 0 {
			o.breakerThreshold = uint32(threshold)
		}
		if timeout > 0 {
			o.breakerTimeout = timeout
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

func NewClient(creds Credentials, opts ...Option) *Client {
	o := &clientOptions{
		timeout:          defaultTimeout,
		testHost:         DefaultTestHost,
		productionHost:   DefaultProductionHost,
		breakerThreshold: 5,
		breakerTimeout:   30 * time.Second,
		logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	httpClient := &http.Client{}
	if o.httpClient != nil {
		copied := *o.httpClient
		httpClient = &copied
	}
	httpClient.Timeout = o.timeout

	c := &Client{
		httpClient: httpClient,
		creds:      creds,
		hosts: map[Mode]string{
			ModeTest:       strings.TrimRight(o.testHost, "/"),
			ModeProduction: strings.TrimRight(o.productionHost, "/"),
		},
		metrics: o.metrics,
		logger:  o.logger,
	}

	threshold := o.breakerThreshold
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     o.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
			c.metrics.SetBreakerState(name, float64(to))
		},
	})

	return c
}

// Credentials returns the credentials the client signs requests with.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// BaseURL returns the host for the active mode.
func (c *Client) BaseURL() string {
	return c.hosts[c.creds.Mode]
}

// Call sends payload to endpoint and decodes the JSON response into out.
// Network failures, timeouts, non-2xx statuses and an open breaker fail with
// ErrConnection; an undecodable body fails with ErrProtocol.
func (c *Client) Call(ctx context.Context, method, endpoint string, payload, out any) error {
	req, err := c.newRequest(ctx, method, endpoint, payload)
	if err != nil {
		return err
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(req)
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		result := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "rejected"
		}
		c.metrics.ObserveProviderRequest(endpoint, result, elapsed)
		c.metrics.RecordBreakerRequest(breakerName, result)
		c.logger.Error().Err(err).Str("endpoint", endpoint).Str("method", method).Msg("Summit request failed")
		return domainErrors.NewConnectionError(err)
	}
	c.metrics.RecordBreakerRequest(breakerName, "success")

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			c.metrics.ObserveProviderRequest(endpoint, "protocol_error", elapsed)
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Summit returned malformed JSON")
			return fmt.Errorf("%w: %s: %v", domainErrors.ErrProtocol, endpoint, err)
		}
	}

	c.metrics.ObserveProviderRequest(endpoint, "success", elapsed)
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	target := c.BaseURL() + endpoint

	switch method {
	case http.MethodPost:
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", endpoint, err)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("build %s request: %w", endpoint, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	case http.MethodGet:
		query, err := queryValues(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s query: %w", endpoint, err)
		}
		if len(query) > 0 {
			target += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, fmt.Errorf("build %s request: %w", endpoint, err)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	default:
		return nil, fmt.Errorf("%w: unsupported method %q", domainErrors.ErrInvalidInput, method)
	}
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

// queryValues flattens a JSON-serialisable payload into query parameters.
func queryValues(payload any) (url.Values, error) {
	values := url.Values{}
	if payload == nil {
		return values, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
		case []any:
			for _, item := range val {
				values.Add(k, fmt.Sprint(item))
			}
		default:
			values.Set(k, fmt.Sprint(val))
		}
	}
	return values, nil
}
