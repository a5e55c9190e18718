// Package backend is the HTTP transport to the portal's REST backend
// (<origin>/api/v1). Reads decode the {"data": ...} envelope; writes are sent
// either as JSON or as multipart form data, chosen by the caller.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NewsPortal/internal/infra/metrics"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// APIPrefix is appended to the backend origin.
	APIPrefix = "/api/v1"

	userAgent      = "news-portal/1.0"
	maxErrorBody   = 4 << 10
	defaultTimeout = 10 * time.Second
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("backend unavailable")

// Client issues single-attempt requests against the REST backend. It never
// retries; a circuit breaker makes calls fail fast while the backend is down.
type Client struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	httpClient       *http.Client
	timeout          time.Duration
	failureThreshold uint32
	openTimeout      time.Duration
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) { cfg.httpClient = c }
}

// WithTimeout sets the http.Client timeout. Ignored with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

// WithBreaker sets how many consecutive failures open the circuit and how
// long it stays open before a probe request is let through.
func WithBreaker(failures uint32, open time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.failureThreshold = failures
		cfg.openTimeout = open
	}
}

// NewFromOrigin builds a client for <origin>/api/v1.
func NewFromOrigin(origin string, opts ...Option) *Client {
	return New(strings.TrimRight(origin, "/")+APIPrefix, opts...)
}

// New builds a client for an API base URL such as http://backend/api/v1.
func New(baseURL string, opts ...Option) *Client {
	cfg := clientConfig{
		timeout:          defaultTimeout,
		failureThreshold: 5,
		openTimeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: cfg.timeout}
	}

	settings := gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.failureThreshold
		},
		// Client errors mean the backend is up and answering.
		IsSuccessful: func(err error) bool {
			var apiErr *Error
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("CircuitBreaker state changed", "name", name, "from", from, "to", to)
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  cfg.httpClient,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Get fetches endpoint and decodes the "data" member of the response into out.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	body, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode envelope from %s: %w", endpoint, err)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode data from %s: %w", endpoint, err)
	}
	return nil
}

// SendJSON writes body encoded as JSON and decodes the response into out.
func (c *Client) SendJSON(ctx context.Context, method, endpoint string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}
	resp, err := c.do(ctx, method, endpoint, payload, "application/json")
	if err != nil {
		return err
	}
	return decodeInto(resp, out, endpoint)
}

// SendMultipart writes form as multipart/form-data and decodes the response into out.
func (c *Client) SendMultipart(ctx context.Context, method, endpoint string, form *Form, out any) error {
	payload, contentType, err := form.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode multipart body: %w", err)
	}
	resp, err := c.do(ctx, method, endpoint, payload, contentType)
	if err != nil {
		return err
	}
	return decodeInto(resp, out, endpoint)
}

// Delete removes endpoint and decodes the response into out.
func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	resp, err := c.do(ctx, http.MethodDelete, endpoint, nil, "")
	if err != nil {
		return err
	}
	return decodeInto(resp, out, endpoint)
}

func decodeInto(body []byte, out any, endpoint string) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, contentType string) ([]byte, error) {
	url := c.baseURL + endpoint

	ctx, span := otel.Tracer("news-portal/backend").Start(ctx, "backend.request")
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.url", url))
	defer span.End()

	start := time.Now()
	status := 0
	result, err := c.cb.Execute(func() (interface{}, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if token := TokenFrom(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				slog.Warn("Failed to close response body", "error", err)
			}
		}()
		status = resp.StatusCode

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, newError(method, url, resp.StatusCode, body)
		}
		return body, nil
	})
	metrics.BackendRequestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", status))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s %s: %w", method, endpoint, ErrUnavailable)
		}
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	return result.([]byte), nil
}
