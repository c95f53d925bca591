package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts = 3
	backoffBase        = 2 * time.Second
	backoffCap         = 30 * time.Second
	userAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Guard wraps outbound HTTP calls with rate limiting and bounded retry.
// Each adapter owns its own Guard; the rate-limit wait blocks only the
// calling adapter's goroutine.
type Guard struct {
	client      *resty.Client
	limiter     *rate.Limiter
	maxAttempts int
}

// RequestOption mutates a request before it is sent.
type RequestOption func(*resty.Request)

// WithQueryParams adds query parameters to the request.
func WithQueryParams(params map[string]string) RequestOption {
	return func(req *resty.Request) {
		req.SetQueryParams(params)
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(req *resty.Request) {
		req.SetHeader(key, value)
	}
}

// WithFormData sets form-encoded body data.
func WithFormData(data map[string]string) RequestOption {
	return func(req *resty.Request) {
		req.SetFormData(data)
	}
}

// WithBasicAuth sets basic auth credentials.
func WithBasicAuth(username, password string) RequestOption {
	return func(req *resty.Request) {
		req.SetBasicAuth(username, password)
	}
}

// NewGuard creates a Guard enforcing the given requests-per-minute ceiling
// and per-request timeout.
func NewGuard(requestsPerMinute int, timeout time.Duration) *Guard {
	if requestsPerMinute < 1 {
		requestsPerMinute = 30
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Guard{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent).
			SetHeader("Accept", "application/json, text/html, */*").
			SetHeader("Accept-Language", "en-US,en;q=0.9"),
		limiter:     rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
		maxAttempts: defaultMaxAttempts,
	}
}

// Client exposes the underlying resty client so tests can install a mock
// transport.
func (g *Guard) Client() *resty.Client {
	return g.client
}

// Get performs a rate-limited GET with retry on transient failures.
func (g *Guard) Get(ctx context.Context, url string, opts ...RequestOption) (*resty.Response, error) {
	return g.do(ctx, resty.MethodGet, url, opts...)
}

// Post performs a rate-limited POST with retry on transient failures.
func (g *Guard) Post(ctx context.Context, url string, opts ...RequestOption) (*resty.Response, error) {
	return g.do(ctx, resty.MethodPost, url, opts...)
}

// do runs the bounded retry loop: transient failures (transport errors and
// 5xx responses) are retried with exponential backoff; 4xx responses are
// terminal and surface immediately.
func (g *Guard) do(ctx context.Context, method, url string, opts ...RequestOption) (*resty.Response, error) {
	var lastErr error

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			logrus.Warnf("Request to %s failed (%v), retrying in %v (attempt %d/%d)",
				url, lastErr, delay, attempt+1, g.maxAttempts)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		req := g.client.R().SetContext(ctx)
		for _, opt := range opts {
			opt(req)
		}

		resp, err := req.Execute(method, url)
		if err != nil {
			// Timeouts and connection failures are transient.
			lastErr = err
			continue
		}

		code := resp.StatusCode()
		switch {
		case code < 400:
			return resp, nil
		case code >= 500:
			lastErr = fmt.Errorf("%s returned status %d", url, code)
		default:
			// 4xx responses are terminal: auth failures, bad requests.
			return resp, fmt.Errorf("%s returned status %d: %s", url, code, resp.Status())
		}
	}

	return nil, fmt.Errorf("request to %s failed after %d attempts: %w", url, g.maxAttempts, lastErr)
}

// backoffDelay computes the exponential backoff before the given retry
// attempt: 2s, 4s, 8s, ... capped at 30s.
func backoffDelay(attempt int) time.Duration {
	delay := backoffBase << uint(attempt-1)
	if delay > backoffCap || delay <= 0 {
		return backoffCap
	}
	return delay
}
