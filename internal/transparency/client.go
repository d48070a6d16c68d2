// Package transparency contains HTTP clients for the federal open-data sources:
// Portal da Transparência registries, ReceitaWS and PNCP.
package transparency

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

// maxBodyBytes bounds how much of a response is read
const maxBodyBytes = 8 << 20

// ClientConfig configures the shared HTTP behaviour of every source client
type ClientConfig struct {
	Timeout           time.Duration
	MaxRetries        uint64
	BreakerFailures   uint32
	BreakerOpenPeriod time.Duration
	// InitialBackoff overrides the first retry interval; zero keeps the library default
	InitialBackoff time.Duration
}

// DefaultClientConfig returns sane production values
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:           15 * time.Second,
		MaxRetries:        2,
		BreakerFailures:   5,
		BreakerOpenPeriod: time.Minute,
	}
}

// response is a completed HTTP exchange with a status the caller has to interpret
type response struct {
	status int
	body   []byte
}

// client performs GET requests behind a circuit breaker with exponential retry
type client struct {
	source  domain.SourceName
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	cfg     ClientConfig
}

func newClient(source domain.SourceName, httpClient *http.Client, cfg ClientConfig) *client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(source),
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenPeriod,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})

	return &client{source: source, http: httpClient, breaker: breaker, cfg: cfg}
}

// State exposes the breaker state for health reporting
func (c *client) State() gobreaker.State {
	return c.breaker.State()
}

// get issues a GET and returns any completed response, including 4xx.
// Network failures, 5xx and 429 are retried; only those count against the breaker.
func (c *client) get(ctx context.Context, endpoint string, query url.Values, header http.Header) (*response, error) {
	target := endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var resp *response
	operation := func() error {
		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.attempt(ctx, target, header)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(domain.NewLookupError(domain.LookupErrorUnavailable, c.source, "circuit breaker open", err))
			}
			if !domain.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		resp = out.(*response)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoff > 0 {
		b.InitialInterval = c.cfg.InitialBackoff
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		if ctx.Err() != nil && !errors.As(err, new(*domain.LookupError)) {
			return nil, domain.NewLookupError(domain.LookupErrorTimeout, c.source, "lookup cancelled", ctx.Err())
		}
		return nil, err
	}
	return resp, nil
}

// attempt performs one request. Server-side failures are returned as errors so the
// breaker sees them; client-side statuses come back as a response.
func (c *client) attempt(ctx context.Context, target string, header http.Header) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, domain.NewLookupError(domain.LookupErrorInternal, c.source, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, domain.NewLookupError(domain.LookupErrorTimeout, c.source, "request timed out", err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, domain.NewLookupError(domain.LookupErrorTimeout, c.source, "request cancelled", err)
		}
		return nil, domain.NewLookupError(domain.LookupErrorConnection, c.source, "connection failed", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.NewLookupError(domain.LookupErrorConnection, c.source, "read body", err)
	}

	if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
		return nil, domain.NewHTTPError(c.source, res.StatusCode)
	}
	return &response{status: res.StatusCode, body: body}, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// statusError turns a non-2xx response into an http_error
func (c *client) statusError(resp *response) error {
	if resp.status >= 200 && resp.status < 300 {
		return nil
	}
	return domain.NewHTTPError(c.source, resp.status)
}

func joinURL(base, path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), strings.TrimLeft(path, "/"))
}
