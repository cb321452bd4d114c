package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/oluwafemi02/sportsfeed-core/internal/circuitbreaker"
	"github.com/oluwafemi02/sportsfeed-core/internal/config"
	"github.com/oluwafemi02/sportsfeed-core/internal/metrics"
	"github.com/oluwafemi02/sportsfeed-core/internal/retry"
)

// maxResponseBytes caps how much of a provider response is read; anything
// larger is a malformed payload as far as this service is concerned.
const maxResponseBytes = 4 << 20 // 4 MB

// Client is the resilient HTTP client for one provider. Every call runs
// through a token-bucket pacer (bounding outbound rate against the provider's
// quota), the provider's circuit breaker, and the retry policy. Locks inside
// the breaker cover only state transitions; the network call itself is never
// made under a lock.
type Client struct {
	provider   string
	baseURL    *url.URL
	authHeader string
	authKey    string

	http    *http.Client
	breaker *circuitbreaker.ProviderBreaker
	retry   retry.Policy
	pacer   *rate.Limiter
	logger  *slog.Logger
}

// NewClient builds a Client from the provider's configuration. The breaker is
// injected so callers (health, admin) can share the same instance.
func NewClient(cfg config.ProviderConfig, breaker *circuitbreaker.ProviderBreaker, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("provider %s: invalid base URL %q: %w", cfg.Name, cfg.BaseURL, err)
	}

	return &Client{
		provider:   cfg.Name,
		baseURL:    base,
		authHeader: cfg.AuthHeader,
		authKey:    cfg.AuthKey,
		http: &http.Client{
			Timeout: cfg.Timeout(),
		},
		breaker: breaker,
		retry: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			Retryable:   IsRetryable,
		},
		pacer:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger: logger,
	}, nil
}

// Provider returns the provider name the client talks to.
func (c *Client) Provider() string { return c.provider }

// Breaker exposes the provider's circuit breaker for health and admin views.
func (c *Client) Breaker() *circuitbreaker.ProviderBreaker { return c.breaker }

// Get performs a GET against the provider and returns the raw response body.
// The flow per attempt is: breaker admission → pacer wait → transport call →
// outcome recorded on the breaker. Checking admission on every attempt (not
// just the first) means a breaker that trips mid-retry halts further
// attempts, since a circuit-open error is not retryable.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	start := time.Now()

	var body []byte
	err := c.retry.Do(ctx, c.provider, func(ctx context.Context) error {
		var attemptErr error
		body, attemptErr = c.attempt(ctx, path, query)
		return attemptErr
	})

	metrics.UpstreamRequestDuration.WithLabelValues(c.provider).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues(c.provider, outcomeLabel(err)).Inc()

	if err != nil {
		return nil, err
	}
	return body, nil
}

// attempt performs one transport call, classifying the outcome and reporting
// it to the circuit breaker.
func (c *Client) attempt(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, &UnavailableError{Provider: c.provider, RetryAfter: c.breaker.RetryAfter()}
	}
	defer c.breaker.Release()

	// Every admitted call must report back to the breaker. Exits that have
	// no provider outcome to record (caller cancellation, request build
	// failure) abandon instead, so an aborted half-open probe frees the
	// probe slot rather than wedging the breaker.
	recorded := false
	defer func() {
		if !recorded {
			c.breaker.Abandon()
		}
	}()

	// Pace against the provider quota. Wait honors the caller's deadline, so
	// a saturated bucket near the deadline surfaces as a context error
	// rather than a late request.
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.requestURL(path, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", c.provider, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.authHeader != "" {
		req.Header.Set(c.authHeader, c.authKey)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(started)

	if err != nil {
		// Only the caller walking away is exempt from breaker accounting.
		// A per-attempt transport timeout also unwraps to
		// context.DeadlineExceeded (net/http wraps its timeout error that
		// way), so the caller's own context is the discriminator: if it is
		// still live, the provider hung and that is a transient failure.
		if ctx.Err() != nil {
			return nil, err
		}
		recorded = true
		c.breaker.RecordFailure(latency)
		c.logger.Warn("provider transport error", "provider", c.provider, "path", path, "error", err)
		return nil, &TransientError{Provider: c.provider, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		recorded = true
		c.breaker.RecordFailure(latency)
		c.logger.Warn("provider error response", "provider", c.provider, "path", path, "status", resp.StatusCode)
		return nil, &TransientError{Provider: c.provider, Status: resp.StatusCode}

	case resp.StatusCode >= 400:
		// The provider answered; the request was the problem. Reaches the
		// dependency successfully, so the breaker records a success.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		recorded = true
		c.breaker.RecordSuccess(latency)
		return nil, &ClientError{Provider: c.provider, Status: resp.StatusCode, Body: string(snippet)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		recorded = true
		c.breaker.RecordFailure(latency)
		return nil, &TransientError{Provider: c.provider, Err: err}
	}

	recorded = true
	c.breaker.RecordSuccess(latency)
	return body, nil
}

// requestURL joins the provider base URL with path and the encoded query.
func (c *Client) requestURL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// outcomeLabel maps a call result onto the metrics outcome label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsCircuitOpen(err):
		return "circuit_open"
	case IsRetryable(err):
		return "transient_error"
	default:
		var ce *ClientError
		if errors.As(err, &ce) {
			return "client_error"
		}
		return "error"
	}
}
