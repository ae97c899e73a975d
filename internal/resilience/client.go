package resilience

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/gateproof/authcore/internal/errors"
)

const maxErrorBodySize = 4 << 10

// HTTPError is a non-2xx response surfaced as an error. Body is truncated so
// provider error messages stay loggable without buffering huge payloads.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// ClientOptions configures a Client. Zero values fall back to the defaults
// documented on each field.
type ClientOptions struct {
	// Timeout is the hard per-attempt timeout. Default 10s.
	Timeout time.Duration
	// MaxRetries is the number of retries after the initial attempt. Default 3.
	MaxRetries int
	// BackoffBase is the backoff delay before the first retry. Default 500ms.
	BackoffBase time.Duration
	// BackoffMax caps the backoff delay before jitter is added. Default 10s.
	BackoffMax time.Duration
	// JitterMax bounds the random term added to every backoff delay.
	// Default 1s.
	JitterMax time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 10 * time.Second
	}
	if o.JitterMax <= 0 {
		o.JitterMax = time.Second
	}
	return o
}

// Client is an outbound HTTP client with per-endpoint circuit breaking,
// bounded retries with jittered exponential backoff, a hard per-attempt
// timeout, and optional deduplication of identical concurrent requests.
type Client struct {
	httpClient *http.Client
	breakers   *BreakerRegistry
	opts       ClientOptions
	group      singleflight.Group
	logger     *slog.Logger
}

// NewClient creates a Client. A nil httpClient uses http.DefaultClient; the
// per-attempt timeout is enforced via context, not the http.Client.
func NewClient(httpClient *http.Client, breakers *BreakerRegistry, opts ClientOptions, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		breakers:   breakers,
		opts:       opts.withDefaults(),
		logger:     logger,
	}
}

// Response is the buffered result of a request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do executes the request with retries and circuit breaking. The body, if
// any, is replayed on each attempt. A 2xx response is returned with its body
// fully read; non-2xx responses become an HTTPError. Statuses 401, 403 and
// 404 and context cancellation are never retried.
func (c *Client) Do(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*Response, error) {
	breaker := c.breakers.ForEndpoint(rawURL)
	if !breaker.CanMakeRequest() {
		return nil, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt-1)); err != nil {
				breaker.OnFailure()
				return nil, apperrors.Wrap(err, "request aborted during backoff")
			}
		}

		resp, err := c.attempt(ctx, method, rawURL, header, body)
		if err == nil {
			breaker.OnSuccess()
			return resp, nil
		}
		lastErr = err

		if !retryable(ctx, err) {
			break
		}
		c.logger.Warn(
			"retrying outbound request",
			slog.String("method", method),
			slog.String("endpoint", NormalizeEndpoint(rawURL)),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}

	breaker.OnFailure()
	return nil, lastErr
}

// DoDeduplicated is Do with identical concurrent requests collapsed into a
// single upstream call. Requests are identical when method, URL and body
// match; all waiters share the one response.
func (c *Client) DoDeduplicated(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*Response, error) {
	key := dedupKey(method, rawURL, body)
	result, err, _ := c.group.Do(key, func() (any, error) {
		return c.Do(ctx, method, rawURL, header, body)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Response), nil
}

// GetJSON fetches the URL and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, rawURL, header, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return apperrors.Wrap(err, "failed to decode json response")
	}
	return nil
}

// PostJSON posts the payload as JSON, discarding the response body.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode json payload")
	}
	header := http.Header{"Content-Type": []string{"application/json"}}
	_, err = c.Do(ctx, http.MethodPost, rawURL, header, body)
	return err
}

// PostForm posts the form body and decodes the JSON response into out.
func (c *Client) PostForm(ctx context.Context, rawURL string, header http.Header, form []byte, out any) error {
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.Do(ctx, http.MethodPost, rawURL, header, form)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return apperrors.Wrap(err, "failed to decode json response")
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, rawURL, reader)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create request")
	}
	for key, values := range header {
		req.Header[key] = values
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, "request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		truncated, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(truncated))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read response body")
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) backoff(retry int) time.Duration {
	delay := c.opts.BackoffBase << retry
	if delay > c.opts.BackoffMax || delay <= 0 {
		delay = c.opts.BackoffMax
	}
	// jitter spreads out retries from competing callers
	return delay + time.Duration(rand.Int63n(int64(c.opts.JitterMax)+1))
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var httpErr *HTTPError
	if apperrors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		}
	}
	return true
}

func dedupKey(method, rawURL string, body []byte) string {
	sum := sha256.Sum256(body)
	return method + " " + rawURL + " " + hex.EncodeToString(sum[:])
}
