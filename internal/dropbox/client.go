package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"camroll/internal/config"
	"camroll/internal/services"
)

const (
	defaultAPIURL         = "https://api.dropboxapi.com/2"
	defaultContentURL     = "https://content.dropboxapi.com/2"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
	defaultRetryAttempts  = 3
)

// Config captures the settings required to talk to Dropbox.
type Config struct {
	AccessToken    string
	APIURL         string
	ContentURL     string
	TimeoutSeconds int
	RetryAttempts  int
}

// HTTPDoer executes HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the Dropbox RPC and content endpoints.
type Client struct {
	cfg     Config
	http    HTTPDoer
	timeout time.Duration

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithRetryMaxAttempts overrides the attempt budget for read-only calls.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a Dropbox client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	attempts := defaultRetryAttempts
	if cfg.RetryAttempts > 0 {
		attempts = cfg.RetryAttempts
	}
	client := &Client{
		cfg: Config{
			AccessToken:    strings.TrimSpace(cfg.AccessToken),
			APIURL:         strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
			ContentURL:     strings.TrimRight(strings.TrimSpace(cfg.ContentURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
			RetryAttempts:  attempts,
		},
		http:             &http.Client{Timeout: timeout},
		timeout:          timeout,
		retryMaxAttempts: attempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.APIURL == "" {
		client.cfg.APIURL = defaultAPIURL
	}
	if client.cfg.ContentURL == "" {
		client.cfg.ContentURL = defaultContentURL
	}
	return client
}

// NewFromConfig builds a client from application configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	if cfg == nil {
		return NewClient(Config{}, opts...)
	}
	return NewClient(Config{
		AccessToken:    cfg.Dropbox.AccessToken,
		APIURL:         cfg.Dropbox.APIURL,
		ContentURL:     cfg.Dropbox.ContentURL,
		TimeoutSeconds: cfg.Dropbox.RequestTimeout,
		RetryAttempts:  cfg.Dropbox.RetryAttempts,
	}, opts...)
}

// APIError is a non-2xx response from Dropbox.
type APIError struct {
	Endpoint   string
	StatusCode int
	// Summary is Dropbox's error_summary, e.g. "path/conflict/folder/..".
	Summary    string
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	detail := e.Summary
	if detail == "" {
		detail = e.Body
	}
	return fmt.Sprintf("dropbox %s: http %d: %s", e.Endpoint, e.StatusCode, strings.TrimSpace(detail))
}

// Unwrap classifies the failure with a services marker.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return services.ErrConfiguration
	case e.StatusCode == http.StatusConflict && strings.Contains(e.Summary, "not_found"):
		return services.ErrNotFound
	case e.StatusCode == http.StatusBadRequest:
		return services.ErrValidation
	case e.StatusCode == http.StatusTooManyRequests:
		return services.ErrTransient
	default:
		return services.ErrTransport
	}
}

// HasSummaryPrefix reports whether the Dropbox error_summary starts with
// prefix, e.g. "path/conflict/folder".
func (e *APIError) HasSummaryPrefix(prefix string) bool {
	return strings.HasPrefix(e.Summary, prefix)
}

type errorEnvelope struct {
	Summary string `json:"error_summary"`
}

// rpc POSTs a JSON body to an API endpoint and decodes the JSON reply into
// out. Only read-only endpoints should pass retry=true.
func (c *Client) rpc(ctx context.Context, endpoint string, in, out any, retry bool) error {
	payload := []byte("null")
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("dropbox %s: encode body: %w", endpoint, err)
		}
		payload = encoded
	}
	resp, err := c.do(ctx, endpoint, retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/"+endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransport, "dropbox", endpoint, "decode response", err)
	}
	return nil
}

// do sends the request built by build, retrying retryable failures when
// retry is set. The caller owns the returned response body.
func (c *Client) do(ctx context.Context, endpoint string, retry bool, build func() (*http.Request, error)) (*http.Response, error) {
	if c.cfg.AccessToken == "" {
		return nil, services.Wrap(services.ErrConfiguration, "dropbox", endpoint, "access token required", nil)
	}
	attempts := 1
	if retry {
		attempts = c.retryAttempts()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.doOnce(endpoint, build)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		delay, again := c.retryDelay(ctx, err, attempt, attempts)
		if !again {
			break
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	if attempts > 1 {
		return nil, fmt.Errorf("dropbox %s: failed after %d attempts: %w", endpoint, attempts, lastErr)
	}
	return nil, lastErr
}

func (c *Client) doOnce(endpoint string, build func() (*http.Request, error)) (*http.Response, error) {
	req, err := build()
	if err != nil {
		return nil, fmt.Errorf("dropbox %s: new request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: dropbox %s: http error (timeout=%s): %w", services.ErrTransport, endpoint, c.timeout, err)
	}
	if resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
	var envelope errorEnvelope
	if json.Unmarshal(body, &envelope) == nil {
		apiErr.Summary = strings.TrimSpace(envelope.Summary)
	}
	apiErr.RetryAfter, _ = parseRetryAfter(resp.Header.Get("Retry-After"))
	return nil, apiErr
}

// IsAPIError reports whether err carries a Dropbox API error and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
