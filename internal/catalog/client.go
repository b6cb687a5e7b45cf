package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Getter issues GET requests against the catalog API and decodes JSON.
// *Client implements it; tests substitute their own.
type Getter interface {
	GetJSON(ctx context.Context, endpoint string, values url.Values, dest any) error
}

// TokenSource supplies the bearer token for outgoing requests. An empty token
// means the request is sent anonymously.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Ensure Client implements Getter at compile time.
var _ Getter = (*Client)(nil)

// Client talks to the catalog HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
	tokens    TokenSource
	logger    *log.Logger
}

const (
	DefaultAPIURL     = "http://127.0.0.1:8000/api"
	defaultUserAgent  = "ludex/0.1"
	defaultRatePerSec = 8
)

// ErrStatus is matched by every *StatusError.
var ErrStatus = errors.New("unexpected api status")

// StatusError reports an HTTP status >= 400.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api %s returned status %d", e.Path, e.StatusCode)
}

// Is makes errors.Is(err, ErrStatus) succeed.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenSource attaches bearer authentication.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables
// the limiter.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient builds a Client for the API rooted at apiURL.
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	base, err := ParseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		limiter:   rate.NewLimiter(rate.Limit(defaultRatePerSec), defaultRatePerSec),
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// GetJSON performs GET <base><endpoint>?<values> and decodes the body into dest.
func (c *Client) GetJSON(ctx context.Context, endpoint string, values url.Values, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.resolve(endpoint, values)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("resolve token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("request failed", "endpoint", endpoint, "request_id", requestID, "err", err)
		}
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("request",
		"endpoint", endpoint,
		"page", values.Get("page"),
		"status", resp.StatusCode,
		"duration", time.Since(started).Round(time.Millisecond),
		"request_id", requestID,
	)

	if resp.StatusCode >= 400 {
		return &StatusError{Path: endpoint, StatusCode: resp.StatusCode}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) resolve(endpoint string, values url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(c.baseURL.Path, "/") + "/" + strings.TrimPrefix(endpoint, "/")
	if len(values) > 0 {
		u.RawQuery = values.Encode()
	}
	return u.String()
}

// ParseBaseURL normalises apiURL, defaulting the scheme to http and dropping
// any query or fragment. The path is kept as the API prefix.
func ParseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = DefaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", apiURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
