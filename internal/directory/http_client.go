package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lqviet45/light-novel-BE/internal/domain"
)

const (
	DefaultTimeout   = 3 * time.Second
	DefaultRateLimit = 50 // requests per second
	maxBodyBytes     = 1 << 20
)

// envelope is the user service response wrapper.
type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

type userPayload struct {
	domain.Identity
	PasswordHash string `json:"passwordHash"`
}

// HTTPClient talks to the user service REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *zap.Logger
}

// ClientOption configures the client.
type ClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *HTTPClient) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout bounds every call.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *HTTPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewHTTPClient creates a user service client rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return c.getIdentity(ctx, "/api/v1/users/email/"+url.PathEscape(email))
}

func (c *HTTPClient) GetByID(ctx context.Context, id int64) (*domain.Identity, error) {
	return c.getIdentity(ctx, "/api/v1/users/"+strconv.FormatInt(id, 10))
}

func (c *HTTPClient) UpdateLastLogin(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodPut, "/api/v1/users/"+strconv.FormatInt(id, 10)+"/last-login")
	return err
}

func (c *HTTPClient) getIdentity(ctx context.Context, path string) (*domain.Identity, error) {
	env, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if !env.Success || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, ErrNotFound
	}

	var payload userPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode user: %w", ErrUnavailable, err)
	}
	identity := payload.Identity
	identity.PasswordHash = payload.PasswordHash
	return &identity, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string) (*envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("user service request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	c.logger.Debug("user service call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var env envelope
	if len(body) == 0 {
		env.Success = true
		return &env, nil
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %w", ErrUnavailable, err)
	}
	return &env, nil
}
