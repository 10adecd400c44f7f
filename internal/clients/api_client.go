package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coachdesk/pkg/retrier"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies the bearer token attached to every request.
type TokenSource interface {
	Token() (string, error)
}

// Envelope is the wrapper every backend endpoint answers with.
type Envelope struct {
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Succeeded reports whether the server explicitly signalled success.
func (e *Envelope) Succeeded() bool {
	return e != nil && e.Success != nil && *e.Success
}

// APIError is a transport or business error reported by the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// MessageOf extracts the server-provided message from err, if any.
func MessageOf(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}

// Option configures an APIClient.
type Option func(*APIClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *APIClient) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *APIClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// APIClient talks JSON to the institute backend.
type APIClient struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAPIClient creates a client for the backend rooted at baseURL.
func NewAPIClient(baseURL string, tokens TokenSource, logger *zap.Logger, opts ...Option) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend origin the client was built with.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// Do sends one request and decodes the response envelope.
// Non-2xx statuses and explicit success=false answers come back as *APIError.
func (c *APIClient) Do(ctx context.Context, method, path string, query url.Values, body any) (*Envelope, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resource := resourceLabel(path)
	timer := prometheus.NewTimer(requestDuration.WithLabelValues(method, resource))
	resp, err := c.httpClient.Do(req)
	timer.ObserveDuration()
	if err != nil {
		requestsTotal.WithLabelValues(method, resource, "error").Inc()
		return nil, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()
	requestsTotal.WithLabelValues(method, resource, strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("backend request failed",
			zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = env.Message
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, errors.Wrap(decodeErr, "failed to unmarshal response")
	}
	if env.Success != nil && !*env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	return &env, nil
}

// Ping checks that the backend answers at all. Any status below 500 counts as reachable.
func (c *APIClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return errors.Wrap(err, "failed to create HTTP request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "backend unreachable")
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}

// WaitReady pings the backend with backoff until it answers or r gives up.
func (c *APIClient) WaitReady(ctx context.Context, r *retrier.Retrier) error {
	return r.Do(ctx, func(ctx context.Context) error {
		err := c.Ping(ctx)
		if err != nil {
			c.logger.Info("waiting for backend", zap.String("url", c.baseURL), zap.Error(err))
		}
		return err
	})
}

func (c *APIClient) authorize(req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, err := c.tokens.Token()
	if err != nil {
		// the backend enforces auth, the request still goes out
		c.logger.Warn("failed to read token", zap.Error(err))
		return
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// resourceLabel keeps metric cardinality bounded: "/students/42" -> "students".
func resourceLabel(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "root"
	}
	return path
}
