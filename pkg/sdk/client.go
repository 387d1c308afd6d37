package globalmart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultTimeout = 60 * time.Second

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	httpc      *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithHTTPClient sets a custom http.Client. Its timeout wins over WithTimeout.
func WithHTTPClient(httpc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpc = httpc
	})
}

// WithTimeout sets the per-request timeout. Default: 60s. Image match and
// cold searches can run long while remote models warm up.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// Client is the GlobalMart API client.
type Client struct {
	baseURL string
	httpc   *http.Client
	obs     *observer
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("globalmart: base URL required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("globalmart: invalid base URL: %w", err)
	}

	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	httpc := cfg.httpc
	if httpc == nil {
		httpc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{baseURL: baseURL, httpc: httpc, obs: obs}, nil
}

// getJSON issues a GET and decodes a 2xx JSON body into out.
func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, http.MethodGet, path, "", nil, out)
	c.obs.observe(op, start, err)
	return err
}

// postJSON issues a POST with a JSON body and decodes a 2xx JSON body into out.
func (c *Client) postJSON(ctx context.Context, op, path string, body, out any) error {
	start := time.Now()

	data, err := json.Marshal(body)
	if err != nil {
		err = fmt.Errorf("globalmart: encode request: %w", err)
		c.obs.observe(op, start, err)
		return err
	}

	err = c.roundTrip(ctx, http.MethodPost, path, "application/json", bytes.NewReader(data), out)
	c.obs.observe(op, start, err)
	return err
}

// postForm issues a POST with a prebuilt multipart body.
func (c *Client) postForm(ctx context.Context, op, path, contentType string, body io.Reader, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, http.MethodPost, path, contentType, body, out)
	c.obs.observe(op, start, err)
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("globalmart: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("globalmart: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("globalmart: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil {
		var body struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &body) == nil && body.Code != "" {
			apiErr.Code = body.Code
			apiErr.Message = body.Message
			return apiErr
		}
	}

	// Non-JSON error body (proxy, panic page).
	apiErr.Code = codeForStatus(resp.StatusCode)
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}

func codeForStatus(status int) string {
	if status >= 400 && status < 500 {
		return "bad_request"
	}
	return "internal_error"
}
