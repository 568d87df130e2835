// Package apiclient is the single chokepoint for calls to the restaurant-management backend.
// Every request carries the bearer token and the tenant header derived from that same token.
package apiclient

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

	"github.com/atparui/rms-console/internal/observability/metrics"
	"github.com/atparui/rms-console/internal/ports"
	"github.com/atparui/rms-console/internal/tenant"
)

const (
	// DefaultPathPrefix is where the backend mounts its API behind the gateway.
	DefaultPathPrefix = "/services/rms-service/api"
	// DefaultTimeout bounds one backend call, including reading the body.
	DefaultTimeout = 30 * time.Second
	// TenantHeader carries the tenant decoded from the bearer token.
	TenantHeader = "X-Tenant-ID"

	maxErrorBody = 1 << 20
)

// Config configures a Client.
type Config struct {
	Origin     string // scheme://host of the API gateway (required)
	PathPrefix string // defaults to DefaultPathPrefix
	Timeout    time.Duration
	HTTPClient *http.Client // optional; Timeout is ignored when set
	Tokens     ports.TokenSource
	Tenants    *tenant.Resolver // defaults to the tenant_id claim
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Client issues authenticated backend requests. It is safe for concurrent use.
type Client struct {
	base    string
	hc      *http.Client
	tokens  ports.TokenSource
	tenants *tenant.Resolver
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	origin := strings.TrimRight(strings.TrimSpace(cfg.Origin), "/")
	if origin == "" {
		return nil, errors.New("api origin is required")
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("api origin must be an absolute http(s) URL: %q", cfg.Origin)
	}

	prefix := cfg.PathPrefix
	if prefix == "" {
		prefix = DefaultPathPrefix
	}
	prefix = "/" + strings.Trim(prefix, "/")

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	tenants := cfg.Tenants
	if tenants == nil {
		tenants, _ = tenant.NewResolver("")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:    origin + prefix,
		hc:      hc,
		tokens:  cfg.Tokens,
		tenants: tenants,
		metrics: cfg.Metrics,
		logger:  logger,
	}, nil
}

// WithTokenSource returns a copy of c that authenticates with ts. The copy shares the transport.
func (c *Client) WithTokenSource(ts ports.TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL returns origin + path prefix.
func (c *Client) BaseURL() string { return c.base }

// ResolveURL passes absolute http(s) URLs through and joins anything else onto BaseURL.
func (c *Client) ResolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" {
		return c.base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.base + path
}

// RequestOptions describes one backend call.
type RequestOptions struct {
	Method  string      // defaults to GET
	Query   url.Values  // appended to the resolved URL
	Headers http.Header // override defaults such as Content-Type
	// Body is sent as-is when it is []byte, json.RawMessage or io.Reader; anything else is JSON-encoded.
	Body any
}

// Request performs one call and returns the raw JSON body. It returns (nil, nil) for
// 204 responses and for DELETE requests. Non-2xx responses >= 400 yield *RequestError.
// There are no retries; callers decide whether to try again.
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, error) {
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.target(path, opts.Query)
	if err != nil {
		return nil, err
	}

	// One read of the token feeds both headers.
	var token string
	if c.tokens != nil {
		token, err = c.tokens.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire token: %w", err)
		}
	}

	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range opts.Headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		if tenantID, ok := c.tenants.Resolve(token); ok {
			req.Header.Set(TenantHeader, tenantID)
		}
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.metrics.ObserveAPI(method, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveAPI(method, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rerr := newRequestError(resp, raw)
		c.logger.DebugContext(ctx, "backend request failed",
			"method", method, "path", req.URL.Path, "status", resp.StatusCode, "message", rerr.Message)
		return nil, rerr
	}

	if resp.StatusCode == http.StatusNoContent || method == http.MethodDelete {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%s %s: response is not valid JSON", method, req.URL.Path)
	}
	return json.RawMessage(raw), nil
}

// Do performs Request and decodes the body into T. An empty body yields T's zero value.
func Do[T any](ctx context.Context, c *Client, path string, opts RequestOptions) (T, error) {
	var out T
	raw, err := c.Request(ctx, path, opts)
	if err != nil || raw == nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func (c *Client) target(path string, q url.Values) (string, error) {
	resolved := c.ResolveURL(path)
	if len(q) == 0 {
		return resolved, nil
	}
	u, err := url.Parse(resolved)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	merged := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	u.RawQuery = merged.Encode()
	return u.String(), nil
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		return b, nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}
