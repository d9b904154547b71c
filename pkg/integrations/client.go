package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/scmenrich/pkg/buildinfo"
	"github.com/matzehuels/scmenrich/pkg/cache"
	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/httputil"
	"github.com/matzehuels/scmenrich/pkg/observability"
)

// Client provides shared HTTP functionality for the upstream API clients.
// It handles caching, retry logic, and common request headers.
type Client struct {
	http      *http.Client
	cache     cache.Cache
	namespace string
	ttl       time.Duration
	headers   map[string]string

	attempts int
	delay    time.Duration
}

// NewClient creates a Client with the given cache and default headers.
// The namespace labels cache events; ttl applies to every cached value.
// Pass nil for headers if no default headers are needed.
func NewClient(c cache.Cache, namespace string, ttl time.Duration, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:      NewHTTPClient(),
		cache:     c,
		namespace: namespace,
		ttl:       ttl,
		headers:   headers,
		attempts:  3,
		delay:     time.Second,
	}
}

// SetTimeout replaces the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.http.Timeout = d
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(h *http.Client) {
	if h != nil {
		c.http = h
	}
}

// SetRetry configures how often transient failures are retried.
func (c *Client) SetRetry(attempts int, delay time.Duration) {
	c.attempts = attempts
	c.delay = delay
}

// Retry runs fn under the client's retry policy.
func (c *Client) Retry(ctx context.Context, fn func() error) error {
	return httputil.Retry(ctx, c.attempts, c.delay, fn)
}

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored in the cache.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	hooks := observability.Cache()
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok {
			if err := json.Unmarshal(data, v); err == nil {
				hooks.OnCacheHit(ctx, c.namespace)
				return nil
			}
		}
		hooks.OnCacheMiss(ctx, c.namespace)
	}
	if err := c.Retry(ctx, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		if c.cache.Set(ctx, key, data, c.ttl) == nil {
			hooks.OnCacheSet(ctx, c.namespace, len(data))
		}
	}
	return nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, rawURL string, v any) error {
	body, _, err := c.do(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	defer body.Close()
	return decode(body, v)
}

// PostJSON marshals in, POSTs it to rawURL and JSON-decodes the response
// into out. A response that cannot be decoded is a contract violation.
func (c *Client) PostJSON(ctx context.Context, rawURL string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return scmerrors.Wrap(scmerrors.ErrCodeInternal, err, "encode request")
	}
	body, _, err := c.do(ctx, http.MethodPost, rawURL, payload)
	if err != nil {
		return err
	}
	defer body.Close()
	return decode(body, out)
}

// Download fetches rawURL with retries and returns its bytes and the
// response Content-Type.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := scmerrors.ValidateURL(rawURL); err != nil {
		return nil, "", err
	}
	var (
		data        []byte
		contentType string
	)
	err := c.Retry(ctx, func() error {
		body, ct, err := c.do(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		defer body.Close()
		data, err = io.ReadAll(io.LimitReader(body, maxBodySize))
		if err != nil {
			return httputil.Retryable(scmerrors.Wrap(scmerrors.ErrCodeNetwork, ErrNetwork, "read %s: %v", rawURL, err))
		}
		contentType = ct
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, payload []byte) (io.ReadCloser, string, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, "", scmerrors.Wrap(scmerrors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	host, path := requestTarget(rawURL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", httputil.Retryable(scmerrors.Wrap(scmerrors.ErrCodeNetwork, ErrNetwork, "%s %s: %v", method, rawURL, err))
	}
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, rawURL); err != nil {
		resp.Body.Close()
		return nil, "", err
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func checkStatus(code int, rawURL string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return scmerrors.Wrap(scmerrors.ErrCodeNotFound, ErrNotFound, "%s", rawURL)
	case code >= 500:
		return httputil.Retryable(scmerrors.Wrap(scmerrors.ErrCodeNetwork, ErrNetwork, "status %d from %s", code, rawURL))
	default:
		return scmerrors.Wrap(scmerrors.ErrCodeNetwork, ErrNetwork, "status %d from %s", code, rawURL)
	}
}

func decode(r io.Reader, v any) error {
	if err := json.NewDecoder(io.LimitReader(r, maxBodySize)).Decode(v); err != nil {
		return scmerrors.Wrap(scmerrors.ErrCodeContract, err, "decode response")
	}
	return nil
}

func requestTarget(rawURL string) (host, path string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", rawURL
	}
	return u.Host, u.Path
}
