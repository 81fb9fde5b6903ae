// Package apiclient talks to the haulbook REST API on behalf of the terminal
// client. Writes go through Replay; reads are cached until the next sync pass
// purges them.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultCacheSize = 128
	maxErrorBody     = 512
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}

	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	CacheTTL  time.Duration
	CacheSize int
	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cache   *expirable.LRU[string, []byte]
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}

		httpClient = &http.Client{Timeout: timeout}
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    httpClient,
		cache:   expirable.NewLRU[string, []byte](size, nil, cfg.CacheTTL),
	}
}

// Replay sends a stored mutation. path is relative to the base URL.
func (c *Client) Replay(ctx context.Context, method, path string, body []byte) error {
	_, err := c.do(ctx, method, path, body)
	return err
}

// Ping checks that the API answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	return err
}

// Purge drops every cached read.
func (c *Client) Purge() {
	c.cache.Purge()
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	raw, ok := c.cache.Get(path)
	if !ok {
		var err error

		raw, err = c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		c.cache.Add(path, raw)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}

		return nil, &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	return data, nil
}
