// Package controller is the HTTP client of the traffic generator's REST API.
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Client struct {
	base   string
	client *http.Client
	log    *zap.Logger
}

// NewClient talks to the controller at base, e.g. "http://10.0.0.2:8000/api".
// A missing scheme defaults to http.
func NewClient(base string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid controller address %q: %w", base, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid controller address %q: missing host", base)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base: strings.TrimRight(u.String(), "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		log: log.With(zap.String("controller", u.Host)),
	}, nil
}

// BaseURL is the normalized controller address.
func (c *Client) BaseURL() string { return c.base }

// do sends in (if not nil) as JSON and decodes the response into out (if not nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warn("controller request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		c.log.Warn("controller returned an error", zap.String("method", method), zap.String("path", path),
			zap.Int("status", resp.StatusCode), zap.String("body", apiErr.Body))
		return apiErr
	}
	c.log.Debug("controller request", zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
