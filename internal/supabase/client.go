// Package supabase is a minimal client for the hosted auth provider's
// GoTrue REST API. It only exposes the calls the application consumes.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	authPathPrefix = "/auth/v1"
	maxErrorBody   = 64 << 10
)

// Config holds the connection settings for a provider project.
type Config struct {
	// URL is the project base URL, e.g. https://xyz.supabase.co
	URL string
	// AnonKey is the public API key sent with every request.
	AnonKey string
	// Timeout bounds every provider call (default 10s).
	Timeout time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client is safe for concurrent use. Session state lives in the
// SessionStore handed to Auth, never in the Client.
type Client struct {
	baseURL    *url.URL
	anonKey    string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("provider URL is required")
	}
	if strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, errors.New("provider anon key is required")
	}

	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.URL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse provider URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("provider URL must be absolute: %q", cfg.URL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: base, anonKey: cfg.AnonKey, httpClient: httpClient}, nil
}

// Auth returns an auth handle bound to store.
func (c *Client) Auth(store SessionStore) *AuthClient {
	return &AuthClient{client: c, store: store, now: time.Now}
}

type request struct {
	method string
	path   string
	query  url.Values
	bearer string
	body   any
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	endpoint := *c.baseURL
	endpoint.Path = c.baseURL.Path + authPathPrefix + req.path
	if len(req.query) > 0 {
		endpoint.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", req.path, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", req.path, err)
	}

	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	bearer := req.bearer
	if bearer == "" {
		bearer = c.anonKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call provider %s: %w", req.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAuthError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", req.path, err)
	}

	return nil
}
