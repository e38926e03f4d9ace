// Package poolclient implements pool.Manager over the credential pool
// daemon's HTTP control API.
package poolclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/creddhq/credd/pkg/pool"
	"github.com/creddhq/credd/pkg/tracing"
)

// Error bodies are small; cap reads so a misbehaving daemon can't balloon
// memory on the admin side.
const maxErrorBody = 64 << 10

// Client is an HTTP client for the pool daemon's control API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string // optional auth token
}

var _ pool.Manager = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithToken sets the auth token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a new pool daemon client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks if the pool daemon is reachable.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pool daemon unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Snapshot returns the daemon's current view of the pool.
func (c *Client) Snapshot(ctx context.Context) (*pool.Snapshot, error) {
	resp, err := c.get(ctx, "/pool")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var snap pool.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// SetDisabled flips the disabled flag on the credential at index.
func (c *Client) SetDisabled(ctx context.Context, index int, disabled bool) error {
	body := map[string]bool{"disabled": disabled}
	resp, err := c.put(ctx, c.credentialPath(index, "disabled"), body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.parseError(resp)
	}
	return nil
}

// SetPriority sets the scheduling priority of the credential at index.
func (c *Client) SetPriority(ctx context.Context, index, priority int) error {
	body := map[string]int{"priority": priority}
	resp, err := c.put(ctx, c.credentialPath(index, "priority"), body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.parseError(resp)
	}
	return nil
}

// ResetAndEnable clears the failure count and re-enables the credential
// at index.
func (c *Client) ResetAndEnable(ctx context.Context, index int) error {
	resp, err := c.post(ctx, c.credentialPath(index, "reset"), nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.parseError(resp)
	}
	return nil
}

// Balance asks the daemon to fetch usage limits for the credential at index
// from the upstream provider.
func (c *Client) Balance(ctx context.Context, index int) (*pool.UsageLimits, error) {
	resp, err := c.get(ctx, c.credentialPath(index, "balance"))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var limits pool.UsageLimits
	if err := json.NewDecoder(resp.Body).Decode(&limits); err != nil {
		return nil, fmt.Errorf("failed to decode balance: %w", err)
	}
	return &limits, nil
}

// SwitchToNext asks the daemon to rotate to the next available credential
// and returns the new current index.
func (c *Client) SwitchToNext(ctx context.Context) (int, error) {
	resp, err := c.post(ctx, "/pool/rotate", nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, c.parseError(resp)
	}

	var result struct {
		CurrentIndex int `json:"current_index"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode rotate response: %w", err)
	}
	return result.CurrentIndex, nil
}

func (c *Client) credentialPath(index int, suffix string) string {
	return "/credentials/" + strconv.Itoa(index) + "/" + suffix
}

// HTTP helpers

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) put(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "PUT", c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	// Carry the admin request's trace into the daemon hop.
	tracing.Inject(req.Context(), req.Header)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures never reached the daemon; tag them so the
		// admin layer does not have to guess from message text.
		return nil, pool.Errorf(pool.CodeNetworkFailure, "pool daemon unreachable: %v", err)
	}
	return resp, nil
}

// parseError converts a non-2xx daemon response into an error. Coded bodies
// ({"code": ..., "message": ...}) come back as *pool.Error; a bare 404 is
// treated as an index miss; anything else stays untagged and is classified
// by message content downstream.
func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var perr pool.Error
	if json.Unmarshal(body, &perr) == nil && perr.Code != "" {
		if perr.Message == "" {
			perr.Message = fmt.Sprintf("pool daemon error: status %d", resp.StatusCode)
		}
		return &perr
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("request failed: status %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return pool.Errorf(pool.CodeIndexOutOfRange, "%s", msg)
	}
	return errors.New(msg)
}
