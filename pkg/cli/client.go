package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/creddhq/credd/pkg/api/types"
	"github.com/creddhq/credd/pkg/cliconfig"
)

const (
	// APIKeyHeader is the HTTP header for API key authentication.
	APIKeyHeader = "X-API-Key"
)

// AdminClient provides methods for communicating with the credd admin API.
type AdminClient interface {
	// Health checks if the server is running.
	Health() error
	// Status returns detailed server status.
	Status() (*types.ServerStatus, error)
	// ListCredentials returns the full pool listing.
	ListCredentials() (*types.CredentialListResponse, error)
	// GetCredential returns a single credential by pool index.
	GetCredential(index int) (*types.CredentialStatus, error)
	// SetDisabled enables or disables the credential at index.
	SetDisabled(index int, disabled bool) (string, error)
	// SetPriority changes the scheduling priority of the credential at index.
	SetPriority(index, priority int) (string, error)
	// ResetCredential clears failure state and re-enables the credential at index.
	ResetCredential(index int) (string, error)
	// GetBalance returns upstream usage for the credential at index.
	GetBalance(index int) (*types.BalanceResponse, error)
	// Rotate forces the pool to advance to the next available credential.
	Rotate() (*types.RotateResponse, error)
	// APIKeyInfo returns metadata about the admin API key. The full key
	// is included only when showKey is set.
	APIKeyInfo(showKey bool) (*KeyInfo, error)
	// RotateAPIKey replaces the admin API key and returns the new one.
	RotateAPIKey() (*RotateKeyResult, error)
}

// KeyInfo describes the admin API key as reported by the server.
type KeyInfo struct {
	Key         string `json:"key,omitempty"`
	KeyPrefix   string `json:"keyPrefix"`
	Enabled     bool   `json:"enabled"`
	Source      string `json:"source,omitempty"`
	KeyFilePath string `json:"keyFilePath"`
}

// RotateKeyResult is the response to an API key rotation.
type RotateKeyResult struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// APIError represents an error response from the admin API.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsNotFound reports whether the error is a credential-not-found response.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// adminClient implements AdminClient using HTTP.
type adminClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

// ClientOption configures an admin client.
type ClientOption func(*adminClient)

// WithTimeout sets the HTTP timeout for the client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *adminClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(c *adminClient) {
		c.apiKey = key
	}
}

// NewAdminClient creates a new admin API client.
// The baseURL should be the admin API base URL (e.g., "http://localhost:4780").
func NewAdminClient(baseURL string, opts ...ClientOption) AdminClient {
	c := &adminClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewAdminClientWithAuth creates a new admin API client that automatically
// loads the API key from all configured sources (env, key file).
// This is the recommended way to create a client for CLI commands.
func NewAdminClientWithAuth(baseURL string, opts ...ClientOption) AdminClient {
	apiKey := cliconfig.GetAPIKey()
	if apiKey != "" {
		opts = append([]ClientOption{WithAPIKey(apiKey)}, opts...)
	}
	return NewAdminClient(baseURL, opts...)
}

// NewClientFromConfig creates a new admin API client using resolved
// configuration. The flag value wins over environment and rc files.
func NewClientFromConfig(flagAdminURL string, opts ...ClientOption) AdminClient {
	cfg := cliconfig.ResolveClientConfig(flagAdminURL)
	if cfg.APIKey != "" {
		opts = append([]ClientOption{WithAPIKey(cfg.APIKey)}, opts...)
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append([]ClientOption{WithTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)}, opts...)
	}
	return NewAdminClient(cfg.AdminURL, opts...)
}

// Health checks if the server is running.
func (c *adminClient) Health() error {
	resp, err := c.get("/health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}
	return nil
}

// Status returns detailed server status.
func (c *adminClient) Status() (*types.ServerStatus, error) {
	resp, err := c.get("/api/status")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var status types.ServerStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &status, nil
}

// ListCredentials returns the full pool listing.
func (c *adminClient) ListCredentials() (*types.CredentialListResponse, error) {
	resp, err := c.get("/api/credentials")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result types.CredentialListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// GetCredential returns a single credential by pool index.
func (c *adminClient) GetCredential(index int) (*types.CredentialStatus, error) {
	resp, err := c.get("/api/credentials/" + strconv.Itoa(index))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  "credential_not_found",
			Message:    fmt.Sprintf("credential not found: %d", index),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var cred types.CredentialStatus
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &cred, nil
}

// SetDisabled enables or disables the credential at index.
func (c *adminClient) SetDisabled(index int, disabled bool) (string, error) {
	body, err := json.Marshal(types.DisableRequest{Disabled: disabled})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.put(fmt.Sprintf("/api/credentials/%d/disabled", index), body)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", c.parseError(resp)
	}
	return c.parseMessage(resp)
}

// SetPriority changes the scheduling priority of the credential at index.
func (c *adminClient) SetPriority(index, priority int) (string, error) {
	body, err := json.Marshal(types.PriorityRequest{Priority: priority})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.put(fmt.Sprintf("/api/credentials/%d/priority", index), body)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", c.parseError(resp)
	}
	return c.parseMessage(resp)
}

// ResetCredential clears failure state and re-enables the credential at index.
func (c *adminClient) ResetCredential(index int) (string, error) {
	resp, err := c.post(fmt.Sprintf("/api/credentials/%d/reset", index), nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", c.parseError(resp)
	}
	return c.parseMessage(resp)
}

// GetBalance returns upstream usage for the credential at index.
func (c *adminClient) GetBalance(index int) (*types.BalanceResponse, error) {
	resp, err := c.get(fmt.Sprintf("/api/credentials/%d/balance", index))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var balance types.BalanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&balance); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &balance, nil
}

// Rotate forces the pool to advance to the next available credential.
func (c *adminClient) Rotate() (*types.RotateResponse, error) {
	resp, err := c.post("/api/pool/rotate", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result types.RotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// APIKeyInfo returns metadata about the admin API key.
func (c *adminClient) APIKeyInfo(showKey bool) (*KeyInfo, error) {
	path := "/api/admin/api-key"
	if showKey {
		path += "?show_key=true"
	}
	resp, err := c.get(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var info KeyInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &info, nil
}

// RotateAPIKey replaces the admin API key and returns the new one.
func (c *adminClient) RotateAPIKey() (*RotateKeyResult, error) {
	resp, err := c.post("/api/admin/api-key/rotate", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result RotateKeyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// parseMessage decodes a {"message": ...} response body.
func (c *adminClient) parseMessage(resp *http.Response) (string, error) {
	var result types.MessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return result.Message, nil
}

// get performs an HTTP GET request.
func (c *adminClient) get(path string) (*http.Response, error) {
	return c.doRequest(http.MethodGet, path, nil)
}

// post performs an HTTP POST request.
func (c *adminClient) post(path string, body []byte) (*http.Response, error) {
	return c.doRequest(http.MethodPost, path, body)
}

// put performs an HTTP PUT request.
func (c *adminClient) put(path string, body []byte) (*http.Response, error) {
	return c.doRequest(http.MethodPut, path, body)
}

// doRequest performs an HTTP request.
func (c *adminClient) doRequest(method, path string, body []byte) (*http.Response, error) {
	fullURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	// Add API key header if configured
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{
			StatusCode: 0,
			ErrorCode:  "connection_error",
			Message:    fmt.Sprintf("cannot connect to admin API at %s: %v", c.baseURL, err),
		}
	}
	return resp, nil
}

// parseError parses an error response from the API.
func (c *adminClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  errResp.Error,
			Message:    errResp.Message,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		ErrorCode:  "unknown_error",
		Message:    fmt.Sprintf("server returned status %d: %s", resp.StatusCode, string(body)),
	}
}

// FormatConnectionError returns a user-friendly error message for connection failures.
func FormatConnectionError(err error) string {
	if apiErr, ok := err.(*APIError); ok && apiErr.ErrorCode == "connection_error" {
		return fmt.Sprintf(`Error: %s

Suggestions:
  • Start the server: credd serve
  • Check if the server is running on the expected port
  • Verify the admin URL with: credd config`, apiErr.Message)
	}
	return err.Error()
}

// FormatNotFoundError returns a user-friendly error message for unknown indexes.
func FormatNotFoundError(index int) string {
	return fmt.Sprintf(`Error: credential not found: %d

Suggestions:
  • Check pool indexes with: credd list
  • Verify you're connected to the right server`, index)
}
