// API key authentication for the admin API.

package admin

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// APIKeyLength is the length of generated API keys in bytes
	// (32 bytes = 64 hex chars).
	APIKeyLength = 32

	// APIKeyPrefix makes credd keys identifiable in configs and logs.
	APIKeyPrefix = "ck_"

	// APIKeyHeader is the HTTP header for API key authentication.
	APIKeyHeader = "X-API-Key"

	// APIKeyEnvVar is the environment variable consulted when no key is
	// configured explicitly.
	APIKeyEnvVar = "CREDD_API_KEY"

	// DefaultKeyFileName is the file name for the persisted API key.
	DefaultKeyFileName = "admin-api-key"
)

// APIKeyConfig holds configuration for API key authentication.
type APIKeyConfig struct {
	// Enabled controls whether API key authentication is required.
	// If false, all requests are allowed without authentication.
	Enabled bool

	// Key is the API key. If empty and Enabled is true, one is resolved
	// from the environment, the key file, or freshly generated.
	Key string

	// KeyFilePath is the path to store/load the API key.
	// If empty, uses the XDG data directory.
	KeyFilePath string

	// AllowLocalhost allows requests from loopback addresses without an
	// API key. The bundled UI depends on this when no key is wired into
	// the browser.
	AllowLocalhost bool

	// ExemptPaths are glob patterns (doublestar syntax) for paths that
	// skip authentication, on top of the built-in exemptions for the
	// health, metrics, and UI routes.
	ExemptPaths []string
}

// DefaultAPIKeyConfig returns the default API key configuration: auth on,
// loopback clients exempt so the bundled UI works out of the box.
func DefaultAPIKeyConfig() APIKeyConfig {
	return APIKeyConfig{
		Enabled:        true,
		AllowLocalhost: true,
	}
}

// apiKeyAuth handles API key state and validation.
type apiKeyAuth struct {
	config APIKeyConfig
	logger *slog.Logger

	mu     sync.RWMutex
	key    string
	source string // "config", "env", "file", "generated"
}

// newAPIKeyAuth creates the authenticator and resolves the key: explicit
// config first, then the environment, then the key file, then a fresh
// generated key persisted for next time. A generation failure leaves the
// authenticator enabled with no key, so nothing but exempt paths gets
// through.
func newAPIKeyAuth(config APIKeyConfig, logger *slog.Logger) *apiKeyAuth {
	auth := &apiKeyAuth{config: config, logger: logger}

	if !config.Enabled {
		return auth
	}

	if config.Key != "" {
		auth.setKey(config.Key, "config")
		return auth
	}

	if envKey := os.Getenv(APIKeyEnvVar); envKey != "" {
		auth.setKey(envKey, "env")
		logger.Info("using API key from environment", "var", APIKeyEnvVar)
		return auth
	}

	keyPath := auth.keyFilePath()
	if key, err := loadKeyFile(keyPath); err == nil {
		auth.setKey(key, "file")
		logger.Info("loaded API key", "path", keyPath)
		return auth
	}

	key, err := generateAPIKey()
	if err != nil {
		logger.Error("API key generation failed; only exempt paths are reachable", "error", err)
		return auth
	}
	auth.setKey(key, "generated")

	if err := saveKeyFile(keyPath, key); err != nil {
		logger.Warn("could not persist API key; it is valid for this process only",
			"path", keyPath, "error", err)
	} else {
		logger.Info("generated API key", "path", keyPath)
	}

	// The full key goes to stderr, not the log: the operator has to copy
	// it from somewhere, and log pipelines should not carry secrets.
	fmt.Fprintf(os.Stderr, "Admin API key: %s\n", key)
	fmt.Fprintf(os.Stderr, "  Set %s or use --no-auth to skip authentication.\n", APIKeyEnvVar)
	fmt.Fprintf(os.Stderr, "  Key saved to: %s\n", keyPath)

	return auth
}

func (a *apiKeyAuth) setKey(key, source string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.key = key
	a.source = source
}

func (a *apiKeyAuth) currentKey() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.key
}

// keyFilePath returns the configured key file location, defaulting to the
// XDG data directory.
func (a *apiKeyAuth) keyFilePath() string {
	if a.config.KeyFilePath != "" {
		return a.config.KeyFilePath
	}
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "credd", DefaultKeyFileName)
}

func loadKeyFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("key file %s is empty", path)
	}
	return key, nil
}

func saveKeyFile(path, key string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// validate checks the provided key in constant time.
func (a *apiKeyAuth) validate(provided string) bool {
	a.mu.RLock()
	key := a.key
	a.mu.RUnlock()

	if key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1
}

// isExempt reports whether path skips API key checks. The UI routes
// (anything outside /api), the health endpoint, and the metrics endpoint
// are always exempt; configured glob patterns extend the set.
func (a *apiKeyAuth) isExempt(path string) bool {
	if path == "/health" || path == "/metrics" {
		return true
	}
	if path != "/api" && !strings.HasPrefix(path, "/api/") {
		return true
	}
	for _, pattern := range a.config.ExemptPaths {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// middleware enforces API key authentication on non-exempt paths.
func (a *apiKeyAuth) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		if a.isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if a.config.AllowLocalhost && isLoopbackRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		// Header first, then bearer token, then query parameter. The
		// query form exists because EventSource cannot set headers.
		apiKey := r.Header.Get(APIKeyHeader)
		if apiKey == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "missing_api_key",
				"API key required. Provide via X-API-Key header, Authorization: Bearer <key>, or api_key query parameter.")
			return
		}
		if !a.validate(apiKey) {
			writeError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rotate generates a new key, persists it, and returns it. The old key
// stops validating immediately.
func (a *apiKeyAuth) rotate() (string, error) {
	newKey, err := generateAPIKey()
	if err != nil {
		return "", fmt.Errorf("generate new API key: %w", err)
	}
	a.setKey(newKey, "generated")

	keyPath := a.keyFilePath()
	if err := saveKeyFile(keyPath, newKey); err != nil {
		a.logger.Warn("could not persist rotated API key", "path", keyPath, "error", err)
	}
	return newKey, nil
}

// generateAPIKey produces a random ck_-prefixed key.
func generateAPIKey() (string, error) {
	buf := make([]byte, APIKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return APIKeyPrefix + hex.EncodeToString(buf), nil
}

// isLoopbackRequest reports whether the request's direct peer is a
// loopback address.
func isLoopbackRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// APIKeyInfo describes the current API key without revealing it unless
// explicitly asked.
type APIKeyInfo struct {
	Key         string `json:"key,omitempty"`
	KeyPrefix   string `json:"keyPrefix"`
	Enabled     bool   `json:"enabled"`
	Source      string `json:"source,omitempty"`
	KeyFilePath string `json:"keyFilePath"`
}

// info returns key metadata; the full key is included only when showKey
// is set.
func (a *apiKeyAuth) info(showKey bool) APIKeyInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := APIKeyInfo{
		Enabled:     a.config.Enabled,
		Source:      a.source,
		KeyFilePath: a.keyFilePath(),
	}
	if a.key == "" {
		return out
	}
	if showKey {
		out.Key = a.key
	}
	// Prefix plus the first 8 hex chars is enough to tell keys apart.
	if len(a.key) > 11 {
		out.KeyPrefix = a.key[:11] + "..."
	} else {
		out.KeyPrefix = a.key
	}
	return out
}

// handleGetAPIKey handles GET /api/admin/api-key. The full key is only
// returned with ?show_key=true.
func (a *API) handleGetAPIKey(w http.ResponseWriter, r *http.Request) {
	showKey := r.URL.Query().Get("show_key") == "true"
	writeJSON(w, http.StatusOK, a.apiKey.info(showKey))
}

// handleRotateAPIKey handles POST /api/admin/api-key/rotate.
func (a *API) handleRotateAPIKey(w http.ResponseWriter, r *http.Request) {
	if !a.apiKey.config.Enabled {
		writeError(w, http.StatusBadRequest, "auth_disabled", "API key authentication is disabled")
		return
	}

	newKey, err := a.apiKey.rotate()
	if err != nil {
		// The error can name filesystem paths; keep it out of the response.
		a.logger.Error("API key rotation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "rotation_failed", "Failed to rotate API key")
		return
	}
	a.logger.Info("API key rotated")

	writeJSON(w, http.StatusOK, map[string]string{
		"key":     newKey,
		"message": "API key rotated. Existing clients using the old key are now invalid.",
	})
}

// APIKey returns the active admin API key, or "" when auth is disabled or
// no key resolved. The CLI uses this for same-process setups.
func (a *API) APIKey() string {
	return a.apiKey.currentKey()
}
