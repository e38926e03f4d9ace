package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultKeyFileName is the file name the server uses when persisting a
// generated API key.
const DefaultKeyFileName = "admin-api-key"

// GetAPIKeyFilePath returns the default path for the API key file.
// Location: $XDG_DATA_HOME/credd/admin-api-key (or ~/.local/share/credd/admin-api-key).
// This matches where the server persists a generated key.
func GetAPIKeyFilePath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "credd", DefaultKeyFileName)
}

// LoadAPIKeyFromFile loads the API key from the default file location.
// Returns empty string without error if the file doesn't exist.
func LoadAPIKeyFromFile() (string, error) {
	return LoadAPIKeyFromPath(GetAPIKeyFilePath())
}

// LoadAPIKeyFromPath loads the API key from a specific file path.
func LoadAPIKeyFromPath(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil // File doesn't exist, not an error
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// GetAPIKey returns the API key, checking sources in priority order:
// 1. Environment variable (CREDD_API_KEY)
// 2. Key file written by the server (~/.local/share/credd/admin-api-key)
// 3. Empty string (no auth)
func GetAPIKey() string {
	if key := GetAPIKeyFromEnv(); key != "" {
		return key
	}
	if key, err := LoadAPIKeyFromFile(); err == nil && key != "" {
		return key
	}
	return ""
}

// ClientConfig holds resolved configuration for creating an admin client.
// This is the single source of truth for CLI commands needing to connect.
type ClientConfig struct {
	// AdminURL is the resolved admin API base URL
	AdminURL string

	// APIKey is the resolved API key (may be empty if auth disabled)
	APIKey string

	// TimeoutSeconds is the request timeout for admin calls
	TimeoutSeconds int
}

// ResolveClientConfig resolves everything a command needs to talk to the
// admin API. Pass an empty string for a flag that wasn't provided.
// Priority per field: flag > env > local config > global config > default.
func ResolveClientConfig(flagAdminURL string) *ClientConfig {
	cfg, err := LoadAll()
	if err != nil {
		cfg = NewDefault()
	}

	out := &ClientConfig{
		AdminURL:       cfg.AdminURL,
		APIKey:         GetAPIKey(),
		TimeoutSeconds: cfg.TimeoutSeconds,
	}
	if flagAdminURL != "" {
		out.AdminURL = flagAdminURL
	}
	return out
}

// GetAdminURL returns the admin URL from the merged configuration, falling
// back to the default when loading fails. Commands use it as the --admin-url
// flag default.
func GetAdminURL() string {
	cfg, err := LoadAll()
	if err != nil || cfg.AdminURL == "" {
		return DefaultAdminURL(0)
	}
	return cfg.AdminURL
}

// ResolveAdminURL resolves the admin URL, preferring an explicit flag value.
func ResolveAdminURL(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return GetAdminURL()
}
