package cliconfig

import (
	"os"
	"strconv"
)

// Environment variable names
const (
	EnvAdminURL  = "CREDD_ADMIN_URL"
	EnvAdminPort = "CREDD_ADMIN_PORT"
	EnvPoolURL   = "CREDD_POOL_URL"
	EnvConfig    = "CREDD_CONFIG"
	EnvAPIKey    = "CREDD_API_KEY"
	EnvTimeout   = "CREDD_TIMEOUT"
	EnvLogLevel  = "CREDD_LOG_LEVEL"
	EnvVerbose   = "CREDD_VERBOSE"
)

// LoadEnvConfig loads configuration from environment variables.
// It only sets values that are present in the environment; unparseable
// numeric values are ignored.
func LoadEnvConfig(cfg *CLIConfig) {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	if v := os.Getenv(EnvAdminURL); v != "" {
		cfg.AdminURL = v
		cfg.Sources["adminUrl"] = SourceEnv
	}

	if v := os.Getenv(EnvAdminPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.AdminPort = port
			cfg.Sources["adminPort"] = SourceEnv
		}
	}

	if v := os.Getenv(EnvPoolURL); v != "" {
		cfg.PoolURL = v
		cfg.Sources["poolUrl"] = SourceEnv
	}

	if v := os.Getenv(EnvConfig); v != "" {
		cfg.ConfigFile = v
		cfg.Sources["configFile"] = SourceEnv
	}

	if v := os.Getenv(EnvTimeout); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.TimeoutSeconds = secs
			cfg.Sources["timeoutSeconds"] = SourceEnv
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
		cfg.Sources["logLevel"] = SourceEnv
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Verbose = v == "true" || v == "1" || v == "yes"
		cfg.Sources["verbose"] = SourceEnv
	}
}

// GetAdminURLFromEnv returns the admin URL from the environment.
// Returns empty string if not set.
func GetAdminURLFromEnv() string {
	return os.Getenv(EnvAdminURL)
}

// GetAPIKeyFromEnv returns the API key from the environment.
// Returns empty string if not set.
func GetAPIKeyFromEnv() string {
	return os.Getenv(EnvAPIKey)
}
