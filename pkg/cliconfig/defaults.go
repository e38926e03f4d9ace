package cliconfig

import (
	"fmt"

	"github.com/creddhq/credd/pkg/config"
)

// DefaultTimeoutSeconds is the default request timeout for admin API calls.
const DefaultTimeoutSeconds = 30

// DefaultLogLevel is the default log level for `credd serve`.
const DefaultLogLevel = "info"

// DefaultAdminURL returns the admin API URL for the given port.
// Port 0 means the standard admin port.
func DefaultAdminURL(adminPort int) string {
	if adminPort == 0 {
		adminPort = config.DefaultAdminPort
	}
	return fmt.Sprintf("http://localhost:%d", adminPort)
}

// NewDefault creates a new CLIConfig with default values.
func NewDefault() *CLIConfig {
	cfg := &CLIConfig{
		TimeoutSeconds: DefaultTimeoutSeconds,
		AdminPort:      config.DefaultAdminPort,
		PoolURL:        config.DefaultPoolURL,
		LogLevel:       DefaultLogLevel,
		Sources:        make(map[string]string),
	}
	cfg.AdminURL = DefaultAdminURL(cfg.AdminPort)

	// Mark all as default source
	cfg.Sources["adminUrl"] = SourceDefault
	cfg.Sources["timeoutSeconds"] = SourceDefault
	cfg.Sources["adminPort"] = SourceDefault
	cfg.Sources["poolUrl"] = SourceDefault
	cfg.Sources["logLevel"] = SourceDefault

	return cfg
}
