package cliconfig

import (
	"fmt"
	"net/url"
)

// CLIConfig represents the complete configuration for the credd CLI.
// Configuration values can come from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables (CREDD_* prefix)
// 3. Local config file (.creddrc.yaml in current directory)
// 4. Global config file (~/.config/credd/config.yaml)
// 5. Default values (lowest priority)
type CLIConfig struct {
	// Admin client settings
	AdminURL       string `yaml:"adminUrl" json:"adminUrl"`
	TimeoutSeconds int    `yaml:"timeoutSeconds" json:"timeoutSeconds"`

	// Server settings, used by `credd serve` when no flags override them
	AdminPort  int    `yaml:"adminPort" json:"adminPort"`
	PoolURL    string `yaml:"poolUrl" json:"poolUrl"`
	ConfigFile string `yaml:"configFile,omitempty" json:"configFile,omitempty"`

	// Output settings
	LogLevel string `yaml:"logLevel,omitempty" json:"logLevel,omitempty"`
	Verbose  bool   `yaml:"verbose" json:"verbose"`
	JSON     bool   `yaml:"json" json:"json"`

	// Sources tracks where each value came from, keyed by YAML field name.
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields records which keys were present in a loaded file, so an
	// explicit false can override a true from a lower-precedence layer.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Validate checks the configuration for out-of-range or malformed values.
func (c *CLIConfig) Validate() error {
	if c.AdminPort < 0 || c.AdminPort > 65535 {
		return fmt.Errorf("adminPort %d is out of range (0-65535)", c.AdminPort)
	}
	if c.TimeoutSeconds < 0 || c.TimeoutSeconds > 3600 {
		return fmt.Errorf("timeoutSeconds %d is out of range (0-3600)", c.TimeoutSeconds)
	}
	if c.AdminURL != "" {
		if err := checkHTTPURL(c.AdminURL); err != nil {
			return fmt.Errorf("adminUrl: %w", err)
		}
	}
	if c.PoolURL != "" {
		if err := checkHTTPURL(c.PoolURL); err != nil {
			return fmt.Errorf("poolUrl: %w", err)
		}
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logLevel %q is not one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q, must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return nil
}
