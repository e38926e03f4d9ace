package audit

import "github.com/bmatcuk/doublestar/v4"

// Level constants define the audit logging levels.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config defines the configuration for audit logging.
type Config struct {
	// Enabled determines whether audit logging is active.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Level controls the minimum severity of events to log.
	// Valid values: "debug", "info", "warn", "error". Default: "info".
	// Balance checks log at debug, pool mutations at info, failures at
	// error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// OutputFile is the path to the audit log file. If empty and
	// Enabled is true, entries are written to stdout.
	OutputFile string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`

	// MaxFileSizeMB rotates the output file once it would exceed this
	// size. Zero disables rotation. Only one rotated file is kept.
	MaxFileSizeMB int `json:"maxFileSizeMb,omitempty" yaml:"maxFileSizeMb,omitempty"`

	// MaxBodyPreviewSize limits body previews in bytes. Default: 1024.
	MaxBodyPreviewSize int `json:"maxBodyPreviewSize,omitempty" yaml:"maxBodyPreviewSize,omitempty"`

	// IncludeHeaders determines whether request/response headers are
	// recorded. Default: true.
	IncludeHeaders bool `json:"includeHeaders,omitempty" yaml:"includeHeaders,omitempty"`

	// SkipPaths lists request path globs the middleware ignores
	// entirely. Patterns follow gitignore-style doublestar syntax.
	SkipPaths []string `json:"skipPaths,omitempty" yaml:"skipPaths,omitempty"`

	// Extensions provides configuration for writers registered via
	// RegisterWriter, keyed by writer name.
	Extensions map[string]any `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults. Health and
// metrics probes and static UI assets are skipped so they do not flood
// the log.
func DefaultConfig() *Config {
	return &Config{
		Enabled:            false,
		Level:              LevelInfo,
		MaxBodyPreviewSize: 1024,
		IncludeHeaders:     true,
		SkipPaths:          []string{"/health", "/metrics", "/assets/**", "/favicon.svg"},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, "":
	default:
		return &ConfigError{Field: "level", Message: "must be one of: debug, info, warn, error"}
	}

	if c.MaxFileSizeMB < 0 {
		return &ConfigError{Field: "maxFileSizeMb", Message: "must not be negative"}
	}

	for _, pattern := range c.SkipPaths {
		if !doublestar.ValidatePattern(pattern) {
			return &ConfigError{Field: "skipPaths", Message: "invalid glob pattern: " + pattern}
		}
	}

	return nil
}

// ShouldLog reports whether events at the given level would be logged
// under this configuration.
func (c *Config) ShouldLog(level string) bool {
	if !c.Enabled {
		return false
	}
	return levelPriority(level) >= levelPriority(c.Level)
}

// Skips reports whether the middleware should ignore the given request
// path.
func (c *Config) Skips(path string) bool {
	for _, pattern := range c.SkipPaths {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// levelEnabled compares priorities only, ignoring the Enabled flag.
// Holders of a real logger have already made the enable decision.
func levelEnabled(c *Config, level string) bool {
	if c == nil {
		return true
	}
	return levelPriority(level) >= levelPriority(c.Level)
}

func levelPriority(level string) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		// Unknown levels behave like info.
		return 1
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "audit config: " + e.Field + ": " + e.Message
}
