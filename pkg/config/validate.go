package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/creddhq/credd/pkg/audit"
)

// ValidationError represents a single configuration error.
type ValidationError struct {
	Path    string // config path, e.g. "admin.port"
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result collects configuration errors from schema and structural
// validation.
type Result struct {
	Errors []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Error returns a combined error message, one violation per line.
func (r *Result) Error() string {
	if r.IsValid() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "\n")
}

// AddError adds a validation error.
func (r *Result) AddError(path, message string) {
	r.Errors = append(r.Errors, ValidationError{Path: path, Message: message})
}

// Validate checks the structural rules the schema cannot express, like
// URL syntax, glob patterns, and cross-field constraints. Configs built
// in Go rather than loaded from a file get the basic range checks here
// too.
func Validate(cfg *Config) *Result {
	result := &Result{}

	if cfg.Version != "" && cfg.Version != "1" {
		result.AddError("version", fmt.Sprintf("unsupported version %q, expected \"1\"", cfg.Version))
	}

	validateAdmin(&cfg.Admin, result)
	validatePool(&cfg.Pool, result)
	validateWebUI(&cfg.WebUI, result)
	validateLogging(&cfg.Logging, result)
	validateTracing(&cfg.Tracing, result)

	if cfg.Audit != nil {
		if err := cfg.Audit.Validate(); err != nil {
			var ce *audit.ConfigError
			if errors.As(err, &ce) {
				result.AddError("audit."+ce.Field, ce.Message)
			} else {
				result.AddError("audit", err.Error())
			}
		}
	}

	validatePortConflict(cfg, result)

	return result
}

func validateAdmin(admin *AdminConfig, result *Result) {
	// Port 0 is allowed and means an ephemeral port.
	if admin.Port < 0 || admin.Port > 65535 {
		result.AddError("admin.port", fmt.Sprintf("invalid port %d, must be 0-65535", admin.Port))
	}
	if admin.BasePath != "" && !strings.HasPrefix(admin.BasePath, "/") {
		result.AddError("admin.basePath", "must start with /")
	}

	for i, pattern := range admin.Auth.ExemptPaths {
		if !doublestar.ValidatePattern(pattern) {
			result.AddError(fmt.Sprintf("admin.auth.exemptPaths[%d]", i), fmt.Sprintf("invalid glob pattern %q", pattern))
		}
	}

	if cors := admin.CORS; cors != nil {
		if cors.MaxAge < 0 {
			result.AddError("admin.cors.maxAge", "must not be negative")
		}
	}

	if rl := admin.RateLimit; rl != nil {
		if rl.RequestsPerSecond < 0 {
			result.AddError("admin.rateLimit.requestsPerSecond", "must not be negative")
		}
		if rl.Burst < 0 {
			result.AddError("admin.rateLimit.burst", "must not be negative")
		}
		for i, proxy := range rl.TrustedProxies {
			if !validProxySpec(proxy) {
				result.AddError(fmt.Sprintf("admin.rateLimit.trustedProxies[%d]", i), fmt.Sprintf("invalid CIDR or IP %q", proxy))
			}
		}
	}
}

func validatePool(pool *PoolConfig, result *Result) {
	if pool.URL == "" {
		result.AddError("pool.url", "required")
	} else {
		u, err := url.Parse(pool.URL)
		switch {
		case err != nil:
			result.AddError("pool.url", fmt.Sprintf("invalid URL: %v", err))
		case u.Scheme != "http" && u.Scheme != "https":
			result.AddError("pool.url", fmt.Sprintf("unsupported scheme %q, must be http or https", u.Scheme))
		case u.Host == "":
			result.AddError("pool.url", "missing host")
		}
	}

	if pool.TimeoutSeconds < 0 {
		result.AddError("pool.timeoutSeconds", "must not be negative")
	}
}

func validateWebUI(webui *WebUIConfig, result *Result) {
	if webui.BasePath != "" && !strings.HasPrefix(webui.BasePath, "/") {
		result.AddError("webui.basePath", "must start with /")
	}
}

func validateLogging(logging *LoggingConfig, result *Result) {
	switch logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		result.AddError("logging.level", fmt.Sprintf("invalid level %q, must be one of: debug, info, warn, error", logging.Level))
	}

	switch logging.Format {
	case "", "text", "json":
	default:
		result.AddError("logging.format", fmt.Sprintf("invalid format %q, must be text or json", logging.Format))
	}

	if loki := logging.Loki; loki != nil {
		if loki.Endpoint == "" {
			result.AddError("logging.loki.endpoint", "required")
		} else if u, err := url.Parse(loki.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			result.AddError("logging.loki.endpoint", fmt.Sprintf("invalid URL %q", loki.Endpoint))
		}
		if loki.BatchSize < 0 {
			result.AddError("logging.loki.batchSize", "must not be negative")
		}
		if loki.FlushIntervalSeconds < 0 {
			result.AddError("logging.loki.flushIntervalSeconds", "must not be negative")
		}
	}
}

func validateTracing(tracing *TracingConfig, result *Result) {
	switch tracing.Exporter {
	case "", "stdout", "otlp":
	default:
		result.AddError("tracing.exporter", fmt.Sprintf("invalid exporter %q, must be stdout or otlp", tracing.Exporter))
	}

	if tracing.Enabled && tracing.Exporter == "otlp" && tracing.Endpoint == "" {
		result.AddError("tracing.endpoint", "required when exporter is otlp")
	}
	if tracing.Endpoint != "" {
		if u, err := url.Parse(tracing.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			result.AddError("tracing.endpoint", fmt.Sprintf("invalid URL %q", tracing.Endpoint))
		}
	}

	if tracing.SampleRatio < 0 || tracing.SampleRatio > 1 {
		result.AddError("tracing.sampleRatio", fmt.Sprintf("invalid ratio %v, must be between 0 and 1", tracing.SampleRatio))
	}
	if tracing.BatchSize < 0 {
		result.AddError("tracing.batchSize", "must not be negative")
	}
}

// validatePortConflict catches the easy footgun of pointing the daemon
// URL at the admin API's own port.
func validatePortConflict(cfg *Config, result *Result) {
	if cfg.Admin.Port == 0 {
		return
	}
	u, err := url.Parse(cfg.Pool.URL)
	if err != nil {
		return
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		return
	}
	if u.Port() == strconv.Itoa(cfg.Admin.Port) {
		result.AddError("pool.url", fmt.Sprintf("port %s conflicts with admin.port", u.Port()))
	}
}

// validProxySpec accepts a CIDR range or a bare IP.
func validProxySpec(s string) bool {
	if _, _, err := net.ParseCIDR(s); err == nil {
		return true
	}
	return net.ParseIP(s) != nil
}
