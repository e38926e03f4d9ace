// Option functions for configuring API.

package admin

import (
	"log/slog"

	"github.com/creddhq/credd/pkg/audit"
	"github.com/creddhq/credd/pkg/pool"
	"github.com/creddhq/credd/pkg/ratelimit"
	"github.com/creddhq/credd/pkg/tracing"
)

// Option configures an API.
type Option func(*API)

// WithPool sets the pool facade the admin operations act on.
func WithPool(mgr pool.Manager) Option {
	return func(a *API) {
		a.pool = mgr
	}
}

// WithPoolURL configures the admin API to reach the pool daemon over HTTP
// at the given control URL. The URL is also reported by the status
// endpoint.
func WithPoolURL(url string) Option {
	return func(a *API) {
		a.poolURL = url
	}
}

// WithLogger sets the structured logger for the admin API.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithVersion sets the version string returned by the status endpoint.
// If not set, defaults to "dev".
func WithVersion(version string) Option {
	return func(a *API) {
		a.version = version
	}
}

// WithBasePath sets the path prefix injected into the UI entry document's
// client-side configuration.
func WithBasePath(path string) Option {
	return func(a *API) {
		a.basePath = path
	}
}

// WithoutUI disables the embedded web UI. API routes are unaffected;
// non-API paths return 404.
func WithoutUI() Option {
	return func(a *API) {
		a.noUI = true
	}
}

// WithRateLimiter configures a custom rate limiter for the admin API.
// If not set, a default rate limiter (100 req/s, burst 200) is used.
func WithRateLimiter(rl *ratelimit.PerIPLimiter) Option {
	return func(a *API) {
		a.rateLimiter = rl
	}
}

// WithoutRateLimit disables per-IP rate limiting entirely.
func WithoutRateLimit() Option {
	return func(a *API) {
		a.noRateLimit = true
	}
}

// WithCORS configures the CORS settings for the admin API.
// If not set, a default permissive configuration (allow all origins) is used.
func WithCORS(config CORSConfig) Option {
	return func(a *API) {
		a.corsConfig = config
	}
}

// WithTracer sets the tracer for distributed tracing.
// When set, tracing middleware will be applied to capture request spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(a *API) {
		a.tracer = t
	}
}

// WithAPIKey sets a specific API key for authentication.
// If not set, a random key will be generated on startup.
func WithAPIKey(key string) Option {
	return func(a *API) {
		a.apiKeyConfig.Key = key
		a.apiKeyConfig.Enabled = true
	}
}

// WithAPIKeyConfig sets the full API key configuration.
func WithAPIKeyConfig(config APIKeyConfig) Option {
	return func(a *API) {
		a.apiKeyConfig = config
	}
}

// WithAPIKeyDisabled disables API key authentication entirely.
// WARNING: This makes the admin API accessible without any authentication.
func WithAPIKeyDisabled() Option {
	return func(a *API) {
		a.apiKeyConfig.Enabled = false
	}
}

// WithAPIKeyAllowLocalhost allows requests from localhost without an API
// key. The bundled UI relies on this; disable it when the admin port is
// reachable from anywhere but an operator's own machine.
func WithAPIKeyAllowLocalhost(allow bool) Option {
	return func(a *API) {
		a.apiKeyConfig.AllowLocalhost = allow
	}
}

// WithAPIKeyFilePath sets a custom path for storing/loading the API key.
func WithAPIKeyFilePath(path string) Option {
	return func(a *API) {
		a.apiKeyConfig.KeyFilePath = path
	}
}

// WithAPIKeyExemptPaths adds glob patterns for paths that skip API key
// checks, on top of the built-in exemptions for the health, metrics, and
// UI routes.
func WithAPIKeyExemptPaths(patterns ...string) Option {
	return func(a *API) {
		a.apiKeyConfig.ExemptPaths = append(a.apiKeyConfig.ExemptPaths, patterns...)
	}
}

// WithAudit enables the audit trail for admin mutations.
func WithAudit(rec *audit.Recorder) Option {
	return func(a *API) {
		a.auditRec = rec
	}
}

// WithAuditMiddleware additionally records every admin HTTP request and
// response in the audit trail, using the given logger and config.
func WithAuditMiddleware(logger audit.AuditLogger, config *audit.Config) Option {
	return func(a *API) {
		a.auditHTTPLogger = logger
		a.auditHTTPConfig = config
	}
}
