package admin

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/creddhq/credd/pkg/metrics"
)

// CORSConfig holds the configuration for CORS middleware.
type CORSConfig struct {
	// AllowedOrigins is a list of origins that are allowed to make
	// cross-origin requests. If empty or containing "*", all origins are
	// allowed.
	AllowedOrigins []string

	// AllowedMethods is a list of HTTP methods allowed for cross-origin
	// requests. Default: GET, POST, PUT, DELETE, OPTIONS.
	AllowedMethods []string

	// AllowedHeaders is a list of headers allowed in cross-origin
	// requests. Default: Content-Type, Authorization, X-API-Key,
	// Last-Event-ID.
	AllowedHeaders []string

	// AllowCredentials indicates whether the request can include
	// credentials like cookies or authorization headers. When true,
	// AllowedOrigins cannot contain "*"; specific origins must be listed.
	AllowCredentials bool

	// MaxAge indicates how long (in seconds) the results of a preflight
	// request can be cached. Default: 86400 (24 hours).
	MaxAge int
}

// DefaultCORSConfig allows all origins without credentials. Deployments
// exposing the admin port beyond localhost should list explicit origins
// instead.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key", "Last-Event-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	}
}

// isWildcard reports whether the config allows any origin.
func (c *CORSConfig) isWildcard() bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (c *CORSConfig) isOriginAllowed(origin string) bool {
	if c.isWildcard() {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// allowOriginValue returns the Access-Control-Allow-Origin value for the
// given request origin, or "" when the origin is not allowed.
func (c *CORSConfig) allowOriginValue(origin string) string {
	// With credentials the specific origin must be echoed, never "*".
	if c.AllowCredentials {
		if origin != "" && c.isOriginAllowed(origin) {
			return origin
		}
		return ""
	}
	if c.isWildcard() {
		return "*"
	}
	if c.isOriginAllowed(origin) {
		return origin
	}
	return ""
}

func (c *CORSConfig) methods() string {
	if len(c.AllowedMethods) == 0 {
		return "GET, POST, PUT, DELETE, OPTIONS"
	}
	return strings.Join(c.AllowedMethods, ", ")
}

func (c *CORSConfig) headers() string {
	if len(c.AllowedHeaders) == 0 {
		return "Content-Type, Authorization, X-API-Key, Last-Event-ID"
	}
	return strings.Join(c.AllowedHeaders, ", ")
}

func (c *CORSConfig) maxAge() string {
	if c.MaxAge <= 0 {
		return "86400"
	}
	return strconv.Itoa(c.MaxAge)
}

// corsMiddleware applies the configured CORS policy. Preflights from
// disallowed origins stop with 403; other disallowed requests proceed
// without CORS headers and the browser blocks the response.
func (a *API) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		w.Header().Add("Vary", "Origin")

		allowOrigin := a.corsConfig.allowOriginValue(origin)
		if allowOrigin == "" {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", allowOrigin)
		h.Set("Access-Control-Allow-Methods", a.corsConfig.methods())
		h.Set("Access-Control-Allow-Headers", a.corsConfig.headers())
		h.Set("Access-Control-Max-Age", a.corsConfig.maxAge())
		if a.corsConfig.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware adds protective headers to every response.
// The CSP keeps everything same-origin but must permit inline script and
// style: the entry document carries the injected runtime config script.
// The blanket no-store is overridden by the UI handler's per-asset cache
// policy.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// observeMiddleware records request metrics and emits one debug log line
// per request.
func (a *API) observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		a.requests.Add(1)
		elapsed := time.Since(start)
		route := metricPath(r.URL.Path)

		if metrics.AdminRequestsTotal != nil {
			if vec, err := metrics.AdminRequestsTotal.WithLabels(r.Method, route, strconv.Itoa(rec.status)); err == nil {
				_ = vec.Inc()
			}
		}
		if metrics.AdminRequestDuration != nil {
			if vec, err := metrics.AdminRequestDuration.WithLabels(r.Method, route); err == nil {
				vec.Observe(elapsed.Seconds())
			}
		}

		a.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
			"remote", r.RemoteAddr,
		)
	})
}

// metricPath collapses request paths onto the route table so metric label
// cardinality is bounded by it, not by pool size or by whatever paths
// clients probe.
func metricPath(p string) string {
	if rest, ok := strings.CutPrefix(p, "/api/credentials/"); ok {
		suffix := ""
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			suffix = rest[i:]
		}
		switch suffix {
		case "", "/disabled", "/priority", "/reset", "/balance":
			return "/api/credentials/{index}" + suffix
		}
		return "/api/other"
	}
	switch p {
	case "/", "/health", "/metrics", "/api/status", "/api/credentials",
		"/api/pool/rotate", "/api/events", "/api/admin/api-key",
		"/api/admin/api-key/rotate":
		return p
	}
	if strings.HasPrefix(p, "/api/") {
		return "/api/other"
	}
	return "/ui"
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so the event stream keeps working
// behind the middleware chain.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap supports http.ResponseController.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}
