package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creddhq/credd/pkg/admin/poolclient"
	"github.com/creddhq/credd/pkg/audit"
	"github.com/creddhq/credd/pkg/logging"
	"github.com/creddhq/credd/pkg/metrics"
	"github.com/creddhq/credd/pkg/pool"
	"github.com/creddhq/credd/pkg/ratelimit"
	"github.com/creddhq/credd/pkg/tracing"
	"github.com/creddhq/credd/pkg/webui"
)

// DefaultPoolURL is where the pool daemon's control API listens.
const DefaultPoolURL = "http://localhost:4785"

// API exposes the credential pool over REST, serves the embedded web UI,
// and streams pool changes to connected clients.
type API struct {
	// pool is the facade the admin operations act on. Remote by default
	// (the pool daemon over HTTP); tests inject fakes.
	pool    pool.Manager
	poolURL string

	service *Service
	events  *eventHub
	ui      *webui.Handler
	noUI    bool

	server    *http.Server
	port      int
	boundAddr net.Addr
	startTime time.Time
	requests  atomic.Int64

	logger   *slog.Logger
	version  string
	basePath string

	// API key authentication
	apiKey       *apiKeyAuth
	apiKeyConfig APIKeyConfig

	// Rate limiter for API protection
	rateLimiter *ratelimit.PerIPLimiter
	noRateLimit bool

	// CORS configuration
	corsConfig CORSConfig

	// Metrics registry for the Prometheus endpoint
	registry *metrics.Registry

	// Tracer for distributed tracing (optional)
	tracer *tracing.Tracer

	// Audit trail (optional)
	auditRec        *audit.Recorder
	auditHTTPLogger audit.AuditLogger
	auditHTTPConfig *audit.Config

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New creates an admin API listening on the given port. With no options
// it talks to the default pool daemon URL, generates an API key on first
// start, and rate limits per client IP.
func New(port int, opts ...Option) *API {
	a := &API{
		port:         port,
		logger:       logging.Nop(),
		version:      "dev",
		poolURL:      DefaultPoolURL,
		apiKeyConfig: DefaultAPIKeyConfig(),
		corsConfig:   DefaultCORSConfig(),
	}

	for _, opt := range opts {
		opt(a)
	}

	// Resolve the pool facade. An injected Manager wins; otherwise dial
	// the daemon, falling back to the inert pool so every endpoint still
	// answers when nothing is configured.
	if a.pool == nil {
		if a.poolURL != "" {
			a.pool = poolclient.New(a.poolURL)
		} else {
			a.pool = &pool.NoopManager{}
		}
	}

	a.registry = metrics.Init()

	if a.noRateLimit {
		a.rateLimiter = nil
	} else if a.rateLimiter == nil {
		a.rateLimiter = ratelimit.NewPerIPLimiter(ratelimit.PerIPConfig{})
	}

	a.apiKey = newAPIKeyAuth(a.apiKeyConfig, a.logger)
	a.service = NewService(a.pool, a.logger, a.auditRec)
	a.events = newEventHub(a.pool, a.logger)
	if !a.noUI {
		a.ui = webui.NewHandler(webui.Dist(),
			webui.WithBasePath(a.basePath),
			webui.WithLogger(a.logger),
		)
	}

	mux := http.NewServeMux()
	a.registerRoutes(mux)

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           a.withMiddleware(mux),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: the event stream holds its response open for
		// the life of the client.
	}

	return a
}

// withMiddleware wraps the handler with the full middleware stack.
// Order (outermost to innermost): Tracing -> Audit -> Security Headers ->
// CORS -> API Key Auth -> Rate Limiting -> Metrics/Logging -> Handler.
func (a *API) withMiddleware(handler http.Handler) http.Handler {
	h := a.observeMiddleware(handler)

	h = ratelimit.Middleware(a.rateLimiter)(h)

	if a.apiKey != nil {
		h = a.apiKey.middleware(h)
	}

	h = a.corsMiddleware(h)
	h = securityHeadersMiddleware(h)

	if a.auditHTTPLogger != nil {
		h = audit.NewMiddleware(h, a.auditHTTPLogger, a.auditHTTPConfig)
	}

	if a.tracer != nil {
		h = a.tracingMiddleware(h)
	}
	return h
}

// skipTracingPaths contains paths that should not create traces.
// These are typically health checks and metrics endpoints.
var skipTracingPaths = map[string]bool{
	"/metrics": true,
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
}

// tracingMiddleware wraps a handler with distributed tracing support.
func (a *API) tracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skipTracingPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		// Continue a trace from the caller's headers if it sent one.
		ctx := tracing.Extract(r.Context(), r.Header)

		spanName := fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
		ctx, span := a.tracer.Start(ctx, spanName)
		defer span.End()

		span.SetAttribute("http.method", r.Method)
		span.SetAttribute("http.target", r.URL.Path)
		span.SetAttribute("http.host", r.Host)

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r.WithContext(ctx))

		span.SetAttribute("http.status_code", strconv.Itoa(sr.status))
		if sr.status >= 400 {
			span.SetStatus(tracing.StatusError, http.StatusText(sr.status))
		} else {
			span.SetStatus(tracing.StatusOK, "")
		}
	})
}

// Start begins serving. The listen happens synchronously so a taken port
// surfaces here rather than in a goroutine's log output.
func (a *API) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return errors.New("admin API is already running")
	}

	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("admin API listen on %s: %w", a.server.Addr, err)
	}
	a.boundAddr = ln.Addr()

	// The server base context doubles as the event hub's lifetime. Stop
	// cancels it, which ends open event streams so Shutdown is not held
	// hostage by them.
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.server.BaseContext = func(net.Listener) context.Context { return ctx }
	go a.events.run(ctx)

	a.startTime = time.Now()
	a.running = true

	a.logger.Info("starting admin API", "port", a.port, "pool_url", a.poolURL)
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("admin API error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the admin API server.
func (a *API) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.running = false

	if a.cancel != nil {
		a.cancel()
	}
	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}

// SetLogger sets the operational logger for the admin API and everything
// it owns.
func (a *API) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.Nop()
	}
	a.logger = logger
	a.service.logger = logger
	a.events.logger = logger
	a.apiKey.logger = logger
}

// Handler returns the fully wrapped HTTP handler, mainly for tests that
// drive the API through httptest without a listener.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

// Service returns the admin service the handlers delegate to.
func (a *API) Service() *Service {
	return a.service
}

// Registry returns the metrics registry backing /metrics.
func (a *API) Registry() *metrics.Registry {
	return a.registry
}

// Tracer returns the tracer, if configured.
func (a *API) Tracer() *tracing.Tracer {
	return a.tracer
}

// Addr returns the bound listen address once Start has succeeded, which
// is how callers learn the real port when the API was created with port 0.
func (a *API) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.boundAddr == nil {
		return ""
	}
	return a.boundAddr.String()
}

// Uptime returns the API uptime in seconds.
func (a *API) Uptime() int {
	return int(time.Since(a.startTime).Seconds())
}
