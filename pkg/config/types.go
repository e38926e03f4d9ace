package config

import "github.com/creddhq/credd/pkg/audit"

// Defaults applied by Default for sections absent from the file.
const (
	DefaultAdminPort = 4780
	DefaultPoolURL   = "http://localhost:4785"
)

// Config is the root of a credd server configuration file.
//
// Every section is optional. Load starts from Default and decodes the
// file on top of it, so absent fields keep their defaults. Files matched
// by Include are decoded the same way afterwards, in sorted order, later
// values winning field by field.
type Config struct {
	// Version identifies the configuration format. Currently "1".
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Include lists additional configuration files to merge on top of
	// this one. Entries may be plain paths or globs (** is supported)
	// and are resolved relative to the including file.
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`

	Admin   AdminConfig   `json:"admin,omitempty" yaml:"admin,omitempty"`
	Pool    PoolConfig    `json:"pool,omitempty" yaml:"pool,omitempty"`
	WebUI   WebUIConfig   `json:"webui,omitempty" yaml:"webui,omitempty"`
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	Audit   *audit.Config `json:"audit,omitempty" yaml:"audit,omitempty"`
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// AdminConfig configures the admin API listener.
type AdminConfig struct {
	// Port is the TCP port the admin API listens on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// BasePath prefixes every admin route, e.g. "/credd" when the API
	// sits behind a path-routing reverse proxy.
	BasePath string `json:"basePath,omitempty" yaml:"basePath,omitempty"`

	Auth      AuthConfig       `json:"auth,omitempty" yaml:"auth,omitempty"`
	CORS      *CORSConfig      `json:"cors,omitempty" yaml:"cors,omitempty"`
	RateLimit *RateLimitConfig `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`
}

// AuthConfig configures API key authentication for the admin API.
type AuthConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Key is the API key itself. Prefer keyFile or the CREDD_API_KEY
	// environment variable over embedding a key in the file.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// KeyFile is where the key is loaded from and persisted to. Empty
	// means the default location under the XDG data directory.
	KeyFile string `json:"keyFile,omitempty" yaml:"keyFile,omitempty"`

	// AllowLocalhost skips authentication for loopback connections.
	AllowLocalhost bool `json:"allowLocalhost" yaml:"allowLocalhost"`

	// ExemptPaths are additional request paths that never require a
	// key. Glob patterns are supported, e.g. "/api/public/**".
	ExemptPaths []string `json:"exemptPaths,omitempty" yaml:"exemptPaths,omitempty"`
}

// CORSConfig configures cross-origin access to the admin API. A nil
// section keeps the built-in default, which allows all origins without
// credentials.
type CORSConfig struct {
	// AllowedOrigins lists origins permitted to call the admin API from
	// a browser. "*" allows any origin.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
	// AllowedMethods lists permitted methods for cross-origin requests.
	AllowedMethods []string `json:"allowedMethods,omitempty" yaml:"allowedMethods,omitempty"`
	// AllowedHeaders lists request headers permitted in cross-origin
	// requests.
	AllowedHeaders []string `json:"allowedHeaders,omitempty" yaml:"allowedHeaders,omitempty"`
	// AllowCredentials permits cookies and authorization headers on
	// cross-origin requests. The matched origin is then echoed back
	// instead of "*".
	AllowCredentials bool `json:"allowCredentials,omitempty" yaml:"allowCredentials,omitempty"`
	// MaxAge is the preflight cache duration in seconds.
	MaxAge int `json:"maxAge,omitempty" yaml:"maxAge,omitempty"`
}

// RateLimitConfig configures per-client throttling on the admin API. A
// nil section keeps the built-in per-IP limiter defaults; set enabled to
// false to turn limiting off entirely.
type RateLimitConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// RequestsPerSecond is the sustained rate granted to each client.
	// Zero keeps the built-in default.
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty" yaml:"requestsPerSecond,omitempty"`

	// Burst is the bucket capacity per client. Zero keeps the built-in
	// default.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`

	// TrustedProxies lists CIDR ranges (or bare IPs) whose forwarding
	// headers identify the real client.
	TrustedProxies []string `json:"trustedProxies,omitempty" yaml:"trustedProxies,omitempty"`

	// TrustAllProxies honors forwarding headers from any source. Only
	// safe when the admin port is unreachable except through a proxy.
	TrustAllProxies bool `json:"trustAllProxies,omitempty" yaml:"trustAllProxies,omitempty"`
}

// PoolConfig tells the admin API how to reach the credd daemon.
type PoolConfig struct {
	// URL is the daemon's base URL.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Token authenticates admin requests to the daemon, when the daemon
	// requires one.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// TimeoutSeconds bounds each request to the daemon.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`
}

// WebUIConfig configures the embedded dashboard.
type WebUIConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// BasePath is the URL prefix the dashboard is served under, for
	// deployments behind a path-routing reverse proxy.
	BasePath string `json:"basePath,omitempty" yaml:"basePath,omitempty"`
}

// LoggingConfig configures the process-wide logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Output is stderr, stdout, or a file path.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// AddSource annotates log records with file and line.
	AddSource bool `json:"addSource,omitempty" yaml:"addSource,omitempty"`

	// Loki ships log records to a Loki push endpoint in addition to
	// Output.
	Loki *LokiConfig `json:"loki,omitempty" yaml:"loki,omitempty"`
}

// LokiConfig configures log shipping to Grafana Loki.
type LokiConfig struct {
	// Endpoint is the push URL, e.g. "http://loki:3100/loki/api/v1/push".
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Labels are attached to every shipped stream.
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`

	// BatchSize is how many records are buffered before a push. Zero
	// keeps the built-in default.
	BatchSize int `json:"batchSize,omitempty" yaml:"batchSize,omitempty"`

	// FlushIntervalSeconds bounds how long a partial batch may wait
	// before being pushed. Zero keeps the built-in default.
	FlushIntervalSeconds int `json:"flushIntervalSeconds,omitempty" yaml:"flushIntervalSeconds,omitempty"`
}

// TracingConfig configures span export for admin requests.
type TracingConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Exporter is stdout or otlp.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`

	// Endpoint is the OTLP collector URL. Required when Exporter is
	// otlp.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// SampleRatio is the fraction of traces to record, between 0 and 1.
	SampleRatio float64 `json:"sampleRatio,omitempty" yaml:"sampleRatio,omitempty"`

	// ServiceName identifies this process in exported spans.
	ServiceName string `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`

	// BatchSize is how many finished spans are buffered before export.
	// Zero keeps the built-in default.
	BatchSize int `json:"batchSize,omitempty" yaml:"batchSize,omitempty"`
}

// Default returns the configuration used when no file is present: admin
// API on port 4780 with auth enabled (loopback exempt), daemon expected
// on localhost:4785, dashboard on, text logs to stderr, tracing off.
func Default() *Config {
	return &Config{
		Version: "1",
		Admin: AdminConfig{
			Port: DefaultAdminPort,
			Auth: AuthConfig{
				Enabled:        true,
				AllowLocalhost: true,
			},
		},
		Pool: PoolConfig{
			URL:            DefaultPoolURL,
			TimeoutSeconds: 30,
		},
		WebUI: WebUIConfig{
			Enabled: true,
		},
		// Seeding the audit defaults here means a file that only flips
		// enabled keeps includeHeaders, previews, and skip paths intact.
		Audit: audit.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			SampleRatio: 1,
			ServiceName: "credd-admin",
		},
	}
}
