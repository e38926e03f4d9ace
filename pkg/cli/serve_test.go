package cli

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/creddhq/credd/pkg/cli/internal/ports"
	"github.com/creddhq/credd/pkg/config"
)

// changedSet builds a flag-changed predicate from a list of flag names.
func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestApplyServeOverrides(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	f := &serveFlags{
		adminPort:    4800,
		poolURL:      "http://10.0.0.5:4785",
		basePath:     "/credd",
		noAuth:       true,
		apiKey:       "ck_test123",
		corsOrigins:  "https://a.example, https://b.example",
		rateLimit:    25,
		rateBurst:    50,
		auditEnabled: true,
		auditFile:    "/var/log/credd-audit.jsonl",
		noUI:         true,
		logLevel:     "debug",
		logFormat:    "json",
		lokiEndpoint: "http://loki:3100/loki/api/v1/push",
		otlpEndpoint: "http://jaeger:4318/v1/traces",
		traceSampler: 0.25,
	}

	applyServeOverrides(cfg, f, changedSet(
		"admin-port", "pool-url", "base-path", "no-auth", "api-key",
		"cors-origins", "rate-limit", "rate-limit-burst",
		"audit-enabled", "audit-file", "no-ui",
		"log-level", "log-format", "loki-endpoint",
		"otlp-endpoint", "trace-sampler",
	))

	if cfg.Admin.Port != 4800 {
		t.Errorf("Admin.Port = %d, want 4800", cfg.Admin.Port)
	}
	if cfg.Pool.URL != "http://10.0.0.5:4785" {
		t.Errorf("Pool.URL = %q", cfg.Pool.URL)
	}
	if cfg.Admin.BasePath != "/credd" {
		t.Errorf("Admin.BasePath = %q", cfg.Admin.BasePath)
	}
	if cfg.Admin.Auth.Enabled {
		t.Error("Auth.Enabled = true after --no-auth")
	}
	if cfg.Admin.Auth.Key != "ck_test123" {
		t.Errorf("Auth.Key = %q", cfg.Admin.Auth.Key)
	}
	if cfg.Admin.CORS == nil {
		t.Fatal("CORS section not created")
	}
	if got := cfg.Admin.CORS.AllowedOrigins; len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", got)
	}
	if cfg.Admin.RateLimit == nil {
		t.Fatal("RateLimit section not created")
	}
	if !cfg.Admin.RateLimit.Enabled || cfg.Admin.RateLimit.RequestsPerSecond != 25 || cfg.Admin.RateLimit.Burst != 50 {
		t.Errorf("RateLimit = %+v", cfg.Admin.RateLimit)
	}
	if cfg.Audit == nil || !cfg.Audit.Enabled {
		t.Error("audit not enabled")
	}
	if cfg.Audit.OutputFile != "/var/log/credd-audit.jsonl" {
		t.Errorf("Audit.OutputFile = %q", cfg.Audit.OutputFile)
	}
	if cfg.WebUI.Enabled {
		t.Error("WebUI.Enabled = true after --no-ui")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Logging.Loki == nil || cfg.Logging.Loki.Endpoint != "http://loki:3100/loki/api/v1/push" {
		t.Errorf("Loki = %+v", cfg.Logging.Loki)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Exporter != "otlp" {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Tracing.SampleRatio != 0.25 {
		t.Errorf("SampleRatio = %g", cfg.Tracing.SampleRatio)
	}
}

func TestApplyServeOverridesKeepsConfigWhenFlagsUnset(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Admin.Port = 4900
	cfg.Pool.URL = "http://pool.internal:4785"

	// Flag values are populated with their defaults, but none were set on
	// the command line.
	f := &serveFlags{adminPort: config.DefaultAdminPort, poolURL: config.DefaultPoolURL}
	applyServeOverrides(cfg, f, func(string) bool { return false })

	if cfg.Admin.Port != 4900 {
		t.Errorf("Admin.Port = %d, want config value 4900", cfg.Admin.Port)
	}
	if cfg.Pool.URL != "http://pool.internal:4785" {
		t.Errorf("Pool.URL = %q, want config value", cfg.Pool.URL)
	}
	if !cfg.Admin.Auth.Enabled {
		t.Error("Auth.Enabled flipped without --no-auth")
	}
	if !cfg.WebUI.Enabled {
		t.Error("WebUI.Enabled flipped without --no-ui")
	}
}

func TestApplyServeOverridesRateLimitZeroDisables(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	f := &serveFlags{rateLimit: 0}
	applyServeOverrides(cfg, f, changedSet("rate-limit"))

	if cfg.Admin.RateLimit == nil {
		t.Fatal("RateLimit section not created")
	}
	if cfg.Admin.RateLimit.Enabled {
		t.Error("rate limiting still enabled after --rate-limit 0")
	}
}

func TestApplyServeOverridesDataDir(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	f := &serveFlags{dataDir: "/srv/credd"}
	applyServeOverrides(cfg, f, changedSet("data-dir"))

	want := filepath.Join("/srv/credd", "admin-api-key")
	if cfg.Admin.Auth.KeyFile != want {
		t.Errorf("Auth.KeyFile = %q, want %q", cfg.Admin.Auth.KeyFile, want)
	}
}

func TestEnsureAuditConfigCreatesSection(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	ac := ensureAuditConfig(cfg)
	if ac == nil || cfg.Audit != ac {
		t.Fatal("audit section not created")
	}
	if ac.Enabled {
		t.Error("fresh audit section starts enabled")
	}
}

func TestValidateServeConfig(t *testing.T) {
	t.Parallel()

	if err := validateServeConfig(config.Default()); err != nil {
		t.Errorf("default config rejected: %v", err)
	}

	cfg := config.Default()
	cfg.Admin.Port = 70000
	if err := validateServeConfig(cfg); err == nil {
		t.Error("port 70000 accepted")
	}

	cfg = config.Default()
	cfg.Admin.Port = -1
	if err := validateServeConfig(cfg); err == nil {
		t.Error("port -1 accepted")
	}

	cfg = config.Default()
	cfg.Tracing.SampleRatio = 1.5
	if err := validateServeConfig(cfg); err == nil {
		t.Error("sample ratio 1.5 accepted")
	}

	cfg = config.Default()
	cfg.Admin.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerSecond: -3}
	if err := validateServeConfig(cfg); err == nil {
		t.Error("negative rate limit accepted")
	}
}

func TestInitializeTracerSamplerBranches(t *testing.T) {
	t.Parallel()

	for _, ratio := range []float64{1.0, 0.0, 0.5} {
		tc := config.TracingConfig{Enabled: true, Exporter: "stdout", SampleRatio: ratio}
		tr := initializeTracer(tc)
		if tr == nil {
			t.Fatalf("ratio %g: nil tracer", ratio)
		}
	}

	tc := config.TracingConfig{Enabled: true, Exporter: "otlp", Endpoint: "http://localhost:4318/v1/traces", SampleRatio: 1}
	if initializeTracer(tc) == nil {
		t.Fatal("otlp tracer is nil")
	}
}

func TestOpenLogOutput(t *testing.T) {
	t.Parallel()

	if w, err := openLogOutput(""); err != nil || w != os.Stderr {
		t.Errorf("empty output: got %v, %v", w, err)
	}
	if w, err := openLogOutput("stderr"); err != nil || w != os.Stderr {
		t.Errorf("stderr output: got %v, %v", w, err)
	}
	if w, err := openLogOutput("stdout"); err != nil || w != os.Stdout {
		t.Errorf("stdout output: got %v, %v", w, err)
	}

	path := filepath.Join(t.TempDir(), "credd.log")
	w, err := openLogOutput(path)
	if err != nil {
		t.Fatalf("file output: %v", err)
	}
	if c, ok := w.(*os.File); ok {
		_ = c.Close()
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestWritePIDFileForServe(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credd.pid")
	cfg := config.Default()
	cfg.Pool.URL = "http://localhost:9999"

	if err := writePIDFileForServe(path, 4810, cfg, "testdata/credd.yaml"); err != nil {
		t.Fatalf("writePIDFileForServe: %v", err)
	}

	info, err := ReadPIDFile(path)
	if err != nil {
		t.Fatalf("ReadPIDFile: %v", err)
	}
	if info.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", info.PID, os.Getpid())
	}
	if !info.Components.Admin.Enabled || info.Components.Admin.Port != 4810 {
		t.Errorf("Admin component = %+v", info.Components.Admin)
	}
	if info.PoolURL != "http://localhost:9999" {
		t.Errorf("PoolURL = %q", info.PoolURL)
	}
	if info.Config.File != "testdata/credd.yaml" {
		t.Errorf("Config.File = %q", info.Config.File)
	}
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
}

func TestBoundAdminPortWithoutServer(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Admin.Port = 4811
	sctx := &serveContext{cfg: cfg}
	if got := boundAdminPort(sctx); got != 4811 {
		t.Errorf("boundAdminPort = %d, want 4811", got)
	}
}

func TestPortInUseError(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	checkErr := ports.Check(port)
	if checkErr == nil {
		t.Skip("second bind on the port unexpectedly succeeded")
	}
	if !isAddrInUseError(checkErr) {
		t.Fatalf("isAddrInUseError = false for %v", checkErr)
	}

	msg := portInUseError(port, checkErr).Error()
	if !strings.Contains(msg, "--admin-port") || !strings.Contains(msg, "lsof") {
		t.Errorf("unhelpful port error: %q", msg)
	}
}

func TestSplitCommaList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , b ", []string{"a", "b"}},
		{"a,,b,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		got := splitCommaList(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitCommaList(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitCommaList(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestResolveBasePath(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	if got := resolveBasePath(cfg); got != "" {
		t.Errorf("default base path = %q, want empty", got)
	}

	cfg.Admin.BasePath = "/admin"
	if got := resolveBasePath(cfg); got != "/admin" {
		t.Errorf("base path = %q, want /admin", got)
	}

	cfg.WebUI.BasePath = "/dash"
	if got := resolveBasePath(cfg); got != "/dash" {
		t.Errorf("base path = %q, want webui value /dash", got)
	}
}
