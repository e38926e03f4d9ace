package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/creddhq/credd/pkg/admin"
	"github.com/creddhq/credd/pkg/admin/poolclient"
	"github.com/creddhq/credd/pkg/audit"
	"github.com/creddhq/credd/pkg/cli/internal/output"
	"github.com/creddhq/credd/pkg/cli/internal/ports"
	"github.com/creddhq/credd/pkg/config"
	"github.com/creddhq/credd/pkg/logging"
	"github.com/creddhq/credd/pkg/ratelimit"
	"github.com/creddhq/credd/pkg/tracing"

	"github.com/spf13/cobra"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals serveFlags

// serveCmd represents the serve command, the admin server entrypoint.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the credential admin server (foreground)",
	Long: `Start the admin API server. It connects to the credd pool daemon,
exposes the management API and the bundled web dashboard, and streams
pool events to connected clients.

Settings are resolved from built-in defaults, then the configuration
file, then command-line flags, later sources winning.`,
	Example: `  # Start with defaults (admin API on :4780)
  credd serve

  # Start with a config file on a custom port
  credd serve --config credd.yaml --admin-port 4800

  # Point at a pool daemon on another host
  credd serve --pool-url http://10.0.0.5:4785

  # Start with distributed tracing (send traces to Jaeger via OTLP)
  credd serve --otlp-endpoint http://localhost:4318/v1/traces

  # Start in daemon/background mode
  credd serve -d`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServeWithFlags(cmd, &serveFlagVals)
	},
}

//nolint:funlen // flag registration is inherently long
func initServeCmd() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals

	// Standard server flags
	serveCmd.Flags().IntVarP(&f.adminPort, "admin-port", "a", config.DefaultAdminPort, "Admin API port")
	serveCmd.Flags().StringVar(&f.poolURL, "pool-url", config.DefaultPoolURL, "Pool daemon base URL")
	serveCmd.Flags().StringVar(&f.basePath, "base-path", "", "URL prefix when serving behind a path-routing proxy")
	serveCmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to server configuration file")

	// Authentication flags
	serveCmd.Flags().BoolVar(&f.noAuth, "no-auth", false, "Disable API key authentication on the admin API")
	serveCmd.Flags().StringVar(&f.apiKey, "api-key", "", "Admin API key (or set CREDD_API_KEY)")
	serveCmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Directory for generated state such as the API key file")

	// CORS flags
	serveCmd.Flags().StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated CORS allowed origins")

	// Rate limiting flags
	serveCmd.Flags().Float64Var(&f.rateLimit, "rate-limit", 0, "Admin rate limit in requests per second per client (0 = disabled)")
	serveCmd.Flags().IntVar(&f.rateBurst, "rate-limit-burst", 0, "Burst capacity per client (0 = 2x rate)")

	// Audit flags
	serveCmd.Flags().BoolVar(&f.auditEnabled, "audit-enabled", false, "Enable audit logging")
	serveCmd.Flags().StringVar(&f.auditFile, "audit-file", "", "Path to audit log file (default: stdout)")

	// Web UI flags
	serveCmd.Flags().BoolVar(&f.noUI, "no-ui", false, "Disable the bundled web dashboard")

	// Daemon/detach flags
	serveCmd.Flags().BoolVarP(&f.detach, "detach", "d", false, "Run server in background (daemon mode)")
	serveCmd.Flags().StringVar(&f.pidFile, "pid-file", DefaultPIDPath(), "Path to PID file")

	// Logging flags
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", "text", "Log format (text, json)")
	serveCmd.Flags().StringVar(&f.lokiEndpoint, "loki-endpoint", "", "Loki push endpoint for log aggregation")

	// Tracing flags
	serveCmd.Flags().StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "OTLP HTTP endpoint for distributed tracing")
	serveCmd.Flags().Float64Var(&f.traceSampler, "trace-sampler", 1.0, "Trace sampling ratio (0.0-1.0)")
}

func init() {
	initServeCmd()
}

// serveFlags holds all parsed command-line flags for the serve command.
type serveFlags struct {
	// Standard server flags
	adminPort  int
	poolURL    string
	basePath   string
	configFile string

	// Authentication flags
	noAuth  bool
	apiKey  string
	dataDir string

	// CORS flags
	corsOrigins string

	// Rate limiting flags
	rateLimit float64
	rateBurst int

	// Audit flags
	auditEnabled bool
	auditFile    string

	// Web UI flags
	noUI bool

	// Daemon/detach flags
	detach  bool
	pidFile string

	// Logging flags
	logLevel     string
	logFormat    string
	lokiEndpoint string

	// Tracing flags
	otlpEndpoint string
	traceSampler float64
}

// serveContext holds all runtime state for the serve command.
type serveContext struct {
	flags      *serveFlags
	cfg        *config.Config
	configPath string
	api        *admin.API
	auditLog   audit.AuditLogger
	loki       *logging.LokiHandler
	log        *slog.Logger
	tracer     *tracing.Tracer
	ctx        context.Context
	cancel     context.CancelFunc
}

// runServeWithFlags is the core serve logic called by the cobra command.
func runServeWithFlags(cmd *cobra.Command, flags *serveFlags) error {
	// Handle detach mode (daemon) - re-exec as child and exit
	if flags.detach && os.Getenv("CREDD_CHILD") == "" {
		return daemonize(flags.pidFile)
	}

	// Resolve configuration: defaults, then file, then flags
	cfg, cfgPath, err := buildServeConfig(flags, cmd.Flags().Changed)
	if err != nil {
		return err
	}
	if err := validateServeConfig(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sctx := &serveContext{
		flags:      flags,
		cfg:        cfg,
		configPath: cfgPath,
		ctx:        ctx,
		cancel:     cancel,
	}
	defer cancel()

	// Initialize structured logger (plus Loki shipping when configured)
	setupServeLogging(sctx)

	// Initialize distributed tracer when the tracing section is enabled
	if cfg.Tracing.Enabled {
		sctx.tracer = initializeTracer(cfg.Tracing)
		sctx.log.Info("distributed tracing enabled",
			"exporter", cfg.Tracing.Exporter, "endpoint", cfg.Tracing.Endpoint)
	}

	// Check for port conflicts before constructing the server
	if cfg.Admin.Port > 0 {
		if err := ports.Check(cfg.Admin.Port); err != nil {
			return portInUseError(cfg.Admin.Port, err)
		}
	}

	// Assemble and start the admin API
	if err := startAdmin(sctx); err != nil {
		return err
	}

	// Write PID file for process management (both foreground and detach modes)
	if flags.pidFile != "" {
		if err := writePIDFileForServe(flags.pidFile, boundAdminPort(sctx), cfg, cfgPath); err != nil {
			_ = sctx.api.Stop()
			return fmt.Errorf("failed to write PID file: %w", err)
		}
	}

	printServeStartupMessage(sctx)

	// Run main event loop (blocks until shutdown signal)
	return runMainLoop(sctx)
}

// buildServeConfig resolves the effective server configuration: built-in
// defaults, then the configuration file, then explicitly-set flags.
func buildServeConfig(flags *serveFlags, changed func(string) bool) (*config.Config, string, error) {
	cfg, cfgPath, err := config.LoadOrDefault(flags.configFile)
	if err != nil {
		return nil, "", err
	}
	applyServeOverrides(cfg, flags, changed)
	return cfg, cfgPath, nil
}

// applyServeOverrides copies explicitly-set flags onto the loaded
// configuration. changed reports whether the named flag was set on the
// command line.
//
//nolint:funlen // one branch per flag
func applyServeOverrides(cfg *config.Config, f *serveFlags, changed func(string) bool) {
	if changed("admin-port") {
		cfg.Admin.Port = f.adminPort
	}
	if changed("pool-url") {
		cfg.Pool.URL = f.poolURL
	}
	if changed("base-path") {
		cfg.Admin.BasePath = f.basePath
	}
	if changed("no-auth") && f.noAuth {
		cfg.Admin.Auth.Enabled = false
	}
	if changed("api-key") {
		cfg.Admin.Auth.Key = f.apiKey
	}
	if changed("data-dir") {
		cfg.Admin.Auth.KeyFile = filepath.Join(f.dataDir, admin.DefaultKeyFileName)
	}
	if changed("cors-origins") {
		if cfg.Admin.CORS == nil {
			cfg.Admin.CORS = &config.CORSConfig{}
		}
		cfg.Admin.CORS.AllowedOrigins = splitCommaList(f.corsOrigins)
	}
	if changed("rate-limit") || changed("rate-limit-burst") {
		if cfg.Admin.RateLimit == nil {
			cfg.Admin.RateLimit = &config.RateLimitConfig{Enabled: true}
		}
		if changed("rate-limit") {
			cfg.Admin.RateLimit.Enabled = f.rateLimit > 0
			cfg.Admin.RateLimit.RequestsPerSecond = f.rateLimit
		}
		if changed("rate-limit-burst") {
			cfg.Admin.RateLimit.Burst = f.rateBurst
		}
	}
	if changed("audit-enabled") {
		ensureAuditConfig(cfg).Enabled = f.auditEnabled
	}
	if changed("audit-file") {
		ensureAuditConfig(cfg).OutputFile = f.auditFile
	}
	if changed("no-ui") && f.noUI {
		cfg.WebUI.Enabled = false
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
	if changed("loki-endpoint") {
		if cfg.Logging.Loki == nil {
			cfg.Logging.Loki = &config.LokiConfig{}
		}
		cfg.Logging.Loki.Endpoint = f.lokiEndpoint
	}
	if changed("otlp-endpoint") {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = "otlp"
		cfg.Tracing.Endpoint = f.otlpEndpoint
	}
	if changed("trace-sampler") {
		cfg.Tracing.SampleRatio = f.traceSampler
	}
}

// ensureAuditConfig returns the audit section, creating it when absent.
func ensureAuditConfig(cfg *config.Config) *audit.Config {
	if cfg.Audit == nil {
		cfg.Audit = audit.DefaultConfig()
	}
	return cfg.Audit
}

// validateServeConfig checks the resolved configuration values that flags
// can push out of range.
func validateServeConfig(cfg *config.Config) error {
	if cfg.Admin.Port < 0 || cfg.Admin.Port > 65535 {
		return fmt.Errorf("invalid admin port %d: must be between 0 and 65535", cfg.Admin.Port)
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return fmt.Errorf("invalid trace sample ratio %g: must be between 0.0 and 1.0", cfg.Tracing.SampleRatio)
	}
	if rl := cfg.Admin.RateLimit; rl != nil && rl.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid rate limit %g: must not be negative", rl.RequestsPerSecond)
	}
	return nil
}

// setupServeLogging builds the process logger from the logging section,
// adding a Loki shipper when an endpoint is configured.
func setupServeLogging(sctx *serveContext) {
	lc := sctx.cfg.Logging

	out, err := openLogOutput(lc.Output)
	if err != nil {
		output.Warn("cannot open log output %s: %v (falling back to stderr)", lc.Output, err)
		out = os.Stderr
	}

	sctx.log = logging.New(logging.Config{
		Level:     logging.ParseLevel(lc.Level),
		Format:    logging.ParseFormat(lc.Format),
		Output:    out,
		AddSource: lc.AddSource,
	})

	if lc.Loki == nil || lc.Loki.Endpoint == "" {
		return
	}

	labels := map[string]string{"service": "credd"}
	for k, v := range lc.Loki.Labels {
		labels[k] = v
	}
	lokiOpts := []logging.LokiOption{
		logging.WithLokiLabels(labels),
		logging.WithLokiLevel(logging.ParseLevel(lc.Level)),
	}
	if lc.Loki.BatchSize > 0 {
		lokiOpts = append(lokiOpts, logging.WithLokiBatchSize(lc.Loki.BatchSize))
	}
	if lc.Loki.FlushIntervalSeconds > 0 {
		lokiOpts = append(lokiOpts,
			logging.WithLokiFlushInterval(time.Duration(lc.Loki.FlushIntervalSeconds)*time.Second))
	}

	sctx.loki = logging.NewLokiHandler(lc.Loki.Endpoint, lokiOpts...)
	sctx.log = slog.New(logging.NewMultiHandler(sctx.log.Handler(), sctx.loki))
	sctx.log.Info("log aggregation enabled", "endpoint", lc.Loki.Endpoint)
}

// openLogOutput maps the configured output name to a writer.
func openLogOutput(name string) (io.Writer, error) {
	switch name {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
}

// startAdmin assembles the admin API from the resolved configuration and
// starts it.
func startAdmin(sctx *serveContext) error {
	opts, err := buildAdminOptions(sctx)
	if err != nil {
		return err
	}

	sctx.api = admin.New(sctx.cfg.Admin.Port, opts...)
	if err := sctx.api.Start(); err != nil {
		if isAddrInUseError(err) {
			return portInUseError(sctx.cfg.Admin.Port, err)
		}
		return fmt.Errorf("failed to start admin API: %w", err)
	}
	return nil
}

// buildAdminOptions translates the configuration into admin API options.
//
//nolint:funlen // one block per configuration section
func buildAdminOptions(sctx *serveContext) ([]admin.Option, error) {
	cfg := sctx.cfg

	var pcOpts []poolclient.Option
	if cfg.Pool.Token != "" {
		pcOpts = append(pcOpts, poolclient.WithToken(cfg.Pool.Token))
	}
	if cfg.Pool.TimeoutSeconds > 0 {
		pcOpts = append(pcOpts, poolclient.WithTimeout(time.Duration(cfg.Pool.TimeoutSeconds)*time.Second))
	}

	opts := []admin.Option{
		admin.WithPool(poolclient.New(cfg.Pool.URL, pcOpts...)),
		admin.WithPoolURL(cfg.Pool.URL),
		admin.WithLogger(sctx.log.With("component", "admin")),
		admin.WithVersion(Version),
	}

	if bp := resolveBasePath(cfg); bp != "" {
		opts = append(opts, admin.WithBasePath(bp))
	}
	if !cfg.WebUI.Enabled {
		opts = append(opts, admin.WithoutUI())
	}

	// Authentication
	if !cfg.Admin.Auth.Enabled {
		opts = append(opts, admin.WithAPIKeyDisabled())
	} else {
		if cfg.Admin.Auth.Key != "" {
			opts = append(opts, admin.WithAPIKey(cfg.Admin.Auth.Key))
		}
		if cfg.Admin.Auth.KeyFile != "" {
			opts = append(opts, admin.WithAPIKeyFilePath(cfg.Admin.Auth.KeyFile))
		}
		opts = append(opts, admin.WithAPIKeyAllowLocalhost(cfg.Admin.Auth.AllowLocalhost))
		if len(cfg.Admin.Auth.ExemptPaths) > 0 {
			opts = append(opts, admin.WithAPIKeyExemptPaths(cfg.Admin.Auth.ExemptPaths...))
		}
	}

	// CORS
	if c := cfg.Admin.CORS; c != nil {
		cc := admin.DefaultCORSConfig()
		if len(c.AllowedOrigins) > 0 {
			cc.AllowedOrigins = c.AllowedOrigins
		}
		if len(c.AllowedMethods) > 0 {
			cc.AllowedMethods = c.AllowedMethods
		}
		if len(c.AllowedHeaders) > 0 {
			cc.AllowedHeaders = c.AllowedHeaders
		}
		cc.AllowCredentials = c.AllowCredentials
		if c.MaxAge > 0 {
			cc.MaxAge = c.MaxAge
		}
		opts = append(opts, admin.WithCORS(cc))
	}

	// Rate limiting
	if rl := cfg.Admin.RateLimit; rl != nil {
		if !rl.Enabled {
			opts = append(opts, admin.WithoutRateLimit())
		} else {
			opts = append(opts, admin.WithRateLimiter(ratelimit.NewPerIPLimiter(ratelimit.PerIPConfig{
				Rate:            rl.RequestsPerSecond,
				Burst:           rl.Burst,
				TrustedProxies:  rl.TrustedProxies,
				TrustAllProxies: rl.TrustAllProxies,
			})))
		}
	}

	if sctx.tracer != nil {
		opts = append(opts, admin.WithTracer(sctx.tracer))
	}

	// Audit trail
	if cfg.Audit != nil && cfg.Audit.Enabled {
		auditLog, err := audit.NewLogger(cfg.Audit)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize audit logging: %w", err)
		}
		sctx.auditLog = auditLog
		opts = append(opts,
			admin.WithAuditMiddleware(auditLog, cfg.Audit),
			admin.WithAudit(audit.NewRecorder(auditLog, cfg.Audit, auditServerID())),
		)

		auditOut := cfg.Audit.OutputFile
		if auditOut == "" {
			auditOut = "stdout"
		}
		sctx.log.Info("audit logging enabled", "output", auditOut)
	}

	return opts, nil
}

// resolveBasePath picks the UI base path: the webui section wins over the
// admin one when both are set.
func resolveBasePath(cfg *config.Config) string {
	if cfg.WebUI.BasePath != "" {
		return cfg.WebUI.BasePath
	}
	return cfg.Admin.BasePath
}

// auditServerID identifies this process in audit entry metadata.
func auditServerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "credd-admin"
	}
	return "credd-admin@" + host
}

// boundAdminPort returns the actual listening port, which differs from
// the configured one when port 0 was requested.
func boundAdminPort(sctx *serveContext) int {
	if sctx.api != nil {
		if _, portStr, err := net.SplitHostPort(sctx.api.Addr()); err == nil {
			if port, err := strconv.Atoi(portStr); err == nil {
				return port
			}
		}
	}
	return sctx.cfg.Admin.Port
}

// writePIDFileForServe records the running process for status and stop.
func writePIDFileForServe(path string, adminPort int, cfg *config.Config, configFile string) error {
	info := &PIDFile{
		PID:       os.Getpid(),
		StartTime: time.Now(),
		Version:   Version,
		Commit:    Commit,
		Components: ComponentsInfo{
			Admin: ComponentStatus{
				Enabled: true,
				Port:    adminPort,
				Host:    "localhost",
			},
		},
		PoolURL: cfg.Pool.URL,
		Config:  ConfigInfo{File: configFile},
	}
	return WritePIDFile(path, info)
}

// printServeStartupMessage prints where everything is listening.
func printServeStartupMessage(sctx *serveContext) {
	cfg := sctx.cfg
	port := boundAdminPort(sctx)

	fmt.Println("credd admin started")
	fmt.Println()
	fmt.Printf("  Admin API: http://localhost:%d\n", port)
	if cfg.WebUI.Enabled {
		fmt.Printf("  Dashboard: http://localhost:%d/\n", port)
	}
	fmt.Printf("  Pool:      %s\n", cfg.Pool.URL)
	fmt.Println()
	if sctx.configPath != "" {
		fmt.Printf("Config: %s\n", sctx.configPath)
	}
	if !cfg.Admin.Auth.Enabled {
		fmt.Println("Warning: API key authentication is disabled")
	}
	fmt.Println("Press Ctrl+C to stop")
}

// runMainLoop blocks until a shutdown signal, then tears everything down
// in reverse start order.
func runMainLoop(sctx *serveContext) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	fmt.Println("\nShutting down...")

	// Cancel context to stop background goroutines
	sctx.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Remove PID file if it was written
	if sctx.flags.pidFile != "" {
		if err := RemovePIDFile(sctx.flags.pidFile); err != nil {
			output.Warn("failed to remove PID file: %v", err)
		}
	}

	// Stop admin API (uses internal 5s timeout)
	if sctx.api != nil {
		if err := sctx.api.Stop(); err != nil {
			output.Warn("admin API shutdown error: %v", err)
		}
	}

	// Close the audit log (flushes buffered entries)
	if sctx.auditLog != nil {
		if err := sctx.auditLog.Close(); err != nil {
			output.Warn("audit log close error: %v", err)
		}
	}

	// Close the Loki shipper (flushes the remaining batch)
	if sctx.loki != nil {
		if err := sctx.loki.Close(); err != nil {
			output.Warn("log shipper close error: %v", err)
		}
	}

	// Shutdown tracer (flush remaining spans)
	if sctx.tracer != nil {
		if err := sctx.tracer.Shutdown(shutdownCtx); err != nil {
			output.Warn("tracer shutdown error: %v", err)
		}
	}

	fmt.Println("Server stopped")
	return nil
}

// daemonize re-executes the current process as a background daemon.
func daemonize(pidFilePath string) error {
	// Build the command with same arguments
	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), "CREDD_CHILD=1")

	// Detach from terminal
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	// Start the child process
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Wait briefly for child to start and write PID file
	time.Sleep(500 * time.Millisecond)

	// Verify the daemon started by checking PID file
	info, err := ReadPIDFile(pidFilePath)
	if err != nil {
		output.Warn("daemon may have failed to start (could not read PID file: %v)", err)
		return nil
	}

	if !info.IsRunning() {
		return errors.New("daemon process exited immediately")
	}

	fmt.Printf("credd started in background (PID %d)\n", info.PID)
	if url := info.AdminURL(); url != "" {
		fmt.Printf("Admin API: %s\n", url)
	}
	if info.PoolURL != "" {
		fmt.Printf("Pool:      %s\n", info.PoolURL)
	}

	return nil
}

// initializeTracer builds the tracer described by the tracing section.
func initializeTracer(tc config.TracingConfig) *tracing.Tracer {
	var exporter tracing.Exporter
	if tc.Exporter == "otlp" && tc.Endpoint != "" {
		exporter = tracing.NewOTLPExporter(tc.Endpoint)
	} else {
		exporter = tracing.NewStdoutExporter()
	}

	var sampler tracing.Sampler
	switch {
	case tc.SampleRatio >= 1.0:
		sampler = tracing.AlwaysSample{}
	case tc.SampleRatio <= 0:
		sampler = tracing.NeverSample{}
	default:
		sampler = tracing.NewRatioSampler(tc.SampleRatio)
	}

	service := tc.ServiceName
	if service == "" {
		service = "credd-admin"
	}

	opts := []tracing.TracerOption{
		tracing.WithExporter(exporter),
		tracing.WithSampler(sampler),
	}
	if tc.BatchSize > 0 {
		opts = append(opts, tracing.WithBatchSize(tc.BatchSize))
	}

	return tracing.NewTracer(service, opts...)
}

// portInUseError formats a friendly error for a port that is already taken.
func portInUseError(port int, err error) error {
	if err != nil && !isAddrInUseError(err) {
		return fmt.Errorf("failed to check port %d availability: %w", port, err)
	}
	return fmt.Errorf("port %d is already in use; try a different port with --admin-port or check what's using it: lsof -i :%d", port, port)
}

// isAddrInUseError reports whether err is a failed bind on a taken port.
func isAddrInUseError(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

// splitCommaList splits a comma-separated flag value, trimming whitespace
// and dropping empty entries.
func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
