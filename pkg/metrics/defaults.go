package metrics

import (
	"sync"
	"time"
)

// Default metrics for the credd admin server.
// These are initialized by calling Init().
//
// # Label Conventions
//
// All label values are lowercase:
//
//   - operation: list, get, disable, enable, priority, reset, balance, rotate
//   - outcome: ok, not_found, upstream_error, internal_error
//   - trigger: manual, auto_disable
//   - state: total, available, disabled
//   - code: the facade error codes (index_out_of_range, upstream_auth_failure, ...)
var (
	// AdminRequestsTotal counts admin API requests.
	// Labels: method, path, status
	AdminRequestsTotal *Counter

	// AdminRequestDuration tracks admin API request durations in seconds.
	// Labels: method, path
	AdminRequestDuration *Histogram

	// PoolOperationsTotal counts pool operations issued through the admin
	// service. Labels: operation, outcome
	PoolOperationsTotal *Counter

	// PoolRotationsTotal counts credential rotations.
	// Labels: trigger (manual, auto_disable)
	PoolRotationsTotal *Counter

	// PoolCredentials is a gauge of pool credentials by state.
	// Labels: state (total, available, disabled)
	PoolCredentials *Gauge

	// ErrorsTotal counts classified errors by facade code.
	// Labels: code
	ErrorsTotal *Counter

	// EventSubscribers is a gauge of connected event stream clients.
	EventSubscribers *Gauge

	// UptimeSeconds is a gauge of the admin server uptime in seconds.
	UptimeSeconds *Gauge

	// RuntimeCollectorInstance is the Go runtime metrics collector.
	RuntimeCollectorInstance *RuntimeCollector

	// runtimeCollectorStop stops the runtime collector goroutine.
	runtimeCollectorStop func()

	// defaultRegistry is the global metrics registry.
	defaultRegistry *Registry

	// initOnce ensures Init() is only called once.
	initOnce sync.Once
)

// Init initializes the default metrics and returns the registry.
// This function is idempotent and safe to call multiple times.
func Init() *Registry {
	initOnce.Do(func() {
		defaultRegistry = NewRegistry()

		AdminRequestsTotal = defaultRegistry.NewCounter(
			"credd_admin_requests_total",
			"Total number of admin API requests",
			"method", "path", "status",
		)

		AdminRequestDuration = defaultRegistry.NewHistogram(
			"credd_admin_request_duration_seconds",
			"Duration of admin API requests in seconds",
			DefaultBuckets,
			"method", "path",
		)

		PoolOperationsTotal = defaultRegistry.NewCounter(
			"credd_pool_operations_total",
			"Total number of pool operations by outcome",
			"operation", "outcome",
		)

		PoolRotationsTotal = defaultRegistry.NewCounter(
			"credd_pool_rotations_total",
			"Total number of credential rotations",
			"trigger",
		)

		PoolCredentials = defaultRegistry.NewGauge(
			"credd_pool_credentials",
			"Number of pool credentials by state",
			"state",
		)

		ErrorsTotal = defaultRegistry.NewCounter(
			"credd_errors_total",
			"Total number of classified errors by code",
			"code",
		)

		EventSubscribers = defaultRegistry.NewGauge(
			"credd_event_subscribers",
			"Number of connected event stream clients",
		)

		UptimeSeconds = defaultRegistry.NewGauge(
			"credd_uptime_seconds",
			"Admin server uptime in seconds",
		)

		RuntimeCollectorInstance = NewRuntimeCollector(defaultRegistry, UptimeSeconds)
		runtimeCollectorStop = RuntimeCollectorInstance.StartCollector(10 * time.Second)
	})

	return defaultRegistry
}

// DefaultRegistry returns the default metrics registry.
// Returns nil if Init() has not been called.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Reset resets all default metrics. Useful for testing.
// This also resets the initOnce, allowing Init() to be called again.
func Reset() {
	if runtimeCollectorStop != nil {
		runtimeCollectorStop()
		runtimeCollectorStop = nil
	}

	initOnce = sync.Once{}
	defaultRegistry = nil
	AdminRequestsTotal = nil
	AdminRequestDuration = nil
	PoolOperationsTotal = nil
	PoolRotationsTotal = nil
	PoolCredentials = nil
	ErrorsTotal = nil
	EventSubscribers = nil
	UptimeSeconds = nil
	RuntimeCollectorInstance = nil
}
