// Package metrics provides Prometheus-compatible metrics collection for the
// credd admin server.
//
// This package implements the Prometheus text exposition format (text/plain;
// version=0.0.4) without any external dependencies, using only the standard
// library.
//
// Supported metric types:
//   - Counter: monotonically increasing value (e.g., request counts)
//   - Gauge: value that can go up or down (e.g., available credentials)
//   - Histogram: distribution of values with configurable buckets (e.g., latencies)
//
// All metrics are thread-safe and can be updated from multiple goroutines.
//
// # Default Metrics
//
// The package provides pre-defined metrics for tracking admin activity:
//
//   - credd_admin_requests_total: Counter for admin API requests (labels: method, path, status)
//   - credd_admin_request_duration_seconds: Histogram for request latency (labels: method, path)
//   - credd_pool_operations_total: Counter for pool operations (labels: operation, outcome)
//   - credd_pool_rotations_total: Counter for rotations (labels: trigger)
//   - credd_pool_credentials: Gauge of credentials by state (labels: state)
//   - credd_errors_total: Counter for classified errors (labels: code)
//
// # Usage
//
//	// Initialize the default metrics registry
//	registry := metrics.Init()
//
//	// Record an admin request
//	if vec, err := metrics.AdminRequestsTotal.WithLabels("GET", "/api/credentials", "200"); err == nil {
//	    _ = vec.Inc()
//	}
//
//	// Register the /metrics endpoint
//	http.Handle("/metrics", registry.Handler())
//
// Custom metrics can also be created:
//
//	registry := metrics.NewRegistry()
//	counter := registry.NewCounter("my_counter", "Description of counter", "label1", "label2")
package metrics
