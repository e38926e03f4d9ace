// Package audit provides audit logging for the credd admin server.
//
// The audit log answers "who changed what, and when" for the credential
// pool: every disable, enable, priority change, reset, and rotation is
// recorded, alongside the HTTP requests that caused them.
//
// # Basic Usage
//
// Build a logger from configuration and a Recorder for pool events:
//
//	config := &audit.Config{
//		Enabled:    true,
//		OutputFile: "/var/log/credd-audit.log",
//	}
//
//	logger, err := audit.NewLogger(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer logger.Close()
//
//	recorder := audit.NewRecorder(logger, config, serverID)
//	recorder.CredentialDisabled(ctx, 2)
//
// Wrap the admin handler in Middleware to capture request.received and
// response.sent entries. The middleware puts a trace ID on the request
// context; Recorder events emitted while handling that request carry
// the same ID, so one admin action can be followed across entries.
//
// # Output Format
//
// Entries are JSON lines (NDJSON), one event per line, so the log can
// be filtered with jq or shipped to a log aggregation system as-is.
//
// # Logger Types
//
//   - FileLogger: appends to a file, with optional size-based rotation
//   - StdoutLogger: writes to stdout for containerized deployments
//   - NoOpLogger: discards everything, used when auditing is disabled
//   - MultiWriter: fans entries out to several loggers
//
// # Event Types
//
//   - request.received / response.sent: HTTP traffic on the admin API
//   - credential.disabled / credential.enabled: availability changes
//   - credential.priority_changed: priority updates
//   - credential.reset: failure-count resets
//   - credential.balance_checked: upstream balance lookups
//   - pool.rotated: the current credential changed
//   - error: a pool operation failed
//
// # Thread Safety
//
// All logger implementations are safe for concurrent use.
//
// # Extension Points
//
// RegisterWriter adds named writer factories that NewLogger instantiates
// from the Extensions config block; RegisterRedactor installs a function
// that strips sensitive values from entries before they are written.
package audit
