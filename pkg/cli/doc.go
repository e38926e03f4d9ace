// Package cli provides the command-line interface for credd.
//
// The cli package implements all CLI commands for operating the admin
// server and working with a running credential pool daemon:
//   - serve: Launch the admin API (foreground or detached)
//   - stop: Stop a detached server via its PID file
//   - status: Show server status (PID file + live admin API)
//   - list: Display all pool credentials
//   - get: Show details of a single credential
//   - disable / enable: Toggle a credential's availability
//   - priority: Change a credential's scheduling priority
//   - reset: Clear a credential's failure state and re-enable it
//   - balance: Show upstream usage for a credential
//   - rotate: Force the pool to advance to the next credential
//   - watch: Stream pool changes live over the admin event stream
//   - init: Create a starter credd.yaml (interactive with -i)
//   - config: Display effective CLI configuration and value sources
//   - doctor: Diagnose common setup issues
//   - version: Show credd version
//   - completion: Generate shell completion scripts (via cobra)
//
// Commands communicate with the running admin server via its REST API.
// The serve command runs the server in the foreground with graceful
// shutdown; -d detaches it and records a PID file for stop/status.
//
// Usage:
//
//	credd serve --admin-port 4780 --pool-url http://localhost:4785
//	credd serve -d
//	credd list
//	credd disable 2
//	credd priority 0 10
//	credd balance 1
//	credd rotate
//	credd watch
//	credd stop
package cli
