// Package admin provides the REST API for operating a credential pool at
// runtime.
//
// The admin API fronts the pool daemon: it lists credentials, toggles and
// reprioritizes them, checks upstream balances, and rotates the active
// credential, all without restarting anything. It also serves the embedded
// web UI and an event stream the UI uses for live updates.
//
// Endpoints:
//
//	GET  /health                              - Server health check
//	GET  /metrics                             - Prometheus metrics
//	GET  /api/status                          - Admin server and pool status
//	GET  /api/credentials                     - List all credentials
//	GET  /api/credentials/{index}             - Get a single credential
//	PUT  /api/credentials/{index}/disabled    - Enable or disable a credential
//	PUT  /api/credentials/{index}/priority    - Set scheduling priority
//	POST /api/credentials/{index}/reset       - Reset failures and re-enable
//	GET  /api/credentials/{index}/balance     - Upstream usage and quota
//	POST /api/pool/rotate                     - Switch to the next credential
//	GET  /api/events                          - Server-sent event stream
//	GET  /api/admin/api-key                   - API key info
//	POST /api/admin/api-key/rotate            - Rotate the API key
//
// Any other path serves the embedded web UI.
//
// Usage:
//
//	api := admin.New(4780, admin.WithPoolURL("http://localhost:4785"))
//	if err := api.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer api.Stop()
//
// Example curl commands:
//
//	# List credentials
//	curl -H "X-API-Key: $CREDD_API_KEY" http://localhost:4780/api/credentials
//
//	# Disable credential 2
//	curl -X PUT -H "X-API-Key: $CREDD_API_KEY" \
//	  -H "Content-Type: application/json" \
//	  -d '{"disabled": true}' \
//	  http://localhost:4780/api/credentials/2/disabled
//
//	# Rotate to the next credential
//	curl -X POST -H "X-API-Key: $CREDD_API_KEY" http://localhost:4780/api/pool/rotate
package admin
