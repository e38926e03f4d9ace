// Route registration for the admin API.

package admin

import (
	"net/http"
)

// registerRoutes sets up all API routes. The Go 1.22+ ServeMux picks the
// most specific matching pattern, so the UI catch-all never shadows API
// paths and the /api/ fallback only sees unknown API routes.
func (a *API) registerRoutes(mux *http.ServeMux) {
	// Health check, status, and metrics
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.Handle("GET /metrics", a.registry.Handler())

	// Credential pool
	mux.HandleFunc("GET /api/credentials", a.handleListCredentials)
	mux.HandleFunc("GET /api/credentials/{index}", a.handleGetCredential)
	mux.HandleFunc("PUT /api/credentials/{index}/disabled", a.handleSetDisabled)
	mux.HandleFunc("PUT /api/credentials/{index}/priority", a.handleSetPriority)
	mux.HandleFunc("POST /api/credentials/{index}/reset", a.handleResetCredential)
	mux.HandleFunc("GET /api/credentials/{index}/balance", a.handleBalance)
	mux.HandleFunc("POST /api/pool/rotate", a.handleRotate)

	// Live updates
	mux.HandleFunc("GET /api/events", a.handleEvents)

	// API key management
	mux.HandleFunc("GET /api/admin/api-key", a.handleGetAPIKey)
	mux.HandleFunc("POST /api/admin/api-key/rotate", a.handleRotateAPIKey)

	// Unknown API paths get a JSON 404 instead of falling through to the
	// SPA handler, which would answer 200 with HTML.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "unknown API route: "+r.Method+" "+r.URL.Path)
	})

	// Everything else is the embedded web UI, unless it is disabled.
	if a.ui != nil {
		mux.Handle("GET /", a.ui)
	}
}
