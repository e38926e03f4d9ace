package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	types "github.com/creddhq/credd/pkg/api/types"
	"github.com/creddhq/credd/pkg/httputil"
)

// Type aliases pointing to the canonical shared types.
type (
	ErrorResponse  = types.ErrorResponse
	HealthResponse = types.HealthResponse
	ServerStatus   = types.ServerStatus
)

// writeJSON writes a JSON response through the shared httputil helpers
// so Content-Type handling stays uniform across surfaces.
func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	httputil.WriteJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// writeServiceError maps a classified service error onto the wire.
// Messages pass through verbatim; this API talks to operators, and the
// service layer already confines what can appear here.
func writeServiceError(w http.ResponseWriter, err error) {
	var nf *NotFoundError
	var ue *UpstreamError
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, "credential_not_found", nf.Error())
	case errors.As(err, &ue):
		writeError(w, http.StatusBadGateway, "upstream_error", ue.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// pathIndex extracts and validates the {index} path segment. Anything
// that is not a non-negative integer is rejected here, before any pool
// lookup, so path probes like ".." never leave the HTTP layer.
func pathIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid credential index %q", raw)
	}
	return n, nil
}

// handleHealth handles GET /health.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: a.Uptime(),
	})
}

// handleStatus handles GET /api/status and returns admin server status
// plus a condensed pool view. A daemon outage degrades the status but
// never fails the endpoint; the UI banner keys off poolReachable.
func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := ServerStatus{
		Status:       "running",
		AdminPort:    a.port,
		PoolURL:      a.poolURL,
		Uptime:       int64(a.Uptime()),
		RequestCount: a.requests.Load(),
		Version:      a.version,
		StartedAt:    a.startTime,
	}
	if snap, err := a.pool.Snapshot(r.Context()); err == nil {
		st.PoolReachable = true
		st.CredentialCount = snap.Total
		st.AvailableCount = snap.Available
		st.CurrentIndex = snap.CurrentIndex
	} else {
		st.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, st)
}

// handleListCredentials handles GET /api/credentials.
func (a *API) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.Credentials(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetCredential handles GET /api/credentials/{index}.
func (a *API) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index", err.Error())
		return
	}
	cred, err := a.service.Credential(r.Context(), index)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

// handleSetDisabled handles PUT /api/credentials/{index}/disabled.
func (a *API) handleSetDisabled(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index", err.Error())
		return
	}
	var req types.DisableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body: "+err.Error())
		return
	}
	if err := a.service.SetDisabled(r.Context(), index, req.Disabled); err != nil {
		writeServiceError(w, err)
		return
	}
	a.events.Kick()
	verb := "enabled"
	if req.Disabled {
		verb = "disabled"
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{
		Message: fmt.Sprintf("credential %d %s", index, verb),
	})
}

// handleSetPriority handles PUT /api/credentials/{index}/priority.
func (a *API) handleSetPriority(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index", err.Error())
		return
	}
	var req types.PriorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body: "+err.Error())
		return
	}
	if err := a.service.SetPriority(r.Context(), index, req.Priority); err != nil {
		writeServiceError(w, err)
		return
	}
	a.events.Kick()
	writeJSON(w, http.StatusOK, types.MessageResponse{
		Message: fmt.Sprintf("credential %d priority set to %d", index, req.Priority),
	})
}

// handleResetCredential handles POST /api/credentials/{index}/reset.
func (a *API) handleResetCredential(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index", err.Error())
		return
	}
	if err := a.service.ResetAndEnable(r.Context(), index); err != nil {
		writeServiceError(w, err)
		return
	}
	a.events.Kick()
	writeJSON(w, http.StatusOK, types.MessageResponse{
		Message: fmt.Sprintf("credential %d reset and enabled", index),
	})
}

// handleBalance handles GET /api/credentials/{index}/balance.
func (a *API) handleBalance(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index", err.Error())
		return
	}
	balance, err := a.service.Balance(r.Context(), index)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// handleRotate handles POST /api/pool/rotate.
func (a *API) handleRotate(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.Rotate(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	a.events.Kick()
	writeJSON(w, http.StatusOK, resp)
}
