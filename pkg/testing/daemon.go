package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/creddhq/credd/pkg/pool"
)

// PoolDaemon is an in-process credential pool daemon for tests.
// It serves the daemon control API over loopback HTTP and provides a
// fluent API for seeding credentials, injecting failures, and asserting
// on the requests the code under test issued.
type PoolDaemon struct {
	t testing.TB

	mu           sync.Mutex
	entries      []pool.Entry
	currentIndex int
	currentSet   bool
	balances     map[int]pool.UsageLimits
	balanceErrs  map[int]*pool.Error
	outage       *pool.Error
	token        string

	logMu    sync.Mutex
	requests []RequestLog

	httpSrv *httptest.Server
	baseURL string
}

// New creates a pool daemon for testing. Seed credentials with
// Credential, then call Start; stop it with defer d.Stop().
func New(t testing.TB) *PoolDaemon {
	t.Helper()
	return &PoolDaemon{
		t:           t,
		balances:    make(map[int]pool.UsageLimits),
		balanceErrs: make(map[int]*pool.Error),
	}
}

// Start starts the daemon and returns its base URL. Calling Start on a
// running daemon returns the existing URL. Credentials may be seeded
// before or after Start; the daemon serves its live state either way.
func (d *PoolDaemon) Start() string {
	d.t.Helper()
	if d.httpSrv != nil {
		return d.baseURL
	}
	d.httpSrv = httptest.NewServer(d.handler())
	d.baseURL = d.httpSrv.URL
	return d.baseURL
}

// Stop shuts the daemon down. Safe to call more than once.
func (d *PoolDaemon) Stop() {
	if d.httpSrv != nil {
		d.httpSrv.Close()
		d.httpSrv = nil
	}
}

// URL returns the base URL of the daemon, or "" before Start.
func (d *PoolDaemon) URL() string {
	return d.baseURL
}

// Client returns an http.Client wired to the daemon. Convenience for
// tests issuing raw control-API requests.
func (d *PoolDaemon) Client() *http.Client {
	if d.httpSrv != nil {
		return d.httpSrv.Client()
	}
	return http.DefaultClient
}

// Credential addresses the entry with the given index, creating it
// enabled with priority 0 and social auth when absent, and returns a
// builder for further configuration:
//
//	daemon.Credential(1).
//	    WithPriority(10).
//	    WithAuthMethod(pool.AuthMethodIDC).
//	    WithBalance("Pro", 250, 1000)
func (d *PoolDaemon) Credential(index int) *CredentialBuilder {
	d.t.Helper()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findLocked(index) == nil {
		d.entries = append(d.entries, pool.Entry{
			Index:      index,
			AuthMethod: pool.AuthMethodSocial,
		})
		// The first seeded credential becomes the active one.
		if !d.currentSet {
			d.currentIndex = index
			d.currentSet = true
		}
	}
	return &CredentialBuilder{daemon: d, index: index}
}

// SetCurrentIndex makes index the active credential. It defaults to the
// first seeded credential.
func (d *PoolDaemon) SetCurrentIndex(index int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentIndex = index
	d.currentSet = true
}

// RequireToken makes the daemon reject requests that do not carry the
// given bearer token, mirroring a daemon started with auth enabled.
func (d *PoolDaemon) RequireToken(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.token = token
}

// FailWith makes every endpoint answer 503 with the given coded error
// until Recover is called. Use it to simulate a daemon outage mid-test.
func (d *PoolDaemon) FailWith(err *pool.Error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outage = err
}

// Recover clears a FailWith condition.
func (d *PoolDaemon) Recover() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outage = nil
}

// Snapshot returns a copy of the daemon's current pool state.
func (d *PoolDaemon) Snapshot() *pool.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// CurrentIndex returns the active credential index.
func (d *PoolDaemon) CurrentIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentIndex
}

// Entry returns a copy of the entry at index, or false when absent.
func (d *PoolDaemon) Entry(index int) (pool.Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e := d.findLocked(index); e != nil {
		return *e, true
	}
	return pool.Entry{}, false
}

// Reset clears all credentials, balances, failure injections, and the
// request log. Use it between test cases to start fresh.
func (d *PoolDaemon) Reset() {
	d.mu.Lock()
	d.entries = nil
	d.currentIndex = 0
	d.currentSet = false
	d.balances = make(map[int]pool.UsageLimits)
	d.balanceErrs = make(map[int]*pool.Error)
	d.outage = nil
	d.token = ""
	d.mu.Unlock()

	d.logMu.Lock()
	d.requests = nil
	d.logMu.Unlock()
}

// Requests returns the logged control-API requests in arrival order.
func (d *PoolDaemon) Requests() []RequestLog {
	d.logMu.Lock()
	defer d.logMu.Unlock()
	return append([]RequestLog(nil), d.requests...)
}

// AssertCalled asserts that an endpoint was called at least once. Path
// segments written as {name} match any value:
//
//	daemon.AssertCalled(t, "PUT", "/credentials/{index}/disabled")
func (d *PoolDaemon) AssertCalled(t testing.TB, method, path string) {
	t.Helper()
	if d.countCalls(method, path) == 0 {
		t.Errorf("expected %s %s to be called, but it was not", method, path)
	}
}

// AssertCalledTimes asserts that an endpoint was called exactly n times.
func (d *PoolDaemon) AssertCalledTimes(t testing.TB, method, path string, times int) {
	t.Helper()
	if got := d.countCalls(method, path); got != times {
		t.Errorf("expected %s %s to be called %d times, but was called %d times",
			method, path, times, got)
	}
}

// AssertNotCalled asserts that an endpoint was never called.
func (d *PoolDaemon) AssertNotCalled(t testing.TB, method, path string) {
	t.Helper()
	if got := d.countCalls(method, path); got > 0 {
		t.Errorf("expected %s %s to not be called, but it was called %d times",
			method, path, got)
	}
}

func (d *PoolDaemon) countCalls(method, path string) int {
	count := 0
	for _, r := range d.Requests() {
		if strings.EqualFold(r.Method, method) && matchesPath(r.Path, path) {
			count++
		}
	}
	return count
}

// matchesPath reports whether a request path matches the expected
// pattern. Pattern segments written as {name} match any value.
func matchesPath(actual, expected string) bool {
	if actual == expected {
		return true
	}
	actualParts := strings.Split(actual, "/")
	expectedParts := strings.Split(expected, "/")
	if len(actualParts) != len(expectedParts) {
		return false
	}
	for i, exp := range expectedParts {
		if strings.HasPrefix(exp, "{") && strings.HasSuffix(exp, "}") {
			continue
		}
		if exp != actualParts[i] {
			return false
		}
	}
	return true
}

// findLocked returns the entry with the given index. Callers hold d.mu.
func (d *PoolDaemon) findLocked(index int) *pool.Entry {
	for i := range d.entries {
		if d.entries[i].Index == index {
			return &d.entries[i]
		}
	}
	return nil
}

// Control API handlers

func (d *PoolDaemon) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", d.handleHealth)
	mux.HandleFunc("GET /pool", d.handleSnapshot)
	mux.HandleFunc("PUT /credentials/{index}/disabled", d.handleSetDisabled)
	mux.HandleFunc("PUT /credentials/{index}/priority", d.handleSetPriority)
	mux.HandleFunc("POST /credentials/{index}/reset", d.handleReset)
	mux.HandleFunc("GET /credentials/{index}/balance", d.handleBalance)
	mux.HandleFunc("POST /pool/rotate", d.handleRotate)
	return d.record(d.gate(mux))
}

// record appends every request to the log before handling it.
func (d *PoolDaemon) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		headers := make(map[string]string, len(r.Header))
		for k, v := range r.Header {
			if len(v) > 0 {
				headers[k] = v[0]
			}
		}

		d.logMu.Lock()
		d.requests = append(d.requests, RequestLog{
			Method:  r.Method,
			Path:    r.URL.Path,
			Headers: headers,
			Body:    string(body),
		})
		d.logMu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// gate answers outage and auth failures before any routing happens,
// the way a real daemon would.
func (d *PoolDaemon) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		outage := d.outage
		token := d.token
		d.mu.Unlock()

		if outage != nil {
			d.writeJSON(w, http.StatusServiceUnavailable, outage)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			d.writeError(w, http.StatusUnauthorized, pool.CodeValidationFailure,
				"missing or invalid pool token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (d *PoolDaemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	d.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (d *PoolDaemon) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeJSON(w, http.StatusOK, d.snapshotLocked())
}

// snapshotLocked builds the wire snapshot. Available counts entries
// that are not disabled, matching the daemon's definition.
func (d *PoolDaemon) snapshotLocked() *pool.Snapshot {
	available := 0
	for _, e := range d.entries {
		if !e.Disabled {
			available++
		}
	}
	return &pool.Snapshot{
		Total:        len(d.entries),
		Available:    available,
		CurrentIndex: d.currentIndex,
		Entries:      append([]pool.Entry(nil), d.entries...),
	}
}

func (d *PoolDaemon) handleSetDisabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Disabled bool `json:"disabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		d.writeError(w, http.StatusBadRequest, pool.CodeValidationFailure, "bad request body")
		return
	}
	d.mutateEntry(w, r, func(e *pool.Entry) {
		e.Disabled = req.Disabled
	})
}

func (d *PoolDaemon) handleSetPriority(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Priority int `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		d.writeError(w, http.StatusBadRequest, pool.CodeValidationFailure, "bad request body")
		return
	}
	d.mutateEntry(w, r, func(e *pool.Entry) {
		e.Priority = req.Priority
	})
}

func (d *PoolDaemon) handleReset(w http.ResponseWriter, r *http.Request) {
	d.mutateEntry(w, r, func(e *pool.Entry) {
		e.Disabled = false
		e.FailureCount = 0
	})
}

func (d *PoolDaemon) handleBalance(w http.ResponseWriter, r *http.Request) {
	index, ok := d.pathIndex(w, r)
	if !ok {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.balanceErrs[index]; err != nil {
		d.writeJSON(w, http.StatusBadGateway, err)
		return
	}
	limits, ok := d.balances[index]
	if !ok {
		d.writeError(w, http.StatusNotFound, pool.CodeIndexOutOfRange,
			fmt.Sprintf("no credential at index %d", index))
		return
	}
	d.writeJSON(w, http.StatusOK, limits)
}

// handleRotate advances the active credential to the next enabled entry
// in seed order, wrapping around. With nothing enabled the rotation
// fails the way the real daemon does.
func (d *PoolDaemon) handleRotate(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.entries)
	cur := 0
	for i, e := range d.entries {
		if e.Index == d.currentIndex {
			cur = i
			break
		}
	}
	for step := 1; step <= n; step++ {
		cand := d.entries[(cur+step)%n]
		if !cand.Disabled {
			d.currentIndex = cand.Index
			d.writeJSON(w, http.StatusOK, map[string]int{"current_index": cand.Index})
			return
		}
	}
	d.writeError(w, http.StatusConflict, pool.CodeInternal, "no available credential to rotate to")
}

// mutateEntry applies fn to the addressed entry under the lock,
// answering 404 for unknown indexes.
func (d *PoolDaemon) mutateEntry(w http.ResponseWriter, r *http.Request, fn func(*pool.Entry)) {
	index, ok := d.pathIndex(w, r)
	if !ok {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if e := d.findLocked(index); e != nil {
		fn(e)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	d.writeError(w, http.StatusNotFound, pool.CodeIndexOutOfRange,
		fmt.Sprintf("no credential at index %d", index))
}

func (d *PoolDaemon) pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		d.writeError(w, http.StatusBadRequest, pool.CodeValidationFailure, "bad index")
		return 0, false
	}
	return index, true
}

func (d *PoolDaemon) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (d *PoolDaemon) writeError(w http.ResponseWriter, status int, code pool.ErrorCode, msg string) {
	d.writeJSON(w, status, &pool.Error{Code: code, Message: msg})
}
