// Package integration provides integration tests for the credd admin server.
// Every test here runs a real admin API on a real TCP port against a fake
// pool daemon, so requests cross the full HTTP stack on both hops.
package integration

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/creddhq/credd/pkg/pool"
)

// Global port counter for all integration tests to avoid port collisions
// when tests run in parallel. Starting at 30000 to avoid common ports
// and give a wide range for all tests.
var globalPortCounter uint32 = 30000

// GetFreePortSafe returns a unique port for testing that won't collide
// with other tests running in parallel. This is safer than asking the
// kernel for port 0, which can hand the same port to concurrent callers.
func GetFreePortSafe() int {
	// Try to find an actually free port in our range
	for attempts := 0; attempts < 100; attempts++ {
		port := int(atomic.AddUint32(&globalPortCounter, 1))
		if isPortFree(port) {
			return port
		}
	}
	// Fallback to the atomic counter value even if not verified free
	return int(atomic.AddUint32(&globalPortCounter, 1))
}

// isPortFree checks if a port is available for binding
func isPortFree(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

func getFreePort() int {
	return GetFreePortSafe()
}

// waitForReady polls the health endpoint on the given port until it answers
// 200 or the deadline passes.
func waitForReady(t *testing.T, port int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	url := fmt.Sprintf("http://localhost:%d/health", port)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server on port %d never became healthy", port)
}

// fakeDaemon is an in-memory pool daemon serving the control API the admin
// server talks to. State mutations are visible through the accessors so
// tests can assert that admin calls actually reached the daemon.
type fakeDaemon struct {
	URL string

	mu           sync.Mutex
	entries      []pool.Entry
	currentIndex int
	balances     map[int]pool.UsageLimits
	balanceErr   *pool.Error

	srv *http.Server
}

// startFakeDaemon starts a daemon on a free port with the given seed
// entries. It is stopped via t.Cleanup; tests that need to simulate an
// outage call Stop themselves.
func startFakeDaemon(t *testing.T, entries []pool.Entry) *fakeDaemon {
	t.Helper()

	d := &fakeDaemon{
		entries:  append([]pool.Entry(nil), entries...),
		balances: make(map[int]pool.UsageLimits),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeDaemonJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /pool", d.handleSnapshot)
	mux.HandleFunc("PUT /credentials/{index}/disabled", d.handleSetDisabled)
	mux.HandleFunc("PUT /credentials/{index}/priority", d.handleSetPriority)
	mux.HandleFunc("POST /credentials/{index}/reset", d.handleReset)
	mux.HandleFunc("GET /credentials/{index}/balance", d.handleBalance)
	mux.HandleFunc("POST /pool/rotate", d.handleRotate)

	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen for fake daemon: %v", err)
	}
	d.URL = "http://" + ln.Addr().String()
	d.srv = &http.Server{Handler: mux}
	go func() { _ = d.srv.Serve(ln) }()

	t.Cleanup(d.Stop)
	return d
}

// Stop shuts the daemon down. Safe to call twice.
func (d *fakeDaemon) Stop() {
	if d.srv != nil {
		_ = d.srv.Close()
		d.srv = nil
	}
}

// Entry returns a copy of the entry at index, or false when absent.
func (d *fakeDaemon) Entry(index int) (pool.Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.entries {
		if e.Index == index {
			return e, true
		}
	}
	return pool.Entry{}, false
}

// CurrentIndex returns the daemon's active credential index.
func (d *fakeDaemon) CurrentIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentIndex
}

// SetBalance seeds the usage limits returned for index.
func (d *fakeDaemon) SetBalance(index int, limits pool.UsageLimits) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.balances[index] = limits
}

// SetBalanceError makes every balance call fail with the given coded error.
func (d *fakeDaemon) SetBalanceError(err *pool.Error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.balanceErr = err
}

func (d *fakeDaemon) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	writeDaemonJSON(w, http.StatusOK, d.snapshotLocked())
}

// snapshotLocked builds the wire snapshot. Available counts entries that
// are not disabled, matching the daemon's definition.
func (d *fakeDaemon) snapshotLocked() *pool.Snapshot {
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

func (d *fakeDaemon) handleSetDisabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Disabled bool `json:"disabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDaemonError(w, http.StatusBadRequest, pool.CodeValidationFailure, "bad request body")
		return
	}
	d.mutateEntry(w, r, func(e *pool.Entry) {
		e.Disabled = req.Disabled
	})
}

func (d *fakeDaemon) handleSetPriority(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Priority int `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDaemonError(w, http.StatusBadRequest, pool.CodeValidationFailure, "bad request body")
		return
	}
	d.mutateEntry(w, r, func(e *pool.Entry) {
		e.Priority = req.Priority
	})
}

func (d *fakeDaemon) handleReset(w http.ResponseWriter, r *http.Request) {
	d.mutateEntry(w, r, func(e *pool.Entry) {
		e.Disabled = false
		e.FailureCount = 0
	})
}

func (d *fakeDaemon) handleBalance(w http.ResponseWriter, r *http.Request) {
	index, ok := daemonIndex(w, r)
	if !ok {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.balanceErr != nil {
		writeDaemonJSON(w, http.StatusBadGateway, d.balanceErr)
		return
	}
	limits, ok := d.balances[index]
	if !ok {
		writeDaemonError(w, http.StatusNotFound, pool.CodeIndexOutOfRange,
			fmt.Sprintf("no credential at index %d", index))
		return
	}
	writeDaemonJSON(w, http.StatusOK, limits)
}

// handleRotate advances currentIndex to the next enabled entry in snapshot
// order, wrapping around. With nothing enabled the rotation fails.
func (d *fakeDaemon) handleRotate(w http.ResponseWriter, r *http.Request) {
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
			writeDaemonJSON(w, http.StatusOK, map[string]int{"current_index": cand.Index})
			return
		}
	}
	writeDaemonError(w, http.StatusConflict, pool.CodeInternal, "no available credential to rotate to")
}

// mutateEntry applies fn to the addressed entry under the lock, answering
// 404 for unknown indexes.
func (d *fakeDaemon) mutateEntry(w http.ResponseWriter, r *http.Request, fn func(*pool.Entry)) {
	index, ok := daemonIndex(w, r)
	if !ok {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.entries {
		if d.entries[i].Index == index {
			fn(&d.entries[i])
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDaemonError(w, http.StatusNotFound, pool.CodeIndexOutOfRange,
		fmt.Sprintf("no credential at index %d", index))
}

func daemonIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeDaemonError(w, http.StatusBadRequest, pool.CodeValidationFailure, "bad index")
		return 0, false
	}
	return index, true
}

func writeDaemonJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeDaemonError(w http.ResponseWriter, status int, code pool.ErrorCode, msg string) {
	writeDaemonJSON(w, status, &pool.Error{Code: code, Message: msg})
}
