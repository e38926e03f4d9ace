package performance

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/creddhq/credd/pkg/pool"
)

// TestServer is a credd server started via the CLI, so benchmarks
// reflect the binary users actually run. Each server gets its own
// in-process pool daemon and an isolated data directory.
type TestServer struct {
	AdminPort  int
	PoolURL    string
	cmd        *exec.Cmd
	binaryPath string
	dataDir    string
	poolSrv    *http.Server
}

var (
	buildMu    sync.Mutex
	binaryPath string
)

// ensureBinary builds the credd binary, reusing it if it already exists.
func ensureBinary() (string, error) {
	buildMu.Lock()
	defer buildMu.Unlock()

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	projectRoot := filepath.Join(wd, "..", "..")
	binaryPath = filepath.Join(projectRoot, "credd_bench")

	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath, nil
	}

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/credd")
	cmd.Dir = projectRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("failed to build CLI: %w\n%s", err, out)
	}

	return binaryPath, nil
}

// benchDaemon is the in-process pool daemon benchmark servers talk to.
type benchDaemon struct {
	mu           sync.Mutex
	entries      []pool.Entry
	currentIndex int
}

func (d *benchDaemon) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /pool", func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		defer d.mu.Unlock()
		available := 0
		for _, e := range d.entries {
			if !e.Disabled {
				available++
			}
		}
		benchJSON(w, http.StatusOK, pool.Snapshot{
			Entries:      append([]pool.Entry(nil), d.entries...),
			Total:        len(d.entries),
			Available:    available,
			CurrentIndex: d.currentIndex,
		})
	})
	mux.HandleFunc("PUT /credentials/{index}/disabled", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Disabled bool `json:"disabled"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		d.mutate(w, r, func(e *pool.Entry) { e.Disabled = body.Disabled })
	})
	mux.HandleFunc("PUT /credentials/{index}/priority", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Priority int `json:"priority"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		d.mutate(w, r, func(e *pool.Entry) { e.Priority = body.Priority })
	})
	mux.HandleFunc("POST /credentials/{index}/reset", func(w http.ResponseWriter, r *http.Request) {
		d.mutate(w, r, func(e *pool.Entry) {
			e.Disabled = false
			e.FailureCount = 0
		})
	})
	mux.HandleFunc("GET /credentials/{index}/balance", func(w http.ResponseWriter, r *http.Request) {
		benchJSON(w, http.StatusOK, pool.UsageLimits{
			SubscriptionTitle: "Pro",
			CurrentUsage:      100,
			UsageLimit:        1000,
		})
	})
	mux.HandleFunc("POST /pool/rotate", func(w http.ResponseWriter, r *http.Request) {
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
				benchJSON(w, http.StatusOK, map[string]int{"current_index": cand.Index})
				return
			}
		}
		benchJSON(w, http.StatusConflict, pool.Errorf(pool.CodeInternal, "no available credential"))
	})
	return mux
}

func (d *benchDaemon) mutate(w http.ResponseWriter, r *http.Request, fn func(*pool.Entry)) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		benchJSON(w, http.StatusBadRequest, pool.Errorf(pool.CodeValidationFailure, "bad index"))
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
	benchJSON(w, http.StatusNotFound, pool.Errorf(pool.CodeIndexOutOfRange, "no credential at index %d", index))
}

func benchJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// startPoolDaemon starts an in-process pool daemon with a small pool.
func startPoolDaemon() (*http.Server, string, error) {
	d := &benchDaemon{
		entries: []pool.Entry{
			{Index: 0, Priority: 0, AuthMethod: pool.AuthMethodSocial},
			{Index: 1, Priority: 10, AuthMethod: pool.AuthMethodIDC},
			{Index: 2, Priority: 20, Disabled: true, AuthMethod: pool.AuthMethodSocial},
		},
	}

	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return nil, "", fmt.Errorf("failed to listen for pool daemon: %w", err)
	}
	srv := &http.Server{Handler: d.handler()}
	go func() { _ = srv.Serve(ln) }()

	return srv, "http://" + ln.Addr().String(), nil
}

// StartTestServer starts a credd server via the CLI backed by a fresh
// pool daemon, and returns when it is healthy.
func StartTestServer(adminPort int) (*TestServer, error) {
	poolSrv, poolURL, err := startPoolDaemon()
	if err != nil {
		return nil, err
	}

	ts, err := StartTestServerAt(adminPort, poolURL)
	if err != nil {
		_ = poolSrv.Close()
		return nil, err
	}
	ts.poolSrv = poolSrv
	return ts, nil
}

// StartTestServerAt starts a credd server via the CLI against an
// arbitrary pool URL. The URL does not have to be reachable; the server
// starts degraded in that case.
func StartTestServerAt(adminPort int, poolURL string) (*TestServer, error) {
	binary, err := ensureBinary()
	if err != nil {
		return nil, err
	}

	dataDir, err := os.MkdirTemp("", "credd-perf-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp data dir: %w", err)
	}

	ts := &TestServer{
		AdminPort:  adminPort,
		PoolURL:    poolURL,
		binaryPath: binary,
		dataDir:    dataDir,
	}

	// Rate limiting off: throughput tests drive far past the default
	// per-IP budget and would measure the limiter instead of the server.
	ts.cmd = exec.Command(binary, "serve",
		"--admin-port", fmt.Sprintf("%d", adminPort),
		"--pool-url", poolURL,
		"--no-auth",
		"--no-ui",
		"--rate-limit", "0",
		"--data-dir", dataDir,
		"--pid-file", filepath.Join(dataDir, "credd.pid"),
		"--log-level", "error",
	)
	ts.cmd.Stdout = io.Discard
	ts.cmd.Stderr = io.Discard

	if err := ts.cmd.Start(); err != nil {
		ts.cleanup()
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	if err := ts.waitForReady(5 * time.Second); err != nil {
		ts.Stop()
		return nil, err
	}

	return ts, nil
}

// waitForReady polls the health endpoint until the server is ready.
func (ts *TestServer) waitForReady(timeout time.Duration) error {
	client := &http.Client{Timeout: 1 * time.Second}
	healthURL := fmt.Sprintf("http://localhost:%d/health", ts.AdminPort)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(healthURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	return fmt.Errorf("server not ready after %v", timeout)
}

// Stop gracefully stops the server and its pool daemon.
func (ts *TestServer) Stop() error {
	defer ts.cleanup()

	if ts.cmd == nil || ts.cmd.Process == nil {
		return nil
	}

	// SIGTERM for graceful shutdown, escalate if it is ignored.
	if err := ts.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = ts.cmd.Process.Kill()
	}

	done := make(chan error, 1)
	go func() { done <- ts.cmd.Wait() }()

	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		_ = ts.cmd.Process.Kill()
		return fmt.Errorf("server did not stop gracefully")
	}
}

func (ts *TestServer) cleanup() {
	if ts.poolSrv != nil {
		_ = ts.poolSrv.Close()
		ts.poolSrv = nil
	}
	if ts.dataDir != "" {
		_ = os.RemoveAll(ts.dataDir)
		ts.dataDir = ""
	}
}

// AdminURL returns the base URL for the admin API.
func (ts *TestServer) AdminURL() string {
	return fmt.Sprintf("http://localhost:%d", ts.AdminPort)
}
