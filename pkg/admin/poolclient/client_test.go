package poolclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/creddhq/credd/pkg/pool"
)

// --- Helpers ---

func mockDaemon(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func jsonHandler(t *testing.T, statusCode int, body interface{}) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if body != nil {
			if err := json.NewEncoder(w).Encode(body); err != nil {
				t.Errorf("failed to encode response: %v", err)
			}
		}
	}
}

// --- New / Options Tests ---

func TestNew(t *testing.T) {
	c := New("http://localhost:4785")
	if c == nil {
		t.Fatal("New() returned nil")
	}
	if c.baseURL != "http://localhost:4785" {
		t.Errorf("baseURL = %q, want %q", c.baseURL, "http://localhost:4785")
	}
	if c.httpClient.Timeout != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", c.httpClient.Timeout)
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:4785/")
	if c.baseURL != "http://localhost:4785" {
		t.Errorf("baseURL = %q, want trailing slash removed", c.baseURL)
	}
}

func TestNew_WithTimeout(t *testing.T) {
	c := New("http://localhost:4785", WithTimeout(5*time.Second))
	if c.httpClient.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", c.httpClient.Timeout)
	}
}

func TestNew_WithToken(t *testing.T) {
	c := New("http://localhost:4785", WithToken("secret-token"))
	if c.token != "secret-token" {
		t.Errorf("token = %q, want %q", c.token, "secret-token")
	}
}

// --- Health Tests ---

func TestHealth_Success(t *testing.T) {
	c := mockDaemon(t, jsonHandler(t, 200, map[string]string{"status": "ok"}))
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v, want nil", err)
	}
}

func TestHealth_Unhealthy(t *testing.T) {
	c := mockDaemon(t, jsonHandler(t, 503, nil))
	if err := c.Health(context.Background()); err == nil {
		t.Error("Health() error = nil, want error for 503")
	}
}

// --- Snapshot Tests ---

func TestSnapshot_Success(t *testing.T) {
	resp := pool.Snapshot{
		Total:        3,
		Available:    2,
		CurrentIndex: 1,
		Entries: []pool.Entry{
			{Index: 0, Priority: 5, Disabled: true, FailureCount: 4},
			{Index: 1, AuthMethod: pool.AuthMethodSocial},
			{Index: 2, AuthMethod: pool.AuthMethodIDC, HasProfileARN: true},
		},
	}
	c := mockDaemon(t, jsonHandler(t, 200, resp))

	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Total != 3 || snap.Available != 2 || snap.CurrentIndex != 1 {
		t.Errorf("Snapshot() = %+v, want total=3 available=2 current=1", snap)
	}
	if len(snap.Entries) != 3 {
		t.Fatalf("Snapshot() entries = %d, want 3", len(snap.Entries))
	}
	if !snap.Entries[0].Disabled || snap.Entries[0].FailureCount != 4 {
		t.Errorf("entry 0 = %+v, want disabled with 4 failures", snap.Entries[0])
	}
	if snap.Entries[2].AuthMethod != pool.AuthMethodIDC || !snap.Entries[2].HasProfileARN {
		t.Errorf("entry 2 = %+v, want idc with profile ARN", snap.Entries[2])
	}
}

func TestSnapshot_DaemonUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1") // port 1 should refuse
	_, err := c.Snapshot(context.Background())
	if err == nil {
		t.Fatal("Snapshot() error = nil, want connection error")
	}
	if got := pool.Classify(err); got != pool.CodeNetworkFailure {
		t.Errorf("Classify(err) = %q, want %q", got, pool.CodeNetworkFailure)
	}
}

// --- Mutation Tests ---

func TestSetDisabled_SendsBody(t *testing.T) {
	var capturedMethod, capturedPath string
	var capturedBody map[string]bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedMethod = r.Method
		capturedPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&capturedBody)
		w.WriteHeader(200)
	}))
	defer ts.Close()
	c := New(ts.URL)

	if err := c.SetDisabled(context.Background(), 2, true); err != nil {
		t.Fatalf("SetDisabled() error = %v", err)
	}
	if capturedMethod != "PUT" {
		t.Errorf("method = %q, want PUT", capturedMethod)
	}
	if capturedPath != "/credentials/2/disabled" {
		t.Errorf("path = %q, want /credentials/2/disabled", capturedPath)
	}
	if !capturedBody["disabled"] {
		t.Errorf("body = %v, want disabled=true", capturedBody)
	}
}

func TestSetDisabled_Bare404(t *testing.T) {
	c := mockDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no credential at index 9", http.StatusNotFound)
	})

	err := c.SetDisabled(context.Background(), 9, true)
	if err == nil {
		t.Fatal("SetDisabled() error = nil, want error for 404")
	}
	if !pool.IsCode(err, pool.CodeIndexOutOfRange) {
		t.Errorf("Classify(err) = %q, want index_out_of_range", pool.Classify(err))
	}
	if !strings.Contains(err.Error(), "no credential at index 9") {
		t.Errorf("error = %q, should carry the daemon's message", err.Error())
	}
}

func TestSetPriority_CodedError(t *testing.T) {
	c := mockDaemon(t, jsonHandler(t, 400, pool.Error{
		Code:    pool.CodeValidationFailure,
		Message: "priority must be >= 0",
	}))

	err := c.SetPriority(context.Background(), 0, -1)
	if err == nil {
		t.Fatal("SetPriority() error = nil, want coded error")
	}
	perr, ok := pool.AsError(err)
	if !ok {
		t.Fatalf("error %v is not a *pool.Error", err)
	}
	if perr.Code != pool.CodeValidationFailure {
		t.Errorf("code = %q, want validation_failure", perr.Code)
	}
	if perr.Message != "priority must be >= 0" {
		t.Errorf("message = %q, want daemon message preserved", perr.Message)
	}
}

func TestResetAndEnable_Success(t *testing.T) {
	var capturedMethod, capturedPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedMethod = r.Method
		capturedPath = r.URL.Path
		w.WriteHeader(204)
	}))
	defer ts.Close()
	c := New(ts.URL)

	if err := c.ResetAndEnable(context.Background(), 0); err != nil {
		t.Fatalf("ResetAndEnable() error = %v", err)
	}
	if capturedMethod != "POST" || capturedPath != "/credentials/0/reset" {
		t.Errorf("request = %s %s, want POST /credentials/0/reset", capturedMethod, capturedPath)
	}
}

// --- Balance Tests ---

func TestBalance_Success(t *testing.T) {
	c := mockDaemon(t, jsonHandler(t, 200, pool.UsageLimits{
		SubscriptionTitle: "Pro",
		CurrentUsage:      75,
		UsageLimit:        100,
	}))

	limits, err := c.Balance(context.Background(), 1)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if limits.SubscriptionTitle != "Pro" {
		t.Errorf("SubscriptionTitle = %q, want Pro", limits.SubscriptionTitle)
	}
	if limits.CurrentUsage != 75 || limits.UsageLimit != 100 {
		t.Errorf("usage = %v/%v, want 75/100", limits.CurrentUsage, limits.UsageLimit)
	}
}

func TestBalance_UpstreamCoded(t *testing.T) {
	c := mockDaemon(t, jsonHandler(t, 502, pool.Error{
		Code:    pool.CodeUpstreamRateLimited,
		Message: "provider rate limited the usage endpoint",
	}))

	_, err := c.Balance(context.Background(), 0)
	if err == nil {
		t.Fatal("Balance() error = nil, want coded error")
	}
	if got := pool.Classify(err); got != pool.CodeUpstreamRateLimited {
		t.Errorf("Classify(err) = %q, want upstream_rate_limited", got)
	}
}

// --- Rotate Tests ---

func TestSwitchToNext_Success(t *testing.T) {
	c := mockDaemon(t, jsonHandler(t, 200, map[string]int{"current_index": 2}))

	idx, err := c.SwitchToNext(context.Background())
	if err != nil {
		t.Fatalf("SwitchToNext() error = %v", err)
	}
	if idx != 2 {
		t.Errorf("SwitchToNext() = %d, want 2", idx)
	}
}

// --- Error Parsing Tests ---

func TestParseError_PlainText(t *testing.T) {
	c := mockDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		_, _ = w.Write([]byte("rotation strategy panicked"))
	})

	_, err := c.Snapshot(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "rotation strategy panicked") {
		t.Errorf("error = %q, should carry body text", err.Error())
	}
	// Untagged errors fall through to message classification.
	if got := pool.Classify(err); got != pool.CodeInternal {
		t.Errorf("Classify(err) = %q, want internal", got)
	}
}

func TestParseError_EmptyBody(t *testing.T) {
	c := mockDaemon(t, jsonHandler(t, 500, nil))

	_, err := c.Snapshot(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error = %q, should mention the status", err.Error())
	}
}

// --- Auth Token Tests ---

func TestAuthToken_SentInRequests(t *testing.T) {
	var capturedAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedAuth = r.Header.Get("Authorization")
		w.WriteHeader(200)
	}))
	defer ts.Close()
	c := New(ts.URL, WithToken("my-token"))

	_ = c.Health(context.Background())
	if capturedAuth != "Bearer my-token" {
		t.Errorf("Authorization header = %q, want %q", capturedAuth, "Bearer my-token")
	}
}

// --- Context Cancellation Tests ---

func TestSnapshot_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond) // simulate slow daemon
		w.WriteHeader(200)
	}))
	defer ts.Close()
	c := New(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Snapshot(ctx)
	if err == nil {
		t.Error("Snapshot() with cancelled context should error")
	}
}
