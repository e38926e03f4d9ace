package performance

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Admin API latency check verifying <100ms per operation.
// Uses a CLI-started server for realistic numbers.
func TestAdminAPILatency(t *testing.T) {
	adminPort := getFreePort()

	ts, err := StartTestServer(adminPort)
	require.NoError(t, err, "Failed to start test server")
	defer ts.Stop()

	client := &http.Client{Timeout: 5 * time.Second}

	t.Run("Health endpoint", func(t *testing.T) {
		start := time.Now()
		resp, err := client.Get(ts.AdminURL() + "/health")
		latency := time.Since(start)
		require.NoError(t, err)
		resp.Body.Close()

		t.Logf("Health endpoint latency: %v", latency)
		assert.Less(t, latency, 100*time.Millisecond, "Health endpoint should respond in <100ms")
	})

	t.Run("Status endpoint", func(t *testing.T) {
		start := time.Now()
		resp, err := client.Get(ts.AdminURL() + "/api/status")
		latency := time.Since(start)
		require.NoError(t, err)
		resp.Body.Close()

		t.Logf("Status latency: %v", latency)
		assert.Less(t, latency, 100*time.Millisecond, "Status should respond in <100ms")
	})

	t.Run("List credentials endpoint", func(t *testing.T) {
		start := time.Now()
		resp, err := client.Get(ts.AdminURL() + "/api/credentials")
		latency := time.Since(start)
		require.NoError(t, err)
		resp.Body.Close()

		t.Logf("List credentials latency: %v", latency)
		assert.Less(t, latency, 100*time.Millisecond, "List credentials should respond in <100ms")
	})

	t.Run("Disable credential endpoint", func(t *testing.T) {
		body := []byte(`{"disabled": true}`)
		req, _ := http.NewRequest("PUT", ts.AdminURL()+"/api/credentials/1/disabled", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := client.Do(req)
		latency := time.Since(start)
		require.NoError(t, err)
		resp.Body.Close()

		t.Logf("Disable credential latency: %v", latency)
		assert.Less(t, latency, 100*time.Millisecond, "Disable credential should respond in <100ms")
	})

	t.Run("Rotate endpoint", func(t *testing.T) {
		start := time.Now()
		resp, err := client.Post(ts.AdminURL()+"/api/pool/rotate", "application/json", nil)
		latency := time.Since(start)
		require.NoError(t, err)
		resp.Body.Close()

		t.Logf("Rotate latency: %v", latency)
		assert.Less(t, latency, 100*time.Millisecond, "Rotate should respond in <100ms")
	})
}

func BenchmarkAdminAPIHealth(b *testing.B) {
	adminPort := getFreePort()

	ts, err := StartTestServer(adminPort)
	if err != nil {
		b.Fatalf("Failed to start test server: %v", err)
	}
	defer ts.Stop()

	client := &http.Client{}
	url := ts.AdminURL() + "/health"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		resp, err := client.Get(url)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}
}

func BenchmarkAdminAPIListCredentials(b *testing.B) {
	adminPort := getFreePort()

	ts, err := StartTestServer(adminPort)
	if err != nil {
		b.Fatalf("Failed to start test server: %v", err)
	}
	defer ts.Stop()

	client := &http.Client{}
	url := ts.AdminURL() + "/api/credentials"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		resp, err := client.Get(url)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}
}

// Average latency over many requests, catching slow outliers a single
// probe would miss.
func TestAdminAPIAverageLatency(t *testing.T) {
	adminPort := getFreePort()

	ts, err := StartTestServer(adminPort)
	require.NoError(t, err, "Failed to start test server")
	defer ts.Stop()

	client := &http.Client{Timeout: 5 * time.Second}
	numRequests := 100

	var totalLatency time.Duration

	for i := 0; i < numRequests; i++ {
		start := time.Now()
		resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", adminPort))
		latency := time.Since(start)
		require.NoError(t, err)
		resp.Body.Close()
		totalLatency += latency
	}

	avgLatency := totalLatency / time.Duration(numRequests)
	t.Logf("Average latency over %d requests: %v", numRequests, avgLatency)

	assert.Less(t, avgLatency, 100*time.Millisecond, "Average latency should be <100ms")
}
