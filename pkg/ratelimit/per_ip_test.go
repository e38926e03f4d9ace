package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestNewPerIPLimiter_Defaults(t *testing.T) {
	t.Parallel()
	limiter := NewPerIPLimiter(PerIPConfig{})
	defer limiter.Stop()

	if limiter.rate != DefaultRate {
		t.Errorf("expected default rate %v, got %v", DefaultRate, limiter.rate)
	}
	if limiter.Burst() != DefaultBurst {
		t.Errorf("expected default burst %d, got %d", DefaultBurst, limiter.Burst())
	}
	if limiter.cleanupInterval != DefaultCleanupInterval {
		t.Errorf("expected default cleanup interval %v, got %v", DefaultCleanupInterval, limiter.cleanupInterval)
	}
	if limiter.entryTTL != DefaultEntryTTL {
		t.Errorf("expected default entry TTL %v, got %v", DefaultEntryTTL, limiter.entryTTL)
	}
}

func TestAllow_NewClientGetsFullBucket(t *testing.T) {
	t.Parallel()
	limiter := NewPerIPLimiter(PerIPConfig{Rate: 100, Burst: 10})
	defer limiter.Stop()

	allowed, remaining, afterSec := limiter.Allow("10.0.0.1")
	if !allowed {
		t.Error("expected first request from a new IP to be allowed")
	}
	if remaining != 9 {
		t.Errorf("expected remaining 9, got %d", remaining)
	}
	if afterSec < 0 {
		t.Errorf("expected non-negative reset time, got %d", afterSec)
	}
}

func TestAllow_DeniesWhenDrained(t *testing.T) {
	t.Parallel()
	limiter := NewPerIPLimiter(PerIPConfig{Rate: 1, Burst: 3})
	defer limiter.Stop()

	ip := "10.0.0.2"
	for i := 0; i < 3; i++ {
		if allowed, _, _ := limiter.Allow(ip); !allowed {
			t.Fatalf("request #%d should have been allowed", i+1)
		}
	}

	allowed, remaining, retryAfter := limiter.Allow(ip)
	if allowed {
		t.Error("expected denial once the bucket is drained")
	}
	if remaining != 0 {
		t.Errorf("expected remaining 0 when drained, got %d", remaining)
	}
	if retryAfter < 1 {
		t.Errorf("expected retryAfter >= 1s, got %d", retryAfter)
	}
}

func TestAllow_ClientsAreIndependent(t *testing.T) {
	t.Parallel()
	limiter := NewPerIPLimiter(PerIPConfig{Rate: 1, Burst: 1})
	defer limiter.Stop()

	if allowed, _, _ := limiter.Allow("10.0.0.3"); !allowed {
		t.Fatal("first client should be allowed")
	}
	if allowed, _, _ := limiter.Allow("10.0.0.3"); allowed {
		t.Fatal("first client should now be drained")
	}
	// A different client is unaffected by the first one's drain.
	if allowed, _, _ := limiter.Allow("10.0.0.4"); !allowed {
		t.Error("second client should have its own bucket")
	}
}

func TestAllow_ConcurrentClients(t *testing.T) {
	t.Parallel()
	limiter := NewPerIPLimiter(PerIPConfig{Rate: 1000, Burst: 1000})
	defer limiter.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ip := []string{"10.1.0.1", "10.1.0.2", "10.1.0.3", "10.1.0.4"}[n%4]
			for j := 0; j < 50; j++ {
				limiter.Allow(ip)
			}
		}(i)
	}
	wg.Wait()
}

func TestClientIP_IgnoresForwardingFromUntrustedPeer(t *testing.T) {
	t.Parallel()
	limiter := NewPerIPLimiter(PerIPConfig{Rate: 10, Burst: 10})
	defer limiter.Stop()

	r := httptest.NewRequest(http.MethodGet, "/api/credentials", nil)
	r.RemoteAddr = "203.0.113.9:54321"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	r.Header.Set("X-Real-IP", "198.51.100.2")

	if got := limiter.ClientIP(r); got != "203.0.113.9" {
		t.Errorf("expected the direct peer IP, got %q", got)
	}
}

func TestClientIP_TrustedProxyHeaders(t *testing.T) {
	t.Parallel()
	limiter := NewPerIPLimiter(PerIPConfig{
		Rate:           10,
		Burst:          10,
		TrustedProxies: []string{"10.0.0.0/8"},
	})
	defer limiter.Stop()

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{
			name:       "first XFF hop wins",
			remoteAddr: "10.2.3.4:443",
			xff:        "198.51.100.1, 10.2.3.4",
			want:       "198.51.100.1",
		},
		{
			name:       "X-Real-IP when no XFF",
			remoteAddr: "10.2.3.4:443",
			xri:        "198.51.100.2",
			want:       "198.51.100.2",
		},
		{
			name:       "garbage XFF falls through to peer",
			remoteAddr: "10.2.3.4:443",
			xff:        "not-an-ip",
			want:       "10.2.3.4",
		},
		{
			name:       "untrusted peer keeps its own IP",
			remoteAddr: "192.0.2.1:443",
			xff:        "198.51.100.1",
			want:       "192.0.2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := limiter.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIP_TrustAllProxies(t *testing.T) {
	t.Parallel()
	limiter := NewPerIPLimiter(PerIPConfig{Rate: 10, Burst: 10, TrustAllProxies: true})
	defer limiter.Stop()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:443"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")

	if got := limiter.ClientIP(r); got != "198.51.100.1" {
		t.Errorf("expected forwarded IP with TrustAllProxies, got %q", got)
	}
}

func TestParseProxyRanges_BareIPs(t *testing.T) {
	t.Parallel()
	ranges := parseProxyRanges([]string{"10.0.0.1", "2001:db8::1", "172.16.0.0/12", "junk"})

	if len(ranges) != 3 {
		t.Fatalf("expected 3 parsed ranges, got %d", len(ranges))
	}
	if !ranges[0].Contains([]byte{10, 0, 0, 1}) {
		t.Error("bare IPv4 should parse as a /32")
	}
}

func TestCleanup_DropsIdleBuckets(t *testing.T) {
	t.Parallel()
	limiter := NewPerIPLimiter(PerIPConfig{
		Rate:            10,
		Burst:           10,
		CleanupInterval: 20 * time.Millisecond,
		EntryTTL:        20 * time.Millisecond,
	})
	defer limiter.Stop()

	limiter.Allow("10.9.9.9")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		limiter.mu.RLock()
		n := len(limiter.buckets)
		limiter.mu.RUnlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("idle bucket was not cleaned up")
}

func TestStop_TerminatesCleanup(t *testing.T) {
	t.Parallel()
	limiter := NewPerIPLimiter(PerIPConfig{Rate: 10, Burst: 10})

	done := make(chan struct{})
	go func() {
		limiter.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
