package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Defaults applied by NewPerIPLimiter for zero config fields.
const (
	DefaultRate            = 100.0
	DefaultBurst           = 200
	DefaultCleanupInterval = time.Minute
	DefaultEntryTTL        = time.Minute
)

// PerIPConfig configures a PerIPLimiter.
type PerIPConfig struct {
	Rate            float64       // tokens per second granted to each client
	Burst           int           // bucket capacity per client
	TrustedProxies  []string      // CIDRs (or bare IPs) allowed to set forwarding headers
	TrustAllProxies bool          // honor forwarding headers from any source (insecure)
	CleanupInterval time.Duration // how often idle buckets are swept
	EntryTTL        time.Duration // idle time before a client bucket is dropped
}

// PerIPLimiter enforces an independent token bucket per client IP. A
// background goroutine drops buckets for idle clients; call Stop when the
// limiter is no longer needed.
type PerIPLimiter struct {
	rate  float64
	burst int

	mu      sync.RWMutex
	buckets map[string]*Bucket

	trusted  []*net.IPNet
	trustAll bool

	cleanupInterval time.Duration
	entryTTL        time.Duration
	stopCh          chan struct{}
	stoppedCh       chan struct{}
}

// NewPerIPLimiter creates a per-IP limiter and starts its cleanup
// goroutine.
func NewPerIPLimiter(cfg PerIPConfig) *PerIPLimiter {
	rate := cfg.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rate * 2)
	}
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	entryTTL := cfg.EntryTTL
	if entryTTL <= 0 {
		entryTTL = DefaultEntryTTL
	}

	l := &PerIPLimiter{
		rate:            rate,
		burst:           burst,
		buckets:         make(map[string]*Bucket),
		trustAll:        cfg.TrustAllProxies,
		cleanupInterval: cleanupInterval,
		entryTTL:        entryTTL,
		stopCh:          make(chan struct{}),
		stoppedCh:       make(chan struct{}),
	}

	if !cfg.TrustAllProxies {
		l.trusted = parseProxyRanges(cfg.TrustedProxies)
	}

	go l.cleanupLoop()

	return l
}

// parseProxyRanges parses CIDR ranges, accepting bare IPs as single-host
// networks.
func parseProxyRanges(ranges []string) []*net.IPNet {
	var out []*net.IPNet
	for _, r := range ranges {
		if _, network, err := net.ParseCIDR(r); err == nil {
			out = append(out, network)
			continue
		}
		ip := net.ParseIP(r)
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			_, network, _ := net.ParseCIDR(r + "/32")
			out = append(out, network)
		} else {
			_, network, _ := net.ParseCIDR(r + "/128")
			out = append(out, network)
		}
	}
	return out
}

// Burst returns the per-client bucket capacity.
func (l *PerIPLimiter) Burst() int {
	return l.burst
}

// Allow consumes a token for ip. When allowed, remaining is the token
// count left in the client's bucket and afterSec is the time until the
// bucket is full again; when denied, afterSec is the time until the next
// token becomes available.
func (l *PerIPLimiter) Allow(ip string) (allowed bool, remaining int, afterSec int64) {
	b := l.bucket(ip)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(time.Now())

	if b.tokens >= 1 {
		b.tokens--
		reset := int64((b.burst - b.tokens) / l.rate)
		if reset < 1 && b.tokens < b.burst {
			reset = 1
		}
		return true, int(b.tokens), reset
	}

	retry := int64((1 - b.tokens) / l.rate)
	if retry < 1 {
		retry = 1
	}
	return false, 0, retry
}

// bucket returns the bucket for ip, creating it on first sight.
func (l *PerIPLimiter) bucket(ip string) *Bucket {
	l.mu.RLock()
	b, ok := l.buckets[ip]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.buckets[ip]; ok {
		return b
	}
	b = NewBucket(l.rate, l.burst)
	l.buckets[ip] = b
	return b
}

// ClientIP extracts the client IP from the request. Forwarding headers
// (X-Forwarded-For, X-Real-IP) are honored only when the direct peer is a
// trusted proxy; otherwise a client could spoof its way to a fresh bucket.
func (l *PerIPLimiter) ClientIP(r *http.Request) string {
	remoteIP := stripPort(r.RemoteAddr)

	if !l.trustsProxy(remoteIP) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First hop is the original client.
		if i := strings.IndexByte(xff, ','); i != -1 {
			xff = xff[:i]
		}
		if ip := strings.TrimSpace(xff); ip != "" && net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}

	return remoteIP
}

// Stop terminates the cleanup goroutine and waits for it to exit.
func (l *PerIPLimiter) Stop() {
	close(l.stopCh)
	<-l.stoppedCh
}

func (l *PerIPLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()
	defer close(l.stoppedCh)

	for {
		select {
		case <-ticker.C:
			l.dropIdle()
		case <-l.stopCh:
			return
		}
	}
}

// dropIdle removes buckets whose clients have gone quiet.
func (l *PerIPLimiter) dropIdle() {
	cutoff := time.Now().Add(-l.entryTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, b := range l.buckets {
		b.mu.Lock()
		idle := b.last.Before(cutoff)
		b.mu.Unlock()
		if idle {
			delete(l.buckets, ip)
		}
	}
}

func (l *PerIPLimiter) trustsProxy(ip string) bool {
	if l.trustAll {
		return true
	}
	if len(l.trusted) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, network := range l.trusted {
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}

// stripPort returns the host part of a host:port address, or the input
// unchanged when no port is present.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
