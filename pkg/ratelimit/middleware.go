package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/creddhq/credd/pkg/httputil"
)

// Middleware returns HTTP middleware enforcing the limiter per client IP.
// Every response carries X-RateLimit-* headers; over-limit requests get a
// JSON 429 with Retry-After. A nil limiter passes everything through.
func Middleware(limiter *PerIPLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := limiter.ClientIP(r)
			allowed, remaining, afterSec := limiter.Allow(ip)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(afterSec, 10))

			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Retry-After", strconv.FormatInt(afterSec, 10))
			httputil.WriteError(w, http.StatusTooManyRequests,
				"rate_limit_exceeded", "Too many requests. Please slow down.")
		})
	}
}
