package ratelimit

import (
	"math"
	"net/http"
	"strconv"
)

// RejectFunc writes the response for a limited request. The rate limit
// headers are already set.
type RejectFunc func(w http.ResponseWriter, r *http.Request, d Decision)

// Middleware enforces l on next. A nil limiter passes everything through.
// reject defaults to a plain 429.
func Middleware(l *Limiter, reject RejectFunc, next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	if reject == nil {
		reject = func(w http.ResponseWriter, _ *http.Request, _ Decision) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := l.Allow(l.ClientIP(r))
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if d.Allowed {
			next.ServeHTTP(w, r)
			return
		}
		h.Set("Retry-After", strconv.Itoa(RetryAfterSeconds(d)))
		reject(w, r, d)
	})
}

// RetryAfterSeconds rounds d.RetryAfter up to whole seconds, at least one.
func RetryAfterSeconds(d Decision) int {
	return max(1, int(math.Ceil(d.RetryAfter.Seconds())))
}
