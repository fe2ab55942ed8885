// Package ratelimit limits requests per client with token buckets.
//
// Each client, identified by IP address, gets a bucket that holds up to
// Burst tokens and refills at Rate tokens per second. Buckets left
// untouched for the idle TTL are dropped during later calls, so the limiter
// needs no background goroutine and no Stop.
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"
)

// DefaultIdleTTL is how long an untouched client bucket is kept.
const DefaultIdleTTL = 5 * time.Minute

// Config configures a Limiter.
type Config struct {
	// Rate is the refill rate in requests per second. Must be positive.
	Rate float64
	// Burst is the bucket size. Values below 1 are raised to
	// max(1, ceil(Rate)).
	Burst int
	// TrustedProxies lists addresses or CIDR prefixes whose
	// X-Forwarded-For and X-Real-IP headers are believed.
	TrustedProxies []string
	// IdleTTL defaults to DefaultIdleTTL.
	IdleTTL time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is how long until the next token, when not allowed.
	RetryAfter time.Duration
}

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-client token bucket limiter. It is safe for concurrent
// use.
type Limiter struct {
	rate    float64
	burst   int
	idleTTL time.Duration
	proxies []netip.Prefix
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// New returns a limiter for cfg. Unparsable proxy entries are returned as
// an error.
func New(cfg Config) (*Limiter, error) {
	l := &Limiter{
		rate:    cfg.Rate,
		burst:   cfg.Burst,
		idleTTL: cfg.IdleTTL,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	if l.rate <= 0 {
		return nil, &ConfigError{Field: "rate", Reason: "must be positive"}
	}
	if l.burst < 1 {
		l.burst = max(1, int(math.Ceil(l.rate)))
	}
	if l.idleTTL <= 0 {
		l.idleTTL = DefaultIdleTTL
	}
	for _, p := range cfg.TrustedProxies {
		prefix, err := parsePrefix(p)
		if err != nil {
			return nil, &ConfigError{Field: "trustedProxies", Reason: err.Error()}
		}
		l.proxies = append(l.proxies, prefix)
	}
	l.lastSweep = l.now()
	return l, nil
}

// ConfigError reports an invalid Config field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "ratelimit: " + e.Field + ": " + e.Reason
}

func parsePrefix(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		return p.Masked(), err
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Burst returns the bucket size.
func (l *Limiter) Burst() int { return l.burst }

// Allow takes one token from key's bucket.
func (l *Limiter) Allow(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), last: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(l.burst), b.tokens+elapsed*l.rate)
	}
	b.last = now

	d := Decision{Limit: l.burst}
	if b.tokens >= 1 {
		b.tokens--
		d.Allowed = true
		d.Remaining = int(b.tokens)
		return d
	}
	d.RetryAfter = time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
	return d
}

// sweep drops buckets idle for the TTL. Callers hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.last) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// ClientIP returns the address requests from r are accounted to. Forwarding
// headers count only when the peer is a trusted proxy.
func (l *Limiter) ClientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !l.trusted(peer) {
		return peer
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}
	return peer
}

func (l *Limiter) trusted(peer string) bool {
	if len(l.proxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range l.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
