package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *fakeClock) {
	t.Helper()
	l, err := New(cfg)
	require.NoError(t, err)
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l.now = clock.Now
	l.lastSweep = clock.Now()
	return l, clock
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       Config
		wantBurst int
		wantErr   string
	}{
		{name: "explicit burst", cfg: Config{Rate: 1, Burst: 5}, wantBurst: 5},
		{name: "burst from rate", cfg: Config{Rate: 2.5}, wantBurst: 3},
		{name: "slow rate", cfg: Config{Rate: 0.1}, wantBurst: 1},
		{name: "proxy cidr and address", cfg: Config{Rate: 1, TrustedProxies: []string{"10.0.0.0/8", "::1"}}, wantBurst: 1},
		{name: "zero rate", cfg: Config{}, wantErr: "ratelimit: rate: must be positive"},
		{name: "bad proxy", cfg: Config{Rate: 1, TrustedProxies: []string{"gateway"}}, wantErr: "trustedProxies"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l, err := New(tt.cfg)
			if tt.wantErr != "" {
				var cfgErr *ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBurst, l.Burst())
		})
	}
}

func TestAllow(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(t, Config{Rate: 2, Burst: 3})

	for i := 2; i >= 0; i-- {
		d := l.Allow("a")
		require.True(t, d.Allowed)
		assert.Equal(t, i, d.Remaining)
		assert.Equal(t, 3, d.Limit)
	}

	d := l.Allow("a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 500*time.Millisecond, d.RetryAfter)
	assert.Equal(t, 1, RetryAfterSeconds(d))

	// other clients are unaffected
	assert.True(t, l.Allow("b").Allowed)

	clock.Advance(500 * time.Millisecond)
	assert.True(t, l.Allow("a").Allowed)
	assert.False(t, l.Allow("a").Allowed)

	// refill stops at the burst
	clock.Advance(time.Hour)
	for range 3 {
		assert.True(t, l.Allow("a").Allowed)
	}
	assert.False(t, l.Allow("a").Allowed)
}

func TestIdleBucketsAreSwept(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(t, Config{Rate: 1, IdleTTL: time.Minute})
	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.Len())

	clock.Advance(30 * time.Second)
	l.Allow("b")
	clock.Advance(40 * time.Second)
	l.Allow("c")

	// a was idle for 70s, b for 40s
	assert.Equal(t, 2, l.Len())
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(t, Config{Rate: 1, TrustedProxies: []string{"10.0.0.0/8"}})
	untrusting, _ := newTestLimiter(t, Config{Rate: 1})

	tests := []struct {
		name    string
		limiter *Limiter
		remote  string
		headers map[string]string
		want    string
	}{
		{"plain peer", l, "192.0.2.7:5555", nil, "192.0.2.7"},
		{"untrusted peer ignores forwarding", l, "192.0.2.7:5555", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "192.0.2.7"},
		{"trusted proxy forwarded for", l, "10.1.2.3:80", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.1.2.3"}, "198.51.100.1"},
		{"trusted proxy real ip", l, "10.1.2.3:80", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"trusted proxy garbage header", l, "10.1.2.3:80", map[string]string{"X-Forwarded-For": "nonsense"}, "10.1.2.3"},
		{"no proxies configured", untrusting, "10.1.2.3:80", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "10.1.2.3"},
		{"ipv6 peer", l, "[2001:db8::1]:443", nil, "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, tt.limiter.ClientIP(r))
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("nil limiter passes through", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		Middleware(nil, nil, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("limits and rejects", func(t *testing.T) {
		t.Parallel()
		l, _ := newTestLimiter(t, Config{Rate: 0.5, Burst: 1})
		var rejected Decision
		h := Middleware(l, func(w http.ResponseWriter, r *http.Request, d Decision) {
			rejected = d
			w.WriteHeader(http.StatusTooManyRequests)
		}, ok)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
		assert.False(t, rejected.Allowed)
	})

	t.Run("default reject", func(t *testing.T) {
		t.Parallel()
		l, _ := newTestLimiter(t, Config{Rate: 1, Burst: 1})
		h := Middleware(l, nil, ok)
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}
