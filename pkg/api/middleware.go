package api

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/chessinsight/chessinsight/pkg/config"
	"github.com/chessinsight/chessinsight/pkg/httputil"
	"github.com/chessinsight/chessinsight/pkg/metrics"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// maxRequestIDLen bounds caller supplied request ids.
const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestIDFrom returns the id assigned to the request, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID keeps a well formed X-Request-ID from the caller or assigns a
// new UUID, and echoes it on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		if c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter { return rec.ResponseWriter }

// requestLogger logs one record per request. Server errors log at warn so
// they stand out from routine traffic.
func requestLogger(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.LogAttrs(r.Context(), level, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", rec.bytes),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", RequestIDFrom(r.Context())),
		)
	})
}

// instrument records every request against the mux pattern that serves
// it, so path parameters and unknown paths do not create new series.
func instrument(m *metrics.Set, mux *http.ServeMux, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		_, route := mux.Handler(r)
		m.ObserveRequest(r.Method, route, status, time.Since(start))
	})
}

// recoverer turns a handler panic into a 500 response.
func recoverer(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			log.Error("handler panic", "panic", v, "path", r.URL.Path,
				"request_id", RequestIDFrom(r.Context()), "stack", string(debug.Stack()))
			httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware applies a config.CORSConfig. Preflight requests are
// answered here: 204 for allowed origins, 403 otherwise.
type CORSMiddleware struct {
	handler http.Handler
	config  *config.CORSConfig
}

// NewCORSMiddleware wraps handler. A nil cfg uses config.DefaultCORSConfig.
func NewCORSMiddleware(handler http.Handler, cfg *config.CORSConfig) *CORSMiddleware {
	if cfg == nil {
		def := config.DefaultCORSConfig()
		cfg = &def
	}
	return &CORSMiddleware{handler: handler, config: cfg}
}

func (m *CORSMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !m.config.Enabled {
		m.handler.ServeHTTP(w, r)
		return
	}

	w.Header().Add("Vary", "Origin")
	origin := r.Header.Get("Origin")
	allowOrigin := m.config.GetAllowOriginValue(origin)
	preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

	if allowOrigin != "" {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", allowOrigin)
		if m.config.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if len(m.config.ExposeHeaders) > 0 {
			h.Set("Access-Control-Expose-Headers", strings.Join(m.config.ExposeHeaders, ", "))
		}
		if preflight {
			h.Set("Access-Control-Allow-Methods", m.allowMethods())
			h.Set("Access-Control-Allow-Headers", m.allowHeaders(r))
			if m.config.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(m.config.MaxAge))
			}
		}
	}

	if preflight {
		if allowOrigin == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	m.handler.ServeHTTP(w, r)
}

func (m *CORSMiddleware) allowMethods() string {
	if len(m.config.AllowMethods) == 0 {
		return "GET, POST, OPTIONS"
	}
	return strings.Join(m.config.AllowMethods, ", ")
}

// allowHeaders answers a "*" configuration with the headers the browser
// asked for, since the wildcard is not honoured on credentialed requests.
func (m *CORSMiddleware) allowHeaders(r *http.Request) string {
	headers := m.config.AllowHeaders
	if len(headers) == 0 {
		return "Content-Type"
	}
	for _, h := range headers {
		if h == "*" {
			if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
				return requested
			}
			return "*"
		}
	}
	return strings.Join(headers, ", ")
}
