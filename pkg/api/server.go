package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/chessinsight/chessinsight/pkg/config"
	"github.com/chessinsight/chessinsight/pkg/gateway"
	"github.com/chessinsight/chessinsight/pkg/httputil"
	"github.com/chessinsight/chessinsight/pkg/logging"
	"github.com/chessinsight/chessinsight/pkg/metrics"
	"github.com/chessinsight/chessinsight/pkg/ratelimit"
	"github.com/getkin/kin-openapi/openapi3"
)

// Engine is the part of *gateway.Engine the API needs.
type Engine interface {
	Analyse(ctx context.Context, pos gateway.Position, limit gateway.SearchLimit) (*gateway.Evaluation, error)
	State() gateway.State
	Name() string
	Running() bool
}

// Server is the HTTP front end for one engine.
type Server struct {
	engine   Engine
	settings *config.Settings
	doc      *openapi3.T
	mux      *http.ServeMux
	handler  http.Handler
	metrics  *metrics.Set
	limiter  *ratelimit.Limiter
	log      *slog.Logger
	now      func() time.Time
	started  time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request and error logs.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records into m instead of a set of its own.
func WithMetrics(m *metrics.Set) Option {
	return func(s *Server) { s.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds the server and its middleware chain.
func New(engine Engine, settings *config.Settings, opts ...Option) (*Server, error) {
	if settings == nil {
		settings = config.Defaults()
	}
	s := &Server{
		engine:   engine,
		settings: settings,
		log:      logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	if s.metrics == nil {
		s.metrics = metrics.NewSet(engine.Running)
	}

	if rl := settings.RateLimit; rl.Enabled {
		limiter, err := ratelimit.New(ratelimit.Config{
			Rate:           rl.RequestsPerSecond,
			Burst:          rl.Burst,
			TrustedProxies: rl.TrustedProxies,
		})
		if err != nil {
			return nil, err
		}
		s.limiter = limiter
	}

	doc, err := LoadDocument(context.Background())
	if err != nil {
		return nil, err
	}
	s.doc = doc

	s.mux = http.NewServeMux()
	s.registerRoutes(s.mux)

	validated, err := newRequestValidator(doc, s.mux)
	if err != nil {
		return nil, err
	}

	// Outermost first: metrics, recover, request id, request log, CORS,
	// validation.
	var h http.Handler = validated
	h = NewCORSMiddleware(h, &s.settings.CORS)
	h = requestLogger(s.log, h)
	h = requestID(h)
	h = recoverer(s.log, h)
	h = instrument(s.metrics, s.mux, h)
	s.handler = h
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Metrics returns the metrics the server records into.
func (s *Server) Metrics() *metrics.Set { return s.metrics }

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/ready", s.handleReady)
	// Only routes that reach the engine are rate limited.
	mux.Handle("GET /api/v1/stockfish", s.limited(s.handleStockfish))
	mux.Handle("POST /api/v1/analyse", s.limited(s.handleAnalyse))
	mux.HandleFunc("GET /openapi.json", s.handleOpenAPI)
	mux.Handle("GET /metrics", s.metrics.Registry.Handler())
}

func (s *Server) limited(h http.HandlerFunc) http.Handler {
	return ratelimit.Middleware(s.limiter, s.rejectRateLimited, h)
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, r *http.Request, d ratelimit.Decision) {
	s.log.Warn("rate limited", "client", s.limiter.ClientIP(r), "path", r.URL.Path,
		"request_id", RequestIDFrom(r.Context()))
	httputil.WriteError(w, http.StatusTooManyRequests, "rate_limited",
		fmt.Sprintf("too many analysis requests, retry in %ds", ratelimit.RetryAfterSeconds(d)))
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.settings.Server.ReadTimeout,
		ReadTimeout:       s.settings.Server.ReadTimeout,
		WriteTimeout:      s.settings.Server.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.settings.Server.ShutdownTimeout)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.settings.Server.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.settings.Server.Address(), err)
	}
	return s.Serve(ctx, ln)
}
